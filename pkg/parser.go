package hydrogen

import "fmt"

// Parser is Hydrogen's single-pass parser and bytecode emitter: tokens go
// in, register-allocated bytecode comes out directly, with no intermediate
// AST. One token of lookahead is buffered in buf.
type Parser struct {
	state  *State
	lexer  *Lexer
	buf    *Token
	pkg    int
	source int

	// imported tracks package names this file has already imported, so a
	// duplicate import in one file is rejected.
	imported map[string]bool

	scope *FunctionScope
	// locals is the parser-wide stack of currently active named locals,
	// shared across nested function scopes; each FunctionScope owns a
	// window of it.
	locals []localVar

	err *Error
}

type localVar struct {
	name       string
	slot       int
	blockDepth int
	fnScope    *FunctionScope
}

// NewParser creates a parser over one source, emitting into pkg.
func NewParser(state *State, pkg, source int) *Parser {
	return &Parser{
		state:  state,
		lexer:  NewLexer(state, source),
		pkg:    pkg,
		source: source,
	}
}

// Parse compiles the entire source as package-level code, appending emitted
// instructions to a synthetic top-level function for pkg and returning that
// function's index. Returns an *Error on the first lex or parse failure.
func (p *Parser) Parse() (fnIndex int, err *Error) {
	top := &Function{Package: p.pkg, Source: p.source, Struct: NotFound}
	p.state.functions = append(p.state.functions, top)
	fnIndex = len(p.state.functions) - 1

	p.scope = &FunctionScope{fn: top, fnIndex: fnIndex, blockDepth: 1, localStart: len(p.locals)}

	defer func() {
		if r := recover(); r != nil {
			pe, ok := r.(*Error)
			if !ok {
				panic(r)
			}
			p.err = pe
			err = pe
		}
	}()

	for !p.check(TokenEOF) {
		p.statement()
	}

	p.emitUpvalueCloses(fnIndex)
	p.emit(RET0, 0, 0, 0)
	return fnIndex, nil
}

// --- token stream -----------------------------------------------------------

func (p *Parser) peek() Token {
	if p.buf == nil {
		p.buf = p.lex()
	}
	return *p.buf
}

func (p *Parser) lex() *Token {
	for {
		if !p.lexer.Next() {
			if p.lexer.Err() != nil {
				p.fail(p.lexer.Err())
			}
			tok := p.lexer.Token()
			return &tok
		}
		tok := p.lexer.Token()
		if tok.Type == TokenComment {
			continue
		}
		return &tok
	}
}

func (p *Parser) next() Token {
	tok := p.peek()
	p.buf = nil
	return tok
}

func (p *Parser) check(t TokenType) bool {
	return p.peek().Type == t
}

func (p *Parser) match(t TokenType) bool {
	if p.check(t) {
		p.next()
		return true
	}
	return false
}

func (p *Parser) expect(t TokenType) Token {
	tok := p.next()
	if tok.Type != t {
		p.errorfAt(tok, "expected `%s`, got `%s`", t, tok.Type)
	}
	return tok
}

// --- errors ------------------------------------------------------------------

// fail unwinds the recursive-descent call stack via panic; Parse's
// deferred recover turns it back into a returned *Error.
func (p *Parser) fail(err *Error) {
	panic(err)
}

func (p *Parser) errorfAt(tok Token, format string, args ...interface{}) {
	err := p.state.newErrorAtToken(tok, fmt.Sprintf(format, args...))
	panic(err)
}

func (p *Parser) errorf(format string, args ...interface{}) {
	p.errorfAt(p.peek(), format, args...)
}

// --- instruction emission ----------------------------------------------------

// emit appends one instruction to the current function scope and returns its
// index.
func (p *Parser) emit(op Opcode, a0, a1, a2 uint16) int {
	fn := p.scope.fn
	fn.Instructions = append(fn.Instructions, NewInstruction(op, a0, a1, a2))
	return len(fn.Instructions) - 1
}

func (p *Parser) emitSigned(op Opcode, a0 uint16, a1 int16, a2 uint16) int {
	return p.emit(op, a0, uint16(a1), a2)
}

// here returns the index the next emitted instruction will occupy.
func (p *Parser) here() int {
	return len(p.scope.fn.Instructions)
}

func (p *Parser) patchArg(idx, argIdx int, v uint16) {
	fn := p.scope.fn
	fn.Instructions[idx] = fn.Instructions[idx].WithArg(argIdx, v)
}

func (p *Parser) patchOp(idx int, op Opcode) {
	fn := p.scope.fn
	fn.Instructions[idx] = fn.Instructions[idx].WithOp(op)
}

func (p *Parser) instructionAt(idx int) Instruction {
	return p.scope.fn.Instructions[idx]
}
