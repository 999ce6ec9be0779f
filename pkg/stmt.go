package hydrogen

// This file compiles statements: variable declarations and assignments,
// control flow, function/method/struct definitions, and `return`/`break`.
// Expression temporaries are released at the end of every statement, so a
// function's named locals always occupy the lowest contiguous slots of its
// frame.

func (p *Parser) statement() {
	saveSlots := p.scope.nextSlot
	saveNamed := p.scope.localCount

	switch p.peek().Type {
	case TokenLet:
		p.letStatement()
	case TokenIf:
		p.ifStatement()
	case TokenWhile:
		p.whileStatement()
	case TokenLoop:
		p.loopStatement()
	case TokenBreak:
		p.breakStatement()
	case TokenReturn:
		p.returnStatement()
	case TokenFn:
		p.fnStatement()
	case TokenStruct:
		p.structStatement()
	case TokenImport:
		p.importStatement()
	case TokenOpenBrace:
		p.block()
	default:
		p.assignOrExprStatement()
	}

	// Release every temporary the statement reserved, keeping only slots
	// that now belong to named locals declared by it.
	p.scope.nextSlot = saveSlots + (p.scope.localCount - saveNamed)
}

// block parses `{ statement* }`, scoping named locals declared inside to the
// braces.
func (p *Parser) block() {
	p.expect(TokenOpenBrace)
	p.enterBlock()
	for !p.check(TokenCloseBrace) && !p.check(TokenEOF) {
		p.statement()
	}
	p.expect(TokenCloseBrace)
	p.exitBlock()
}

// discardEmitted runs f, then throws away every instruction it emitted.
// Used for branches whose condition is a compile-time constant: the body
// still has to parse (and report its own errors), but contributes no code.
func (p *Parser) discardEmitted(f func()) {
	fn := p.scope.fn
	mark := len(fn.Instructions)
	breaksMark := 0
	if p.scope.loop != nil {
		breaksMark = len(p.scope.loop.breaks)
	}

	f()

	fn.Instructions = fn.Instructions[:mark]
	if p.scope.loop != nil {
		p.scope.loop.breaks = p.scope.loop.breaks[:breaksMark]
	}
}

func (p *Parser) atTopLevel() bool {
	return p.scope.parent == nil && p.scope.blockDepth == 1
}

// letStatement compiles `let name = expr`. At file top level the name
// becomes a package-level variable; anywhere else it becomes a named local
// pinned to the current block.
func (p *Parser) letStatement() {
	p.next()
	nameTok := p.expect(TokenIdentifier)
	name := nameTok.Lexeme(p.curSource())
	p.expect(TokenAssign)

	if p.atTopLevel() {
		pkg := p.state.packages[p.pkg]
		if pkg.FindLocal(name) != NotFound {
			p.errorfAt(nameTok, "duplicate top-level name `%s`", name)
		}
		op := p.expression()
		idx := pkg.AddLocal(name, ValueNil)
		p.storeTopLevel(idx, p.pkg, op)
		return
	}

	for i := len(p.locals) - 1; i >= p.scope.localStart; i-- {
		lv := p.locals[i]
		if lv.fnScope != p.scope || lv.blockDepth < p.scope.blockDepth {
			break
		}
		if lv.name == name {
			p.errorfAt(nameTok, "duplicate local name `%s`", name)
		}
	}

	slot := p.reserveSlot()
	op := p.expression()
	p.dischargeInto(op, slot)
	p.locals = append(p.locals, localVar{name: name, slot: slot, blockDepth: p.scope.blockDepth, fnScope: p.scope})
	p.scope.localCount++
}

// storeTopLevel emits the MOV_T* form matching the operand's kind.
func (p *Parser) storeTopLevel(idx, pkg int, op operand) {
	suffix, arg := p.encodeValueArg(op)
	p.emit(movTopLevelOp(suffix), uint16(idx), arg, uint16(pkg))
}

func isCompoundAssign(t TokenType) bool {
	switch t {
	case TokenPlusEq, TokenMinusEq, TokenStarEq, TokenSlashEq:
		return true
	}
	return false
}

func compoundBase(t TokenType) TokenType {
	switch t {
	case TokenPlusEq:
		return TokenPlus
	case TokenMinusEq:
		return TokenMinus
	case TokenStarEq:
		return TokenStar
	case TokenSlashEq:
		return TokenSlash
	}
	panic("hydrogen: not a compound assignment token")
}

// assignOrExprStatement distinguishes `name = ...` (resolved without
// emitting a read), assignments through a field/index chain (which rewrite
// the trailing read instruction into the matching SET), and plain
// expression statements whose value is discarded.
func (p *Parser) assignOrExprStatement() {
	var left operand
	if p.check(TokenIdentifier) {
		identTok := p.next()
		if t := p.peek().Type; t == TokenAssign || isCompoundAssign(t) {
			p.assignName(identTok, t)
			return
		}
		left = p.parseExprWith(p.parsePostfix(p.compileIdentifier(identTok)), 1)
	} else {
		left = p.expression()
	}

	if t := p.peek().Type; t == TokenAssign || isCompoundAssign(t) {
		p.assignAccess(left, t)
	}
}

// assignName compiles assignment to a bare name: a named local, a captured
// upvalue, a package top-level, or another package's top-level via
// `pkg.member = ...`.
func (p *Parser) assignName(identTok Token, assignTok TokenType) {
	name := identTok.Lexeme(p.curSource())
	res, idx := p.resolve(name)

	pkg := p.pkg
	if res == resPackage {
		p.errorfAt(identTok, "cannot assign to package `%s`", name)
	}

	p.next() // consume `=` or the compound token

	switch res {
	case resLocal:
		rhs := p.assignValue(assignTok, localOperand(idx))
		p.dischargeInto(rhs, idx)

	case resUpvalue:
		var cur operand
		if isCompoundAssign(assignTok) {
			tmp := p.reserveSlot()
			p.emit(MOV_LU, uint16(tmp), uint16(idx), 0)
			cur = localOperand(tmp)
		}
		rhs := p.assignValue(assignTok, cur)
		suffix, arg := p.encodeValueArg(rhs)
		p.emit(movUpvalOp(suffix), uint16(idx), arg, 0)

	case resTopLevel:
		var cur operand
		if isCompoundAssign(assignTok) {
			tmp := p.reserveSlot()
			p.emit(MOV_LT, uint16(tmp), uint16(idx), uint16(pkg))
			cur = localOperand(tmp)
		}
		rhs := p.assignValue(assignTok, cur)
		p.storeTopLevel(idx, pkg, rhs)

	default:
		p.errorfAt(identTok, "undefined name `%s`", name)
	}
}

// assignValue parses the right-hand side of an assignment. For compound
// forms, cur holds the target's current value and the combined result is
// returned.
func (p *Parser) assignValue(assignTok TokenType, cur operand) operand {
	rhs := p.expression()
	if isCompoundAssign(assignTok) {
		return p.combineBinary(compoundBase(assignTok), cur, rhs)
	}
	return rhs
}

// assignAccess compiles assignment through a trailing field or index
// access. The access was already emitted as a read; for a plain `=` the
// read is dropped and replaced by the matching SET, while compound forms
// keep the read as the current value.
func (p *Parser) assignAccess(left operand, assignTok TokenType) {
	last := p.here() - 1
	if left.kind != operandLocal || last < 0 {
		p.errorf("invalid assignment target")
	}

	ins := p.instructionAt(last)
	if int(ins.Arg(0)) != left.local {
		p.errorf("invalid assignment target")
	}

	switch ins.Op() {
	case STRUCT_FIELD:
		objSlot, fieldIdx := ins.Arg(1), ins.Arg(2)
		rhs := p.rewriteTarget(last, left, assignTok)
		suffix, arg := p.encodeValueArg(rhs)
		p.emit(structSetOp(suffix), objSlot, fieldIdx, arg)

	case ARRAY_GET_I:
		idx, arrSlot := ins.Arg(1), ins.Arg(2)
		rhs := p.rewriteTarget(last, left, assignTok)
		suffix, arg := p.encodeValueArg(rhs)
		p.emit(arrayISetOp(suffix), idx, arg, arrSlot)

	case ARRAY_GET_L:
		idxSlot, arrSlot := ins.Arg(1), ins.Arg(2)
		rhs := p.rewriteTarget(last, left, assignTok)
		suffix, arg := p.encodeValueArg(rhs)
		p.emit(arrayLSetOp(suffix), idxSlot, arg, arrSlot)

	case MOV_LT:
		tlSlot, pkgIdx := ins.Arg(1), ins.Arg(2)
		rhs := p.rewriteTarget(last, left, assignTok)
		p.storeTopLevel(int(tlSlot), int(pkgIdx), rhs)

	default:
		p.errorf("invalid assignment target")
	}
}

// rewriteTarget consumes the assignment token and parses the value to
// store. A plain `=` drops the read instruction at last; a compound form
// keeps it and folds its result into the stored value.
func (p *Parser) rewriteTarget(last int, cur operand, assignTok TokenType) operand {
	p.next()
	if !isCompoundAssign(assignTok) {
		fn := p.scope.fn
		fn.Instructions = fn.Instructions[:last]
		return p.expression()
	}
	rhs := p.expression()
	return p.combineBinary(compoundBase(assignTok), cur, rhs)
}

// ifStatement compiles an `if` / `else if` / `else` chain. Branch bodies
// end in a shared forward jump past the remaining branches; each branch's
// false case is patched to the start of the next one. Constant conditions
// prune at compile time: a false branch contributes no code, a true branch
// drops everything after it.
func (p *Parser) ifStatement() {
	p.next()
	var endJumps []int

	for {
		condOp := p.expression()

		if truthy, isConst := condOp.constTruthy(); isConst {
			if truthy {
				p.block()
				p.discardRemainingBranches()
				p.patchJumpsTo(endJumps, p.here())
				return
			}
			p.discardEmitted(p.block)
		} else {
			cond := p.normalizeCond(p.toCond(condOp))
			p.patchJumpsTo(cond.trueList, p.here())
			p.block()
			if p.check(TokenElseIf) || p.check(TokenElse) {
				endJumps = append(endJumps, p.emit(JMP, 0, 0, 0))
			}
			p.patchJumpsTo(cond.falseList, p.here())
		}

		if p.match(TokenElseIf) {
			continue
		}
		if p.match(TokenElse) {
			p.block()
		}
		break
	}

	p.patchJumpsTo(endJumps, p.here())
}

func (p *Parser) discardRemainingBranches() {
	for {
		if p.match(TokenElseIf) {
			p.discardEmitted(func() {
				p.expression()
				p.block()
			})
			continue
		}
		if p.match(TokenElse) {
			p.discardEmitted(p.block)
		}
		return
	}
}

// whileStatement compiles `while cond { ... }`: condition, body, then a
// backward LOOP to the condition; the condition's false list and every
// `break` inside the body land just past the LOOP. A constant-false
// condition removes the loop entirely.
func (p *Parser) whileStatement() {
	p.next()
	start := p.here()
	condOp := p.expression()

	if truthy, isConst := condOp.constTruthy(); isConst && !truthy {
		p.discardEmitted(p.block)
		return
	}

	cond := p.normalizeCond(p.toCond(condOp))
	p.patchJumpsTo(cond.trueList, p.here())

	p.pushLoop(start)
	p.block()

	loopIns := p.emit(LOOP, 0, 0, 0)
	p.patchArg(loopIns, 0, uint16(loopIns+1-start))

	after := p.here()
	p.patchJumpsTo(cond.falseList, after)
	p.patchJumpsTo(p.scope.loop.breaks, after)
	p.popLoop()
}

// loopStatement compiles `loop { ... }`: an unconditional backward jump,
// escapable only by `break` or `return`.
func (p *Parser) loopStatement() {
	p.next()
	start := p.here()

	p.pushLoop(start)
	p.block()

	loopIns := p.emit(LOOP, 0, 0, 0)
	p.patchArg(loopIns, 0, uint16(loopIns+1-start))

	p.patchJumpsTo(p.scope.loop.breaks, p.here())
	p.popLoop()
}

func (p *Parser) breakStatement() {
	tok := p.next()
	if p.scope.loop == nil {
		p.errorfAt(tok, "`break` not inside loop")
	}
	jmp := p.emit(JMP, 0, 0, 0)
	p.scope.loop.breaks = append(p.scope.loop.breaks, jmp)
}

func (p *Parser) returnStatement() {
	tok := p.next()
	if p.scope.parent == nil {
		p.errorfAt(tok, "cannot return from top level")
	}

	if p.check(TokenCloseBrace) {
		p.emit(RET0, 0, 0, 0)
		return
	}

	op := p.expression()
	suffix, arg := p.encodeValueArg(op)
	p.emit(retOp(suffix), arg, 0, 0)
}

// fnStatement compiles `fn name(args) { ... }` and the method form
// `fn (Type) name(args) { ... }`. The name is bound before the body is
// compiled so recursive calls resolve.
func (p *Parser) fnStatement() {
	p.next()

	if p.match(TokenOpenParen) {
		typeTok := p.expect(TokenIdentifier)
		p.expect(TokenCloseParen)
		nameTok := p.next()
		if nameTok.Type != TokenIdentifier && nameTok.Type != TokenNew {
			p.errorfAt(nameTok, "expected `%s`, got `%s`", TokenIdentifier, nameTok.Type)
		}
		p.methodDefinition(typeTok, nameTok)
		return
	}

	nameTok := p.expect(TokenIdentifier)
	name := nameTok.Lexeme(p.curSource())

	fn := &Function{Name: name, Package: p.pkg, Source: p.source, Line: nameTok.Line, Struct: NotFound}
	p.state.functions = append(p.state.functions, fn)
	fnIdx := len(p.state.functions) - 1

	if p.atTopLevel() {
		pkg := p.state.packages[p.pkg]
		if pkg.FindLocal(name) != NotFound {
			p.errorfAt(nameTok, "duplicate top-level name `%s`", name)
		}
		pkg.AddLocal(name, FnValue(uint16(fnIdx)))
	} else {
		slot := p.reserveSlot()
		p.locals = append(p.locals, localVar{name: name, slot: slot, blockDepth: p.scope.blockDepth, fnScope: p.scope})
		p.scope.localCount++
		p.emit(MOV_LF, uint16(slot), uint16(fnIdx), 0)
	}

	p.compileFunctionBody(fn, fnIdx, false, NotFound)
}

func (p *Parser) methodDefinition(typeTok, nameTok Token) {
	typeName := typeTok.Lexeme(p.curSource())
	defIdx := p.state.findStruct(p.pkg, typeName)
	if defIdx == NotFound {
		p.errorfAt(typeTok, "undefined struct `%s`", typeName)
	}
	def := p.state.structs[defIdx]
	name := nameTok.Lexeme(p.curSource())

	fn := &Function{Name: name, Package: p.pkg, Source: p.source, Line: nameTok.Line, IsMethod: true, Struct: defIdx}
	p.state.functions = append(p.state.functions, fn)
	fnIdx := len(p.state.functions) - 1

	if name == "new" {
		if def.Constructor != NotFound {
			p.errorfAt(nameTok, "struct `%s` already has a constructor", typeName)
		}
		def.Constructor = fnIdx
	} else {
		if def.FieldIndex(name) != NotFound {
			p.errorfAt(nameTok, "duplicate member `%s` in struct `%s`", name, typeName)
		}
		def.Fields = append(def.Fields, Identifier{Name: name})
		def.Methods = append(def.Methods, fnIdx)
		p.state.internField(name)
	}

	p.compileFunctionBody(fn, fnIdx, true, defIdx)
}

// compileFunctionBody parses `(params) { ... }` into fn, finishing with
// UPVALUE_CLOSE for every local a nested function captured and a RET0 if
// the body didn't end in an explicit return.
func (p *Parser) compileFunctionBody(fn *Function, fnIdx int, isMethod bool, structIdx int) {
	p.pushScope(fn, fnIdx)
	p.scope.isMethod = isMethod
	p.scope.structDef = structIdx

	p.expect(TokenOpenParen)
	if !p.check(TokenCloseParen) {
		for {
			paramTok := p.expect(TokenIdentifier)
			p.newLocal(paramTok.Lexeme(p.curSource()))
			fn.Arity++
			if !p.match(TokenComma) {
				break
			}
		}
	}
	p.expect(TokenCloseParen)

	p.expect(TokenOpenBrace)
	for !p.check(TokenCloseBrace) && !p.check(TokenEOF) {
		p.statement()
	}
	p.expect(TokenCloseBrace)

	p.emitUpvalueCloses(fnIdx)
	if !p.endsInReturn() {
		p.emit(RET0, 0, 0, 0)
	}

	p.popScope()
}

func (p *Parser) endsInReturn() bool {
	ins := p.scope.fn.Instructions
	if len(ins) == 0 {
		return false
	}
	for i, in := range ins {
		if in.Op() == JMP && i+1+int(in.Arg(0)) == len(ins) {
			return false
		}
	}
	op := ins[len(ins)-1].Op()
	return op >= RET0 && op <= RET_V
}

// emitUpvalueCloses finalizes every local of fnIdx that a nested function
// captured, so the captures survive this function's return.
func (p *Parser) emitUpvalueCloses(fnIdx int) {
	for _, slot := range p.state.functions[fnIdx].Captured {
		p.emit(UPVALUE_CLOSE, uint16(slot), 0, 0)
	}
}

// structStatement compiles `struct Name { field, ... }`, registering a new
// StructDefinition with every member slot a plain data field. Methods are
// appended later by `fn (Name) method` definitions.
func (p *Parser) structStatement() {
	p.next()
	nameTok := p.expect(TokenIdentifier)
	name := nameTok.Lexeme(p.curSource())

	if p.state.findStruct(p.pkg, name) != NotFound {
		p.errorfAt(nameTok, "duplicate struct definition `%s`", name)
	}

	def := &StructDefinition{
		Name:        name,
		Package:     p.pkg,
		Source:      p.source,
		Line:        nameTok.Line,
		Constructor: NotFound,
	}

	p.expect(TokenOpenBrace)
	for !p.check(TokenCloseBrace) {
		fieldTok := p.expect(TokenIdentifier)
		fieldName := fieldTok.Lexeme(p.curSource())
		if def.FieldIndex(fieldName) != NotFound {
			p.errorfAt(fieldTok, "duplicate field `%s` in struct `%s`", fieldName, name)
		}
		def.Fields = append(def.Fields, Identifier{Name: fieldName})
		def.Methods = append(def.Methods, NotFound)
		p.state.internField(fieldName)
		if !p.match(TokenComma) {
			break
		}
	}
	p.expect(TokenCloseBrace)

	p.state.structs = append(p.state.structs, def)
}
