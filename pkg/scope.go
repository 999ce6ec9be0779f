package hydrogen

// FunctionScope tracks everything the emitter needs while compiling one
// function body: which Function it is emitting into, the window of named
// and temporary locals it owns in the Parser's shared locals stack, its
// enclosing-loop list, and its block-nesting depth.
type FunctionScope struct {
	parent  *FunctionScope
	fn      *Function
	fnIndex int

	// localStart is this scope's offset into Parser.locals; localCount is
	// how many of those belong to this function (as opposed to a nested
	// one pushed on top).
	localStart, localCount int

	// nextSlot is the next free stack slot relative to this function's
	// frame (named locals and temporaries share the same slot space).
	nextSlot int

	blockDepth int
	loop       *Loop

	isMethod  bool
	structDef int
}

// Loop records one enclosing `while`/`loop` construct: where its condition
// begins (for the backward LOOP jump) and the list of not-yet-patched
// `break` JMPs inside it.
type Loop struct {
	parent     *Loop
	startIndex int
	breaks     []int
}

// pushScope enters a new function body, nested inside the current one (or
// top-level if p.scope is nil).
func (p *Parser) pushScope(fn *Function, fnIndex int) *FunctionScope {
	s := &FunctionScope{
		parent:     p.scope,
		fn:         fn,
		fnIndex:    fnIndex,
		localStart: len(p.locals),
		blockDepth: 1,
	}
	p.scope = s
	return s
}

func (p *Parser) popScope() {
	p.locals = p.locals[:p.scope.localStart]
	p.scope = p.scope.parent
}

// reserveSlot allocates one anonymous (temporary) stack slot in the current
// function, bumping its frame-size watermark.
func (p *Parser) reserveSlot() int {
	slot := p.scope.nextSlot
	p.scope.nextSlot++
	if p.scope.nextSlot > p.scope.fn.FrameSize {
		p.scope.fn.FrameSize = p.scope.nextSlot
	}
	return slot
}

// freeSlot releases the most recently reserved temporary slot. Callers
// must free slots in strict LIFO order.
func (p *Parser) freeSlot() {
	p.scope.nextSlot--
}

// newLocal reserves a slot and additionally binds it to a name at the
// current block depth, shadowing any local of the same name declared in an
// enclosing block of the same function.
func (p *Parser) newLocal(name string) int {
	slot := p.reserveSlot()
	p.locals = append(p.locals, localVar{name: name, slot: slot, blockDepth: p.scope.blockDepth, fnScope: p.scope})
	p.scope.localCount++
	return slot
}

// enterBlock increments the current function's block-nesting depth.
func (p *Parser) enterBlock() {
	p.scope.blockDepth++
}

// exitBlock pops every named local declared at or above the exiting depth
// and frees their slots, then decrements the block depth.
func (p *Parser) exitBlock() {
	depth := p.scope.blockDepth
	for len(p.locals) > p.scope.localStart {
		last := p.locals[len(p.locals)-1]
		if last.fnScope != p.scope || last.blockDepth < depth {
			break
		}
		p.locals = p.locals[:len(p.locals)-1]
		p.scope.localCount--
		p.freeSlot()
	}
	p.scope.blockDepth--
}

// resolution describes where a name resolved to.
type resolution int

const (
	resUndefined resolution = iota
	resLocal
	resUpvalue
	resTopLevel
	resPackage
)

// resolve looks up a name in order: named locals of the current function
// (innermost block first), upvalues already captured by an enclosing
// function, this package's top-level locals, then imported package names.
func (p *Parser) resolve(name string) (resolution, int) {
	if slot, ok := p.resolveLocal(p.scope, name); ok {
		return resLocal, slot
	}

	if idx, ok := p.resolveUpvalue(p.scope, name); ok {
		return resUpvalue, idx
	}

	pkg := p.state.packages[p.pkg]
	if slot := pkg.FindLocal(name); slot != NotFound {
		return resTopLevel, slot
	}

	for i, other := range p.state.packages {
		if i != p.pkg && other.Name == name {
			return resPackage, i
		}
	}

	return resUndefined, 0
}

func (p *Parser) resolveLocal(scope *FunctionScope, name string) (int, bool) {
	for i := len(p.locals) - 1; i >= scope.localStart; i-- {
		if p.locals[i].fnScope == scope && p.locals[i].name == name {
			return p.locals[i].slot, true
		}
	}
	return 0, false
}

// resolveUpvalue searches enclosing function scopes for name, capturing it
// as an upvalue on every function scope between the defining one and the
// current one if found (the standard "create upvalue chain" step of closure
// compilation).
func (p *Parser) resolveUpvalue(scope *FunctionScope, name string) (int, bool) {
	if scope.parent == nil {
		return 0, false
	}

	if slot, ok := p.resolveLocal(scope.parent, name); ok {
		return p.addUpvalue(scope, name, slot, scope.parent.fnIndex, false), true
	}

	if idx, ok := p.resolveUpvalue(scope.parent, name); ok {
		return p.addUpvalue(scope, name, idx, scope.parent.fnIndex, true), true
	}

	return 0, false
}

func (p *Parser) addUpvalue(scope *FunctionScope, name string, definingLocal, definingFn int, viaUpvalue bool) int {
	for i, uv := range scope.fn.Upvalues {
		if uv.Name == name && uv.DefiningFn == definingFn && uv.ViaUpvalue == viaUpvalue {
			return i
		}
	}
	scope.fn.Upvalues = append(scope.fn.Upvalues, UpvalueDesc{Name: name, DefiningLocal: definingLocal, DefiningFn: definingFn, ViaUpvalue: viaUpvalue})

	if !viaUpvalue {
		owner := p.state.functions[definingFn]
		captured := false
		for _, c := range owner.Captured {
			if c == definingLocal {
				captured = true
				break
			}
		}
		if !captured {
			owner.Captured = append(owner.Captured, definingLocal)
		}
	}

	return len(scope.fn.Upvalues) - 1
}

// pushLoop enters a new breakable loop.
func (p *Parser) pushLoop(startIndex int) *Loop {
	l := &Loop{parent: p.scope.loop, startIndex: startIndex}
	p.scope.loop = l
	return l
}

func (p *Parser) popLoop() {
	p.scope.loop = p.scope.loop.parent
}
