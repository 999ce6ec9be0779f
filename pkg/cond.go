package hydrogen

// This file implements the jump-list compilation of boolean expressions:
// `&&`, `||`, `!`, and bare values used as conditions all
// produce a pair of pending-jump lists (an operand with kind ==
// operandJump) instead of a value, so that `if`/`while` conditions cost
// nothing beyond the comparisons themselves, and only a boolean actually
// materialized into a local (e.g. `let ok = a && b`) pays for the
// true/false store sequence.

// patchJump rewrites a forward JMP/LOOP-shaped instruction at idx so it
// targets instruction index target. JMP's argument is "how many
// instructions to skip", counted from the instruction immediately after
// the jump.
func (p *Parser) patchJump(idx, target int) {
	p.patchArg(idx, 0, uint16(target-(idx+1)))
}

func (p *Parser) patchJumpsTo(list []int, target int) {
	for _, idx := range list {
		p.patchJump(idx, target)
	}
}

// toCond converts any operand into a condition (kind == operandJump).
// Constants fold away entirely: an always-truthy constant costs nothing
// (falls through with an empty falseList), an always-falsy one costs a
// single unconditional JMP placed in falseList. A local value is tested at
// runtime with IS_FALSE_L.
func (p *Parser) toCond(op operand) operand {
	if op.kind == operandJump {
		return op
	}

	if truthy, ok := op.constTruthy(); ok {
		if truthy {
			return jumpOperand(nil, nil)
		}
		jmp := p.emit(JMP, 0, 0, 0)
		return jumpOperand(nil, []int{jmp})
	}

	slot := p.toLocal(op)
	p.emit(IS_FALSE_L, uint16(slot), 0, 0)
	jmp := p.emit(JMP, 0, 0, 0)
	return jumpOperand(nil, []int{jmp})
}

// negateCond inverts a condition by swapping its jump lists: whatever used
// to signal "true" now signals "false" and vice versa. No instructions are
// emitted, but the fallthrough path's meaning flips with the lists.
func negateCond(op operand) operand {
	out := jumpOperand(op.falseList, op.trueList)
	out.fallFalse = !op.fallFalse
	return out
}

// normalizeCond restores the invariant every consumer of a condition
// relies on: falling through the condition's code means true. An inverted
// condition gets one unconditional JMP, threaded onto its false list.
func (p *Parser) normalizeCond(op operand) operand {
	if !op.fallFalse {
		return op
	}
	jmp := p.emit(JMP, 0, 0, 0)
	op.falseList = append(append([]int{}, op.falseList...), jmp)
	op.fallFalse = false
	return op
}

// materializeTrue turns the fallthrough-true path into an explicit pending
// jump. Needed before compiling the right-hand side of `||`, where a true
// left operand must skip the right operand entirely rather than fall into
// it; the false list is pointed just past the inserted jump, at the right
// operand's code.
func (p *Parser) materializeTrue(op operand) operand {
	op = p.normalizeCond(op)
	skip := p.emit(JMP, 0, 0, 0)
	p.patchJumpsTo(op.falseList, p.here())
	return jumpOperand(append(append([]int{}, op.trueList...), skip), nil)
}

// compileAnd combines two already-compiled conditions with `&&` semantics.
// The caller must have already patched left's truelist to fall into right
// (usually a no-op, since a plain comparison's trueList is empty) before
// compiling right — that has to happen before right's code is emitted, so
// it is not this function's job. The combined falselist is the union of
// both; the combined truelist is right's alone.
func compileAnd(left, right operand) operand {
	falseList := append(append([]int{}, left.falseList...), right.falseList...)
	trueList := append([]int{}, right.trueList...)
	out := jumpOperand(trueList, falseList)
	out.fallFalse = right.fallFalse
	return out
}

// compileOr combines two already-compiled conditions with `||` semantics.
// The caller must have already called materializeTrue on left (patching
// its falselist to fall into right) before compiling right.
func compileOr(left, right operand) operand {
	trueList := append(append([]int{}, left.trueList...), right.trueList...)
	falseList := append([]int{}, right.falseList...)
	out := jumpOperand(trueList, falseList)
	out.fallFalse = right.fallFalse
	return out
}

// dischargeBool materializes a condition operand into a concrete
// true/false value in slot, via the canonical `MOV_LP true; JMP +1;
// MOV_LP false` sequence.
func (p *Parser) dischargeBool(op operand, slot int) {
	op = p.normalizeCond(op)
	trueStore := p.emit(MOV_LP, uint16(slot), primTrue, 0)
	skip := p.emit(JMP, 0, 0, 0)
	falseStore := p.emit(MOV_LP, uint16(slot), primFalse, 0)
	after := p.here()

	p.patchJump(skip, after)
	p.patchJumpsTo(op.trueList, trueStore)
	p.patchJumpsTo(op.falseList, falseStore)
}
