package hydrogen

import (
	"fmt"
	"math"
)

// execute runs one function's instruction stream to completion: the
// dispatch loop, call-frame handling, and every struct/array operation. A
// RET0 with an empty call stack terminates cleanly; any runtime type
// mismatch aborts with an *Error.
func (s *State) execute(fnIndex int) *Error {
	fn := s.functions[fnIndex]
	frame := Frame{Fn: fnIndex, StackStart: 0, ReturnSlot: 0, Self: ValueNil}
	s.frames = s.frames[:0]
	s.ensureStack(fn.FrameSize)

	ip := 0
	ss := 0

	for {
		ins := fn.Instructions[ip]
		ip++
		op := ins.Op()

		switch {
		case op >= MOV_LL && op <= MOV_LV:
			v, err := s.sourceValue(operandType(op-MOV_LL), ins.Arg(1), ss)
			if err != nil {
				return s.runtimeError(fn, "%s", err)
			}
			s.stack[ss+int(ins.Arg(0))] = v

		case op >= MOV_UL && op <= MOV_UV:
			v, err := s.sourceValue(operandType(op-MOV_UL), ins.Arg(1), ss)
			if err != nil {
				return s.runtimeError(fn, "%s", err)
			}
			frame.Upvals[ins.Arg(0)].Set(s.stack, v)

		case op == MOV_LU:
			s.stack[ss+int(ins.Arg(0))] = frame.Upvals[ins.Arg(1)].Get(s.stack)

		case op == UPVALUE_CLOSE:
			s.closeUpvalueAt(frame.Fn, ss, int(ins.Arg(0)))

		case op >= MOV_TL && op <= MOV_TV:
			v, err := s.sourceValue(operandType(op-MOV_TL), ins.Arg(1), ss)
			if err != nil {
				return s.runtimeError(fn, "%s", err)
			}
			s.packages[ins.Arg(2)].LocalVals[ins.Arg(0)] = v

		case op == MOV_LT:
			s.stack[ss+int(ins.Arg(0))] = s.packages[ins.Arg(2)].LocalVals[ins.Arg(1)]

		case op == MOV_SELF:
			s.stack[ss+int(ins.Arg(0))] = frame.Self

		case op >= ADD_LL && op <= MOD_NL:
			if err := s.execArith(fn, ins, ss); err != nil {
				return err
			}

		case op >= CONCAT_LL && op <= CONCAT_SL:
			if err := s.execConcat(fn, ins, ss); err != nil {
				return err
			}

		case op == NEG_L:
			v := s.stack[ss+int(ins.Arg(1))]
			if !v.IsNumber() {
				return s.runtimeError(fn, "number expected")
			}
			s.stack[ss+int(ins.Arg(0))] = NumberValue(-v.ToNumber())

		case op >= BAND_LL && op <= SHR_IL:
			if err := s.execBitwise(fn, ins, ss); err != nil {
				return err
			}

		case op == BNOT_L:
			v := s.stack[ss+int(ins.Arg(1))]
			if !v.IsNumber() {
				return s.runtimeError(fn, "number expected")
			}
			s.stack[ss+int(ins.Arg(0))] = NumberValue(float64(^int64(v.ToNumber())))

		case op == IS_TRUE_L:
			// The following JMP fires when the tested value is truthy.
			if !s.stack[ss+int(ins.Arg(0))].Truthy() {
				ip++
			}

		case op == IS_FALSE_L:
			if s.stack[ss+int(ins.Arg(0))].Truthy() {
				ip++
			}

		case op >= EQ_LL && op <= NEQ_LV:
			holds := s.execEquality(ins, ss)
			if !holds {
				ip++ // skip the mandatory JMP
			}

		case op >= LT_LL && op <= GE_LN:
			holds, err := s.execOrdering(fn, ins, ss)
			if err != nil {
				return err
			}
			if !holds {
				ip++
			}

		case op == JMP:
			ip += int(ins.Arg(0))

		case op == LOOP:
			ip -= int(ins.Arg(0))

		case op == CALL:
			base, arity, ret := int(ins.Arg(0)), int(ins.Arg(1)), int(ins.Arg(2))
			callee := s.stack[ss+base]

			switch {
			case callee.IsFn():
				s.pushFrame(&frame, &fn, &ip, &ss, int(callee.FnIndex()), ss+base+1, ss+ret, ValueNil)

			case callee.IsNative():
				if err := s.callNative(fn, int(callee.NativeIndex()), ss+base+1, arity, ss+ret); err != nil {
					return err
				}

			case s.heap.IsType(callee, ObjMethod):
				m := s.heap.MethodOf(callee)
				if m.native != nil {
					if err := s.callBoundNative(fn, m, ss+base+1, arity, ss+ret); err != nil {
						return err
					}
				} else {
					s.pushFrame(&frame, &fn, &ip, &ss, m.Fn, ss+base+1, ss+ret, m.Parent)
				}

			default:
				return s.runtimeError(fn, "attempt to call a non-function value")
			}

		case op >= RET0 && op <= RET_V:
			var ret Value = ValueNil
			if op != RET0 {
				v, err := s.sourceValue(operandType(op-RET_L), ins.Arg(0), ss)
				if err != nil {
					return s.runtimeError(fn, "%s", err)
				}
				ret = v
			}

			s.closeFrameUpvalues(frame, fn)

			if len(s.frames) == 0 {
				return nil
			}
			prev := s.frames[len(s.frames)-1]
			s.frames = s.frames[:len(s.frames)-1]

			s.stack[frame.ReturnSlot] = ret
			frame = prev
			fn = s.functions[prev.Fn]
			ip = prev.SavedIP
			ss = prev.StackStart

		case op == STRUCT_NEW:
			s.stack[ss+int(ins.Arg(0))] = s.newStructInstance(int(ins.Arg(1)))

		case op == STRUCT_CALL_CONSTRUCTOR:
			inst := s.stack[ss+int(ins.Arg(0))]
			def := s.structs[s.heap.StructOf(inst).Definition]
			if def.Constructor != NotFound {
				// The constructor's return value is discarded; its scratch
				// return slot aliases the first argument slot.
				s.pushFrame(&frame, &fn, &ip, &ss, def.Constructor, ss+int(ins.Arg(1)), ss+int(ins.Arg(1)), inst)
			}

		case op == NATIVE_STRUCT_NEW:
			if err := s.execNativeStructNew(fn, ins, ss); err != nil {
				return err
			}

		case op == STRUCT_FIELD:
			if err := s.execStructField(fn, ins, ss); err != nil {
				return err
			}

		case op >= STRUCT_SET_L && op <= STRUCT_SET_V:
			if err := s.execStructSet(fn, ins, ss, operandType(op-STRUCT_SET_L)); err != nil {
				return err
			}

		case op == ARRAY_NEW:
			s.stack[ss+int(ins.Arg(0))] = s.heap.NewArray(int(ins.Arg(1)))

		case op == ARRAY_GET_L, op == ARRAY_GET_I:
			if err := s.execArrayGet(fn, ins, ss, op == ARRAY_GET_I); err != nil {
				return err
			}

		case op >= ARRAY_I_SET_L && op <= ARRAY_L_SET_V:
			if err := s.execArraySet(fn, ins, ss, op); err != nil {
				return err
			}

		default:
			return s.runtimeError(fn, "invalid instruction %d", op)
		}
	}
}

// ensureStack grows the value stack to at least n slots.
func (s *State) ensureStack(n int) {
	for len(s.stack) < n {
		s.stack = append(s.stack, ValueNil)
	}
}

// pushFrame saves the caller and switches execution into callee. argBase is
// the absolute stack index the callee's frame starts at (its arguments are
// already there); retSlot is the absolute index the return value lands in.
func (s *State) pushFrame(frame *Frame, fn **Function, ip, ss *int, callee, argBase, retSlot int, self Value) {
	saved := *frame
	saved.SavedIP = *ip
	saved.StackStart = *ss
	s.frames = append(s.frames, saved)

	target := s.functions[callee]
	*frame = Frame{Fn: callee, StackStart: argBase, ReturnSlot: retSlot, Self: self}
	if len(target.Upvalues) > 0 {
		frame.Upvals = make([]*Upvalue, len(target.Upvalues))
		for i, d := range target.Upvalues {
			frame.Upvals[i] = s.findUpvalue(d)
		}
	}

	s.ensureStack(argBase + target.FrameSize)
	*fn = target
	*ip = 0
	*ss = argBase
}

// findUpvalue resolves one capture for a new activation: an open upvalue
// aliasing the defining function's innermost live frame if it is still on
// the call stack, otherwise the closed-out value. Transitive captures chase
// the defining function's own upvalue first.
func (s *State) findUpvalue(d UpvalueDesc) *Upvalue {
	if d.ViaUpvalue {
		return s.findUpvalue(s.functions[d.DefiningFn].Upvalues[d.DefiningLocal])
	}
	for i := len(s.frames) - 1; i >= 0; i-- {
		if s.frames[i].Fn == d.DefiningFn {
			abs := s.frames[i].StackStart + d.DefiningLocal
			return s.openUpvalueAt(abs)
		}
	}
	if uv, ok := s.closedUpvals[upvalKey{d.DefiningFn, d.DefiningLocal}]; ok {
		return uv
	}
	return &Upvalue{Closed: true, Value: ValueNil}
}

func (s *State) openUpvalueAt(abs int) *Upvalue {
	for _, uv := range s.openUpvals {
		if !uv.Closed && uv.StackSlot == abs {
			return uv
		}
	}
	uv := newOpenUpvalue(abs)
	s.openUpvals = append(s.openUpvals, uv)
	return uv
}

// closeUpvalueAt finalizes the capture of slot `local` in the given
// function's current frame: an open upvalue aliasing the slot is closed
// with its current value; if no activation ever opened one, the slot's
// value is captured directly. Either way later activations of the
// capturing function read the closed-out value.
func (s *State) closeUpvalueAt(fnIdx, stackStart, local int) {
	abs := stackStart + local
	for i, uv := range s.openUpvals {
		if !uv.Closed && uv.StackSlot == abs {
			uv.Close(s.stack)
			if s.closedUpvals == nil {
				s.closedUpvals = make(map[upvalKey]*Upvalue)
			}
			s.closedUpvals[upvalKey{fnIdx, local}] = uv
			s.openUpvals = append(s.openUpvals[:i], s.openUpvals[i+1:]...)
			return
		}
	}

	if s.closedUpvals == nil {
		s.closedUpvals = make(map[upvalKey]*Upvalue)
	}
	s.closedUpvals[upvalKey{fnIdx, local}] = &Upvalue{Closed: true, Value: s.stack[abs]}
}

// closeFrameUpvalues closes every captured local of a returning frame.
// Covers returns that bypass the function's trailing UPVALUE_CLOSE
// instructions.
func (s *State) closeFrameUpvalues(frame Frame, fn *Function) {
	for _, local := range fn.Captured {
		s.closeUpvalueAt(frame.Fn, frame.StackStart, local)
	}
}

// sourceValue decodes a suffix-typed instruction operand into a runtime
// Value: a stack slot, a sign-extended 16-bit immediate, a constant-pool
// number, a fresh copy of a string literal, a primitive tag, or a
// function/native index.
func (s *State) sourceValue(t operandType, arg uint16, ss int) (Value, error) {
	switch t {
	case operandLocal:
		return s.stack[ss+int(arg)], nil
	case operandInteger:
		return NumberValue(float64(int16(arg))), nil
	case operandNumber:
		return NumberValue(s.constants[arg]), nil
	case operandString:
		return s.heap.NewString(s.stringLiterals[arg]), nil
	case operandPrimitive:
		return quietNaN | Value(arg), nil
	case operandFunction:
		return FnValue(arg), nil
	case operandNative:
		return NativeValue(arg), nil
	}
	return ValueNil, fmt.Errorf("invalid operand type %d", t)
}

func (s *State) execArith(fn *Function, ins Instruction, ss int) *Error {
	op := ins.Op()
	family := (op - ADD_LL) / 5
	form := (op - ADD_LL) % 5

	var a, b float64
	switch form {
	case 0: // LL
		l, r := s.stack[ss+int(ins.Arg(1))], s.stack[ss+int(ins.Arg(2))]
		if !l.IsNumber() || !r.IsNumber() {
			return s.runtimeError(fn, "number expected")
		}
		a, b = l.ToNumber(), r.ToNumber()
	case 1: // LI
		l := s.stack[ss+int(ins.Arg(1))]
		if !l.IsNumber() {
			return s.runtimeError(fn, "number expected")
		}
		a, b = l.ToNumber(), float64(ins.SignedArg(2))
	case 2: // LN
		l := s.stack[ss+int(ins.Arg(1))]
		if !l.IsNumber() {
			return s.runtimeError(fn, "number expected")
		}
		a, b = l.ToNumber(), s.constants[ins.Arg(2)]
	case 3: // IL
		r := s.stack[ss+int(ins.Arg(2))]
		if !r.IsNumber() {
			return s.runtimeError(fn, "number expected")
		}
		a, b = float64(ins.SignedArg(1)), r.ToNumber()
	case 4: // NL
		r := s.stack[ss+int(ins.Arg(2))]
		if !r.IsNumber() {
			return s.runtimeError(fn, "number expected")
		}
		a, b = s.constants[ins.Arg(1)], r.ToNumber()
	}

	var result float64
	switch family {
	case 0:
		result = a + b
	case 1:
		result = a - b
	case 2:
		result = a * b
	case 3:
		if b == 0 {
			return s.runtimeError(fn, "Attempt to divide by 0")
		}
		result = a / b
	case 4:
		if b == 0 {
			return s.runtimeError(fn, "Attempt to divide by 0")
		}
		result = math.Mod(a, b)
	}

	s.stack[ss+int(ins.Arg(0))] = NumberValue(result)
	return nil
}

func (s *State) execConcat(fn *Function, ins Instruction, ss int) *Error {
	var left, right string

	localString := func(arg uint16) (string, *Error) {
		v := s.stack[ss+int(arg)]
		if !s.heap.IsType(v, ObjString) {
			return "", s.runtimeError(fn, "string expected")
		}
		return s.heap.StringOf(v).Contents, nil
	}

	var err *Error
	switch ins.Op() {
	case CONCAT_LL:
		if left, err = localString(ins.Arg(1)); err != nil {
			return err
		}
		if right, err = localString(ins.Arg(2)); err != nil {
			return err
		}
	case CONCAT_LS:
		if left, err = localString(ins.Arg(1)); err != nil {
			return err
		}
		right = s.stringLiterals[ins.Arg(2)]
	case CONCAT_SL:
		left = s.stringLiterals[ins.Arg(1)]
		if right, err = localString(ins.Arg(2)); err != nil {
			return err
		}
	}

	s.stack[ss+int(ins.Arg(0))] = s.heap.NewString(left + right)
	return nil
}

func (s *State) execBitwise(fn *Function, ins Instruction, ss int) *Error {
	op := ins.Op()
	family := (op - BAND_LL) / 3
	form := (op - BAND_LL) % 3

	localInt := func(arg uint16) (int64, *Error) {
		v := s.stack[ss+int(arg)]
		if !v.IsNumber() {
			return 0, s.runtimeError(fn, "number expected")
		}
		n := v.ToNumber()
		i := int64(n)
		if float64(i) != n {
			return 0, s.runtimeError(fn, "integer expected")
		}
		return i, nil
	}

	var a, b int64
	var err *Error
	switch form {
	case 0: // LL
		if a, err = localInt(ins.Arg(1)); err != nil {
			return err
		}
		if b, err = localInt(ins.Arg(2)); err != nil {
			return err
		}
	case 1: // LI
		if a, err = localInt(ins.Arg(1)); err != nil {
			return err
		}
		b = int64(ins.SignedArg(2))
	case 2: // IL
		a = int64(ins.SignedArg(1))
		if b, err = localInt(ins.Arg(2)); err != nil {
			return err
		}
	}

	var result int64
	switch family {
	case 0:
		result = a & b
	case 1:
		result = a | b
	case 2:
		result = a ^ b
	case 3:
		result = a << (uint64(b) & 63)
	case 4:
		result = a >> (uint64(b) & 63)
	}

	s.stack[ss+int(ins.Arg(0))] = NumberValue(float64(result))
	return nil
}

// execEquality evaluates one EQ_*/NEQ_* instruction and reports whether the
// encoded relation holds (the following JMP executes exactly when it does).
func (s *State) execEquality(ins Instruction, ss int) bool {
	op := ins.Op()
	negated := op >= NEQ_LL
	var t operandType
	if negated {
		t = operandType(op - NEQ_LL)
	} else {
		t = operandType(op - EQ_LL)
	}

	left := s.stack[ss+int(ins.Arg(0))]
	var eq bool
	switch t {
	case operandLocal:
		eq = left.Equal(s.heap, s.stack[ss+int(ins.Arg(1))])
	case operandInteger:
		eq = left.IsNumber() && left.ToNumber() == float64(ins.SignedArg(1))
	case operandNumber:
		eq = left.IsNumber() && left.ToNumber() == s.constants[ins.Arg(1)]
	case operandString:
		eq = s.heap.IsType(left, ObjString) && s.heap.StringOf(left).Contents == s.stringLiterals[ins.Arg(1)]
	case operandPrimitive:
		eq = left == quietNaN|Value(ins.Arg(1))
	case operandFunction:
		eq = left.IsFn() && left.FnIndex() == ins.Arg(1)
	case operandNative:
		eq = left.IsNative() && left.NativeIndex() == ins.Arg(1)
	}

	if negated {
		return !eq
	}
	return eq
}

// execOrdering evaluates one LT/LE/GT/GE instruction, reporting whether the
// relation holds.
func (s *State) execOrdering(fn *Function, ins Instruction, ss int) (bool, *Error) {
	op := ins.Op()
	family := (op - LT_LL) / 3
	form := (op - LT_LL) % 3

	left := s.stack[ss+int(ins.Arg(0))]
	if !left.IsNumber() {
		return false, s.runtimeError(fn, "number expected")
	}
	a := left.ToNumber()

	var b float64
	switch form {
	case 0:
		r := s.stack[ss+int(ins.Arg(1))]
		if !r.IsNumber() {
			return false, s.runtimeError(fn, "number expected")
		}
		b = r.ToNumber()
	case 1:
		b = float64(ins.SignedArg(1))
	case 2:
		b = s.constants[ins.Arg(1)]
	}

	switch family {
	case 0:
		return a < b, nil
	case 1:
		return a <= b, nil
	case 2:
		return a > b, nil
	default:
		return a >= b, nil
	}
}

// callNative invokes a registered native function with the arguments
// sitting at argBase, enforcing its declared arity.
func (s *State) callNative(fn *Function, idx, argBase, arity, retSlot int) *Error {
	nat := s.natives[idx]
	if nat.Arity != VarArg && nat.Arity != arity {
		return s.runtimeError(fn, "`%s` expects %d arguments, got %d", nat.Name, nat.Arity, arity)
	}

	args := s.stack[argBase : argBase+arity]
	v, err := nat.Fn(s, args)
	if err != nil {
		return s.runtimeError(fn, "%s", err)
	}
	s.stack[retSlot] = v
	return nil
}

func (s *State) callBoundNative(fn *Function, m *Method, argBase, arity, retSlot int) *Error {
	if m.nativeArity != VarArg && m.nativeArity != arity {
		return s.runtimeError(fn, "method expects %d arguments, got %d", m.nativeArity, arity)
	}

	args := s.stack[argBase : argBase+arity]
	v, err := m.native(s, m.Parent, args)
	if err != nil {
		return s.runtimeError(fn, "%s", err)
	}
	s.stack[retSlot] = v
	return nil
}

// newStructInstance allocates one instance of a user-declared struct: data
// fields nil, method slots pre-bound to Method objects referencing the
// freshly created parent.
func (s *State) newStructInstance(defIdx int) Value {
	def := s.structs[defIdx]
	inst := &Struct{Definition: defIdx, Fields: make([]Value, len(def.Fields))}
	v := s.heap.Alloc(inst)
	for i := range def.Fields {
		if def.Methods[i] != NotFound {
			inst.Fields[i] = s.heap.Alloc(&Method{Parent: v, Fn: def.Methods[i]})
		} else {
			inst.Fields[i] = ValueNil
		}
	}
	return v
}

func (s *State) execNativeStructNew(fn *Function, ins Instruction, ss int) *Error {
	def := s.nativeStructs[ins.Arg(1)]
	argc := int(ins.Arg(2))
	if def.ConstructorArgs != VarArg && argc != def.ConstructorArgs {
		return s.runtimeError(fn, "`%s` constructor expects %d arguments, got %d", def.Name, def.ConstructorArgs, argc)
	}

	base := ss + int(ins.Arg(0)) + 1
	v, err := def.Constructor(s, s.stack[base:base+argc])
	if err != nil {
		return s.runtimeError(fn, "%s", err)
	}
	s.stack[ss+int(ins.Arg(0))] = v
	return nil
}

func (s *State) execStructField(fn *Function, ins Instruction, ss int) *Error {
	obj := s.stack[ss+int(ins.Arg(1))]
	name := s.fields[ins.Arg(2)].Name

	if !obj.IsPtr() {
		return s.runtimeError(fn, "field access on a non-struct value")
	}

	switch o := s.heap.Get(obj.handle()).(type) {
	case *Struct:
		def := s.structs[o.Definition]
		slot := def.FieldIndex(name)
		if slot == NotFound {
			return s.runtimeError(fn, "unknown field `%s` on struct `%s`", name, def.Name)
		}
		s.stack[ss+int(ins.Arg(0))] = o.Fields[slot]

	case *Array:
		m, ok := coreMethodFind(ObjArray, name)
		if !ok {
			return s.runtimeError(fn, "unknown method `%s` on array", name)
		}
		s.stack[ss+int(ins.Arg(0))] = s.heap.Alloc(&Method{Parent: obj, Fn: NotFound, native: m.fn, nativeArity: m.arity})

	case *String:
		m, ok := coreMethodFind(ObjString, name)
		if !ok {
			return s.runtimeError(fn, "unknown method `%s` on string", name)
		}
		s.stack[ss+int(ins.Arg(0))] = s.heap.Alloc(&Method{Parent: obj, Fn: NotFound, native: m.fn, nativeArity: m.arity})

	case *NativeInstance:
		def := s.nativeStructs[o.Definition]
		nf, ok := def.Methods[name]
		if !ok {
			return s.runtimeError(fn, "unknown method `%s` on `%s`", name, def.Name)
		}
		bound := func(st *State, recv Value, args []Value) (Value, error) {
			return nf(st, append([]Value{recv}, args...))
		}
		s.stack[ss+int(ins.Arg(0))] = s.heap.Alloc(&Method{Parent: obj, Fn: NotFound, native: bound, nativeArity: VarArg})

	default:
		return s.runtimeError(fn, "field access on a non-struct value")
	}
	return nil
}

func (s *State) execStructSet(fn *Function, ins Instruction, ss int, t operandType) *Error {
	obj := s.stack[ss+int(ins.Arg(0))]
	if !s.heap.IsType(obj, ObjStruct) {
		return s.runtimeError(fn, "field assignment on a non-struct value")
	}

	inst := s.heap.StructOf(obj)
	def := s.structs[inst.Definition]
	name := s.fields[ins.Arg(1)].Name
	slot := def.FieldIndex(name)
	if slot == NotFound {
		return s.runtimeError(fn, "unknown field `%s` on struct `%s`", name, def.Name)
	}

	v, err := s.sourceValue(t, ins.Arg(2), ss)
	if err != nil {
		return s.runtimeError(fn, "%s", err)
	}
	inst.Fields[slot] = v
	return nil
}

func (s *State) arrayIndex(fn *Function, arr *Array, idx int) *Error {
	if idx < 0 || idx >= len(arr.Items) {
		return s.runtimeError(fn, "array index %d out of bounds (length %d)", idx, len(arr.Items))
	}
	return nil
}

func (s *State) execArrayGet(fn *Function, ins Instruction, ss int, immediate bool) *Error {
	arrVal := s.stack[ss+int(ins.Arg(2))]
	if !s.heap.IsType(arrVal, ObjArray) {
		return s.runtimeError(fn, "index into a non-array value")
	}
	arr := s.heap.ArrayOf(arrVal)

	var idx int
	if immediate {
		idx = int(ins.SignedArg(1))
	} else {
		v := s.stack[ss+int(ins.Arg(1))]
		n, err := s.integerIndex(fn, v)
		if err != nil {
			return err
		}
		idx = n
	}

	if err := s.arrayIndex(fn, arr, idx); err != nil {
		return err
	}
	s.stack[ss+int(ins.Arg(0))] = arr.Items[idx]
	return nil
}

func (s *State) integerIndex(fn *Function, v Value) (int, *Error) {
	if !v.IsNumber() {
		return 0, s.runtimeError(fn, "array index must be an integer")
	}
	n := v.ToNumber()
	i := int(n)
	if float64(i) != n {
		return 0, s.runtimeError(fn, "array index must be an integer")
	}
	return i, nil
}

func (s *State) execArraySet(fn *Function, ins Instruction, ss int, op Opcode) *Error {
	immediate := op <= ARRAY_I_SET_V
	var t operandType
	if immediate {
		t = operandType(op - ARRAY_I_SET_L)
	} else {
		t = operandType(op - ARRAY_L_SET_L)
	}

	arrVal := s.stack[ss+int(ins.Arg(2))]
	if !s.heap.IsType(arrVal, ObjArray) {
		return s.runtimeError(fn, "index into a non-array value")
	}
	arr := s.heap.ArrayOf(arrVal)

	var idx int
	if immediate {
		idx = int(ins.SignedArg(0))
	} else {
		n, err := s.integerIndex(fn, s.stack[ss+int(ins.Arg(0))])
		if err != nil {
			return err
		}
		idx = n
	}

	if err := s.arrayIndex(fn, arr, idx); err != nil {
		return err
	}

	v, err := s.sourceValue(t, ins.Arg(1), ss)
	if err != nil {
		return s.runtimeError(fn, "%s", err)
	}
	arr.Items[idx] = v
	return nil
}

// runtimeError builds an *Error anchored at the failing function's
// declaration site.
func (s *State) runtimeError(fn *Function, format string, args ...interface{}) *Error {
	e := &Error{Description: fmt.Sprintf(format, args...), Line: fn.Line}
	if fn.Source >= 0 && fn.Source < len(s.sources) {
		e.File = s.sources[fn.Source].Path
	}
	return e
}
