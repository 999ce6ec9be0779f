package hydrogen

import (
	"errors"
	"fmt"
)

// This file carries the embedder-facing value API — building and inspecting
// runtime values from native functions — and the core methods the VM binds
// onto arrays and strings at field-access time.

// ValueType classifies a runtime value for embedders.
type ValueType int

const (
	TypeNil ValueType = iota
	TypeBool
	TypeNumber
	TypeString
	TypeArray
	TypeStruct
	TypeMethod
	TypeFunction
	TypeNative
)

func (t ValueType) String() string {
	switch t {
	case TypeNil:
		return "nil"
	case TypeBool:
		return "bool"
	case TypeNumber:
		return "number"
	case TypeString:
		return "string"
	case TypeArray:
		return "array"
	case TypeStruct:
		return "struct"
	case TypeMethod:
		return "method"
	case TypeFunction:
		return "function"
	case TypeNative:
		return "native function"
	}
	return "unknown"
}

// TypeOf reports a value's runtime type.
func (s *State) TypeOf(v Value) ValueType {
	switch {
	case v.IsNil():
		return TypeNil
	case v.IsBool():
		return TypeBool
	case v.IsNumber():
		return TypeNumber
	case v.IsFn():
		return TypeFunction
	case v.IsNative():
		return TypeNative
	case v.IsPtr():
		switch s.heap.Get(v.handle()).Type() {
		case ObjString:
			return TypeString
		case ObjArray:
			return TypeArray
		case ObjStruct, ObjNativeStruct:
			return TypeStruct
		case ObjMethod:
			return TypeMethod
		}
	}
	return TypeNil
}

// NewStringValue allocates a copied heap string.
func (s *State) NewStringValue(str string) Value {
	return s.heap.NewString(str)
}

// NewArrayOf allocates an array holding the given values.
func (s *State) NewArrayOf(items ...Value) Value {
	v := s.heap.NewArray(len(items))
	copy(s.heap.ArrayOf(v).Items, items)
	return v
}

// NewNativeInstance allocates an instance of a registered native struct
// wrapping embedder-owned data. Native struct constructors return this.
func (s *State) NewNativeInstance(def int, data interface{}) Value {
	return s.heap.Alloc(&NativeInstance{Definition: def, Data: data})
}

// NativeData unwraps the Go-side data of a native struct instance.
func (s *State) NativeData(v Value) (interface{}, bool) {
	if !v.IsPtr() {
		return nil, false
	}
	if ni, ok := s.heap.Get(v.handle()).(*NativeInstance); ok {
		return ni.Data, true
	}
	return nil, false
}

// ExpectBool unwraps a boolean argument.
func (s *State) ExpectBool(v Value) (bool, error) {
	if !v.IsBool() {
		return false, fmt.Errorf("bool expected, got %s", s.TypeOf(v))
	}
	return v.IsTrue(), nil
}

// ExpectNumber unwraps a numeric argument.
func (s *State) ExpectNumber(v Value) (float64, error) {
	if !v.IsNumber() {
		return 0, fmt.Errorf("number expected, got %s", s.TypeOf(v))
	}
	return v.ToNumber(), nil
}

// ExpectString unwraps a string argument.
func (s *State) ExpectString(v Value) (string, error) {
	if !s.heap.IsType(v, ObjString) {
		return "", fmt.Errorf("string expected, got %s", s.TypeOf(v))
	}
	return s.heap.StringOf(v).Contents, nil
}

// ExpectArray unwraps an array argument.
func (s *State) ExpectArray(v Value) (*Array, error) {
	if !s.heap.IsType(v, ObjArray) {
		return nil, fmt.Errorf("array expected, got %s", s.TypeOf(v))
	}
	return s.heap.ArrayOf(v), nil
}

// FormatValue renders a value for display, following references into the
// heap.
func (s *State) FormatValue(v Value) string {
	switch {
	case v.IsNil():
		return "nil"
	case v.IsTrue():
		return "true"
	case v.IsFalse():
		return "false"
	case v.IsNumber():
		n := v.ToNumber()
		if n == float64(int64(n)) {
			return fmt.Sprintf("%d", int64(n))
		}
		return fmt.Sprintf("%g", n)
	case v.IsFn():
		fn := s.functions[v.FnIndex()]
		return fmt.Sprintf("<fn %s>", fn.Name)
	case v.IsNative():
		return fmt.Sprintf("<native %s>", s.natives[v.NativeIndex()].Name)
	}

	switch o := s.heap.Get(v.handle()).(type) {
	case *String:
		return o.Contents
	case *Array:
		out := "["
		for i, item := range o.Items {
			if i > 0 {
				out += ", "
			}
			out += s.FormatValue(item)
		}
		return out + "]"
	case *Struct:
		return fmt.Sprintf("<struct %s>", s.structs[o.Definition].Name)
	case *Method:
		return "<method>"
	case *NativeInstance:
		return fmt.Sprintf("<struct %s>", s.nativeStructs[o.Definition].Name)
	}
	return "<unknown>"
}

// coreMethod is one built-in method on a runtime array or string value.
type coreMethod struct {
	arity int
	fn    boundNativeFn
}

// coreMethodFind locates a built-in method by receiver type and name; the
// VM calls it when a field access lands on an array or string.
func coreMethodFind(t ObjType, name string) (coreMethod, bool) {
	switch t {
	case ObjArray:
		m, ok := arrayMethods[name]
		return m, ok
	case ObjString:
		m, ok := stringMethods[name]
		return m, ok
	}
	return coreMethod{}, false
}

var arrayMethods = map[string]coreMethod{
	"push": {arity: 1, fn: func(s *State, recv Value, args []Value) (Value, error) {
		s.heap.ArrayOf(recv).Push(args[0])
		return ValueNil, nil
	}},

	"insert": {arity: 2, fn: func(s *State, recv Value, args []Value) (Value, error) {
		arr := s.heap.ArrayOf(recv)
		idx, err := coreIndex(args[0], len(arr.Items)+1)
		if err != nil {
			return ValueNil, err
		}
		arr.Insert(idx, args[1])
		return ValueNil, nil
	}},

	"remove": {arity: 1, fn: func(s *State, recv Value, args []Value) (Value, error) {
		arr := s.heap.ArrayOf(recv)
		idx, err := coreIndex(args[0], len(arr.Items))
		if err != nil {
			return ValueNil, err
		}
		return arr.Remove(idx), nil
	}},

	"pop": {arity: 0, fn: func(s *State, recv Value, args []Value) (Value, error) {
		arr := s.heap.ArrayOf(recv)
		if len(arr.Items) == 0 {
			return ValueNil, errors.New("pop from empty array")
		}
		return arr.Pop(), nil
	}},

	"len": {arity: 0, fn: func(s *State, recv Value, args []Value) (Value, error) {
		return NumberValue(float64(len(s.heap.ArrayOf(recv).Items))), nil
	}},
}

var stringMethods = map[string]coreMethod{
	"len": {arity: 0, fn: func(s *State, recv Value, args []Value) (Value, error) {
		return NumberValue(float64(len(s.heap.StringOf(recv).Contents))), nil
	}},
}

// coreIndex validates an index argument against an exclusive bound.
func coreIndex(v Value, bound int) (int, error) {
	if !v.IsNumber() {
		return 0, errors.New("array index must be an integer")
	}
	n := v.ToNumber()
	i := int(n)
	if float64(i) != n {
		return 0, errors.New("array index must be an integer")
	}
	if i < 0 || i >= bound {
		return 0, fmt.Errorf("array index %d out of bounds", i)
	}
	return i, nil
}
