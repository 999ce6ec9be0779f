package hydrogen

import "math"

// Value is a NaN-tagged 64-bit runtime value: when the quiet-NaN bits are
// not all set the value is an IEEE double; otherwise the sign bit
// distinguishes a heap pointer (set) from a function/native/primitive tag
// (clear).
//
//   quiet-NaN clear                      -> float64
//   quiet-NaN set, sign set               -> heap object pointer
//   quiet-NaN set, sign clear, TAG_FN     -> function index
//   quiet-NaN set, sign clear, TAG_NATIVE -> native function index
//   quiet-NaN set, sign clear, tag 1/2/3  -> true / false / nil
type Value uint64

const (
	signBit  Value = 1 << 63
	quietNaN Value = 0x7ffc000000000000

	tagTrue  Value = 1
	tagFalse Value = 2
	tagNil   Value = 3

	tagFn     Value = 0x10000
	tagNative Value = 0x20000
)

var (
	ValueNil   = quietNaN | tagNil
	ValueTrue  = quietNaN | tagTrue
	ValueFalse = quietNaN | tagFalse
)

// NumberValue encodes a float64 as a Value.
func NumberValue(n float64) Value {
	return Value(math.Float64bits(n))
}

// ToNumber decodes a Value known to be a number.
func (v Value) ToNumber() float64 {
	return math.Float64frombits(uint64(v))
}

// IntValue encodes a signed 16-bit integer as a numeric Value (integers are
// represented on the stack as doubles; only bytecode operands carry the
// compact 16-bit form).
func IntValue(n int16) Value {
	return NumberValue(float64(n))
}

// BoolValue encodes a Go bool as the true/false primitive tag.
func BoolValue(b bool) Value {
	if b {
		return ValueTrue
	}
	return ValueFalse
}

// FnValue encodes a function-table index.
func FnValue(index uint16) Value { return quietNaN | tagFn | Value(index) }

// NativeValue encodes a native-function-table index.
func NativeValue(index uint16) Value { return quietNaN | tagNative | Value(index) }

// ptrValue encodes a heap object pointer. Go has no raw addresses to stash in
// the low 48 bits the way the C implementation does; the object handle is
// instead interned on the State's heap table and the handle index is packed
// into those bits, preserving the NaN-boxing scheme's shape exactly while
// staying within Go's memory-safety rules.
func ptrValue(handle uint64) Value {
	return (Value(handle) & ^(quietNaN | signBit)) | quietNaN | signBit
}

func (v Value) handle() uint64 {
	return uint64(v &^ (quietNaN | signBit))
}

// IsNumber reports whether v holds a float64 (quiet-NaN bits not all set).
func (v Value) IsNumber() bool { return v&quietNaN != quietNaN }

// IsPtr reports whether v holds a heap object handle.
func (v Value) IsPtr() bool { return v&(quietNaN|signBit) == (quietNaN | signBit) }

// IsFn reports whether v holds a function-table index.
func (v Value) IsFn() bool { return v&(quietNaN|signBit|tagFn) == (quietNaN | tagFn) }

// IsNative reports whether v holds a native-function-table index.
func (v Value) IsNative() bool {
	return v&(quietNaN|signBit|tagNative) == (quietNaN | tagNative)
}

// IsNil, IsTrue, IsFalse report primitive identity.
func (v Value) IsNil() bool   { return v == ValueNil }
func (v Value) IsTrue() bool  { return v == ValueTrue }
func (v Value) IsFalse() bool { return v == ValueFalse }

// IsBool reports whether v is either boolean primitive.
func (v Value) IsBool() bool { return v.IsTrue() || v.IsFalse() }

// Truthy implements Hydrogen's truthiness rule: nil and false are falsy,
// everything else (including 0 and "") is truthy.
func (v Value) Truthy() bool {
	return !v.IsNil() && !v.IsFalse()
}

// FnIndex extracts the function-table index from a function-tagged Value.
func (v Value) FnIndex() uint16 { return uint16(v &^ (quietNaN | tagFn)) }

// NativeIndex extracts the native-function-table index.
func (v Value) NativeIndex() uint16 { return uint16(v &^ (quietNaN | tagNative)) }

// Equal implements Hydrogen's structural equality: identical bit patterns
// are always equal; pointers to the same ObjType compare structurally, with
// a visited-pointer set
// threading through struct/array recursion to short-circuit cycles rather
// than recursing unboundedly.
func (v Value) Equal(heap *Heap, other Value) bool {
	return valueEqual(heap, v, other, map[[2]uint64]bool{})
}

func valueEqual(heap *Heap, a, b Value, visited map[[2]uint64]bool) bool {
	if a == b {
		return true
	}
	if !a.IsPtr() || !b.IsPtr() {
		return false
	}

	key := [2]uint64{a.handle(), b.handle()}
	if visited[key] {
		return true
	}
	visited[key] = true

	oa, ob := heap.Get(a.handle()), heap.Get(b.handle())
	if oa.Type() != ob.Type() {
		return false
	}

	switch oa.Type() {
	case ObjString:
		return oa.(*String).Contents == ob.(*String).Contents
	case ObjStruct:
		sa, sb := oa.(*Struct), ob.(*Struct)
		if sa.Definition != sb.Definition || len(sa.Fields) != len(sb.Fields) {
			return false
		}
		for i := range sa.Fields {
			if !valueEqual(heap, sa.Fields[i], sb.Fields[i], visited) {
				return false
			}
		}
		return true
	case ObjMethod:
		ma, mb := oa.(*Method), ob.(*Method)
		return ma.Fn == mb.Fn && valueEqual(heap, ma.Parent, mb.Parent, visited)
	case ObjArray:
		aa, ab := oa.(*Array), ob.(*Array)
		if len(aa.Items) != len(ab.Items) {
			return false
		}
		for i := range aa.Items {
			if !valueEqual(heap, aa.Items[i], ab.Items[i], visited) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
