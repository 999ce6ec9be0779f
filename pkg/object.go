package hydrogen

// ObjType discriminates the heap object variants.
type ObjType int

const (
	ObjString ObjType = iota
	ObjStruct
	ObjMethod
	ObjArray
	ObjNativeStruct
)

// Object is satisfied by every heap-allocated value. Go has no struct-hack
// flexible array members, so the C union-by-leading-tag is translated into
// an ordinary tagged interface over concrete Go types.
type Object interface {
	Type() ObjType
}

// String is a heap-allocated, immutable string object. Every literal load
// copies a fresh String rather than sharing identity with the literal pool.
type String struct {
	Contents string
}

func (*String) Type() ObjType { return ObjString }

// Struct is an instance of a user-declared StructDefinition. Fields holds
// one Value per declared member; method-slots are pre-populated with a
// Method object bound to this instance at construction time.
type Struct struct {
	Definition int
	Fields     []Value
}

func (*Struct) Type() ObjType { return ObjStruct }

// Method pairs a receiver with the function implementing one of its
// methods. Calling a Method value binds `self` to Parent. Array/string core
// methods and native-struct methods carry a Go implementation instead of a
// function index; for those Fn is NotFound and native is set.
type Method struct {
	Parent Value
	Fn     int

	native      boundNativeFn
	nativeArity int
}

func (*Method) Type() ObjType { return ObjMethod }

// boundNativeFn is the shape of a Go-implemented method: it receives the
// bound receiver separately from the call's arguments.
type boundNativeFn func(s *State, recv Value, args []Value) (Value, error)

// NativeInstance is an instance of an embedder-registered native struct.
// Its state lives entirely on the Go side, behind Data.
type NativeInstance struct {
	Definition int
	Data       interface{}
}

func (*NativeInstance) Type() ObjType { return ObjNativeStruct }

// Array is a growable, zero-indexed Value vector.
type Array struct {
	Items []Value
}

func (*Array) Type() ObjType { return ObjArray }

// Heap owns every object allocated at runtime, addressed by a stable
// handle index rather than a raw pointer. There is no collection; objects
// accumulate for the State's lifetime.
type Heap struct {
	objects []Object
}

// NewHeap creates an empty object heap.
func NewHeap() *Heap {
	return &Heap{}
}

// Alloc stores obj on the heap and returns a Value referencing it.
func (h *Heap) Alloc(obj Object) Value {
	handle := uint64(len(h.objects))
	h.objects = append(h.objects, obj)
	return ptrValue(handle)
}

// Get dereferences a heap handle back to its Object.
func (h *Heap) Get(handle uint64) Object {
	return h.objects[handle]
}

// NewString allocates a copy of s as a heap String value.
func (h *Heap) NewString(s string) Value {
	return h.Alloc(&String{Contents: s})
}

// ConcatStrings allocates the concatenation of two string Values.
func (h *Heap) ConcatStrings(left, right Value) Value {
	l := h.Get(left.handle()).(*String)
	r := h.Get(right.handle()).(*String)
	return h.NewString(l.Contents + r.Contents)
}

// NewArray allocates an array seeded with the given initial length, all
// slots nil.
func (h *Heap) NewArray(initialLen int) Value {
	items := make([]Value, initialLen)
	for i := range items {
		items[i] = ValueNil
	}
	return h.Alloc(&Array{Items: items})
}

// ArrayOf returns the concrete *Array behind an array-typed Value.
func (h *Heap) ArrayOf(v Value) *Array {
	return h.Get(v.handle()).(*Array)
}

// StringOf returns the concrete *String behind a string-typed Value.
func (h *Heap) StringOf(v Value) *String {
	return h.Get(v.handle()).(*String)
}

// StructOf returns the concrete *Struct behind a struct-typed Value.
func (h *Heap) StructOf(v Value) *Struct {
	return h.Get(v.handle()).(*Struct)
}

// MethodOf returns the concrete *Method behind a method-typed Value.
func (h *Heap) MethodOf(v Value) *Method {
	return h.Get(v.handle()).(*Method)
}

// IsType reports whether v is a pointer to a heap object of the given type.
func (h *Heap) IsType(v Value, t ObjType) bool {
	return v.IsPtr() && h.Get(v.handle()).Type() == t
}

// Push appends a value to an array. Backing storage grows geometrically
// through Go's append.
func (a *Array) Push(v Value) {
	a.Items = append(a.Items, v)
}

// Insert inserts v at index idx, shifting later elements up by one.
func (a *Array) Insert(idx int, v Value) {
	a.Items = append(a.Items, ValueNil)
	copy(a.Items[idx+1:], a.Items[idx:])
	a.Items[idx] = v
}

// Remove deletes and returns the element at idx.
func (a *Array) Remove(idx int) Value {
	v := a.Items[idx]
	a.Items = append(a.Items[:idx], a.Items[idx+1:]...)
	return v
}

// Pop removes and returns the last element.
func (a *Array) Pop() Value {
	v := a.Items[len(a.Items)-1]
	a.Items = a.Items[:len(a.Items)-1]
	return v
}
