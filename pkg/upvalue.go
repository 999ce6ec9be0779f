package hydrogen

// Upvalue implements the standard open/closed capture model: while the
// captured local is still live on the stack, the upvalue is an
// indirection into that stack slot; once the defining function returns, the
// upvalue is closed by copying its current value out of the stack and into
// the Upvalue itself.
type Upvalue struct {
	Closed bool

	// Valid while Closed is false: absolute index into the VM's value stack.
	StackSlot int

	// Valid once Closed is true.
	Value Value
}

// newOpenUpvalue creates an upvalue pointing at a live stack slot.
func newOpenUpvalue(stackSlot int) *Upvalue {
	return &Upvalue{StackSlot: stackSlot}
}

// Get reads the upvalue's current value, following the open indirection
// into the stack if it has not yet been closed.
func (u *Upvalue) Get(stack []Value) Value {
	if u.Closed {
		return u.Value
	}
	return stack[u.StackSlot]
}

// Set writes through the upvalue, into the stack slot if still open.
func (u *Upvalue) Set(stack []Value, v Value) {
	if u.Closed {
		u.Value = v
		return
	}
	stack[u.StackSlot] = v
}

// Close copies the upvalue's current stack value into itself and severs the
// indirection, called when the defining function's frame that owns
// StackSlot is about to be popped.
func (u *Upvalue) Close(stack []Value) {
	if u.Closed {
		return
	}
	u.Value = stack[u.StackSlot]
	u.Closed = true
}
