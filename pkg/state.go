package hydrogen

// Options configures a State at creation time.
type Options struct {
	// StackCapacityHint pre-sizes the value stack. Zero picks a sane default.
	StackCapacityHint int
}

// State is the root interpreter container. Every global list the compiler
// and executor touch — sources, packages, functions, natives, struct
// definitions, constants, string literals, interned field names, the
// evaluation stack and call-frame stack — is held here and passed
// explicitly; there is no hidden global state.
type State struct {
	sources   []*Source
	packages  []*Package
	functions []*Function
	natives   []*NativeFunction

	structs       []*StructDefinition
	nativeStructs []*NativeStructDefinition

	constants      []float64 // numbers too wide for a 16-bit immediate
	stringLiterals []string  // copied fresh on every PUSH, never shared
	fields         []Identifier

	heap *Heap

	stack  []Value
	frames []Frame

	// openUpvals are captures still aliasing a live stack slot; closedUpvals
	// hold their values once the defining frame is gone, keyed by the
	// defining function and its local slot.
	openUpvals  []*Upvalue
	closedUpvals map[upvalKey]*Upvalue

	// parsedImports maps a resolved import path to the package it was parsed
	// into, so each path's top-level code runs at most once.
	parsedImports map[string]int
}

type upvalKey struct {
	fn, local int
}

// NewState creates an empty interpreter state. A State and every value
// reachable from it is managed by Go's garbage collector once
// unreferenced; Free only has native-struct destructors left to run.
func NewState(opts Options) *State {
	s := &State{heap: NewHeap()}
	if opts.StackCapacityHint > 0 {
		s.stack = make([]Value, 0, opts.StackCapacityHint)
	}
	return s
}

// Free runs the destructor of every native struct instance still on the
// heap. Memory itself is reclaimed by Go's garbage collector once the State
// is unreferenced; see NewState's doc comment.
func (s *State) Free() {
	for _, obj := range s.heap.objects {
		if ni, ok := obj.(*NativeInstance); ok {
			def := s.nativeStructs[ni.Definition]
			if def.Destructor != nil {
				def.Destructor(s, ni.Data)
			}
		}
	}
}

// AddPackage registers a new package by name (pass "" for an anonymous
// entry package) and returns its index. Re-adding an existing name returns
// the existing index rather than creating a duplicate.
func (s *State) AddPackage(name string) int {
	if name != "" {
		for i, p := range s.packages {
			if p.Name == name {
				return i
			}
		}
	}
	s.packages = append(s.packages, newPackage(name))
	return len(s.packages) - 1
}

// AddPackageFromPath registers a package named after a file path's final
// component, minus one extension.
func (s *State) AddPackageFromPath(path string) int {
	return s.AddPackage(packageNameFromPath(path))
}

// RegisterNative registers a Go-implemented function `(state, args) -> value`
// under the given package, name and arity (pass VarArg for a variadic
// native). The native is also bound into the package's top-level locals as
// a NativeValue, so Hydrogen source resolves it exactly like a `fn`
// declaration — the expression compiler needs no special case for natives.
func (s *State) RegisterNative(pkg int, name string, arity int, fn NativeFn) int {
	s.natives = append(s.natives, &NativeFunction{Name: name, Package: pkg, Arity: arity, Fn: fn})
	idx := len(s.natives) - 1
	s.packages[pkg].AddLocal(name, NativeValue(uint16(idx)))
	return idx
}

// RegisterNativeStruct registers a struct type implemented in Go: a
// constructor arity, optional destructor, and named methods.
func (s *State) RegisterNativeStruct(pkg int, def NativeStructDefinition) int {
	def.Package = pkg
	s.nativeStructs = append(s.nativeStructs, &def)
	return len(s.nativeStructs) - 1
}

// internField deduplicates a struct field/method name into the shared
// field-intern table, returning its stable index.
func (s *State) internField(name string) int {
	for i, f := range s.fields {
		if f.Name == name {
			return i
		}
	}
	s.fields = append(s.fields, Identifier{Name: name})
	return len(s.fields) - 1
}

// addConstant appends a float64 to the constant pool, returning its index.
// The pool is append-only; callers that want deduplication do it themselves
// (the parser only calls this for literals that survived folding).
func (s *State) addConstant(v float64) int {
	s.constants = append(s.constants, v)
	return len(s.constants) - 1
}

// addStringLiteral appends a string to the literal pool, returning its
// index.
func (s *State) addStringLiteral(v string) int {
	s.stringLiterals = append(s.stringLiterals, v)
	return len(s.stringLiterals) - 1
}

// findNative finds a registered native function by package and name.
func (s *State) findNative(pkg int, name string) int {
	for i, n := range s.natives {
		if n.Package == pkg && n.Name == name {
			return i
		}
	}
	return NotFound
}

// findStruct finds a user struct definition by package and name.
func (s *State) findStruct(pkg int, name string) int {
	for i, d := range s.structs {
		if d.Package == pkg && d.Name == name {
			return i
		}
	}
	return NotFound
}

// findNativeStruct finds a registered native struct by package and name.
func (s *State) findNativeStruct(pkg int, name string) int {
	for i, d := range s.nativeStructs {
		if d.Package == pkg && d.Name == name {
			return i
		}
	}
	return NotFound
}
