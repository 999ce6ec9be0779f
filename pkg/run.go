package hydrogen

// RunString compiles and executes source text in the given package. The
// returned *Error is nil on success; the state stays usable after a
// failure, keeping everything compiled by earlier calls.
func (s *State) RunString(pkg int, source string) *Error {
	srcIdx := s.addSource("", source)
	return s.runSource(pkg, srcIdx)
}

// RunFile reads, compiles and executes a source file in the given package.
// A file-system failure is an ordinary Go error; a compile or runtime
// failure is returned as *Error.
func (s *State) RunFile(pkg int, path string) (*Error, error) {
	srcIdx, err := s.addSourceFile(path)
	if err != nil {
		return nil, err
	}
	return s.runSource(pkg, srcIdx), nil
}

func (s *State) runSource(pkg, srcIdx int) *Error {
	parser := NewParser(s, pkg, srcIdx)
	fnIdx, perr := parser.Parse()
	if perr != nil {
		return perr
	}
	return s.execute(fnIdx)
}

// TopLevel reads a package-level variable by name, for embedders inspecting
// results after a run.
func (s *State) TopLevel(pkg int, name string) (Value, bool) {
	p := s.packages[pkg]
	idx := p.FindLocal(name)
	if idx == NotFound {
		return ValueNil, false
	}
	return p.LocalVals[idx], true
}
