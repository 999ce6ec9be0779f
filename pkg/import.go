package hydrogen

import (
	"os"
	"path/filepath"
	"strings"
)

// importStatement compiles `import "path"` and the grouped form
// `import ( "p1", "p2", ... )`. The first import of a path parses it into
// its own package and emits a call to that package's top-level function, so
// its initializers run exactly once, at import time.
func (p *Parser) importStatement() {
	p.next()

	if p.match(TokenOpenParen) {
		for !p.check(TokenCloseParen) {
			pathTok := p.expect(TokenString)
			p.importOne(pathTok)
			if !p.match(TokenComma) {
				break
			}
		}
		p.expect(TokenCloseParen)
		return
	}

	pathTok := p.expect(TokenString)
	p.importOne(pathTok)
}

func (p *Parser) importOne(pathTok Token) {
	path := ExtractString(pathTok)
	if !validImportPath(path) {
		p.errorfAt(pathTok, "invalid import path `%s`", path)
	}

	name := packageNameFromPath(path)
	if p.imported[name] {
		p.errorfAt(pathTok, "duplicate import `%s`", name)
	}
	if p.imported == nil {
		p.imported = make(map[string]bool)
	}
	p.imported[name] = true

	resolved := p.resolveImportPath(path)
	if _, done := p.state.parsedImports[resolved]; done {
		return
	}

	filePath, data, err := readImportFile(resolved)
	if err != nil {
		p.errorfAt(pathTok, "cannot resolve package `%s`: %s", path, err)
	}

	srcIdx := p.state.addSource(filePath, data)
	childPkg := p.state.AddPackage(name)
	if p.state.parsedImports == nil {
		p.state.parsedImports = make(map[string]int)
	}
	p.state.parsedImports[resolved] = childPkg

	child := NewParser(p.state, childPkg, srcIdx)
	topFn, perr := child.Parse()
	if perr != nil {
		p.fail(perr)
	}

	// Run the imported package's top-level code at the point of import.
	ret := p.reserveSlot()
	base := p.reserveSlot()
	p.emit(MOV_LF, uint16(base), uint16(topFn), 0)
	p.emit(CALL, uint16(base), 0, uint16(ret))
	p.freeSlot()
	p.freeSlot()
}

// validImportPath accepts ASCII letters/digits/underscore components joined
// by slashes. Dots appear only as a single leading `../` parent segment; an
// empty component, trailing slash or trailing dot is rejected.
func validImportPath(path string) bool {
	if path == "" || strings.HasSuffix(path, "/") || strings.HasSuffix(path, ".") {
		return false
	}

	rest := strings.TrimPrefix(path, "/")
	components := strings.Split(rest, "/")
	for i, c := range components {
		if c == "" {
			return false
		}
		if c == ".." {
			if i != 0 || strings.HasPrefix(path, "/") {
				return false
			}
			continue
		}
		for _, r := range c {
			switch {
			case r >= 'a' && r <= 'z':
			case r >= 'A' && r <= 'Z':
			case r >= '0' && r <= '9':
			case r == '_':
			default:
				return false
			}
		}
	}
	return true
}

// resolveImportPath anchors a relative import at the importing file's
// directory. Imports from a pathless source (a bare string) and absolute
// paths are used as written.
func (p *Parser) resolveImportPath(path string) string {
	importer := p.curSource().Path
	if importer == "" || strings.HasPrefix(path, "/") {
		return path
	}
	return filepath.Join(filepath.Dir(importer), path)
}

// readImportFile loads an import target, trying the bare path first and
// then the conventional source extension.
func readImportFile(path string) (string, string, error) {
	candidates := []string{path, path + ".hy"}
	var lastErr error
	for _, c := range candidates {
		data, err := os.ReadFile(c)
		if err == nil {
			return c, string(data), nil
		}
		lastErr = err
	}
	return "", "", lastErr
}
