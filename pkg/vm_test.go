package hydrogen

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runMain compiles and executes src in a fresh state's "main" package.
func runMain(t *testing.T, src string) (*State, int) {
	t.Helper()
	s := NewState(Options{})
	pkg := s.AddPackage("main")
	err := s.RunString(pkg, src)
	require.Nil(t, err, "unexpected error: %v", err)
	return s, pkg
}

func runError(t *testing.T, src string) *Error {
	t.Helper()
	s := NewState(Options{})
	pkg := s.AddPackage("main")
	err := s.RunString(pkg, src)
	require.NotNil(t, err, "expected an error for %q", src)
	return err
}

func topNumber(t *testing.T, s *State, pkg int, name string) float64 {
	t.Helper()
	v, ok := s.TopLevel(pkg, name)
	require.True(t, ok, "no top-level `%s`", name)
	require.True(t, v.IsNumber(), "`%s` is not a number: %s", name, s.TypeOf(v))
	return v.ToNumber()
}

func topValue(t *testing.T, s *State, pkg int, name string) Value {
	t.Helper()
	v, ok := s.TopLevel(pkg, name)
	require.True(t, ok, "no top-level `%s`", name)
	return v
}

func TestRunArithmetic(t *testing.T) {
	s, pkg := runMain(t, `
let a = 3
let b = 4
let c = a * b + 2
`)
	assert.Equal(t, 14.0, topNumber(t, s, pkg, "c"))
}

func TestRunShortCircuit(t *testing.T) {
	s, pkg := runMain(t, `
let a = 3
let b = a == 3 && a > 0
let c = a != 3 || a < 0
let d = a == 3 || a > 100
let e = !(a == 3)
`)
	assert.Equal(t, ValueTrue, topValue(t, s, pkg, "b"))
	assert.Equal(t, ValueFalse, topValue(t, s, pkg, "c"))
	assert.Equal(t, ValueTrue, topValue(t, s, pkg, "d"))
	assert.Equal(t, ValueFalse, topValue(t, s, pkg, "e"))
}

func TestRunStructMethod(t *testing.T) {
	s, pkg := runMain(t, `
struct Point { x, y }
fn (Point) sum() { return self.x + self.y }
let p = new Point()
p.x = 3
p.y = 4
let total = p.sum()
`)
	assert.Equal(t, 7.0, topNumber(t, s, pkg, "total"))
}

func TestRunStructConstructor(t *testing.T) {
	s, pkg := runMain(t, `
struct Vec { x, y }
fn (Vec) new(x, y) {
	self.x = x
	self.y = y
}
fn (Vec) dot(other) {
	return self.x * other.x + self.y * other.y
}
let a = new Vec(1, 2)
let b = new Vec(3, 4)
let d = a.dot(b)
let ax = a.x
`)
	assert.Equal(t, 11.0, topNumber(t, s, pkg, "d"))
	assert.Equal(t, 1.0, topNumber(t, s, pkg, "ax"))
}

func TestRunTopLevelWriteThrough(t *testing.T) {
	s, pkg := runMain(t, `
let counter = 0
fn tick() {
	counter = counter + 1
	return counter
}
tick()
tick()
tick()
`)
	assert.Equal(t, 3.0, topNumber(t, s, pkg, "counter"))
}

func TestRunArrays(t *testing.T) {
	s, pkg := runMain(t, `
let a = [10, 20, 30]
a.push(40)
a.insert(0, 5)
let v = a[2]
let n = a.len()
let first = a[0]
let last = a[4]
let popped = a.pop()
let removed = a.remove(0)
`)
	assert.Equal(t, 20.0, topNumber(t, s, pkg, "v"))
	assert.Equal(t, 5.0, topNumber(t, s, pkg, "n"))
	assert.Equal(t, 5.0, topNumber(t, s, pkg, "first"))
	assert.Equal(t, 40.0, topNumber(t, s, pkg, "last"))
	assert.Equal(t, 40.0, topNumber(t, s, pkg, "popped"))
	assert.Equal(t, 5.0, topNumber(t, s, pkg, "removed"))

	arr, err := s.ExpectArray(topValue(t, s, pkg, "a"))
	require.NoError(t, err)

	var got []float64
	for _, item := range arr.Items {
		got = append(got, item.ToNumber())
	}
	if diff := cmp.Diff([]float64{10, 20, 30}, got); diff != "" {
		t.Errorf("array contents mismatch (-want +got):\n%s", diff)
	}
}

func TestRunArrayIndexAssignment(t *testing.T) {
	s, pkg := runMain(t, `
let a = [1, 2, 3]
a[1] = 99
let i = 2
a[i] = a[0] + 1
let x = a[1]
let y = a[2]
`)
	assert.Equal(t, 99.0, topNumber(t, s, pkg, "x"))
	assert.Equal(t, 2.0, topNumber(t, s, pkg, "y"))
}

func TestRunWhileLoop(t *testing.T) {
	s, pkg := runMain(t, `
let total = 0
let i = 1
while i <= 10 {
	total = total + i
	i = i + 1
}
`)
	assert.Equal(t, 55.0, topNumber(t, s, pkg, "total"))
}

func TestRunLoopBreak(t *testing.T) {
	s, pkg := runMain(t, `
let n = 0
loop {
	n = n + 1
	if n == 5 {
		break
	}
}
`)
	assert.Equal(t, 5.0, topNumber(t, s, pkg, "n"))
}

func TestRunIfElseChain(t *testing.T) {
	s, pkg := runMain(t, `
fn classify(n) {
	if n < 0 {
		return "negative"
	} else if n == 0 {
		return "zero"
	} else if n < 10 {
		return "small"
	} else {
		return "large"
	}
}
let a = classify(0 - 4)
let b = classify(0)
let c = classify(7)
let d = classify(1000)
`)

	for name, expect := range map[string]string{
		"a": "negative", "b": "zero", "c": "small", "d": "large",
	} {
		got, err := s.ExpectString(topValue(t, s, pkg, name))
		require.NoError(t, err)
		assert.Equal(t, expect, got)
	}
}

func TestRunConcat(t *testing.T) {
	s, pkg := runMain(t, `
let name = "world"
let greeting = "hello " .. name
let trailing = name .. "!"
let length = greeting.len()
`)
	got, err := s.ExpectString(topValue(t, s, pkg, "greeting"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", got)

	got, err = s.ExpectString(topValue(t, s, pkg, "trailing"))
	require.NoError(t, err)
	assert.Equal(t, "world!", got)

	assert.Equal(t, 11.0, topNumber(t, s, pkg, "length"))
}

func TestRunCompoundAssignment(t *testing.T) {
	s, pkg := runMain(t, `
let x = 1
x += 4
x *= 3
x -= 5
x /= 2
struct Box { v }
let b = new Box()
b.v = 10
b.v += 5
let bv = b.v
`)
	assert.Equal(t, 5.0, topNumber(t, s, pkg, "x"))
	assert.Equal(t, 15.0, topNumber(t, s, pkg, "bv"))
}

func TestRunRecursion(t *testing.T) {
	s, pkg := runMain(t, `
fn fib(n) {
	if n < 2 {
		return n
	}
	return fib(n - 1) + fib(n - 2)
}
let f10 = fib(10)
`)
	assert.Equal(t, 55.0, topNumber(t, s, pkg, "f10"))
}

func TestRunClosureWhileLive(t *testing.T) {
	s, pkg := runMain(t, `
fn outer() {
	let x = 1
	fn inner() {
		x = x + 1
		return x
	}
	inner()
	inner()
	return inner()
}
let r = outer()
`)
	assert.Equal(t, 4.0, topNumber(t, s, pkg, "r"))
}

func TestRunClosureEscapes(t *testing.T) {
	s, pkg := runMain(t, `
fn mk() {
	let x = 10
	fn get() {
		x = x + 5
		return x
	}
	return get
}
let g = mk()
let r1 = g()
let r2 = g()
`)
	assert.Equal(t, 15.0, topNumber(t, s, pkg, "r1"))
	assert.Equal(t, 20.0, topNumber(t, s, pkg, "r2"))
}

func TestRunStructEquality(t *testing.T) {
	s, pkg := runMain(t, `
struct Vec { x, y }
fn (Vec) new(x, y) {
	self.x = x
	self.y = y
}
let a = new Vec(1, 2)
let b = new Vec(1, 2)
let c = new Vec(9, 9)
let same = a == b
let diff = a != c
`)
	assert.Equal(t, ValueTrue, topValue(t, s, pkg, "same"))
	assert.Equal(t, ValueTrue, topValue(t, s, pkg, "diff"))
}

func TestRunNativeFunction(t *testing.T) {
	s := NewState(Options{})
	pkg := s.AddPackage("main")

	s.RegisterNative(pkg, "add", 2, func(s *State, args []Value) (Value, error) {
		a, err := s.ExpectNumber(args[0])
		if err != nil {
			return ValueNil, err
		}
		b, err := s.ExpectNumber(args[1])
		if err != nil {
			return ValueNil, err
		}
		return NumberValue(a + b), nil
	})

	var joined string
	s.RegisterNative(pkg, "join", VarArg, func(s *State, args []Value) (Value, error) {
		joined = ""
		for _, a := range args {
			joined += s.FormatValue(a)
		}
		return s.NewStringValue(joined), nil
	})

	err := s.RunString(pkg, `
let r = add(2, 3)
let j = join(1, "x", true)
`)
	require.Nil(t, err, "unexpected error: %v", err)

	assert.Equal(t, 5.0, topNumber(t, s, pkg, "r"))
	assert.Equal(t, "1xtrue", joined)
}

func TestRunNativeArityMismatch(t *testing.T) {
	s := NewState(Options{})
	pkg := s.AddPackage("main")
	s.RegisterNative(pkg, "one", 1, func(s *State, args []Value) (Value, error) {
		return args[0], nil
	})

	err := s.RunString(pkg, "one(1, 2)")
	require.NotNil(t, err)
	assert.Contains(t, err.Description, "expects 1 arguments, got 2")
}

func TestRunNativeStruct(t *testing.T) {
	type counter struct{ n float64 }

	s := NewState(Options{})
	pkg := s.AddPackage("main")

	destroyed := 0
	var defIdx int
	defIdx = s.RegisterNativeStruct(pkg, NativeStructDefinition{
		Name:            "Counter",
		ConstructorArgs: 1,
		Constructor: func(s *State, args []Value) (Value, error) {
			start, err := s.ExpectNumber(args[0])
			if err != nil {
				return ValueNil, err
			}
			return s.NewNativeInstance(defIdx, &counter{n: start}), nil
		},
		Destructor: func(s *State, data interface{}) {
			destroyed++
		},
		Methods: map[string]NativeFn{
			"bump": func(s *State, args []Value) (Value, error) {
				data, _ := s.NativeData(args[0])
				c := data.(*counter)
				c.n++
				return NumberValue(c.n), nil
			},
		},
	})

	err := s.RunString(pkg, `
let c = new Counter(10)
c.bump()
let n = c.bump()
`)
	require.Nil(t, err, "unexpected error: %v", err)
	assert.Equal(t, 12.0, topNumber(t, s, pkg, "n"))

	s.Free()
	assert.Equal(t, 1, destroyed)
}

func TestRuntimeErrors(t *testing.T) {
	cases := []struct {
		src      string
		contains string
	}{
		{
			"fn f(x) { return x + 1 } let r = f(\"hi\")",
			"number expected",
		},
		{
			"fn div(a, b) { return a / b } let r = div(1, 0)",
			"Attempt to divide by 0",
		},
		{
			"let x = 1 x(2)",
			"call a non-function",
		},
		{
			"let a = [1, 2] let v = a[5]",
			"out of bounds",
		},
		{
			"let a = [1, 2] let i = \"x\" let v = a[i]",
			"array index must be an integer",
		},
		{
			"struct S { x } let s = new S() let v = s.missing",
			"unknown field `missing`",
		},
		{
			"let s = \"str\" let r = s .. 1",
			"string expected",
		},
	}

	for _, c := range cases {
		err := runError(t, c.src)
		assert.Contains(t, err.Description, c.contains, "error mismatch for %q", c.src)
	}
}

func TestStateSurvivesError(t *testing.T) {
	s := NewState(Options{})
	pkg := s.AddPackage("main")

	require.Nil(t, s.RunString(pkg, "let a = 1"))
	require.NotNil(t, s.RunString(pkg, "let b = undefined_name"))

	// Earlier definitions remain usable after a failed run.
	require.Nil(t, s.RunString(pkg, "let c = a + 1"))
	assert.Equal(t, 2.0, topNumber(t, s, pkg, "c"))
}
