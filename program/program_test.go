package program

import (
	"strings"
	"sync"
	"testing"

	"github.com/nalgeon/be"
)

const testProgram = `
libraries:
  - name: myLib
    fields:
      - {name: counter}
    functions:
      - {name: main}
      - {name: helper, params: 2, implicit_closure: true}
    classes:
      - name: MyClass
        type_parameters: [T]
        fields:
          - {name: myField}
          - {name: other}
          - {name: shared, static: true}
        functions:
          - {name: get:myProp, kind: GetterFunction}
          - {name: method, params: 1, type_parameters: [U]}
      - name: Shape
        abstract: true
`

func loadTestProgram(t *testing.T) *Universe {
	t.Helper()
	u, err := Load(strings.NewReader(testProgram))
	be.Err(t, err, nil)
	return u
}

func TestLoad(t *testing.T) {
	u := loadTestProgram(t)

	lib := u.LookupLibrary("myLib")
	be.True(t, lib != nil)
	be.True(t, u.LookupLibrary("nope") == nil)
	be.Equal(t, len(u.Libraries()), 2)

	cls := lib.LookupClass("MyClass")
	be.True(t, cls != nil)
	be.Equal(t, cls.ID >= FirstUserCID, true)
	be.True(t, u.ClassAt(cls.ID) == cls)
	be.Equal(t, cls.TypeParameters, []string{"T"})
	be.True(t, lib.LookupClass("Shape").Abstract)
	be.True(t, lib.LookupClass("") == lib.TopLevel)

	be.Equal(t, cls.LookupField("myField").Offset, 8)
	be.Equal(t, cls.LookupField("other").Offset, 16)
	be.True(t, cls.LookupInstanceField("shared") == nil)
	be.True(t, lib.TopLevel.LookupField("counter").Static)

	getter := cls.LookupFunction("get:myProp")
	be.Equal(t, getter.Kind, GetterFunction)
	be.Equal(t, getter.CanonicalName(), "myLib:MyClass:get:myProp")

	helper := lib.TopLevel.LookupFunction("helper")
	be.Equal(t, helper.ParamCount, 2)
	be.True(t, helper.HasImplicitClosureFunction())
	be.Equal(t, helper.CanonicalName(), "myLib::helper")
	be.Equal(t, helper.ImplicitClosureFunction().CanonicalName(), "myLib::helper:helper")
	be.Equal(t, helper.QualifiedName(), "myLib::helper")
	be.True(t, !lib.TopLevel.LookupFunction("main").HasImplicitClosureFunction())
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"libraries:\n  - classes: []\n", "library without a name"},
		{"libraries:\n  - name: a\n    classes:\n      - name: C\n      - name: C\n", "duplicate class C"},
		{"libraries:\n  - name: a\n    functions:\n      - {name: f, kind: Weird}\n", "unknown kind Weird"},
		{"libraries:\n  - name: a\n    fields:\n      - {name: x}\n      - {name: x}\n", "duplicate field x"},
		{"libraries:\n  - name: a\n    bogus: 1\n", "failed to decode program"},
	}
	for _, test := range tests {
		_, err := Load(strings.NewReader(test.input))
		be.Err(t, err, test.expected)
	}
}

func TestCoreClasses(t *testing.T) {
	u := NewUniverse()
	be.Equal(t, u.ClassAt(IntegerCID).Name, "int")
	be.Equal(t, u.ClassAt(ObjectCID).Library.Name, CoreLibraryName)
	be.True(t, u.HasValidClassAt(NullCID))
	be.True(t, !u.HasValidClassAt(9999))
	be.True(t, u.Core() == u.LookupLibrary("core"))
}

func TestDynamicInvocationForwarder(t *testing.T) {
	u := loadTestProgram(t)
	method := u.LookupLibrary("myLib").LookupClass("MyClass").LookupFunction("method")

	fwd := method.DynamicInvocationForwarder("dyn:method")
	be.Equal(t, fwd.Kind, DynamicInvocationForwarder)
	be.True(t, fwd.Parent == method)
	be.True(t, method.DynamicInvocationForwarder("dyn:method") == fwd)
	be.Equal(t, fwd.CanonicalName(), "myLib:MyClass:dyn:method")
}

func TestTypeParameters(t *testing.T) {
	u := loadTestProgram(t)
	cls := u.LookupLibrary("myLib").LookupClass("MyClass")

	p := cls.LookupTypeParameter("T")
	be.Equal(t, p.Index, 0)
	be.True(t, p.Class == cls)
	be.True(t, cls.LookupTypeParameter("U") == nil)

	q := cls.LookupFunction("method").LookupTypeParameter("U")
	be.True(t, q.Function != nil)
}

func TestCanonicalizeDeduplicates(t *testing.T) {
	u := loadTestProgram(t)
	cls := u.LookupLibrary("myLib").LookupClass("MyClass")

	a, err := u.Canonicalize(&Integer{Value: 7})
	be.Err(t, err, nil)
	b, err := u.Canonicalize(&Integer{Value: 7})
	be.Err(t, err, nil)
	be.True(t, a == b)

	c, err := u.Canonicalize(&Double{Value: 7})
	be.Err(t, err, nil)
	be.True(t, c != a)

	newPoint := func() *Instance {
		i := NewInstance(cls)
		i.SetField(cls.LookupField("myField"), a)
		i.SetField(cls.LookupField("other"), &String{Value: "hi"})
		return i
	}
	p1, err := u.Canonicalize(newPoint())
	be.Err(t, err, nil)
	p2, err := u.Canonicalize(newPoint())
	be.Err(t, err, nil)
	be.True(t, p1 == p2)

	unset := NewInstance(cls)
	p3, err := u.Canonicalize(unset)
	be.Err(t, err, nil)
	be.True(t, p3 != p1)

	arr := func(elems ...Object) *Array { return &Array{Elements: elems, Immutable: true} }
	l1, err := u.Canonicalize(arr(a, Null, True))
	be.Err(t, err, nil)
	l2, err := u.Canonicalize(arr(a, Null, True))
	be.Err(t, err, nil)
	be.True(t, l1 == l2)
	l3, err := u.Canonicalize(arr(a, Null, False))
	be.Err(t, err, nil)
	be.True(t, l3 != l1)

	be.True(t, u.CanonicalCount() >= 5)
}

func TestCanonicalizeSingletons(t *testing.T) {
	u := NewUniverse()
	v, err := u.Canonicalize(Null)
	be.Err(t, err, nil)
	be.True(t, v == Value(Null))
	v, err = u.Canonicalize(BoolOf(true))
	be.Err(t, err, nil)
	be.True(t, v == Value(True))
	be.Equal(t, u.CanonicalCount(), 0)
}

func TestCanonicalizeErrors(t *testing.T) {
	u := loadTestProgram(t)
	lib := u.LookupLibrary("myLib")

	_, err := u.Canonicalize(NewInstance(lib.LookupClass("Shape")))
	be.Err(t, err, "cannot create an instance of abstract class Shape")

	_, err = u.Canonicalize(&Type{Class: lib.LookupClass("MyClass")})
	be.Err(t, err, "is not finalized")

	_, err = u.Canonicalize(&Array{Elements: []Object{Null}})
	be.Err(t, err, "array is not immutable")

	inner := &Type{Class: lib.LookupClass("MyClass")}
	outer := &Type{
		Class:     lib.LookupClass("MyClass"),
		TypeArgs:  &TypeArguments{Types: []AbstractType{inner}},
		Finalized: true,
	}
	_, err = u.Canonicalize(outer)
	be.Err(t, err, "is not finalized")
}

func TestCanonicalizeConcurrently(t *testing.T) {
	u := NewUniverse()
	results := make([]Value, 16)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := u.Canonicalize(&String{Value: "shared"})
			if err == nil {
				results[i] = v
			}
		}(i)
	}
	wg.Wait()
	for _, v := range results {
		be.True(t, v == results[0])
	}
	be.Equal(t, u.CanonicalCount(), 1)
}
