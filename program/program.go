// Package program models the symbol universe a flow graph refers to:
// libraries, classes, fields, functions and the Dart-like values that
// appear in constant pools.
package program

import (
	"fmt"
	"sync"
)

// CID identifies a class in the class table.
type CID int64

// Built-in class ids. User classes are numbered from FirstUserCID.
const (
	IllegalCID        CID = 0
	DynamicCID        CID = 1
	NullCID           CID = 2
	BoolCID           CID = 3
	IntegerCID        CID = 4
	DoubleCID         CID = 5
	StringCID         CID = 6
	ImmutableArrayCID CID = 7
	TypeCID           CID = 8
	TypeArgumentsCID  CID = 9
	ClosureCID        CID = 10
	ObjectCID         CID = 11
	ArrayCID          CID = 12
	TypeParameterCID  CID = 13

	FirstUserCID CID = 100
)

// CoreLibraryName is the name of the built-in library.
const CoreLibraryName = "core"

// Object is anything a constant can refer to.
type Object interface {
	object()
}

// Library is a named collection of classes. Top-level fields and functions
// live in its TopLevel class, which has an empty name.
type Library struct {
	Name     string
	TopLevel *Class

	classes map[string]*Class
	order   []*Class
}

func (*Library) object() {}

func (l *Library) String() string { return l.Name }

// LookupClass finds a class by name. The empty name is the top-level class.
func (l *Library) LookupClass(name string) *Class {
	if name == "" {
		return l.TopLevel
	}
	return l.classes[name]
}

// Classes returns the named classes in declaration order.
func (l *Library) Classes() []*Class {
	return l.order
}

// Class is a class declaration.
type Class struct {
	ID             CID
	Name           string
	Library        *Library
	Abstract       bool
	TypeParameters []string

	fields    []*Field
	functions []*Function
}

func (*Class) object() {}

func (c *Class) String() string {
	if c.Name == "" {
		return c.Library.Name + " top level"
	}
	return c.Name
}

// CanonicalName renders the class as library:Class.
func (c *Class) CanonicalName() string {
	return c.Library.Name + ":" + c.Name
}

// Fields returns the fields in declaration order.
func (c *Class) Fields() []*Field {
	return c.fields
}

// Functions returns the functions in declaration order.
func (c *Class) Functions() []*Function {
	return c.functions
}

// AddField declares a field. Instance fields get consecutive word offsets.
func (c *Class) AddField(name string, static bool) *Field {
	f := &Field{Name: name, Owner: c, Static: static}
	if !static {
		f.Offset = 8 * (len(c.InstanceFields()) + 1)
	}
	c.fields = append(c.fields, f)
	return f
}

// AddFunction declares a function.
func (c *Class) AddFunction(name string, kind FunctionKind, paramCount int) *Function {
	fn := &Function{Name: name, Owner: c, Kind: kind, ParamCount: paramCount}
	c.functions = append(c.functions, fn)
	return fn
}

// LookupField finds a static or instance field by name.
func (c *Class) LookupField(name string) *Field {
	for _, f := range c.fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// LookupInstanceField finds a non-static field by name.
func (c *Class) LookupInstanceField(name string) *Field {
	f := c.LookupField(name)
	if f == nil || f.Static {
		return nil
	}
	return f
}

// InstanceFields returns the non-static fields in declaration order.
func (c *Class) InstanceFields() []*Field {
	var fields []*Field
	for _, f := range c.fields {
		if !f.Static {
			fields = append(fields, f)
		}
	}
	return fields
}

// LookupFunction finds a function by name. Getters and setters are named
// with their get: and set: prefixes.
func (c *Class) LookupFunction(name string) *Function {
	for _, fn := range c.functions {
		if fn.Name == name {
			return fn
		}
	}
	return nil
}

// LookupTypeParameter returns the class type parameter with the given name.
func (c *Class) LookupTypeParameter(name string) *TypeParameter {
	for i, p := range c.TypeParameters {
		if p == name {
			return &TypeParameter{Name: name, Index: i, Class: c}
		}
	}
	return nil
}

// Field is a static or instance field.
type Field struct {
	Name   string
	Owner  *Class
	Static bool
	// Offset is the byte offset of an instance field.
	Offset int
}

func (*Field) object() {}

func (f *Field) String() string { return f.CanonicalName() }

// CanonicalName renders the field as library:Class.field.
func (f *Field) CanonicalName() string {
	return f.Owner.CanonicalName() + "." + f.Name
}

// FunctionKind classifies functions.
type FunctionKind string

const (
	RegularFunction            FunctionKind = "RegularFunction"
	ClosureFunction            FunctionKind = "ClosureFunction"
	ImplicitClosureFunction    FunctionKind = "ImplicitClosureFunction"
	GetterFunction             FunctionKind = "GetterFunction"
	SetterFunction             FunctionKind = "SetterFunction"
	Constructor                FunctionKind = "Constructor"
	ImplicitGetter             FunctionKind = "ImplicitGetter"
	ImplicitSetter             FunctionKind = "ImplicitSetter"
	DynamicInvocationForwarder FunctionKind = "DynamicInvocationForwarder"
)

var functionKinds = []FunctionKind{
	RegularFunction,
	ClosureFunction,
	ImplicitClosureFunction,
	GetterFunction,
	SetterFunction,
	Constructor,
	ImplicitGetter,
	ImplicitSetter,
	DynamicInvocationForwarder,
}

// ParseFunctionKind maps a kind name back to its FunctionKind.
func ParseFunctionKind(s string) (FunctionKind, bool) {
	for _, k := range functionKinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Function is a function declaration. Implicit closures and dynamic
// invocation forwarders hang off the function they wrap.
type Function struct {
	Name           string
	Owner          *Class
	Kind           FunctionKind
	ParamCount     int
	TypeParameters []string
	// Parent is the wrapped function of an implicit closure or forwarder.
	Parent *Function

	implicitClosure *Function

	mu         sync.Mutex
	forwarders map[string]*Function
}

func (*Function) object() {}

func (fn *Function) String() string { return fn.CanonicalName() }

// CanonicalName renders the function the way flow graph dumps name it:
// library:Class:name, with the wrapped function's name repeated for
// implicit closures.
func (fn *Function) CanonicalName() string {
	if fn.Kind == ImplicitClosureFunction && fn.Parent != nil {
		return fn.Parent.CanonicalName() + ":" + fn.Parent.Name
	}
	return fn.Owner.CanonicalName() + ":" + fn.Name
}

// QualifiedName is a human readable name such as MyClass.foo.
func (fn *Function) QualifiedName() string {
	if fn.Kind == ImplicitClosureFunction && fn.Parent != nil {
		return fn.Parent.QualifiedName() + "#tearoff"
	}
	if fn.Owner.Name == "" {
		return fmt.Sprintf("%s::%s", fn.Owner.Library.Name, fn.Name)
	}
	return fmt.Sprintf("%s::%s.%s", fn.Owner.Library.Name, fn.Owner.Name, fn.Name)
}

// EnableImplicitClosure gives the function a tearoff.
func (fn *Function) EnableImplicitClosure() *Function {
	if fn.implicitClosure == nil {
		fn.implicitClosure = &Function{
			Name:       fn.Name,
			Owner:      fn.Owner,
			Kind:       ImplicitClosureFunction,
			ParamCount: fn.ParamCount,
			Parent:     fn,
		}
	}
	return fn.implicitClosure
}

// HasImplicitClosureFunction reports whether the function has a tearoff.
func (fn *Function) HasImplicitClosureFunction() bool {
	return fn.implicitClosure != nil
}

// ImplicitClosureFunction returns the tearoff, or nil.
func (fn *Function) ImplicitClosureFunction() *Function {
	return fn.implicitClosure
}

// DynamicInvocationForwarder returns the forwarder named name, creating it
// on first use.
func (fn *Function) DynamicInvocationForwarder(name string) *Function {
	fn.mu.Lock()
	defer fn.mu.Unlock()
	if f, ok := fn.forwarders[name]; ok {
		return f
	}
	if fn.forwarders == nil {
		fn.forwarders = make(map[string]*Function)
	}
	f := &Function{
		Name:       name,
		Owner:      fn.Owner,
		Kind:       DynamicInvocationForwarder,
		ParamCount: fn.ParamCount,
		Parent:     fn,
	}
	fn.forwarders[name] = f
	return f
}

// LookupTypeParameter returns the function type parameter with the given
// name.
func (fn *Function) LookupTypeParameter(name string) *TypeParameter {
	for i, p := range fn.TypeParameters {
		if p == name {
			return &TypeParameter{Name: name, Index: i, Function: fn}
		}
	}
	return nil
}
