package program

import (
	"fmt"
	"strconv"
	"strings"
)

// Value is an Object that is a Dart instance. Values are the only objects
// that go through canonicalization.
type Value interface {
	Object
	CID() CID
}

// AbstractType is a Value usable as a type argument.
type AbstractType interface {
	Value
	abstractType()
}

// NullValue is the type of Null.
type NullValue struct{}

// Null is the only NullValue.
var Null = &NullValue{}

func (*NullValue) object()        {}
func (*NullValue) CID() CID       { return NullCID }
func (*NullValue) String() string { return "null" }

// Bool is a boolean value. Only True and False exist.
type Bool struct {
	Value bool
}

var (
	True  = &Bool{Value: true}
	False = &Bool{Value: false}
)

// BoolOf returns True or False.
func BoolOf(b bool) *Bool {
	if b {
		return True
	}
	return False
}

func (*Bool) object()          {}
func (*Bool) CID() CID         { return BoolCID }
func (b *Bool) String() string { return strconv.FormatBool(b.Value) }

type Integer struct {
	Value int64
}

func (*Integer) object()          {}
func (*Integer) CID() CID         { return IntegerCID }
func (i *Integer) String() string { return strconv.FormatInt(i.Value, 10) }

type Double struct {
	Value float64
}

func (*Double) object()          {}
func (*Double) CID() CID         { return DoubleCID }
func (d *Double) String() string { return strconv.FormatFloat(d.Value, 'g', -1, 64) }

type String struct {
	Value string
}

func (*String) object()          {}
func (*String) CID() CID         { return StringCID }
func (s *String) String() string { return strconv.Quote(s.Value) }

// Array is a list of objects. Only immutable arrays can be constants.
type Array struct {
	Elements  []Object
	TypeArgs  *TypeArguments
	Immutable bool
}

func (*Array) object() {}

func (a *Array) CID() CID {
	if a.Immutable {
		return ImmutableArrayCID
	}
	return ArrayCID
}

// Type is a class type with optional type arguments.
type Type struct {
	Class     *Class
	TypeArgs  *TypeArguments
	Finalized bool
}

func (*Type) object()       {}
func (*Type) abstractType() {}
func (*Type) CID() CID      { return TypeCID }

func (t *Type) String() string {
	if t.TypeArgs == nil || len(t.TypeArgs.Types) == 0 {
		return t.Class.Name
	}
	return t.Class.Name + t.TypeArgs.String()
}

// TypeArguments is a vector of types.
type TypeArguments struct {
	Types []AbstractType
}

func (*TypeArguments) object()  {}
func (*TypeArguments) CID() CID { return TypeArgumentsCID }

func (ta *TypeArguments) String() string {
	parts := make([]string, len(ta.Types))
	for i, t := range ta.Types {
		parts[i] = fmt.Sprint(t)
	}
	return "<" + strings.Join(parts, ", ") + ">"
}

// TypeParameter refers to a type parameter of a class or of a function.
// Exactly one of Class and Function is set.
type TypeParameter struct {
	Name     string
	Index    int
	Class    *Class
	Function *Function
}

func (*TypeParameter) object()          {}
func (*TypeParameter) abstractType()    {}
func (*TypeParameter) CID() CID         { return TypeParameterCID }
func (p *TypeParameter) String() string { return p.Name }

// Instance is an instance of a user class.
type Instance struct {
	Class  *Class
	fields map[*Field]Object
}

// NewInstance allocates an instance with every field unset.
func NewInstance(cls *Class) *Instance {
	return &Instance{Class: cls, fields: make(map[*Field]Object)}
}

func (*Instance) object()    {}
func (i *Instance) CID() CID { return i.Class.ID }

// SetField stores v into f.
func (i *Instance) SetField(f *Field, v Object) {
	i.fields[f] = v
}

// GetField returns the value stored in f, or nil if it was never set.
func (i *Instance) GetField(f *Field) Object {
	return i.fields[f]
}

func (i *Instance) String() string {
	return "Instance of " + i.Class.Name
}

// Closure is a function object together with its captured type arguments.
type Closure struct {
	Function             *Function
	InstantiatorTypeArgs *TypeArguments
	FunctionTypeArgs     *TypeArguments
	DelayedTypeArgs      *TypeArguments
}

func (*Closure) object()          {}
func (*Closure) CID() CID         { return ClosureCID }
func (c *Closure) String() string { return "Closure: " + c.Function.QualifiedName() }
