package il

import (
	"fmt"

	"github.com/strager/ilsexp/program"
)

// ParsedFunction is the function a graph is compiled for.
type ParsedFunction struct {
	Function *program.Function
}

func NewParsedFunction(fn *program.Function) *ParsedFunction {
	return &ParsedFunction{Function: fn}
}

// Environment is the deoptimization state at an instruction. Outer is the
// environment of the caller when the instruction was inlined.
type Environment struct {
	Values          []*Value
	FixedParamCount int
	DeoptID         int
	Outer           *Environment
	Function        *ParsedFunction
}

func NewEnvironment(capacity, fixedParamCount int, pf *ParsedFunction, outer *Environment) *Environment {
	return &Environment{
		Values:          make([]*Value, 0, capacity),
		FixedParamCount: fixedParamCount,
		DeoptID:         DeoptIDNone,
		Outer:           outer,
		Function:        pf,
	}
}

func (e *Environment) PushValue(v *Value) {
	e.Values = append(e.Values, v)
}

func (e *Environment) Length() int {
	return len(e.Values)
}

// Depth is the length of the outer chain, counting e.
func (e *Environment) Depth() int {
	n := 0
	for cur := e; cur != nil; cur = cur.Outer {
		n++
	}
	return n
}

// CompileType is the static type information attached to a definition or
// to a value. A nil Type and DynamicCID mean nothing is known.
type CompileType struct {
	Nullable bool
	CID      program.CID
	Type     program.AbstractType
}

// DynamicType returns the type that carries no information.
func DynamicType() *CompileType {
	return &CompileType{Nullable: true, CID: program.DynamicCID}
}

func (t *CompileType) String() string {
	s := fmt.Sprintf("T{cid %d", t.CID)
	if t.Type != nil {
		s += fmt.Sprintf(", %v", t.Type)
	}
	if !t.Nullable {
		s += ", non-nullable"
	}
	return s + "}"
}

// SlotKind classifies a memory slot.
type SlotKind string

const (
	SlotDartField               SlotKind = "DartField"
	SlotTypeArguments           SlotKind = "TypeArguments"
	SlotCapturedVariable        SlotKind = "CapturedVariable"
	SlotArrayLength             SlotKind = "Array_length"
	SlotClosureFunction         SlotKind = "Closure_function"
	SlotClosureContext          SlotKind = "Closure_context"
	SlotGrowableObjectArrayData SlotKind = "GrowableObjectArray_data"
)

// Slot is a field of an object a LoadField or StoreInstanceField touches.
type Slot struct {
	Kind   SlotKind
	Offset int
	Field  *program.Field
}

var nativeSlots = map[SlotKind]*Slot{
	SlotArrayLength:             {Kind: SlotArrayLength, Offset: 16},
	SlotClosureFunction:         {Kind: SlotClosureFunction, Offset: 32},
	SlotClosureContext:          {Kind: SlotClosureContext, Offset: 40},
	SlotGrowableObjectArrayData: {Kind: SlotGrowableObjectArrayData, Offset: 24},
}

// ParseSlotKind maps a kind name back to its SlotKind.
func ParseSlotKind(s string) (SlotKind, bool) {
	switch k := SlotKind(s); k {
	case SlotDartField, SlotTypeArguments, SlotCapturedVariable:
		return k, true
	default:
		_, ok := nativeSlots[k]
		return k, ok
	}
}

// IsNative reports whether the slot belongs to a VM object layout.
func (s *Slot) IsNative() bool {
	_, ok := nativeSlots[s.Kind]
	return ok
}

// NativeSlot returns the shared slot for a native kind, or nil.
func NativeSlot(kind SlotKind) *Slot {
	return nativeSlots[kind]
}

// TypeArgumentsSlotAt is the type argument vector of an instance stored at
// offset.
func TypeArgumentsSlotAt(offset int) *Slot {
	return &Slot{Kind: SlotTypeArguments, Offset: offset}
}

// FieldSlot is the slot of an instance field.
func FieldSlot(f *program.Field) *Slot {
	return &Slot{Kind: SlotDartField, Offset: f.Offset, Field: f}
}

func (s *Slot) String() string {
	if s.Field != nil {
		return s.Field.Name
	}
	return string(s.Kind)
}
