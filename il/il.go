// Package il is the in-memory control flow graph of one compiled function:
// block entries, instructions, SSA definitions and the values that use
// them.
package il

// Kind names an instruction class. The string is the tag used in the
// S-expression form.
type Kind string

const (
	KindGraphEntry      Kind = "GraphEntry"
	KindFunctionEntry   Kind = "FunctionEntry"
	KindJoinEntry       Kind = "JoinEntry"
	KindTargetEntry     Kind = "TargetEntry"
	KindOsrEntry        Kind = "OsrEntry"
	KindCatchBlockEntry Kind = "CatchBlockEntry"
	KindIndirectEntry   Kind = "IndirectEntry"

	KindParameter          Kind = "Parameter"
	KindSpecialParameter   Kind = "SpecialParameter"
	KindConstant           Kind = "Constant"
	KindPushArgument       Kind = "PushArgument"
	KindStaticCall         Kind = "StaticCall"
	KindAllocateObject     Kind = "AllocateObject"
	KindCheckNull          Kind = "CheckNull"
	KindCheckStackOverflow Kind = "CheckStackOverflow"
	KindDebugStepCheck     Kind = "DebugStepCheck"
	KindLoadField          Kind = "LoadField"
	KindStoreInstanceField Kind = "StoreInstanceField"
	KindStrictCompare      Kind = "StrictCompare"
	KindBranch             Kind = "Branch"
	KindGoto               Kind = "Goto"
	KindReturn             Kind = "Return"
	KindPhi                Kind = "Phi"

	KindBinaryIntegerOp Kind = "BinaryIntegerOp"
	KindInstanceCall    Kind = "InstanceCall"
	KindEqualityCompare Kind = "EqualityCompare"
)

const (
	// DeoptIDNone marks an instruction without a deoptimization id.
	DeoptIDNone = -1
	// InvalidTryIndex marks a block outside any try block.
	InvalidTryIndex = -1
	// NoOSRID marks a graph not compiled for on-stack replacement.
	NoOSRID = -1
)

// Instruction is any node of the graph, block entries included.
type Instruction interface {
	Kind() Kind
	Inputs() []*Value
	Successors() []BlockEntry
	Info() *InstrInfo
}

// InstrInfo holds the attributes shared by every instruction.
type InstrInfo struct {
	DeoptID int
	Env     *Environment
}

func (i *InstrInfo) Info() *InstrInfo       { return i }
func (*InstrInfo) Inputs() []*Value         { return nil }
func (*InstrInfo) Successors() []BlockEntry { return nil }

func newInfo(deoptID int) InstrInfo {
	return InstrInfo{DeoptID: deoptID}
}

// Definition is an instruction that produces a value.
type Definition interface {
	Instruction
	SSAIndex() int
	SetSSAIndex(index int)
	Type() *CompileType
	SetType(t *CompileType)
	Uses() []*Value

	addUse(v *Value)
	removeUse(v *Value)
}

// DefInfo holds the attributes shared by every definition.
type DefInfo struct {
	ssaIndex int
	numbered bool
	typ      *CompileType
	uses     []*Value
}

// SSAIndex returns -1 until an index is assigned.
func (d *DefInfo) SSAIndex() int {
	if !d.numbered {
		return -1
	}
	return d.ssaIndex
}

func (d *DefInfo) SetSSAIndex(index int) {
	d.ssaIndex = index
	d.numbered = index >= 0
}

func (d *DefInfo) Type() *CompileType     { return d.typ }
func (d *DefInfo) SetType(t *CompileType) { d.typ = t }

// Uses returns the values currently bound to the definition.
func (d *DefInfo) Uses() []*Value { return d.uses }

func (d *DefInfo) addUse(v *Value) {
	d.uses = append(d.uses, v)
}

func (d *DefInfo) removeUse(v *Value) {
	for i, u := range d.uses {
		if u == v {
			d.uses = append(d.uses[:i], d.uses[i+1:]...)
			return
		}
	}
}

// Value is a use of a definition.
type Value struct {
	def          Definition
	ReachingType *CompileType
}

// NewValue returns a use of def.
func NewValue(def Definition) *Value {
	v := &Value{def: def}
	def.addUse(v)
	return v
}

func (v *Value) Definition() Definition { return v.def }

// BindTo moves the use to def.
func (v *Value) BindTo(def Definition) {
	if v.def == def {
		return
	}
	if v.def != nil {
		v.def.removeUse(v)
	}
	v.def = def
	def.addUse(v)
}

// BoundConstant returns the constant the value refers to, if any.
func (v *Value) BoundConstant() (*Constant, bool) {
	c, ok := v.def.(*Constant)
	return c, ok
}
