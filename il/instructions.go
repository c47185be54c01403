package il

import (
	"github.com/strager/ilsexp/program"
)

// Parameter is a positional parameter of the function.
type Parameter struct {
	InstrInfo
	DefInfo

	Index int
	Block BlockEntry
}

func NewParameter(index int, block BlockEntry) *Parameter {
	return &Parameter{InstrInfo: newInfo(DeoptIDNone), Index: index, Block: block}
}

func (*Parameter) Kind() Kind { return KindParameter }

// SpecialParameterKind selects an implicit parameter.
type SpecialParameterKind string

const (
	SpecialContext       SpecialParameterKind = "Context"
	SpecialTypeArgs      SpecialParameterKind = "TypeArgs"
	SpecialArgDescriptor SpecialParameterKind = "ArgDescriptor"
	SpecialException     SpecialParameterKind = "Exception"
	SpecialStackTrace    SpecialParameterKind = "StackTrace"
)

// ParseSpecialParameterKind maps a name back to its kind.
func ParseSpecialParameterKind(s string) (SpecialParameterKind, bool) {
	switch k := SpecialParameterKind(s); k {
	case SpecialContext, SpecialTypeArgs, SpecialArgDescriptor, SpecialException, SpecialStackTrace:
		return k, true
	}
	return "", false
}

// SpecialParameter is an implicit parameter such as the context.
type SpecialParameter struct {
	InstrInfo
	DefInfo

	ParamKind SpecialParameterKind
	Block     BlockEntry
}

func NewSpecialParameter(kind SpecialParameterKind, deoptID int, block BlockEntry) *SpecialParameter {
	return &SpecialParameter{InstrInfo: newInfo(deoptID), ParamKind: kind, Block: block}
}

func (*SpecialParameter) Kind() Kind { return KindSpecialParameter }

// Constant materializes a canonical object.
type Constant struct {
	InstrInfo
	DefInfo

	Value program.Object
}

func NewConstant(value program.Object) *Constant {
	return &Constant{InstrInfo: newInfo(DeoptIDNone), Value: value}
}

func (*Constant) Kind() Kind { return KindConstant }

// PushArgument places an outgoing argument on the block's argument stack.
type PushArgument struct {
	InstrInfo
	DefInfo

	Value *Value
}

func NewPushArgument(value *Value) *PushArgument {
	return &PushArgument{InstrInfo: newInfo(DeoptIDNone), Value: value}
}

func (*PushArgument) Kind() Kind         { return KindPushArgument }
func (p *PushArgument) Inputs() []*Value { return []*Value{p.Value} }

// RebindRule tells the runtime how a static call may be rebound.
type RebindRule string

const (
	RebindInstance    RebindRule = "Instance"
	RebindNoRebind    RebindRule = "NoRebind"
	RebindNSMDispatch RebindRule = "NSMDispatch"
	RebindOptimized   RebindRule = "Optimized"
	RebindStatic      RebindRule = "Static"
	RebindSuper       RebindRule = "Super"
)

func ParseRebindRule(s string) (RebindRule, bool) {
	switch r := RebindRule(s); r {
	case RebindInstance, RebindNoRebind, RebindNSMDispatch, RebindOptimized, RebindStatic, RebindSuper:
		return r, true
	}
	return "", false
}

// StaticCall calls a known function with pushed arguments. A non-zero
// TypeArgsLen means the first argument is the type argument vector.
type StaticCall struct {
	InstrInfo
	DefInfo

	Function    *program.Function
	TypeArgsLen int
	ArgNames    []string
	Args        []*PushArgument
	CallCount   int
	RebindRule  RebindRule
}

func NewStaticCall(fn *program.Function, typeArgsLen int, argNames []string, args []*PushArgument, deoptID, callCount int, rule RebindRule) *StaticCall {
	return &StaticCall{
		InstrInfo:   newInfo(deoptID),
		Function:    fn,
		TypeArgsLen: typeArgsLen,
		ArgNames:    argNames,
		Args:        args,
		CallCount:   callCount,
		RebindRule:  rule,
	}
}

func (*StaticCall) Kind() Kind { return KindStaticCall }

// ArgsLen is the number of arguments, not counting the type arguments.
func (c *StaticCall) ArgsLen() int {
	if c.TypeArgsLen > 0 {
		return len(c.Args) - 1
	}
	return len(c.Args)
}

// AllocateObject allocates an instance of Class.
type AllocateObject struct {
	InstrInfo
	DefInfo

	Class           *program.Class
	Args            []*PushArgument
	ClosureFunction *program.Function
}

func NewAllocateObject(cls *program.Class, args []*PushArgument) *AllocateObject {
	return &AllocateObject{InstrInfo: newInfo(DeoptIDNone), Class: cls, Args: args}
}

func (*AllocateObject) Kind() Kind { return KindAllocateObject }

// CheckNull throws if Value is null.
type CheckNull struct {
	InstrInfo
	DefInfo

	Value        *Value
	FunctionName string
}

func NewCheckNull(value *Value, functionName string, deoptID int) *CheckNull {
	return &CheckNull{InstrInfo: newInfo(deoptID), Value: value, FunctionName: functionName}
}

func (*CheckNull) Kind() Kind         { return KindCheckNull }
func (c *CheckNull) Inputs() []*Value { return []*Value{c.Value} }

// CheckStackOverflow is a stack and interrupt check.
type CheckStackOverflow struct {
	InstrInfo

	StackDepth int
	LoopDepth  int
	OsrOnly    bool
}

func NewCheckStackOverflow(stackDepth, loopDepth, deoptID int, osrOnly bool) *CheckStackOverflow {
	return &CheckStackOverflow{
		InstrInfo:  newInfo(deoptID),
		StackDepth: stackDepth,
		LoopDepth:  loopDepth,
		OsrOnly:    osrOnly,
	}
}

func (*CheckStackOverflow) Kind() Kind { return KindCheckStackOverflow }

// StubKind is the kind of PC descriptor a debugger step check reports.
type StubKind string

const (
	StubAnyKind         StubKind = "AnyKind"
	StubDeopt           StubKind = "Deopt"
	StubIcCall          StubKind = "IcCall"
	StubUnoptStaticCall StubKind = "UnoptStaticCall"
	StubRuntimeCall     StubKind = "RuntimeCall"
	StubOsrEntry        StubKind = "OsrEntry"
	StubReturn          StubKind = "Return"
	StubOther           StubKind = "Other"
)

func ParseStubKind(s string) (StubKind, bool) {
	switch k := StubKind(s); k {
	case StubAnyKind, StubDeopt, StubIcCall, StubUnoptStaticCall, StubRuntimeCall, StubOsrEntry, StubReturn, StubOther:
		return k, true
	}
	return "", false
}

// DebugStepCheck is a single-stepping breakpoint site.
type DebugStepCheck struct {
	InstrInfo

	StubKind StubKind
}

func NewDebugStepCheck(kind StubKind, deoptID int) *DebugStepCheck {
	return &DebugStepCheck{InstrInfo: newInfo(deoptID), StubKind: kind}
}

func (*DebugStepCheck) Kind() Kind { return KindDebugStepCheck }

// LoadField reads a slot of Instance.
type LoadField struct {
	InstrInfo
	DefInfo

	Instance *Value
	Slot     *Slot
}

func NewLoadField(instance *Value, slot *Slot) *LoadField {
	return &LoadField{InstrInfo: newInfo(DeoptIDNone), Instance: instance, Slot: slot}
}

func (*LoadField) Kind() Kind         { return KindLoadField }
func (l *LoadField) Inputs() []*Value { return []*Value{l.Instance} }

// StoreInstanceField writes Value into a slot of Instance.
type StoreInstanceField struct {
	InstrInfo

	Instance     *Value
	Slot         *Slot
	Value        *Value
	EmitBarrier  bool
	Initializing bool
}

func NewStoreInstanceField(slot *Slot, instance, value *Value, emitBarrier, initializing bool) *StoreInstanceField {
	return &StoreInstanceField{
		InstrInfo:    newInfo(DeoptIDNone),
		Instance:     instance,
		Slot:         slot,
		Value:        value,
		EmitBarrier:  emitBarrier,
		Initializing: initializing,
	}
}

func (*StoreInstanceField) Kind() Kind         { return KindStoreInstanceField }
func (s *StoreInstanceField) Inputs() []*Value { return []*Value{s.Instance, s.Value} }

// Comparison is a definition a Branch can test.
type Comparison interface {
	Definition
	comparison()
}

// Identity comparison tokens.
const (
	TokenStrictEq = "==="
	TokenStrictNe = "!=="
)

// StrictCompare compares two values by identity.
type StrictCompare struct {
	InstrInfo
	DefInfo

	Token       string
	Left, Right *Value
	NeedsCheck  bool
}

func NewStrictCompare(token string, left, right *Value, needsCheck bool, deoptID int) *StrictCompare {
	return &StrictCompare{
		InstrInfo:  newInfo(deoptID),
		Token:      token,
		Left:       left,
		Right:      right,
		NeedsCheck: needsCheck,
	}
}

func (*StrictCompare) Kind() Kind         { return KindStrictCompare }
func (c *StrictCompare) Inputs() []*Value { return []*Value{c.Left, c.Right} }
func (*StrictCompare) comparison()        {}

// Branch transfers control on the result of Comparison.
type Branch struct {
	InstrInfo

	Comparison     Comparison
	TrueSuccessor  *TargetEntry
	FalseSuccessor *TargetEntry
}

func NewBranch(cmp Comparison, trueSucc, falseSucc *TargetEntry, deoptID int) *Branch {
	return &Branch{
		InstrInfo:      newInfo(deoptID),
		Comparison:     cmp,
		TrueSuccessor:  trueSucc,
		FalseSuccessor: falseSucc,
	}
}

func (*Branch) Kind() Kind         { return KindBranch }
func (b *Branch) Inputs() []*Value { return b.Comparison.Inputs() }
func (b *Branch) Successors() []BlockEntry {
	return []BlockEntry{b.TrueSuccessor, b.FalseSuccessor}
}

// Goto jumps to a join.
type Goto struct {
	InstrInfo

	Target *JoinEntry
}

func NewGoto(target *JoinEntry, deoptID int) *Goto {
	return &Goto{InstrInfo: newInfo(deoptID), Target: target}
}

func (*Goto) Kind() Kind                 { return KindGoto }
func (g *Goto) Successors() []BlockEntry { return []BlockEntry{g.Target} }

// Return leaves the function with Value.
type Return struct {
	InstrInfo

	Value *Value
}

func NewReturn(value *Value, deoptID int) *Return {
	return &Return{InstrInfo: newInfo(deoptID), Value: value}
}

func (*Return) Kind() Kind         { return KindReturn }
func (r *Return) Inputs() []*Value { return []*Value{r.Value} }

// Phi selects one input per predecessor of its join.
type Phi struct {
	InstrInfo
	DefInfo

	Block  *JoinEntry
	inputs []*Value
}

func NewPhi(block *JoinEntry, inputs []*Value) *Phi {
	return &Phi{InstrInfo: newInfo(DeoptIDNone), Block: block, inputs: inputs}
}

func (*Phi) Kind() Kind         { return KindPhi }
func (p *Phi) Inputs() []*Value { return p.inputs }

// BinaryIntegerOp is integer arithmetic. The deserializer does not handle
// it.
type BinaryIntegerOp struct {
	InstrInfo
	DefInfo

	Op          string
	Left, Right *Value
}

func NewBinaryIntegerOp(op string, left, right *Value, deoptID int) *BinaryIntegerOp {
	return &BinaryIntegerOp{InstrInfo: newInfo(deoptID), Op: op, Left: left, Right: right}
}

func (*BinaryIntegerOp) Kind() Kind         { return KindBinaryIntegerOp }
func (b *BinaryIntegerOp) Inputs() []*Value { return []*Value{b.Left, b.Right} }

// InstanceCall is a dynamically dispatched call. The deserializer does not
// handle it.
type InstanceCall struct {
	InstrInfo
	DefInfo

	FunctionName string
	Args         []*PushArgument
}

func NewInstanceCall(name string, args []*PushArgument, deoptID int) *InstanceCall {
	return &InstanceCall{InstrInfo: newInfo(deoptID), FunctionName: name, Args: args}
}

func (*InstanceCall) Kind() Kind { return KindInstanceCall }

// EqualityCompare compares two values with ==. The deserializer does not
// handle it.
type EqualityCompare struct {
	InstrInfo
	DefInfo

	Token       string
	Left, Right *Value
}

func NewEqualityCompare(token string, left, right *Value, deoptID int) *EqualityCompare {
	return &EqualityCompare{InstrInfo: newInfo(deoptID), Token: token, Left: left, Right: right}
}

func (*EqualityCompare) Kind() Kind         { return KindEqualityCompare }
func (c *EqualityCompare) Inputs() []*Value { return []*Value{c.Left, c.Right} }
func (*EqualityCompare) comparison()        {}
