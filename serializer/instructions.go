package serializer

import (
	"github.com/strager/ilsexp/il"
	"github.com/strager/ilsexp/sexy"
)

// instruction renders the body of instr without its def wrapper. The
// environment is rendered before the instruction pops its arguments.
func (s *Serializer) instruction(instr il.Instruction) *sexy.Node {
	info := instr.Info()
	var env *sexy.Node
	if info.Env != nil {
		env = s.environment(info.Env)
	}

	list := s.instructionBody(instr)
	s.deoptID(list, info.DeoptID)
	if env != nil {
		list.SetMeta("env", env)
	}
	return list
}

func (s *Serializer) instructionBody(instr il.Instruction) *sexy.Node {
	list := sexy.NewList(sexy.NewSymbol(string(instr.Kind())))
	switch instr := instr.(type) {
	case *il.Parameter:
		list.Add(sexy.NewInteger(int64(instr.Index)))
	case *il.SpecialParameter:
		list.Add(sexy.NewSymbol(string(instr.ParamKind)))
	case *il.Constant:
		list.Add(s.literal(instr.Value))
	case *il.PushArgument:
		list.Add(s.use(instr.Value))
		s.stack = append(s.stack, instr)
	case *il.StaticCall:
		list.Add(s.functionRef(instr.Function))
		if instr.TypeArgsLen > 0 {
			list.SetMeta("type_args_len", sexy.NewInteger(int64(instr.TypeArgsLen)))
		}
		if len(instr.ArgNames) > 0 {
			names := sexy.NewList()
			for _, name := range instr.ArgNames {
				names.Add(sexy.NewString(name))
			}
			list.SetMeta("arg_names", names)
		}
		if n := instr.ArgsLen(); n > 0 {
			list.SetMeta("args_len", sexy.NewInteger(int64(n)))
		}
		if instr.CallCount != 0 {
			list.SetMeta("call_count", sexy.NewInteger(int64(instr.CallCount)))
		}
		if instr.RebindRule != il.RebindInstance && instr.RebindRule != "" {
			list.SetMeta("rebind_rule", sexy.NewSymbol(string(instr.RebindRule)))
		}
		s.pop(len(instr.Args))
	case *il.AllocateObject:
		list.Add(s.classRef(instr.Class))
		if len(instr.Args) > 0 {
			list.SetMeta("args_len", sexy.NewInteger(int64(len(instr.Args))))
		}
		if instr.ClosureFunction != nil {
			list.SetMeta("closure_function", s.functionRef(instr.ClosureFunction))
		}
		s.pop(len(instr.Args))
	case *il.CheckNull:
		list.Add(s.use(instr.Value))
		if instr.FunctionName != "" {
			list.SetMeta("function_name", sexy.NewString(instr.FunctionName))
		}
	case *il.CheckStackOverflow:
		if instr.StackDepth != 0 {
			list.SetMeta("stack_depth", sexy.NewInteger(int64(instr.StackDepth)))
		}
		if instr.LoopDepth != 0 {
			list.SetMeta("loop_depth", sexy.NewInteger(int64(instr.LoopDepth)))
		}
		if instr.OsrOnly {
			list.SetMeta("kind", sexy.NewSymbol("OsrOnly"))
		}
	case *il.DebugStepCheck:
		if instr.StubKind != il.StubAnyKind && instr.StubKind != "" {
			list.SetMeta("stub_kind", sexy.NewSymbol(string(instr.StubKind)))
		}
	case *il.LoadField:
		list.Add(s.use(instr.Instance), s.slot(instr.Slot))
	case *il.StoreInstanceField:
		list.Add(s.use(instr.Instance), s.slot(instr.Slot), s.use(instr.Value))
		if instr.EmitBarrier {
			list.SetMeta("emit_barrier", sexy.NewBoolean(true))
		}
		if instr.Initializing {
			list.SetMeta("is_init", sexy.NewBoolean(true))
		}
	case *il.StrictCompare:
		list.Add(sexy.NewSymbol(instr.Token), s.use(instr.Left), s.use(instr.Right))
		if instr.NeedsCheck {
			list.SetMeta("needs_check", sexy.NewBoolean(true))
		}
	case *il.Branch:
		list.Add(s.instruction(instr.Comparison), blockName(instr.TrueSuccessor), blockName(instr.FalseSuccessor))
	case *il.Goto:
		list.Add(blockName(instr.Target))
	case *il.Return:
		list.Add(s.use(instr.Value))
	case *il.Phi:
		for _, v := range instr.Inputs() {
			list.Add(s.use(v))
		}

	// Kinds below have no reader, but a dump of them is still useful.
	case *il.BinaryIntegerOp:
		list.Add(sexy.NewSymbol(instr.Op), s.use(instr.Left), s.use(instr.Right))
	case *il.EqualityCompare:
		list.Add(sexy.NewSymbol(instr.Token), s.use(instr.Left), s.use(instr.Right))
	case *il.InstanceCall:
		list.Add(sexy.NewString(instr.FunctionName))
		if len(instr.Args) > 0 {
			list.SetMeta("args_len", sexy.NewInteger(int64(len(instr.Args))))
		}
		s.pop(len(instr.Args))
	default:
		for _, v := range instr.Inputs() {
			list.Add(s.use(v))
		}
	}
	return list
}

// slot renders (Slot offset ^{kind, field}).
func (s *Serializer) slot(slot *il.Slot) *sexy.Node {
	list := sexy.NewList(sexy.NewSymbol("Slot"), sexy.NewInteger(int64(slot.Offset)))
	list.SetMeta("kind", sexy.NewSymbol(string(slot.Kind)))
	if slot.Field != nil {
		list.SetMeta("field", s.literal(slot.Field))
	}
	return list
}
