package deserializer

import (
	"github.com/strager/ilsexp/il"
	"github.com/strager/ilsexp/program"
	"github.com/strager/ilsexp/sexy"
)

// instrInfo holds the extras every instruction may carry.
type instrInfo struct {
	deoptID int
}

// Every builder returns a nil interface on failure.

func (d *Deserializer) buildParameter(list *sexy.Node, info instrInfo) il.Instruction {
	index := d.checkInteger(d.retrieve(list, 1))
	if index == nil {
		return nil
	}
	return il.NewParameter(int(index.Integer), d.currentBlock)
}

func (d *Deserializer) buildSpecialParameter(list *sexy.Node, info instrInfo) il.Instruction {
	kindNode := d.checkSymbol(d.retrieve(list, 1))
	if kindNode == nil {
		return nil
	}
	kind, ok := il.ParseSpecialParameterKind(kindNode.Text)
	if !ok {
		d.storeError(kindNode, "unknown special parameter kind")
		return nil
	}
	return il.NewSpecialParameter(kind, info.deoptID, d.currentBlock)
}

func (d *Deserializer) buildConstant(list *sexy.Node, info instrInfo) il.Instruction {
	obj, ok := d.parseDartValue(d.retrieve(list, 1))
	if !ok {
		return nil
	}
	return il.NewConstant(obj)
}

func (d *Deserializer) buildPushArgument(list *sexy.Node, info instrInfo) il.Instruction {
	v := d.parseValue(d.retrieve(list, 1), true)
	if v == nil {
		return nil
	}
	push := il.NewPushArgument(v)
	d.pushArgument(push)
	return push
}

func (d *Deserializer) buildStaticCall(list *sexy.Node, info instrInfo) il.Instruction {
	fn, ok := d.parseFunctionRef(d.retrieve(list, 1))
	if !ok {
		return nil
	}
	typeArgsLen, ok := d.optInt(list, "type_args_len", 0)
	if !ok {
		return nil
	}
	argNames, ok := d.parseArgNames(list)
	if !ok {
		return nil
	}
	argsLen, ok := d.optInt(list, "args_len", 0)
	if !ok {
		return nil
	}
	// All type arguments travel in one pushed TypeArguments vector.
	total := argsLen
	if typeArgsLen > 0 {
		total++
	}
	args, ok := d.fetchPushedArguments(list, total)
	if !ok {
		return nil
	}
	callCount, ok := d.optInt(list, "call_count", 0)
	if !ok {
		return nil
	}
	rule := il.RebindInstance
	ruleNode, ok := d.optSymbol(list, "rebind_rule")
	if !ok {
		return nil
	}
	if ruleNode != nil {
		if rule, ok = il.ParseRebindRule(ruleNode.Text); !ok {
			d.storeError(ruleNode, "unknown rebind rule value")
			return nil
		}
	}
	return il.NewStaticCall(fn, typeArgsLen, argNames, args, info.deoptID, callCount, rule)
}

func (d *Deserializer) parseArgNames(list *sexy.Node) ([]string, bool) {
	namesNode, ok := d.optList(list, "arg_names")
	if !ok || namesNode == nil {
		return nil, ok
	}
	names := make([]string, 0, namesNode.Len())
	for _, item := range namesNode.Items {
		name := d.checkString(item)
		if name == nil {
			return nil, false
		}
		names = append(names, name.Text)
	}
	return names, true
}

func (d *Deserializer) buildAllocateObject(list *sexy.Node, info instrInfo) il.Instruction {
	cls, ok := d.parseClassRef(d.retrieve(list, 1))
	if !ok {
		return nil
	}
	argsLen, ok := d.optInt(list, "args_len", 0)
	if !ok {
		return nil
	}
	args, ok := d.fetchPushedArguments(list, argsLen)
	if !ok {
		return nil
	}
	alloc := il.NewAllocateObject(cls, args)
	closureNode, ok := d.optTaggedList(list, "closure_function", "Function")
	if !ok {
		return nil
	}
	if closureNode != nil {
		obj, ok := d.parseFunctionValue(closureNode)
		if !ok {
			return nil
		}
		alloc.ClosureFunction = obj.(*program.Function)
	}
	return alloc
}

func (d *Deserializer) buildCheckNull(list *sexy.Node, info instrInfo) il.Instruction {
	v := d.parseValue(d.retrieve(list, 1), true)
	if v == nil {
		return nil
	}
	name, ok := d.optString(list, "function_name", "")
	if !ok {
		return nil
	}
	return il.NewCheckNull(v, name, info.deoptID)
}

func (d *Deserializer) buildCheckStackOverflow(list *sexy.Node, info instrInfo) il.Instruction {
	stackDepth, ok := d.optInt(list, "stack_depth", 0)
	if !ok {
		return nil
	}
	loopDepth, ok := d.optInt(list, "loop_depth", 0)
	if !ok {
		return nil
	}
	kind, ok := d.optSymbol(list, "kind")
	if !ok {
		return nil
	}
	// Without a kind the check is for both OSR and preemption.
	if kind != nil && kind.Text != "OsrOnly" {
		d.storeError(kind, "unknown stack overflow check kind")
		return nil
	}
	return il.NewCheckStackOverflow(stackDepth, loopDepth, info.deoptID, kind != nil)
}

func (d *Deserializer) buildDebugStepCheck(list *sexy.Node, info instrInfo) il.Instruction {
	kind := il.StubAnyKind
	kindNode, ok := d.optSymbol(list, "stub_kind")
	if !ok {
		return nil
	}
	if kindNode != nil {
		if kind, ok = il.ParseStubKind(kindNode.Text); !ok {
			d.storeError(kindNode, "not a valid stub kind")
			return nil
		}
	}
	return il.NewDebugStepCheck(kind, info.deoptID)
}

func (d *Deserializer) buildLoadField(list *sexy.Node, info instrInfo) il.Instruction {
	instance := d.parseValue(d.retrieve(list, 1), true)
	if instance == nil {
		return nil
	}
	slot, ok := d.parseSlot(d.checkTaggedList(d.retrieve(list, 2), "Slot"))
	if !ok {
		return nil
	}
	return il.NewLoadField(instance, slot)
}

func (d *Deserializer) buildStoreInstanceField(list *sexy.Node, info instrInfo) il.Instruction {
	instance := d.parseValue(d.retrieve(list, 1), true)
	if instance == nil {
		return nil
	}
	slot, ok := d.parseSlot(d.checkTaggedList(d.retrieve(list, 2), "Slot"))
	if !ok {
		return nil
	}
	value := d.parseValue(d.retrieve(list, 3), true)
	if value == nil {
		return nil
	}
	emitBarrier, ok := d.optBool(list, "emit_barrier", false)
	if !ok {
		return nil
	}
	initializing, ok := d.optBool(list, "is_init", false)
	if !ok {
		return nil
	}
	return il.NewStoreInstanceField(slot, instance, value, emitBarrier, initializing)
}

func (d *Deserializer) buildStrictCompare(list *sexy.Node, info instrInfo) il.Instruction {
	token := d.checkSymbol(d.retrieve(list, 1))
	if token == nil {
		return nil
	}
	if token.Text != il.TokenStrictEq && token.Text != il.TokenStrictNe {
		d.storeError(token, "unknown strict comparison token")
		return nil
	}
	left := d.parseValue(d.retrieve(list, 2), true)
	if left == nil {
		return nil
	}
	right := d.parseValue(d.retrieve(list, 3), true)
	if right == nil {
		return nil
	}
	needsCheck, ok := d.optBool(list, "needs_check", false)
	if !ok {
		return nil
	}
	return il.NewStrictCompare(token.Text, left, right, needsCheck, info.deoptID)
}

func (d *Deserializer) buildBranch(list *sexy.Node, info instrInfo) il.Instruction {
	inst := d.parseInstruction(d.checkTaggedList(d.retrieve(list, 1), ""))
	if inst == nil {
		return nil
	}
	cmp, ok := inst.(il.Comparison)
	if !ok {
		d.storeError(list.At(1), "expected comparison instruction")
		return nil
	}

	trueBlock := d.fetchBlock(d.checkSymbol(d.retrieve(list, 2)))
	if trueBlock == nil {
		return nil
	}
	trueTarget, ok := trueBlock.(*il.TargetEntry)
	if !ok {
		d.storeError(list.At(2), "true successor is not a target block")
		return nil
	}

	falseBlock := d.fetchBlock(d.checkSymbol(d.retrieve(list, 3)))
	if falseBlock == nil {
		return nil
	}
	falseTarget, ok := falseBlock.(*il.TargetEntry)
	if !ok {
		d.storeError(list.At(3), "false successor is not a target block")
		return nil
	}
	return il.NewBranch(cmp, trueTarget, falseTarget, info.deoptID)
}

func (d *Deserializer) buildGoto(list *sexy.Node, info instrInfo) il.Instruction {
	block := d.fetchBlock(d.checkSymbol(d.retrieve(list, 1)))
	if block == nil {
		return nil
	}
	join, ok := block.(*il.JoinEntry)
	if !ok {
		d.storeError(list.At(1), "target of goto must be join entry")
		return nil
	}
	return il.NewGoto(join, info.deoptID)
}

func (d *Deserializer) buildReturn(list *sexy.Node, info instrInfo) il.Instruction {
	v := d.parseValue(d.retrieve(list, 1), true)
	if v == nil {
		return nil
	}
	return il.NewReturn(v, info.deoptID)
}

func (d *Deserializer) fetchBlock(sym *sexy.Node) il.BlockEntry {
	id, ok := d.parseBlockID(sym)
	if !ok {
		return nil
	}
	block, ok := d.blocks[id]
	if !ok {
		d.storeError(sym, "reference to undefined block")
		return nil
	}
	return block
}

// parseSlot handles (Slot offset ^{kind, field}).
func (d *Deserializer) parseSlot(list *sexy.Node) (*il.Slot, bool) {
	offset := d.checkInteger(d.retrieve(list, 1))
	if offset == nil {
		return nil, false
	}
	kindNode := d.checkSymbol(d.retrieveKey(list, "kind"))
	if kindNode == nil {
		return nil, false
	}
	kind, ok := il.ParseSlotKind(kindNode.Text)
	if !ok {
		d.storeError(kindNode, "unknown Slot kind")
		return nil, false
	}

	switch kind {
	case il.SlotDartField:
		fieldNode := d.checkTaggedList(d.retrieveKey(list, "field"), "Field")
		obj, ok := d.parseDartValue(fieldNode)
		if !ok {
			return nil, false
		}
		field, ok := obj.(*program.Field)
		if !ok {
			d.storeError(fieldNode, "expected a field")
			return nil, false
		}
		return il.FieldSlot(field), true
	case il.SlotTypeArguments:
		return il.TypeArgumentsSlotAt(int(offset.Integer)), true
	case il.SlotCapturedVariable:
		d.storeError(kindNode, "unhandled Slot kind")
		return nil, false
	}
	return il.NativeSlot(kind), true
}
