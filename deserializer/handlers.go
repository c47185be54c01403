package deserializer

import (
	"sort"

	"github.com/strager/ilsexp/il"
	"github.com/strager/ilsexp/program"
	"github.com/strager/ilsexp/sexy"
)

type builder func(d *Deserializer, list *sexy.Node, info instrInfo) il.Instruction

// handlers is the one list of instruction kinds the deserializer can
// rebuild. The round trip gate reads it too. Phis are built by their join
// block and are not listed.
var handlers map[il.Kind]builder

func init() {
	handlers = map[il.Kind]builder{
		il.KindAllocateObject:     (*Deserializer).buildAllocateObject,
		il.KindBranch:             (*Deserializer).buildBranch,
		il.KindCheckNull:          (*Deserializer).buildCheckNull,
		il.KindCheckStackOverflow: (*Deserializer).buildCheckStackOverflow,
		il.KindConstant:           (*Deserializer).buildConstant,
		il.KindDebugStepCheck:     (*Deserializer).buildDebugStepCheck,
		il.KindGoto:               (*Deserializer).buildGoto,
		il.KindLoadField:          (*Deserializer).buildLoadField,
		il.KindParameter:          (*Deserializer).buildParameter,
		il.KindPushArgument:       (*Deserializer).buildPushArgument,
		il.KindReturn:             (*Deserializer).buildReturn,
		il.KindSpecialParameter:   (*Deserializer).buildSpecialParameter,
		il.KindStaticCall:         (*Deserializer).buildStaticCall,
		il.KindStoreInstanceField: (*Deserializer).buildStoreInstanceField,
		il.KindStrictCompare:      (*Deserializer).buildStrictCompare,
	}
}

// HandledKinds returns the instruction kinds that can be deserialized, in
// lexical order.
func HandledKinds() []il.Kind {
	kinds := make([]il.Kind, 0, len(handlers))
	for k := range handlers {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// IsHandledInstruction reports whether instr can survive a round trip.
// Constants are handled only when their value is.
func IsHandledInstruction(instr il.Instruction) bool {
	switch instr := instr.(type) {
	case *il.GraphEntry, *il.FunctionEntry, *il.JoinEntry, *il.TargetEntry, *il.Phi:
		return true
	case *il.Constant:
		return IsHandledConstant(instr.Value)
	}
	_, ok := handlers[instr.Kind()]
	return ok
}

// IsHandledConstant reports whether obj has a textual form the
// deserializer reads back.
func IsHandledConstant(obj program.Object) bool {
	switch obj := obj.(type) {
	case *program.Array:
		if !obj.Immutable {
			return false
		}
		for _, elem := range obj.Elements {
			if !IsHandledConstant(elem) {
				return false
			}
		}
		return true
	case *program.Instance:
		for _, f := range obj.Class.InstanceFields() {
			if v := obj.GetField(f); v != nil && !IsHandledConstant(v) {
				return false
			}
		}
		return true
	case program.Value, *program.Class, *program.Field, *program.Function:
		return true
	}
	return false
}

// AllUnhandledInstructions lists every instruction of graph that cannot be
// deserialized, including initial definitions and branch comparisons.
func AllUnhandledInstructions(graph *il.FlowGraph) []il.Instruction {
	var unhandled []il.Instruction
	check := func(instr il.Instruction) {
		if !IsHandledInstruction(instr) {
			unhandled = append(unhandled, instr)
		}
	}
	for _, block := range graph.ReversePostorder() {
		check(block)
		if withDefs, ok := block.(il.BlockEntryWithInitialDefs); ok {
			for _, def := range withDefs.InitialDefinitions() {
				check(def)
			}
		}
		for _, instr := range block.Block().Instructions {
			check(instr)
			if branch, ok := instr.(*il.Branch); ok {
				check(branch.Comparison)
			}
		}
	}
	return unhandled
}

// parseInstruction builds one instruction from a tagged list. Its env
// extra is parsed first because the instruction may pop the pushed
// arguments the environment refers to.
func (d *Deserializer) parseInstruction(list *sexy.Node) il.Instruction {
	if list == nil {
		return nil
	}
	tag := list.At(0)
	deoptID, ok := d.optInt(list, "deopt_id", il.DeoptIDNone)
	if !ok {
		return nil
	}
	env, ok := d.parseOptEnvironment(list)
	if !ok {
		return nil
	}

	build, ok := handlers[il.Kind(tag.Text)]
	if !ok {
		d.storeError(tag, "unhandled instruction")
		return nil
	}
	inst := build(d, list, instrInfo{deoptID: deoptID})
	if inst == nil {
		return nil
	}
	inst.Info().DeoptID = deoptID
	inst.Info().Env = env
	return inst
}

// parseDefinition handles (def vN (Instr ...) ^{type}).
func (d *Deserializer) parseDefinition(list *sexy.Node) il.Definition {
	inst := d.parseInstruction(d.checkTaggedList(d.retrieve(list, 2), ""))
	if inst == nil {
		return nil
	}
	def, ok := inst.(il.Definition)
	if !ok {
		d.storeError(list, "instruction cannot be body of definition")
		return nil
	}
	if !d.bindDefinition(list, def) {
		return nil
	}
	return def
}
