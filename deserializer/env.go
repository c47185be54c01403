package deserializer

import (
	"github.com/strager/ilsexp/il"
	"github.com/strager/ilsexp/sexy"
)

// parseEnvironment handles (v1 a0 (value v2) ... ^{fixed_param_count,
// outer}). aN refers to the Nth pushed argument of the current block,
// counting from the bottom of the stack. Environments describe state that
// is already computed, so forward references are rejected.
func (d *Deserializer) parseEnvironment(list *sexy.Node) *il.Environment {
	if list == nil {
		return nil
	}
	fixedParamCount, ok := d.optInt(list, "fixed_param_count", 0)
	if !ok {
		return nil
	}
	var outer *il.Environment
	outerNode, ok := d.optList(list, "outer")
	if !ok {
		return nil
	}
	if outerNode != nil {
		if outer = d.parseEnvironment(outerNode); outer == nil {
			return nil
		}
		deoptID, ok := d.optInt(outerNode, "deopt_id", il.DeoptIDNone)
		if !ok {
			return nil
		}
		outer.DeoptID = deoptID
	}

	env := il.NewEnvironment(list.Len(), fixedParamCount, d.parsedFunction, outer)
	stack := d.stacks[d.currentBlock.Block().ID]
	for _, elem := range list.Items {
		if index, isPush := hasPrefixedInt(elem, 'a'); isPush {
			if index < 0 || index >= len(stack) {
				d.storeError(elem, "out of range index for pushed argument")
				return nil
			}
			env.PushValue(il.NewValue(stack[index]))
			continue
		}
		if !isValueForm(elem) {
			d.storeError(elem, "expected value or reference to pushed argument")
			return nil
		}
		v := d.parseValue(elem, false)
		if v == nil {
			return nil
		}
		env.PushValue(v)
	}
	return env
}

func isValueForm(node *sexy.Node) bool {
	if node.Type == sexy.NodeSymbol {
		_, ok := hasPrefixedInt(node, 'v')
		return ok
	}
	return node.Tag() == "value"
}

// parseOptEnvironment reads the env extra of list, if present.
func (d *Deserializer) parseOptEnvironment(list *sexy.Node) (*il.Environment, bool) {
	node, ok := d.optList(list, "env")
	if !ok || node == nil {
		return nil, ok
	}
	env := d.parseEnvironment(node)
	return env, env != nil
}

// fetchPushedArguments pops the top n pushed arguments of the current
// block, bottom first.
func (d *Deserializer) fetchPushedArguments(list *sexy.Node, n int) ([]*il.PushArgument, bool) {
	id := d.currentBlock.Block().ID
	stack := d.stacks[id]
	if n < 0 {
		d.storeError(list, "negative number of pushed arguments: %d", n)
		return nil, false
	}
	if n > len(stack) {
		d.storeError(list, "expected %d pushed arguments, only %d on stack", n, len(stack))
		return nil, false
	}
	args := append([]*il.PushArgument(nil), stack[len(stack)-n:]...)
	d.stacks[id] = stack[:len(stack)-n]
	return args, true
}

func (d *Deserializer) pushArgument(push *il.PushArgument) {
	id := d.currentBlock.Block().ID
	d.stacks[id] = append(d.stacks[id], push)
}

// areStacksConsistent checks the arguments still pushed at the end of the
// current block against those of every predecessor already linked to
// succ. Leftover pushes come from dominating blocks, so they must be the
// same instructions along every path.
func (d *Deserializer) areStacksConsistent(list *sexy.Node, cur []*il.PushArgument, succ il.BlockEntry) bool {
	for _, pred := range succ.Block().Predecessors {
		predID := pred.Block().ID
		other := d.stacks[predID]
		if len(other) != len(cur) {
			d.storeError(list.At(1), "current pushed stack has %d elements, other pushed stack for B%d has %d",
				len(cur), predID, len(other))
			return false
		}
		for i := range cur {
			if cur[i] != other[i] {
				d.storeError(list.At(1), "current pushed stack has v%d at position %d, other pushed stack for B%d has v%d",
					cur[i].Value.Definition().SSAIndex(), i, predID, other[i].Value.Definition().SSAIndex())
				return false
			}
		}
	}
	return true
}
