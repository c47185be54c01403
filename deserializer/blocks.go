package deserializer

import (
	"github.com/strager/ilsexp/il"
	"github.com/strager/ilsexp/sexy"
)

// Block type tags used in Entries and in the block_type extra.
const (
	blockNormal    = "Normal"
	blockUnchecked = "Unchecked"
	blockTarget    = "Target"
	blockJoin      = "Join"
	blockOsr       = "Osr"
	blockCatch     = "Catch"
	blockIndirect  = "Indirect"
)

// parseEntries registers every block listed in (Entries (Normal B1 ...)
// ...). Function entries carry their initial definitions.
func (d *Deserializer) parseEntries(list *sexy.Node) bool {
	if list == nil {
		return false
	}
	for i := 1; i < list.Len(); i++ {
		entry := d.checkTaggedList(d.retrieve(list, i), "")
		if entry == nil {
			return false
		}
		id, ok := d.parseBlockID(d.checkSymbol(d.retrieve(entry, 1)))
		if !ok {
			return false
		}
		if _, exists := d.blocks[id]; exists {
			d.storeError(entry.At(1), "multiple entries for block found")
			return false
		}
		if d.parseBlockHeader(entry, id, entry.At(0), true) == nil {
			return false
		}
	}
	return true
}

// parseBlockHeader creates and registers the entry of block id. Function
// entries are only accepted from the Entries list, where their initial
// definitions start at position 2.
func (d *Deserializer) parseBlockHeader(list *sexy.Node, id int, tag *sexy.Node, inEntries bool) il.BlockEntry {
	deoptID, ok := d.optInt(list, "deopt_id", il.DeoptIDNone)
	if !ok {
		return nil
	}
	tryIndex, ok := d.optInt(list, "try_index", il.InvalidTryIndex)
	if !ok {
		return nil
	}
	if tag == nil {
		d.storeError(list.At(1), "invalid block entry tag")
		return nil
	}

	var block il.BlockEntry
	switch tag.Text {
	case blockTarget:
		block = il.NewTargetEntry(id, tryIndex, deoptID)
	case blockJoin:
		block = il.NewJoinEntry(id, tryIndex, deoptID)
	case blockNormal, blockUnchecked:
		if !inEntries {
			d.storeError(tag, "function entry not listed in Entries")
			return nil
		}
		entry := d.parseFunctionEntry(list, id, tryIndex, deoptID)
		if entry == nil {
			return nil
		}
		graph := d.graph.GraphEntry
		if tag.Text == blockNormal {
			if graph.NormalEntry != nil {
				d.storeError(tag, "multiple normal entries")
				return nil
			}
			graph.NormalEntry = entry
		} else {
			if graph.UncheckedEntry != nil {
				d.storeError(tag, "multiple unchecked entries")
				return nil
			}
			graph.UncheckedEntry = entry
		}
		block = entry
	case blockOsr, blockCatch, blockIndirect:
		d.storeError(tag, "unhandled block type")
		return nil
	default:
		d.storeError(tag, "invalid block entry tag")
		return nil
	}

	d.blocks[id] = block
	d.headers[id] = list
	if id > d.maxBlockID {
		d.maxBlockID = id
	}
	return block
}

func (d *Deserializer) parseFunctionEntry(list *sexy.Node, id, tryIndex, deoptID int) *il.FunctionEntry {
	entry := il.NewFunctionEntry(d.graph.GraphEntry, id, tryIndex, deoptID)
	saved := d.currentBlock
	d.currentBlock = entry
	defer func() { d.currentBlock = saved }()
	for i := 2; i < list.Len(); i++ {
		def := d.parseDefinition(d.checkTaggedList(list.At(i), "def"))
		if def == nil {
			return nil
		}
		d.graph.AddToInitialDefinitions(entry, def)
	}
	return entry
}

// skipPhis returns the position of the first non-phi item of a block
// body, or -1 if there is none.
func (d *Deserializer) skipPhis(list *sexy.Node) int {
	for i := 2; i < list.Len(); i++ {
		item := list.At(i)
		if item.Tag() != "def" || item.At(2) == nil || item.At(2).Tag() != "Phi" {
			return i
		}
	}
	d.storeError(list, "block is empty or contains only Phi definitions")
	return -1
}

func (d *Deserializer) parsePhis(list *sexy.Node, join *il.JoinEntry) bool {
	end := d.skipPhis(list)
	if end < 0 {
		return false
	}
	for i := 2; i < end; i++ {
		defNode := list.At(i)
		phiNode := defNode.At(2)
		inputs := make([]*il.Value, 0, phiNode.Len()-1)
		for j := 1; j < phiNode.Len(); j++ {
			v := d.parseValue(phiNode.At(j), true)
			if v == nil {
				return false
			}
			inputs = append(inputs, v)
		}
		phi := il.NewPhi(join, inputs)
		join.InsertPhi(phi)
		if !d.bindDefinition(defNode, phi) {
			return false
		}
	}
	return true
}

// parseBlockContents fills the current block from (Block Bn ...) and links
// it to its successors, which are queued on worklist.
func (d *Deserializer) parseBlockContents(list *sexy.Node, worklist *[]int) bool {
	block := d.currentBlock
	info := block.Block()

	if join, ok := block.(*il.JoinEntry); ok {
		if !d.parsePhis(list, join) {
			return false
		}
	}

	// The environment may refer to phis and initial definitions but not to
	// anything defined in the body.
	env, ok := d.parseOptEnvironment(list)
	if !ok {
		return false
	}
	info.Env = env

	pos := d.skipPhis(list)
	if pos < 0 {
		return false
	}
	if _, isJoin := block.(*il.JoinEntry); !isJoin && pos != 2 {
		d.storeError(list.At(2), "Phi definitions outside of a join block")
		return false
	}
	for i := pos; i < list.Len(); i++ {
		entry := d.checkTaggedList(list.At(i), "")
		if entry == nil {
			return false
		}
		var inst il.Instruction
		if entry.Tag() == "def" {
			if def := d.parseDefinition(entry); def != nil {
				inst = def
			}
		} else {
			inst = d.parseInstruction(entry)
		}
		if inst == nil {
			return false
		}
		info.Append(inst)
	}

	stack := d.stacks[info.ID]
	succs := info.Last().Successors()
	for i := len(succs) - 1; i >= 0; i-- {
		succ := succs[i]
		if !d.areStacksConsistent(list, stack, succ) {
			return false
		}
		succ.Block().AddPredecessor(block)
		*worklist = append(*worklist, succ.Block().ID)
	}
	return true
}

// parseBlocks registers the headers of all (Block ...) forms starting at
// pos and then parses bodies depth first from the entries on worklist.
// Each block starts with a copy of the pushed arguments left by its first
// linked predecessor.
func (d *Deserializer) parseBlocks(root *sexy.Node, pos int, worklist []int) bool {
	bodies := make(map[int]*sexy.Node)
	var order []int
	for i := pos; i < root.Len(); i++ {
		body := d.checkTaggedList(root.At(i), "Block")
		id, ok := d.parseBlockID(d.checkSymbol(d.retrieve(body, 1)))
		if !ok {
			return false
		}
		if _, exists := bodies[id]; exists {
			d.storeError(body.At(1), "multiple definitions of block found")
			return false
		}
		bodies[id] = body
		order = append(order, id)

		if _, registered := d.blocks[id]; registered {
			continue
		}
		tag, ok := d.optSymbol(body, "block_type")
		if !ok {
			return false
		}
		if d.parseBlockHeader(body, id, tag, false) == nil {
			return false
		}
	}

	parsed := make(map[int]bool)
	for len(worklist) > 0 {
		id := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		if parsed[id] {
			continue
		}
		body, ok := bodies[id]
		if !ok {
			d.storeError(d.headers[id], "no body found for block")
			return false
		}

		block := d.blocks[id]
		preds := block.Block().Predecessors
		d.stacks[id] = append([]*il.PushArgument(nil), d.stacks[preds[0].Block().ID]...)
		d.currentBlock = block
		if !d.parseBlockContents(body, &worklist) {
			return false
		}
		parsed[id] = true
	}

	for _, id := range order {
		if !parsed[id] {
			d.storeError(bodies[id], "block unreachable in flow graph")
			return false
		}
	}
	return true
}
