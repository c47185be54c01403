package deserializer

import (
	"fmt"
	"sort"

	"github.com/strager/ilsexp/il"
	"github.com/strager/ilsexp/program"
	"github.com/strager/ilsexp/sexy"
)

// parseFlowGraph handles
//
//	(FlowGraph name ^{deopt_id, osr_id, env}
//	  (Constants (def v0 value) ...)
//	  (Entries (Normal B1 ^{...} (def v1 (Parameter 0))) ...)
//	  (Block B1 ...)
//	  ...)
//
// where the Constants list is optional.
func (d *Deserializer) parseFlowGraph() *il.FlowGraph {
	root := d.checkTaggedList(d.root, "FlowGraph")
	if root == nil {
		return nil
	}
	deoptID, ok := d.optInt(root, "deopt_id", il.DeoptIDNone)
	if !ok {
		return nil
	}
	if !d.resolveFunction(d.checkSymbol(d.retrieve(root, 1))) {
		return nil
	}
	osrID, ok := d.optInt(root, "osr_id", il.NoOSRID)
	if !ok {
		return nil
	}

	entry := il.NewGraphEntry(d.parsedFunction, osrID, deoptID)
	d.graph = il.NewFlowGraph(d.parsedFunction, entry, 0)
	d.blocks[entry.ID] = entry
	// The graph entry pushes nothing. Giving it a stack lets function
	// entries inherit one like any other block.
	d.stacks[entry.ID] = nil
	d.currentBlock = entry

	pos := 2
	if pool := root.At(pos); pool != nil && pool.Tag() == "Constants" {
		if !d.parseConstantPool(pool) {
			return nil
		}
		pos++
	}

	// The graph environment may refer to pool constants.
	env, ok := d.parseOptEnvironment(root)
	if !ok {
		return nil
	}
	entry.Env = env

	if !d.parseEntries(d.checkTaggedList(d.retrieve(root, pos), "Entries")) {
		return nil
	}
	pos++

	// Popped from the end, so the normal entry is parsed first.
	var worklist []int
	for _, b := range entry.IndirectEntries {
		worklist = append(worklist, b.ID)
	}
	for _, b := range entry.CatchEntries {
		worklist = append(worklist, b.ID)
	}
	if entry.OsrEntry != nil {
		worklist = append(worklist, entry.OsrEntry.ID)
	}
	if entry.UncheckedEntry != nil {
		worklist = append(worklist, entry.UncheckedEntry.ID)
	}
	if entry.NormalEntry != nil {
		worklist = append(worklist, entry.NormalEntry.ID)
	}

	if !d.parseBlocks(root, pos, worklist) {
		return nil
	}

	if len(d.pending) > 0 {
		indices := make([]int, 0, len(d.pending))
		for index := range d.pending {
			indices = append(indices, index)
		}
		sort.Ints(indices)
		sym := sexy.NewSymbol(fmt.Sprintf("v%d", indices[0]))
		d.storeError(sym, "unresolved forward reference: no definition found for variable index")
		return nil
	}

	d.graph.MaxBlockID = d.maxBlockID
	d.graph.CurrentSSATempIndex = d.maxSSAIndex + 1
	// Dominance is not part of the text, so it is recomputed.
	d.graph.DiscoverBlocks()
	d.graph.ComputeDominators()
	return d.graph
}

// resolveFunction checks the graph's function name against the parsed
// function, or creates the parsed function from it if none was given.
func (d *Deserializer) resolveFunction(name *sexy.Node) bool {
	obj, ok := d.parseCanonicalName(name)
	if !ok {
		return false
	}
	fn, ok := obj.(*program.Function)
	if !ok {
		d.storeError(name, "flow graph name does not refer to a function")
		return false
	}
	if d.parsedFunction == nil {
		d.parsedFunction = il.NewParsedFunction(fn)
		return true
	}
	if want := d.parsedFunction.Function; want != nil && want != fn {
		d.storeError(name, "flow graph is for function %s, not %s", fn.CanonicalName(), want.CanonicalName())
		return false
	}
	return true
}

// parseConstantPool defines the pool constants. Constants may refer to
// constants defined later in the list, so entries that fail are retried
// in the next round. A round that defines nothing reports the last
// failure.
func (d *Deserializer) parseConstantPool(pool *sexy.Node) bool {
	worklist := make([]*sexy.Node, 0, pool.Len()-1)
	for i := 1; i < pool.Len(); i++ {
		def := d.checkTaggedList(pool.At(i), "def")
		if def == nil {
			return false
		}
		worklist = append(worklist, def)
	}

	for len(worklist) > 0 {
		var failures []*sexy.Node
		var lastErr *Error
		for _, def := range worklist {
			obj, ok := d.parseDartValue(d.retrieve(def, 2))
			if !ok {
				lastErr = d.err
				d.err = nil
				failures = append(failures, def)
				continue
			}
			if !d.bindDefinition(def, d.graph.GetConstant(obj)) {
				return false
			}
		}
		if len(failures) == len(worklist) {
			d.err = lastErr
			return false
		}
		worklist = failures
	}
	return true
}
