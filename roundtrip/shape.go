package roundtrip

import (
	"sort"

	"github.com/google/go-cmp/cmp"
	"github.com/strager/ilsexp/il"
)

// Shape is the part of a flow graph a round trip must preserve exactly.
// Object identities and values are left out; the fixture suites cover
// those.
type Shape struct {
	Blocks []BlockShape
	// Defs maps SSA indices to the kind of their definition.
	Defs map[int]il.Kind
}

type BlockShape struct {
	ID           int
	Kind         il.Kind
	Phis         int
	Instructions []il.Kind
	Successors   []int
	// Predecessors are sorted by id.
	Predecessors []int
}

// ShapeOf summarizes the blocks of graph reachable from its graph entry,
// ordered by block id.
func ShapeOf(graph *il.FlowGraph) Shape {
	shape := Shape{Defs: make(map[int]il.Kind)}
	addDef := func(def il.Definition) {
		if index := def.SSAIndex(); index >= 0 {
			shape.Defs[index] = def.Kind()
		}
	}

	for _, block := range graph.ReversePostorder() {
		b := block.Block()
		bs := BlockShape{
			ID:           b.ID,
			Kind:         block.Kind(),
			Successors:   blockIDs(block.Successors()),
			Predecessors: blockIDs(b.Predecessors),
		}
		sort.Ints(bs.Predecessors)

		if withDefs, ok := block.(il.BlockEntryWithInitialDefs); ok {
			for _, def := range withDefs.InitialDefinitions() {
				addDef(def)
			}
		}
		if join, ok := block.(*il.JoinEntry); ok {
			bs.Phis = len(join.Phis)
			for _, phi := range join.Phis {
				addDef(phi)
			}
		}
		for _, instr := range b.Instructions {
			bs.Instructions = append(bs.Instructions, instr.Kind())
			if def, ok := instr.(il.Definition); ok {
				addDef(def)
			}
		}
		shape.Blocks = append(shape.Blocks, bs)
	}

	sort.Slice(shape.Blocks, func(i, j int) bool { return shape.Blocks[i].ID < shape.Blocks[j].ID })
	return shape
}

func blockIDs(blocks []il.BlockEntry) []int {
	ids := make([]int, 0, len(blocks))
	for _, b := range blocks {
		ids = append(ids, b.Block().ID)
	}
	return ids
}

// CompareShapes returns a human readable diff from want to got, or "" if
// the shapes are equal.
func CompareShapes(want, got Shape) string {
	return cmp.Diff(want, got)
}
