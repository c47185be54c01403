package il

import (
	"fmt"

	"github.com/strager/ilsexp/program"
)

// FlowGraph is the control flow graph of one function.
type FlowGraph struct {
	ParsedFunction      *ParsedFunction
	GraphEntry          *GraphEntry
	MaxBlockID          int
	CurrentSSATempIndex int

	constantNull *Constant
	constants    map[program.Object]*Constant

	preorder  []BlockEntry
	postorder []BlockEntry
	rpo       []BlockEntry
}

// NewFlowGraph wraps graphEntry. The null constant is created eagerly and
// lives in the graph entry's initial definitions.
func NewFlowGraph(pf *ParsedFunction, graphEntry *GraphEntry, maxBlockID int) *FlowGraph {
	g := &FlowGraph{
		ParsedFunction: pf,
		GraphEntry:     graphEntry,
		MaxBlockID:     maxBlockID,
		constants:      make(map[program.Object]*Constant),
	}
	g.constantNull = g.GetConstant(program.Null)
	return g
}

// ConstantNull is the constant for null.
func (g *FlowGraph) ConstantNull() *Constant {
	return g.constantNull
}

// GetConstant returns the graph's constant for obj, creating it on first
// use. Objects are compared by identity, so callers should canonicalize
// values first.
func (g *FlowGraph) GetConstant(obj program.Object) *Constant {
	if c, ok := g.constants[obj]; ok {
		return c
	}
	c := NewConstant(obj)
	g.constants[obj] = c
	g.AddToInitialDefinitions(g.GraphEntry, c)
	return c
}

// Constants returns the graph's constants in creation order.
func (g *FlowGraph) Constants() []*Constant {
	var consts []*Constant
	for _, def := range g.GraphEntry.InitialDefinitions() {
		if c, ok := def.(*Constant); ok {
			consts = append(consts, c)
		}
	}
	return consts
}

func (g *FlowGraph) AddToInitialDefinitions(block BlockEntryWithInitialDefs, def Definition) {
	block.AddInitialDefinition(def)
}

// AllocateSSAIndex numbers def with the next free SSA index.
func (g *FlowGraph) AllocateSSAIndex(def Definition) {
	def.SetSSAIndex(g.CurrentSSATempIndex)
	g.CurrentSSATempIndex++
}

// AllocateBlockID returns the next free block id.
func (g *FlowGraph) AllocateBlockID() int {
	g.MaxBlockID++
	return g.MaxBlockID
}

func (g *FlowGraph) Preorder() []BlockEntry  { return g.preorder }
func (g *FlowGraph) Postorder() []BlockEntry { return g.postorder }

// ReversePostorder returns the blocks in reverse postorder, discovering
// them first if needed.
func (g *FlowGraph) ReversePostorder() []BlockEntry {
	if g.rpo == nil {
		g.DiscoverBlocks()
	}
	return g.rpo
}

// LookupBlock finds a discovered block by id.
func (g *FlowGraph) LookupBlock(id int) BlockEntry {
	for _, b := range g.ReversePostorder() {
		if b.Block().ID == id {
			return b
		}
	}
	return nil
}

type traversalState struct {
	block BlockEntry
	succs []BlockEntry
	next  int
}

// DiscoverBlocks walks the graph depth first from the graph entry,
// recomputing predecessor lists in discovery order and the preorder,
// postorder and reverse postorder block lists. Successors are visited last
// to first.
func (g *FlowGraph) DiscoverBlocks() {
	g.preorder = g.preorder[:0]
	g.postorder = g.postorder[:0]

	visited := make(map[*BlockInfo]bool)
	discover := func(block, pred BlockEntry) bool {
		b := block.Block()
		if visited[b] {
			b.AddPredecessor(pred)
			return false
		}
		visited[b] = true
		b.ClearPredecessors()
		if pred != nil {
			b.AddPredecessor(pred)
		}
		b.preorderNumber = len(g.preorder)
		g.preorder = append(g.preorder, block)
		return true
	}

	root := BlockEntry(g.GraphEntry)
	discover(root, nil)
	stack := []*traversalState{newTraversalState(root)}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.next >= 0 {
			succ := top.succs[top.next]
			top.next--
			if discover(succ, top.block) {
				stack = append(stack, newTraversalState(succ))
			}
			continue
		}
		stack = stack[:len(stack)-1]
		top.block.Block().postorderNumber = len(g.postorder)
		g.postorder = append(g.postorder, top.block)
	}

	g.rpo = make([]BlockEntry, len(g.postorder))
	for i, b := range g.postorder {
		g.rpo[len(g.postorder)-1-i] = b
	}
}

func newTraversalState(block BlockEntry) *traversalState {
	succs := block.Successors()
	return &traversalState{block: block, succs: succs, next: len(succs) - 1}
}

// ComputeDominators fills in Dominator and Dominated for every discovered
// block using the Cooper, Harvey and Kennedy iteration over reverse
// postorder.
func (g *FlowGraph) ComputeDominators() {
	rpo := g.ReversePostorder()
	if len(rpo) == 0 {
		return
	}
	idom := make([]int, len(g.postorder))
	for i := range idom {
		idom[i] = -1
	}
	root := rpo[0].Block().postorderNumber
	idom[root] = root

	intersect := func(a, b int) int {
		for a != b {
			for a < b {
				a = idom[a]
			}
			for b < a {
				b = idom[b]
			}
		}
		return a
	}

	for changed := true; changed; {
		changed = false
		for _, block := range rpo[1:] {
			b := block.Block()
			newIdom := -1
			for _, pred := range b.Predecessors {
				p := pred.Block().postorderNumber
				if p < 0 || idom[p] == -1 {
					continue
				}
				if newIdom == -1 {
					newIdom = p
				} else {
					newIdom = intersect(p, newIdom)
				}
			}
			if newIdom != -1 && idom[b.postorderNumber] != newIdom {
				idom[b.postorderNumber] = newIdom
				changed = true
			}
		}
	}

	for _, block := range rpo {
		b := block.Block()
		b.Dominator = nil
		b.Dominated = nil
	}
	for _, block := range rpo[1:] {
		b := block.Block()
		if d := idom[b.postorderNumber]; d >= 0 {
			dom := g.postorder[d]
			b.Dominator = dom
			dom.Block().Dominated = append(dom.Block().Dominated, block)
		}
	}
}

// Verify checks that every use of a body instruction refers to a
// definition that is still bound and that predecessor and successor lists
// agree.
func (g *FlowGraph) Verify() error {
	for _, block := range g.ReversePostorder() {
		b := block.Block()
		for _, succ := range block.Successors() {
			if succ.Block().PredecessorIndex(block) < 0 {
				return fmt.Errorf("B%d is not a predecessor of its successor B%d", b.ID, succ.Block().ID)
			}
		}
		for _, instr := range b.Instructions {
			for _, v := range instr.Inputs() {
				if v.Definition() == nil {
					return fmt.Errorf("unbound input of %s in B%d", instr.Kind(), b.ID)
				}
			}
		}
	}
	return nil
}
