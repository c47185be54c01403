// Package serializer renders a flow graph as an S-expression.
//
// Only attributes that differ from their defaults are written, so the
// output of a simple graph stays short:
//
//	(FlowGraph app::main
//	  (Constants (def v0 null))
//	  (Entries (Normal B1 ^{deopt_id: 1}))
//	  (Block B1 ^{block_type: Normal} (Return v0)))
package serializer

import (
	"fmt"
	"sort"

	"github.com/strager/ilsexp/il"
	"github.com/strager/ilsexp/program"
	"github.com/strager/ilsexp/sexy"
)

// Serializer turns one graph into its text form.
type Serializer struct {
	graph *il.FlowGraph

	// pool maps the objects of numbered pool constants to their
	// constants, so nested occurrences can be written as references.
	pool map[program.Object]*il.Constant
	// stacks holds the pushed arguments live at the end of each
	// serialized block, keyed by block id.
	stacks map[int][]*il.PushArgument
	stack  []*il.PushArgument

	err error
}

// New returns a serializer for graph.
func New(graph *il.FlowGraph) *Serializer {
	return &Serializer{
		graph:  graph,
		pool:   make(map[program.Object]*il.Constant),
		stacks: make(map[int][]*il.PushArgument),
	}
}

// Serialize is a convenience wrapper around New and (*Serializer).Serialize.
func Serialize(graph *il.FlowGraph) (*sexy.Node, error) {
	return New(graph).Serialize()
}

// Serialize renders the graph. It fails if an instruction uses a
// definition that has no SSA index.
func (s *Serializer) Serialize() (*sexy.Node, error) {
	g := s.graph
	entry := g.GraphEntry

	var name *sexy.Node
	if g.ParsedFunction != nil && g.ParsedFunction.Function != nil {
		name = sexy.NewSymbol(g.ParsedFunction.Function.CanonicalName())
	} else {
		return nil, fmt.Errorf("flow graph has no function")
	}
	root := sexy.NewList(sexy.NewSymbol("FlowGraph"), name)
	s.deoptID(root, entry.DeoptID)
	if entry.OsrID != il.NoOSRID {
		root.SetMeta("osr_id", sexy.NewInteger(int64(entry.OsrID)))
	}

	for _, c := range g.Constants() {
		if c.SSAIndex() >= 0 {
			s.pool[c.Value] = c
		}
	}
	if pool := s.constantPool(); pool != nil {
		root.Add(pool)
	}

	// The graph entry pushes nothing.
	s.stacks[entry.ID] = nil
	if entry.Env != nil {
		root.SetMeta("env", s.environment(entry.Env))
	}
	root.Add(s.entries(entry))

	for _, block := range g.ReversePostorder() {
		if block == il.BlockEntry(entry) {
			continue
		}
		root.Add(s.block(block))
	}

	if s.err != nil {
		return nil, s.err
	}
	return root, nil
}

func (s *Serializer) fail(format string, args ...interface{}) {
	if s.err == nil {
		s.err = fmt.Errorf(format, args...)
	}
}

func (s *Serializer) deoptID(list *sexy.Node, id int) {
	if id != il.DeoptIDNone {
		list.SetMeta("deopt_id", sexy.NewInteger(int64(id)))
	}
}

// constantPool lists the numbered constants by SSA index. Constants are
// created in the order the deserializer manages to resolve them, which is
// not always the order they were written in.
func (s *Serializer) constantPool() *sexy.Node {
	var consts []*il.Constant
	for _, c := range s.graph.Constants() {
		if c.SSAIndex() >= 0 {
			consts = append(consts, c)
		}
	}
	if len(consts) == 0 {
		return nil
	}
	sort.Slice(consts, func(i, j int) bool { return consts[i].SSAIndex() < consts[j].SSAIndex() })
	list := sexy.NewList(sexy.NewSymbol("Constants"))
	for _, c := range consts {
		list.Add(s.definition(c, s.literal(c.Value)))
	}
	return list
}

func (s *Serializer) entries(entry *il.GraphEntry) *sexy.Node {
	list := sexy.NewList(sexy.NewSymbol("Entries"))
	add := func(tag string, block il.BlockEntry) {
		header := sexy.NewList(sexy.NewSymbol(tag), blockName(block))
		b := block.Block()
		s.deoptID(header, b.DeoptID)
		if b.TryIndex != il.InvalidTryIndex {
			header.SetMeta("try_index", sexy.NewInteger(int64(b.TryIndex)))
		}
		if withDefs, ok := block.(il.BlockEntryWithInitialDefs); ok {
			for _, def := range withDefs.InitialDefinitions() {
				header.Add(s.instructionOrDef(def))
			}
		}
		list.Add(header)
	}
	if entry.NormalEntry != nil {
		add("Normal", entry.NormalEntry)
	}
	if entry.UncheckedEntry != nil {
		add("Unchecked", entry.UncheckedEntry)
	}
	if entry.OsrEntry != nil {
		add("Osr", entry.OsrEntry)
	}
	for _, c := range entry.CatchEntries {
		add("Catch", c)
	}
	return list
}

// BlockType returns the tag naming the kind of block.
func BlockType(g *il.GraphEntry, block il.BlockEntry) string {
	switch block := block.(type) {
	case *il.FunctionEntry:
		if g != nil && block == g.UncheckedEntry {
			return "Unchecked"
		}
		return "Normal"
	case *il.JoinEntry:
		return "Join"
	case *il.TargetEntry:
		return "Target"
	case *il.OsrEntry:
		return "Osr"
	case *il.CatchBlockEntry:
		return "Catch"
	case *il.IndirectEntry:
		return "Indirect"
	}
	return string(block.Kind())
}

func blockName(block il.BlockEntry) *sexy.Node {
	return sexy.NewSymbol(fmt.Sprintf("B%d", block.Block().ID))
}

func (s *Serializer) block(block il.BlockEntry) *sexy.Node {
	b := block.Block()
	list := sexy.NewList(sexy.NewSymbol("Block"), blockName(block))
	list.SetMeta("block_type", sexy.NewSymbol(BlockType(s.graph.GraphEntry, block)))
	// Entry blocks carry their attributes in the Entries list.
	if _, isEntry := block.(il.BlockEntryWithInitialDefs); !isEntry {
		s.deoptID(list, b.DeoptID)
		if b.TryIndex != il.InvalidTryIndex {
			list.SetMeta("try_index", sexy.NewInteger(int64(b.TryIndex)))
		}
	}

	s.stack = nil
	for _, pred := range b.Predecessors {
		if stack, ok := s.stacks[pred.Block().ID]; ok {
			s.stack = append([]*il.PushArgument(nil), stack...)
			break
		}
	}

	var phis []*il.Phi
	switch join := block.(type) {
	case *il.JoinEntry:
		phis = join.Phis
	case *il.IndirectEntry:
		phis = join.Phis
	}
	for _, phi := range phis {
		list.Add(s.instructionOrDef(phi))
	}
	if b.Env != nil {
		list.SetMeta("env", s.environment(b.Env))
	}
	for _, instr := range b.Instructions {
		list.Add(s.instructionOrDef(instr))
	}
	s.stacks[b.ID] = s.stack
	return list
}

func (s *Serializer) instructionOrDef(instr il.Instruction) *sexy.Node {
	body := s.instruction(instr)
	if def, ok := instr.(il.Definition); ok && def.SSAIndex() >= 0 {
		return s.definition(def, body)
	}
	return body
}

func (s *Serializer) definition(def il.Definition, body *sexy.Node) *sexy.Node {
	list := sexy.NewList(sexy.NewSymbol("def"), ssaName(def.SSAIndex()), body)
	if t := def.Type(); t != nil {
		list.SetMeta("type", s.compileType(t))
	}
	return list
}

func ssaName(index int) *sexy.Node {
	return sexy.NewSymbol(fmt.Sprintf("v%d", index))
}

// use renders a value as vN, or as (value vN ^{type}) when it carries a
// reaching type.
func (s *Serializer) use(v *il.Value) *sexy.Node {
	def := v.Definition()
	if def == nil {
		s.fail("unbound value")
		return sexy.NewSymbol("unbound")
	}
	index := def.SSAIndex()
	if index < 0 {
		s.fail("use of %s without an SSA index", def.Kind())
	}
	name := ssaName(index)
	if v.ReachingType == nil {
		return name
	}
	return sexy.NewList(sexy.NewSymbol("value"), name).SetMeta("type", s.compileType(v.ReachingType))
}

func (s *Serializer) compileType(t *il.CompileType) *sexy.Node {
	list := sexy.NewList(sexy.NewSymbol("CompileType"))
	if t.CID != program.DynamicCID {
		list.Add(sexy.NewInteger(int64(t.CID)))
	}
	if !t.Nullable {
		list.SetMeta("nullable", sexy.NewBoolean(false))
	}
	if t.Type != nil {
		list.SetMeta("type", s.object(t.Type, false))
	}
	return list
}

// environment renders the values of env. A value defined by a pushed
// argument still on the block's stack is written as aN, counting from the
// bottom of the stack.
func (s *Serializer) environment(env *il.Environment) *sexy.Node {
	list := sexy.NewList()
	for _, v := range env.Values {
		if push, ok := v.Definition().(*il.PushArgument); ok {
			if i := s.stackIndex(push); i >= 0 {
				list.Add(sexy.NewSymbol(fmt.Sprintf("a%d", i)))
				continue
			}
		}
		list.Add(s.use(v))
	}
	if env.FixedParamCount != 0 {
		list.SetMeta("fixed_param_count", sexy.NewInteger(int64(env.FixedParamCount)))
	}
	if env.Outer != nil {
		outer := s.environment(env.Outer)
		s.deoptID(outer, env.Outer.DeoptID)
		list.SetMeta("outer", outer)
	}
	return list
}

func (s *Serializer) stackIndex(push *il.PushArgument) int {
	for i, p := range s.stack {
		if p == push {
			return i
		}
	}
	return -1
}

func (s *Serializer) pop(n int) {
	if n > len(s.stack) {
		n = len(s.stack)
	}
	s.stack = s.stack[:len(s.stack)-n]
}
