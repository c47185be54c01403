package il

// BlockEntry is the first instruction of a basic block.
type BlockEntry interface {
	Instruction
	Block() *BlockInfo
}

// BlockEntryWithInitialDefs is a block entry owning definitions that are
// live on entry: parameters and, for the graph entry, constants.
type BlockEntryWithInitialDefs interface {
	BlockEntry
	InitialDefinitions() []Definition
	AddInitialDefinition(def Definition)
}

// BlockInfo is the state shared by all block entries.
type BlockInfo struct {
	InstrInfo

	ID           int
	TryIndex     int
	Predecessors []BlockEntry
	// Instructions is the body, not counting the entry itself.
	Instructions []Instruction

	// Dominator is nil for the graph entry and for undiscovered blocks.
	Dominator BlockEntry
	Dominated []BlockEntry

	preorderNumber  int
	postorderNumber int
}

func newBlockInfo(id, tryIndex, deoptID int) BlockInfo {
	return BlockInfo{
		InstrInfo:       newInfo(deoptID),
		ID:              id,
		TryIndex:        tryIndex,
		preorderNumber:  -1,
		postorderNumber: -1,
	}
}

func (b *BlockInfo) Block() *BlockInfo { return b }

// Successors are the successors of the block's last instruction.
func (b *BlockInfo) Successors() []BlockEntry {
	if last := b.Last(); last != nil {
		return last.Successors()
	}
	return nil
}

// Last returns the final body instruction, or nil for an empty block.
func (b *BlockInfo) Last() Instruction {
	if len(b.Instructions) == 0 {
		return nil
	}
	return b.Instructions[len(b.Instructions)-1]
}

// Append adds instr to the end of the body.
func (b *BlockInfo) Append(instr Instruction) {
	b.Instructions = append(b.Instructions, instr)
}

func (b *BlockInfo) AddPredecessor(pred BlockEntry) {
	b.Predecessors = append(b.Predecessors, pred)
}

func (b *BlockInfo) ClearPredecessors() {
	b.Predecessors = nil
}

// PredecessorIndex returns the position of pred, or -1.
func (b *BlockInfo) PredecessorIndex(pred BlockEntry) int {
	for i, p := range b.Predecessors {
		if p.Block() == pred.Block() {
			return i
		}
	}
	return -1
}

// Dominates reports whether b dominates other. Blocks dominate themselves.
func (b *BlockInfo) Dominates(other BlockEntry) bool {
	for cur := other; cur != nil; cur = cur.Block().Dominator {
		if cur.Block() == b {
			return true
		}
	}
	return false
}

type initialDefs struct {
	defs []Definition
}

func (i *initialDefs) InitialDefinitions() []Definition    { return i.defs }
func (i *initialDefs) AddInitialDefinition(def Definition) { i.defs = append(i.defs, def) }

// GraphEntry is the root of the graph. Its successors are the function
// entries, the OSR entry and the catch entries.
type GraphEntry struct {
	BlockInfo
	initialDefs

	ParsedFunction  *ParsedFunction
	OsrID           int
	NormalEntry     *FunctionEntry
	UncheckedEntry  *FunctionEntry
	OsrEntry        *OsrEntry
	CatchEntries    []*CatchBlockEntry
	IndirectEntries []*IndirectEntry
}

// NewGraphEntry returns a graph entry with block id 0.
func NewGraphEntry(pf *ParsedFunction, osrID, deoptID int) *GraphEntry {
	return &GraphEntry{
		BlockInfo:      newBlockInfo(0, InvalidTryIndex, deoptID),
		ParsedFunction: pf,
		OsrID:          osrID,
	}
}

func (*GraphEntry) Kind() Kind { return KindGraphEntry }

func (g *GraphEntry) Successors() []BlockEntry {
	var succs []BlockEntry
	if g.NormalEntry != nil {
		succs = append(succs, g.NormalEntry)
	}
	if g.UncheckedEntry != nil {
		succs = append(succs, g.UncheckedEntry)
	}
	if g.OsrEntry != nil {
		succs = append(succs, g.OsrEntry)
	}
	for _, c := range g.CatchEntries {
		succs = append(succs, c)
	}
	return succs
}

// FunctionEntry is the normal or unchecked entry of the function.
type FunctionEntry struct {
	BlockInfo
	initialDefs

	Graph *GraphEntry
}

func NewFunctionEntry(graph *GraphEntry, id, tryIndex, deoptID int) *FunctionEntry {
	b := &FunctionEntry{BlockInfo: newBlockInfo(id, tryIndex, deoptID), Graph: graph}
	b.AddPredecessor(graph)
	return b
}

func (*FunctionEntry) Kind() Kind { return KindFunctionEntry }

// JoinEntry is a merge point. It owns the phis.
type JoinEntry struct {
	BlockInfo

	Phis []*Phi
}

func NewJoinEntry(id, tryIndex, deoptID int) *JoinEntry {
	return &JoinEntry{BlockInfo: newBlockInfo(id, tryIndex, deoptID)}
}

func (*JoinEntry) Kind() Kind { return KindJoinEntry }

func (j *JoinEntry) InsertPhi(phi *Phi) {
	j.Phis = append(j.Phis, phi)
}

// TargetEntry is a branch target with a single predecessor.
type TargetEntry struct {
	BlockInfo
}

func NewTargetEntry(id, tryIndex, deoptID int) *TargetEntry {
	return &TargetEntry{BlockInfo: newBlockInfo(id, tryIndex, deoptID)}
}

func (*TargetEntry) Kind() Kind { return KindTargetEntry }

// OsrEntry is the entry used when switching to optimized code in the
// middle of a loop.
type OsrEntry struct {
	BlockInfo
	initialDefs

	Graph *GraphEntry
}

func NewOsrEntry(graph *GraphEntry, id, tryIndex, deoptID int) *OsrEntry {
	b := &OsrEntry{BlockInfo: newBlockInfo(id, tryIndex, deoptID), Graph: graph}
	b.AddPredecessor(graph)
	return b
}

func (*OsrEntry) Kind() Kind { return KindOsrEntry }

// CatchBlockEntry starts an exception handler.
type CatchBlockEntry struct {
	BlockInfo
	initialDefs

	Graph         *GraphEntry
	CatchTryIndex int
}

func NewCatchBlockEntry(graph *GraphEntry, id, tryIndex, catchTryIndex, deoptID int) *CatchBlockEntry {
	b := &CatchBlockEntry{
		BlockInfo:     newBlockInfo(id, tryIndex, deoptID),
		Graph:         graph,
		CatchTryIndex: catchTryIndex,
	}
	b.AddPredecessor(graph)
	return b
}

func (*CatchBlockEntry) Kind() Kind { return KindCatchBlockEntry }

// IndirectEntry is a join reachable through an indirect goto.
type IndirectEntry struct {
	JoinEntry

	IndirectID int
}

func NewIndirectEntry(id, indirectID, tryIndex, deoptID int) *IndirectEntry {
	return &IndirectEntry{JoinEntry: *NewJoinEntry(id, tryIndex, deoptID), IndirectID: indirectID}
}

func (*IndirectEntry) Kind() Kind { return KindIndirectEntry }
