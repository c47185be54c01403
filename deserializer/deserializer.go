// Package deserializer rebuilds a flow graph from its S-expression form.
//
// The text lists the constant pool, the function entries and then one
// (Block ...) form per block. Edges are only recorded on the instruction
// that transfers control, so the deserializer registers every block header
// first and then walks block bodies from the entries, depth first, linking
// predecessors and carrying each block's stack of pushed arguments into its
// successors.
package deserializer

import (
	"errors"

	"github.com/strager/ilsexp/il"
	"github.com/strager/ilsexp/program"
	"github.com/strager/ilsexp/sexy"
)

// Deserializer parses one flow graph. It is not safe for concurrent use and
// ParseFlowGraph may only be called once.
type Deserializer struct {
	root           *sexy.Node
	universe       *program.Universe
	parsedFunction *il.ParsedFunction

	graph        *il.FlowGraph
	currentBlock il.BlockEntry
	maxBlockID   int
	maxSSAIndex  int

	// blocks and headers are keyed by block id.
	blocks  map[int]il.BlockEntry
	headers map[int]*sexy.Node
	// definitions and pending are keyed by SSA index.
	definitions map[int]il.Definition
	pending     map[int][]*il.Value
	// stacks holds the pushed arguments live at the end of each block, or
	// at the current point for the block being parsed.
	stacks map[int][]*il.PushArgument

	err  *Error
	used bool
}

// New returns a deserializer for root. Names in root are resolved against
// universe. If pf is nil, the parsed function is created from the name the
// graph carries; otherwise the name must refer to pf's function.
func New(root *sexy.Node, universe *program.Universe, pf *il.ParsedFunction) *Deserializer {
	return &Deserializer{
		root:           root,
		universe:       universe,
		parsedFunction: pf,
		maxSSAIndex:    -1,
		blocks:         make(map[int]il.BlockEntry),
		headers:        make(map[int]*sexy.Node),
		definitions:    make(map[int]il.Definition),
		pending:        make(map[int][]*il.Value),
		stacks:         make(map[int][]*il.PushArgument),
	}
}

var errAlreadyUsed = errors.New("deserializer already used")

// ParseFlowGraph builds the graph. On failure the error is an *Error.
func (d *Deserializer) ParseFlowGraph() (*il.FlowGraph, error) {
	if d.used {
		return nil, errAlreadyUsed
	}
	d.used = true
	graph := d.parseFlowGraph()
	if graph == nil {
		if d.err == nil {
			d.storeError(d.root, "failed to parse flow graph")
		}
		return nil, d.err
	}
	return graph, nil
}

// ParsedFunction returns the function the graph was parsed for. It is nil
// until ParseFlowGraph resolves the graph's name.
func (d *Deserializer) ParsedFunction() *il.ParsedFunction {
	return d.parsedFunction
}

// Err returns the recorded error, if any.
func (d *Deserializer) Err() *Error {
	return d.err
}

// Deserialize is a convenience wrapper around New and ParseFlowGraph.
func Deserialize(root *sexy.Node, universe *program.Universe, pf *il.ParsedFunction) (*il.FlowGraph, error) {
	return New(root, universe, pf).ParseFlowGraph()
}
