package roundtrip

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/nalgeon/be"
	"github.com/strager/ilsexp/deserializer"
	"github.com/strager/ilsexp/il"
	"github.com/strager/ilsexp/program"
	"github.com/strager/ilsexp/sexy"
)

const testProgram = `
libraries:
  - name: app
    functions:
      - {name: main, params: 1}
      - {name: identity, params: 1}
`

const diamond = `
(FlowGraph app::main
  (Constants (def v0 null))
  (Entries (Normal B1 (def v1 (Parameter 0))))
  (Block B1 ^{block_type: Normal}
    (Branch (StrictCompare === v1 v0) B2 B3))
  (Block B2 ^{block_type: Target} (Goto B4))
  (Block B3 ^{block_type: Target} (Goto B4))
  (Block B4 ^{block_type: Join}
    (def v2 (Phi v1 v0))
    (Return v2)))
`

func loadUniverse(t *testing.T) *program.Universe {
	t.Helper()
	u, err := program.Load(strings.NewReader(testProgram))
	be.Err(t, err, nil)
	return u
}

func parseGraph(t *testing.T, u *program.Universe, text string) *il.FlowGraph {
	t.Helper()
	root, err := sexy.Parse(text)
	be.Err(t, err, nil)
	graph, err := deserializer.Deserialize(root, u, nil)
	be.Err(t, err, nil)
	return graph
}

// unhandledGraph returns app::main computing (v0 + v0) * v0.
func unhandledGraph(u *program.Universe) *il.FlowGraph {
	pf := il.NewParsedFunction(u.LookupLibrary("app").TopLevel.LookupFunction("main"))
	entry := il.NewGraphEntry(pf, il.NoOSRID, il.DeoptIDNone)
	g := il.NewFlowGraph(pf, entry, 0)
	b1 := il.NewFunctionEntry(entry, g.AllocateBlockID(), il.InvalidTryIndex, il.DeoptIDNone)
	entry.NormalEntry = b1

	param := il.NewParameter(0, b1)
	g.AllocateSSAIndex(param)
	b1.AddInitialDefinition(param)
	add := il.NewBinaryIntegerOp("+", il.NewValue(param), il.NewValue(param), il.DeoptIDNone)
	g.AllocateSSAIndex(add)
	b1.Append(add)
	mul := il.NewBinaryIntegerOp("*", il.NewValue(add), il.NewValue(param), il.DeoptIDNone)
	g.AllocateSSAIndex(mul)
	b1.Append(mul)
	b1.Append(il.NewReturn(il.NewValue(mul), il.DeoptIDNone))
	g.DiscoverBlocks()
	return g
}

// equalityBranchGraph returns app::main branching on v0 == v0. Both
// targets return v0.
func equalityBranchGraph(u *program.Universe) *il.FlowGraph {
	pf := il.NewParsedFunction(u.LookupLibrary("app").TopLevel.LookupFunction("main"))
	entry := il.NewGraphEntry(pf, il.NoOSRID, il.DeoptIDNone)
	g := il.NewFlowGraph(pf, entry, 0)
	b1 := il.NewFunctionEntry(entry, g.AllocateBlockID(), il.InvalidTryIndex, il.DeoptIDNone)
	entry.NormalEntry = b1

	param := il.NewParameter(0, b1)
	g.AllocateSSAIndex(param)
	b1.AddInitialDefinition(param)
	b2 := il.NewTargetEntry(g.AllocateBlockID(), il.InvalidTryIndex, il.DeoptIDNone)
	b3 := il.NewTargetEntry(g.AllocateBlockID(), il.InvalidTryIndex, il.DeoptIDNone)
	cmp := il.NewEqualityCompare("==", il.NewValue(param), il.NewValue(param), il.DeoptIDNone)
	b1.Append(il.NewBranch(cmp, b2, b3, il.DeoptIDNone))
	b2.Append(il.NewReturn(il.NewValue(param), il.DeoptIDNone))
	b3.Append(il.NewReturn(il.NewValue(param), il.DeoptIDNone))
	g.DiscoverBlocks()
	return g
}

func TestRunReplacesGraph(t *testing.T) {
	u := loadUniverse(t)
	original := parseGraph(t, u, diamond)
	state := &CompilerPassState{FlowGraph: original}

	h := &Harness{Universe: u, Options: Options{Verify: true}}
	result, err := h.Run(state)
	be.Err(t, err, nil)
	be.True(t, result.Success)
	be.Equal(t, result.Function, "app::main")
	be.True(t, result.Error == nil)
	be.True(t, result.Serialized != nil)
	be.True(t, state.FlowGraph != original)
	be.Equal(t, CompareShapes(ShapeOf(original), ShapeOf(state.FlowGraph)), "")
}

func TestRunTrace(t *testing.T) {
	u := loadUniverse(t)
	var out bytes.Buffer
	h := &Harness{Universe: u, Options: Options{Trace: true}, Out: &out}
	_, err := h.Run(&CompilerPassState{FlowGraph: parseGraph(t, u, diamond)})
	be.Err(t, err, nil)

	be.True(t, strings.HasPrefix(out.String(), "Serialized flow graph:\n(FlowGraph app::main"))
	be.True(t, strings.Contains(out.String(), "Successfully deserialized graph for app::main\n"))
}

func TestRunPrintsJSON(t *testing.T) {
	u := loadUniverse(t)
	var out bytes.Buffer
	h := &Harness{Universe: u, Options: Options{PrintJSON: true}, Out: &out}
	_, err := h.Run(&CompilerPassState{FlowGraph: parseGraph(t, u, diamond)})
	be.Err(t, err, nil)

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	be.Equal(t, len(lines), 1)
	var report map[string]interface{}
	be.Err(t, json.Unmarshal([]byte(lines[0]), &report), nil)
	be.Equal(t, report["function"], "app::main")
	be.Equal(t, report["success"], true)
	_, hasUnhandled := report["unhandled"]
	be.True(t, !hasUnhandled)
	_, hasError := report["error"]
	be.True(t, !hasError)

	serialized, err := sexy.Parse(report["serialized"].(string))
	be.Err(t, err, nil)
	want, err := sexy.Parse(diamond)
	be.Err(t, err, nil)
	be.True(t, sexy.Equal(serialized, want))
}

func TestRunSkipsUnhandledInstructions(t *testing.T) {
	u := loadUniverse(t)
	graph := unhandledGraph(u)
	state := &CompilerPassState{FlowGraph: graph}
	var out bytes.Buffer
	h := &Harness{Universe: u, Options: Options{Trace: true, FailOnError: true}, Out: &out}

	result, err := h.Run(state)
	be.Err(t, err, nil)
	be.True(t, !result.Success)
	be.True(t, result.Serialized == nil)
	be.Equal(t, result.UnhandledCounts(), map[string]int{"BinaryIntegerOp": 2})
	be.True(t, state.FlowGraph == graph)
	be.Equal(t, out.String(), "Cannot serialize graph due to instruction: BinaryIntegerOp\n")

	report, err := json.Marshal(result)
	be.Err(t, err, nil)
	be.Equal(t, string(report), `{"function":"app::main","success":false,"unhandled":{"BinaryIntegerOp":2}}`)
}

func TestRunSkipsUnhandledComparison(t *testing.T) {
	u := loadUniverse(t)
	graph := equalityBranchGraph(u)
	state := &CompilerPassState{FlowGraph: graph}
	h := &Harness{Universe: u}

	result, err := h.Run(state)
	be.Err(t, err, nil)
	be.True(t, !result.Success)
	be.True(t, result.Serialized == nil)
	be.Equal(t, result.UnhandledCounts(), map[string]int{"EqualityCompare": 1})
	be.True(t, state.FlowGraph == graph)
}

func TestRunSkipsOsrEntry(t *testing.T) {
	u := loadUniverse(t)
	pf := il.NewParsedFunction(u.LookupLibrary("app").TopLevel.LookupFunction("main"))
	entry := il.NewGraphEntry(pf, 0, il.DeoptIDNone)
	g := il.NewFlowGraph(pf, entry, 0)
	b1 := il.NewFunctionEntry(entry, g.AllocateBlockID(), il.InvalidTryIndex, il.DeoptIDNone)
	entry.NormalEntry = b1
	osr := il.NewOsrEntry(entry, g.AllocateBlockID(), il.InvalidTryIndex, il.DeoptIDNone)
	entry.OsrEntry = osr
	null := g.GetConstant(program.Null)
	b1.Append(il.NewReturn(il.NewValue(null), il.DeoptIDNone))
	osr.Append(il.NewReturn(il.NewValue(null), il.DeoptIDNone))
	g.DiscoverBlocks()

	state := &CompilerPassState{FlowGraph: g}
	result, err := (&Harness{Universe: u}).Run(state)
	be.Err(t, err, nil)
	be.True(t, !result.Success)
	be.Equal(t, result.UnhandledCounts(), map[string]int{"OsrEntry": 1})
	be.True(t, state.FlowGraph == g)
}

func TestRunKeepsGraphOnFailure(t *testing.T) {
	u := loadUniverse(t)
	graph := parseGraph(t, u, diamond)
	state := &CompilerPassState{FlowGraph: graph}

	// The deserializing side knows nothing of app.
	h := &Harness{Universe: program.NewUniverse()}
	result, err := h.Run(state)
	be.Err(t, err, nil)
	be.True(t, !result.Success)
	be.True(t, state.FlowGraph == graph)
	be.Equal(t, result.Error.Message, "failure looking up library app")

	report, err := json.Marshal(result)
	be.Err(t, err, nil)
	var decoded struct {
		Error struct {
			Message    string `json:"message"`
			Expression string `json:"expression"`
		} `json:"error"`
	}
	be.Err(t, json.Unmarshal(report, &decoded), nil)
	be.Equal(t, decoded.Error.Message, "failure looking up library app")
	be.Equal(t, decoded.Error.Expression, "app::main")
}

func TestRunFailOnError(t *testing.T) {
	u := loadUniverse(t)
	h := &Harness{Universe: program.NewUniverse(), Options: Options{FailOnError: true}}
	_, err := h.Run(&CompilerPassState{FlowGraph: parseGraph(t, u, diamond)})
	be.Err(t, err, "round trip of app::main failed: failure looking up library app")

	var derr *deserializer.Error
	be.True(t, errors.As(err, &derr))
}

func TestRunLogs(t *testing.T) {
	u := loadUniverse(t)
	var logs bytes.Buffer
	h := &Harness{Universe: program.NewUniverse(), Logger: NewLogger(LevelDebug, &logs)}
	_, err := h.Run(&CompilerPassState{FlowGraph: parseGraph(t, u, diamond)})
	be.Err(t, err, nil)

	lines := strings.Split(strings.TrimSuffix(logs.String(), "\n"), "\n")
	be.Equal(t, len(lines), 2)
	be.True(t, strings.HasPrefix(lines[0], "[DEBUG] "))
	be.True(t, strings.HasSuffix(lines[0], " function=app::main"))
	be.True(t, strings.HasPrefix(lines[1], "[WARN] "))
	be.True(t, strings.Contains(lines[1], "deserialization failed: failure looking up library app"))
}

func TestShapeOf(t *testing.T) {
	u := loadUniverse(t)
	shape := ShapeOf(parseGraph(t, u, diamond))

	be.Equal(t, len(shape.Blocks), 5)
	ids := make([]int, len(shape.Blocks))
	for i, b := range shape.Blocks {
		ids[i] = b.ID
	}
	be.Equal(t, ids, []int{0, 1, 2, 3, 4})

	b1 := shape.Blocks[1]
	be.Equal(t, b1.Kind, il.KindFunctionEntry)
	be.Equal(t, b1.Instructions, []il.Kind{il.KindBranch})
	be.Equal(t, b1.Successors, []int{2, 3})
	be.Equal(t, b1.Predecessors, []int{0})

	join := shape.Blocks[4]
	be.Equal(t, join.Kind, il.KindJoinEntry)
	be.Equal(t, join.Phis, 1)
	be.Equal(t, join.Instructions, []il.Kind{il.KindReturn})
	be.Equal(t, join.Predecessors, []int{2, 3})

	be.Equal(t, shape.Defs, map[int]il.Kind{
		0: il.KindConstant,
		1: il.KindParameter,
		2: il.KindPhi,
	})
}

func TestCompareShapes(t *testing.T) {
	u := loadUniverse(t)
	a := ShapeOf(parseGraph(t, u, diamond))
	b := ShapeOf(parseGraph(t, u, diamond))
	be.Equal(t, CompareShapes(a, b), "")

	b.Blocks[4].Phis = 0
	delete(b.Defs, 2)
	diff := CompareShapes(a, b)
	be.True(t, diff != "")
	be.True(t, strings.Contains(diff, "Phis"))
}

func TestVerifyRoundTrip(t *testing.T) {
	u := loadUniverse(t)
	original := parseGraph(t, u, diamond)
	be.Equal(t, verifyRoundTrip(original, parseGraph(t, u, diamond)), "")

	broken := parseGraph(t, u, diamond)
	broken.LookupBlock(2).Block().ClearPredecessors()
	be.Equal(t, verifyRoundTrip(original, broken),
		"deserialized graph is malformed: B1 is not a predecessor of its successor B2")

	const identity = `(FlowGraph app::main
		(Entries (Normal B1 (def v0 (Parameter 0))))
		(Block B1 ^{block_type: Normal} (Return v0)))`
	problem := verifyRoundTrip(original, parseGraph(t, u, identity))
	be.True(t, strings.HasPrefix(problem, "deserialized graph differs from original (-want +got):\n"))
}
