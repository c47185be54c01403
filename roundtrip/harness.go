// Package roundtrip checks that a flow graph survives being written out as
// an S-expression and read back in.
//
// A round trip serializes the graph, renders the S-expression as text,
// parses the text, and deserializes it against the graph's own parsed
// function. Graphs holding instructions the deserializer cannot build are
// reported and left alone.
package roundtrip

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/strager/ilsexp/deserializer"
	"github.com/strager/ilsexp/il"
	"github.com/strager/ilsexp/program"
	"github.com/strager/ilsexp/serializer"
	"github.com/strager/ilsexp/sexy"
)

// CompilerPassState is the state a compiler pass works on.
type CompilerPassState struct {
	FlowGraph *il.FlowGraph
}

type Options struct {
	// Trace writes the serialized graph and the outcome to Out.
	Trace bool
	// PrintJSON writes one JSON report line per round trip to Out.
	PrintJSON bool
	// Verify checks the deserialized graph for consistency and compares
	// its shape with the original's.
	Verify bool
	// FailOnError makes Run return an error if the round trip fails.
	FailOnError bool
}

type Harness struct {
	// Universe resolves the names in serialized graphs.
	Universe *program.Universe
	Logger   Logger
	Options  Options
	// Out defaults to os.Stdout.
	Out io.Writer
}

func (h *Harness) out() io.Writer {
	if h.Out == nil {
		return os.Stdout
	}
	return h.Out
}

func (h *Harness) logger() Logger {
	if h.Logger == nil {
		return NoopLogger()
	}
	return h.Logger
}

func (h *Harness) tracef(format string, args ...interface{}) {
	if h.Options.Trace {
		fmt.Fprintf(h.out(), format, args...)
	}
}

// Run round trips state.FlowGraph. On success the deserialized graph
// replaces state.FlowGraph; otherwise state is left untouched.
//
// A failed deserialization is reported in the Result. Run only returns an
// error if the graph could not be serialized or reparsed, or if
// FailOnError is set and the round trip failed.
func (h *Harness) Run(state *CompilerPassState) (Result, error) {
	graph := state.FlowGraph
	var result Result
	if pf := graph.ParsedFunction; pf != nil && pf.Function != nil {
		result.Function = pf.Function.QualifiedName()
	}
	log := h.logger().With(map[string]interface{}{"function": result.Function})

	var newGraph *il.FlowGraph
	result.Unhandled = deserializer.AllUnhandledInstructions(graph)
	if len(result.Unhandled) == 0 {
		serialized, err := serializer.Serialize(graph)
		if err != nil {
			return result, fmt.Errorf("serializing %s: %w", result.Function, err)
		}
		result.Serialized = serialized
		text := serialized.String()
		h.tracef("Serialized flow graph:\n%s\n", text)
		log.Debugf("serialized %d bytes", len(text))

		reparsed, err := sexy.Parse(text)
		if err != nil {
			return result, fmt.Errorf("reparsing serialized %s: %w", result.Function, err)
		}
		d := deserializer.New(reparsed, h.Universe, graph.ParsedFunction)
		newGraph, err = d.ParseFlowGraph()
		if err != nil {
			var derr *deserializer.Error
			if !errors.As(err, &derr) {
				return result, fmt.Errorf("deserializing %s: %w", result.Function, err)
			}
			result.Error = derr
			h.tracef("Failure during deserialization: %s\n", result.Error.Message)
			h.tracef("At S-expression %s\n", result.Error.Node)
			log.Warnf("deserialization failed: %s", result.Error)
		} else {
			h.tracef("Successfully deserialized graph for %s\n", reparsed.At(1))
			result.Success = true
		}
	} else {
		h.tracef("Cannot serialize graph due to instruction: %s\n", result.Unhandled[0].Kind())
		log.Infof("skipped, %d unhandled instruction(s)", len(result.Unhandled))
	}

	if newGraph != nil && h.Options.Verify {
		if problem := verifyRoundTrip(graph, newGraph); problem != "" {
			result.Success = false
			result.Error = &deserializer.Error{Node: result.Serialized, Message: problem}
			newGraph = nil
			h.tracef("Verification failed: %s\n", problem)
			log.Warnf("verification failed")
		}
	}

	if h.Options.PrintJSON {
		line, err := json.Marshal(result)
		if err != nil {
			return result, err
		}
		fmt.Fprintf(h.out(), "%s\n", line)
	}

	if newGraph != nil {
		state.FlowGraph = newGraph
	}
	if result.Error != nil && h.Options.FailOnError {
		return result, fmt.Errorf("round trip of %s failed: %w", result.Function, result.Error)
	}
	return result, nil
}

// verifyRoundTrip checks that got is well formed and has the shape of
// original. It returns a description of the first problem found.
func verifyRoundTrip(original, got *il.FlowGraph) string {
	if err := got.Verify(); err != nil {
		return "deserialized graph is malformed: " + err.Error()
	}
	if diff := CompareShapes(ShapeOf(original), ShapeOf(got)); diff != "" {
		return "deserialized graph differs from original (-want +got):\n" + diff
	}
	return ""
}
