package roundtrip

import (
	"encoding/json"

	"github.com/strager/ilsexp/deserializer"
	"github.com/strager/ilsexp/il"
	"github.com/strager/ilsexp/sexy"
)

// Result describes one round trip.
type Result struct {
	// Function is the qualified name of the graph's function.
	Function string
	Success  bool
	// Unhandled lists the instructions that kept the graph from being
	// serialized at all.
	Unhandled []il.Instruction
	// Serialized is nil if the graph was not serialized.
	Serialized *sexy.Node
	Error      *deserializer.Error
}

// UnhandledCounts counts Unhandled by instruction kind.
func (r *Result) UnhandledCounts() map[string]int {
	if len(r.Unhandled) == 0 {
		return nil
	}
	counts := make(map[string]int)
	for _, instr := range r.Unhandled {
		counts[string(instr.Kind())]++
	}
	return counts
}

type jsonError struct {
	Message    string `json:"message"`
	Expression string `json:"expression"`
}

type jsonResult struct {
	Function   string         `json:"function"`
	Success    bool           `json:"success"`
	Unhandled  map[string]int `json:"unhandled,omitempty"`
	Serialized string         `json:"serialized,omitempty"`
	Error      *jsonError     `json:"error,omitempty"`
}

func (r Result) MarshalJSON() ([]byte, error) {
	out := jsonResult{
		Function:  r.Function,
		Success:   r.Success,
		Unhandled: r.UnhandledCounts(),
	}
	if r.Serialized != nil {
		out.Serialized = r.Serialized.String()
	}
	if r.Error != nil {
		out.Error = &jsonError{Message: r.Error.Message}
		if r.Error.Node != nil {
			out.Error.Expression = r.Error.Node.String()
		}
	}
	return json.Marshal(out)
}
