package deserializer_test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nalgeon/be"
	"github.com/strager/ilsexp/deserializer"
	"github.com/strager/ilsexp/il"
	"github.com/strager/ilsexp/program"
	"github.com/strager/ilsexp/serializer"
	"github.com/strager/ilsexp/sexy"
)

func loadTestUniverse(t *testing.T) *program.Universe {
	t.Helper()
	f, err := os.Open(filepath.Join("testdata", "program.yaml"))
	be.Err(t, err, nil)
	defer f.Close()
	u, err := program.Load(f)
	be.Err(t, err, nil)
	return u
}

func TestFlowGraphFixtures(t *testing.T) {
	testFiles, err := filepath.Glob("testdata/*_test.md")
	be.Err(t, err, nil)
	be.True(t, len(testFiles) > 0)

	for _, testFile := range testFiles {
		testName := strings.TrimSuffix(filepath.Base(testFile), ".md")
		t.Run(testName, func(t *testing.T) {
			content, err := os.ReadFile(testFile)
			be.Err(t, err, nil)
			testCases, err := sexy.ExtractTestCases(string(content))
			be.Err(t, err, nil)

			for _, tc := range testCases {
				t.Run(tc.Name, func(t *testing.T) {
					// Each case gets its own canonicalization table.
					u := loadTestUniverse(t)
					graph, err := deserializer.Deserialize(tc.ParsedInput, u, nil)
					for _, assertion := range tc.Assertions {
						switch assertion.Type {
						case sexy.AssertionTypeError:
							be.Err(t, err, strings.TrimSpace(assertion.Content))
						case sexy.AssertionTypeRoundTrip:
							be.Err(t, err, nil)
							assertRoundTrip(t, graph, tc.ParsedInput, assertion.ParsedSexy)
						case sexy.AssertionTypeDominators:
							be.Err(t, err, nil)
							assertDominators(t, graph, assertion.ParsedSexy)
						default:
							t.Fatalf("unknown assertion type: %s", assertion.Type)
						}
					}
				})
			}
		})
	}
}

// assertRoundTrip serializes graph and compares the result with want, or
// with the input when want is nil.
func assertRoundTrip(t *testing.T, graph *il.FlowGraph, input, want *sexy.Node) {
	t.Helper()
	if want == nil {
		want = input
	}
	got, err := serializer.Serialize(graph)
	be.Err(t, err, nil)
	if !sexy.Equal(got, want) {
		t.Errorf("round trip mismatch\ngot:  %s\nwant: %s", got, want)
	}
}

func assertDominators(t *testing.T, graph *il.FlowGraph, want *sexy.Node) {
	t.Helper()
	got := sexy.NewList()
	for _, block := range graph.ReversePostorder()[1:] {
		b := block.Block()
		got.Add(sexy.NewList(
			sexy.NewSymbol(fmt.Sprintf("B%d", b.ID)),
			sexy.NewSymbol(fmt.Sprintf("B%d", b.Dominator.Block().ID)),
		))
	}
	if !sexy.Equal(got, want) {
		t.Errorf("dominators mismatch\ngot:  %s\nwant: %s", got, want)
	}
}
