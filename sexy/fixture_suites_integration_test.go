package sexy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nalgeon/be"
)

func TestExtractTestCases_BasicTestMd(t *testing.T) {
	content, err := os.ReadFile("../deserializer/testdata/basic_test.md")
	be.Err(t, err, nil)

	testCases, err := ExtractTestCases(string(content))
	be.Err(t, err, nil)
	be.True(t, len(testCases) > 5)

	var diamond *TestCase
	var defaults *TestCase
	for i := range testCases {
		tc := &testCases[i]
		if tc.Name == "diamond with phi" {
			diamond = tc
		}
		if tc.Name == "default extras are dropped" {
			defaults = tc
		}
	}

	be.True(t, diamond != nil)
	be.Equal(t, diamond.InputType, InputTypeFlowGraph)
	be.Equal(t, diamond.ParsedInput.Tag(), "FlowGraph")
	be.Equal(t, diamond.ParsedInput.At(1).Text, "app::main")
	be.Equal(t, len(diamond.Assertions), 2)
	be.Equal(t, diamond.Assertions[0].Type, AssertionTypeRoundTrip)
	be.True(t, diamond.Assertions[0].ParsedSexy == nil)
	be.Equal(t, diamond.Assertions[1].Type, AssertionTypeDominators)
	be.Equal(t, diamond.Assertions[1].ParsedSexy.String(), "((B1 B0) (B2 B1) (B3 B1) (B4 B1))")

	// An explicit expectation is parsed like the input.
	be.True(t, defaults != nil)
	be.Equal(t, len(defaults.Assertions), 1)
	be.Equal(t, defaults.Assertions[0].ParsedSexy.Tag(), "FlowGraph")
}

func TestExtractTestCases_AllFixtureSuites(t *testing.T) {
	files, err := filepath.Glob("../deserializer/testdata/*_test.md")
	be.Err(t, err, nil)
	be.True(t, len(files) >= 3)

	for _, file := range files {
		content, err := os.ReadFile(file)
		be.Err(t, err, nil)
		testCases, err := ExtractTestCases(string(content))
		be.Err(t, err, nil)

		for _, tc := range testCases {
			be.True(t, tc.Name != "")
			be.Equal(t, tc.InputType, InputTypeFlowGraph)
			be.Equal(t, tc.ParsedInput.Type, NodeList)
			be.True(t, len(tc.Assertions) >= 1)

			for _, assertion := range tc.Assertions {
				switch assertion.Type {
				case AssertionTypeError:
					be.True(t, assertion.Content != "")
					be.True(t, assertion.ParsedSexy == nil)
				case AssertionTypeDominators:
					be.True(t, assertion.ParsedSexy != nil)
					be.Equal(t, assertion.ParsedSexy.Type, NodeList)
				}
			}
		}
	}
}
