// Command extract_tests turns JSON round trip reports, as printed by
// "ilsexp roundtrip -json", into a Markdown fixture suite for
// deserializer/testdata.
//
// Usage:
//
//	go run ./scripts/extract_tests.go [report.jsonl...] > deserializer/testdata/extracted_test.md
//
// Reports are read from stdin if no files are given. Graphs that were never
// serialized are skipped.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

type report struct {
	Function   string `json:"function"`
	Success    bool   `json:"success"`
	Serialized string `json:"serialized"`
	Error      *struct {
		Message    string `json:"message"`
		Expression string `json:"expression"`
	} `json:"error"`
}

type TestCase struct {
	Name       string
	Input      string
	Error      string // empty for a successful round trip
	SourceFile string
}

type Extractor struct {
	cases []TestCase
	seen  map[string]bool // serialized inputs
	names map[string]int
}

func NewExtractor() *Extractor {
	return &Extractor{
		seen:  make(map[string]bool),
		names: make(map[string]int),
	}
}

func (e *Extractor) extractFromFile(filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	return e.extractFromReader(f, filename)
}

func (e *Extractor) extractFromReader(r io.Reader, sourceFile string) error {
	scanner := bufio.NewScanner(r)
	// Serialized graphs easily exceed the default line limit.
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var rep report
		if err := json.Unmarshal([]byte(line), &rep); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %s:%d: %v\n", sourceFile, lineNumber, err)
			continue
		}
		e.add(rep, sourceFile)
	}
	return scanner.Err()
}

func (e *Extractor) add(rep report, sourceFile string) {
	if rep.Serialized == "" || e.seen[rep.Serialized] {
		return
	}
	e.seen[rep.Serialized] = true

	tc := TestCase{
		Name:       e.generateTestName(rep.Function),
		Input:      rep.Serialized,
		SourceFile: sourceFile,
	}
	if !rep.Success && rep.Error != nil {
		tc.Error = rep.Error.Message
	}
	e.cases = append(e.cases, tc)
}

// generateTestName makes names unique by numbering repeats.
func (e *Extractor) generateTestName(function string) string {
	if function == "" {
		function = "anonymous"
	}
	e.names[function]++
	if n := e.names[function]; n > 1 {
		return fmt.Sprintf("%s #%d", function, n)
	}
	return function
}

func (e *Extractor) generateSexyMarkdown() string {
	if len(e.cases) == 0 {
		return "# No round trip reports found\n"
	}

	sort.SliceStable(e.cases, func(i, j int) bool {
		return e.cases[i].SourceFile < e.cases[j].SourceFile
	})

	var sb strings.Builder
	sb.WriteString("# Extracted round trips\n\n")
	sb.WriteString("Generated from round trip reports.\n\n")

	for _, tc := range e.cases {
		sb.WriteString(fmt.Sprintf("## Test: %s\n", tc.Name))
		sb.WriteString("```flowgraph\n")
		sb.WriteString(tc.Input)
		sb.WriteString("\n```\n")
		if tc.Error != "" {
			// Only the first line, since the message may carry a diff.
			msg, _, _ := strings.Cut(tc.Error, "\n")
			sb.WriteString("```error\n")
			sb.WriteString(msg)
			sb.WriteString("\n```\n\n")
		} else {
			sb.WriteString("```roundtrip\n```\n\n")
		}
	}

	return sb.String()
}

func main() {
	extractor := NewExtractor()

	if len(os.Args) < 2 {
		if err := extractor.extractFromReader(os.Stdin, "<stdin>"); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	for _, filename := range os.Args[1:] {
		if err := extractor.extractFromFile(filename); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Print(extractor.generateSexyMarkdown())
	fmt.Fprintf(os.Stderr, "Extracted %d test cases\n", len(extractor.cases))
}
