package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/strager/ilsexp/deserializer"
	"github.com/strager/ilsexp/il"
	"github.com/strager/ilsexp/program"
	"github.com/strager/ilsexp/roundtrip"
	"github.com/strager/ilsexp/sexy"
)

func showUsage() {
	fmt.Fprintf(os.Stderr, `ilsexp - check flow graph S-expression dumps

Usage:
    ilsexp <command> [arguments]

Commands:
    check <file>         Deserialize a flow graph
    roundtrip <file>...  Serialize and deserialize flow graphs again
    fmt <file>           Pretty-print a flow graph
    help                 Show this help message

Examples:
    ilsexp check -program program.yaml main.sexp
    ilsexp roundtrip -program program.yaml -verify graphs/*.sexp
    ilsexp roundtrip -program program.yaml -json graphs/*.sexp > reports.jsonl
    ilsexp fmt main.sexp

Use "ilsexp <command> -h" for more information about a command.
`)
}

// loadUniverse reads the program declarations in filename. Without a file,
// only the core library is known.
func loadUniverse(filename string) (*program.Universe, error) {
	if filename == "" {
		return program.NewUniverse(), nil
	}
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	u, err := program.Load(f)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", filename, err)
	}
	return u, nil
}

func readSexp(filename string) (*sexy.Node, error) {
	source, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	node, err := sexy.Parse(string(source))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return node, nil
}

func readFlowGraph(u *program.Universe, filename string) (*il.FlowGraph, error) {
	node, err := readSexp(filename)
	if err != nil {
		return nil, err
	}
	graph, err := deserializer.Deserialize(node, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return graph, nil
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func checkCommand(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	programFile := fs.String("program", "", "YAML file declaring the program's libraries")
	verbose := fs.Bool("v", false, "Show the blocks of the graph")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: ilsexp check [-program file.yaml] [-v] <file>\n")
		fmt.Fprintf(os.Stderr, "Deserialize a flow graph and report the first error\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: expected exactly one file argument\n")
		fs.Usage()
		os.Exit(1)
	}

	u, err := loadUniverse(*programFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := runCheck(os.Stdout, u, fs.Arg(0), *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func runCheck(w io.Writer, u *program.Universe, filename string, verbose bool) error {
	graph, err := readFlowGraph(u, filename)
	if err != nil {
		return err
	}
	blocks := graph.ReversePostorder()
	fmt.Fprintf(w, "%s: %s: %d blocks, no errors found\n", filename, graph.ParsedFunction.Function.QualifiedName(), len(blocks))
	if verbose {
		writeBlocks(w, graph)
	}
	return nil
}

func roundtripCommand(args []string) {
	fs := flag.NewFlagSet("roundtrip", flag.ExitOnError)
	programFile := fs.String("program", "", "YAML file declaring the program's libraries")
	printJSON := fs.Bool("json", false, "Print one JSON report per graph")
	trace := fs.Bool("trace", false, "Print serialized graphs and round trip outcomes")
	verify := fs.Bool("verify", false, "Compare the shapes of the original and round tripped graphs")
	fail := fs.Bool("fail", false, "Stop at the first failed round trip")
	logLevel := fs.String("log", "warn", "Log level: error, warn, info or debug")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: ilsexp roundtrip [-program file.yaml] [-json] [-trace] [-verify] [-fail] <file>...\n")
		fmt.Fprintf(os.Stderr, "Serialize and deserialize flow graphs again\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: expected at least one file argument\n")
		fs.Usage()
		os.Exit(1)
	}

	u, err := loadUniverse(*programFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	h := &roundtrip.Harness{
		Universe: u,
		Logger:   roundtrip.NewLogger(roundtrip.ParseLogLevel(*logLevel), os.Stderr),
		Options: roundtrip.Options{
			Trace:       *trace,
			PrintJSON:   *printJSON,
			Verify:      *verify,
			FailOnError: *fail,
		},
		Out: os.Stdout,
	}
	ok, err := runRoundTrip(os.Stdout, h, fs.Args(), isTerminal(os.Stdout))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if !ok {
		os.Exit(1)
	}
}

// runRoundTrip round trips every file and reports whether all of them
// succeeded. Unless the harness prints JSON, a summary is written to w.
func runRoundTrip(w io.Writer, h *roundtrip.Harness, filenames []string, human bool) (bool, error) {
	var results []roundtrip.Result
	var graphs []*il.FlowGraph
	ok := true
	for _, filename := range filenames {
		graph, err := readFlowGraph(h.Universe, filename)
		if err != nil {
			return false, err
		}
		state := &roundtrip.CompilerPassState{FlowGraph: graph}
		result, err := h.Run(state)
		if err != nil {
			return false, fmt.Errorf("%s: %w", filename, err)
		}
		ok = ok && result.Success
		results = append(results, result)
		graphs = append(graphs, state.FlowGraph)
	}
	if !h.Options.PrintJSON {
		writeSummary(w, results, graphs, human)
	}
	return ok, nil
}

func fmtCommand(args []string) {
	fs := flag.NewFlagSet("fmt", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: ilsexp fmt <file>\n")
		fmt.Fprintf(os.Stderr, "Pretty-print a flow graph with one block per line group\n")
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: expected exactly one file argument\n")
		fs.Usage()
		os.Exit(1)
	}

	node, err := readSexp(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Print(formatFlowGraph(node))
}

func main() {
	if len(os.Args) < 2 {
		showUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "check":
		checkCommand(args)
	case "roundtrip":
		roundtripCommand(args)
	case "fmt":
		fmtCommand(args)
	case "help", "-h", "--help":
		showUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		showUsage()
		os.Exit(1)
	}
}
