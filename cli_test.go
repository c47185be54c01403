package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/nalgeon/be"
	"github.com/strager/ilsexp/deserializer"
	"github.com/strager/ilsexp/il"
	"github.com/strager/ilsexp/roundtrip"
	"github.com/strager/ilsexp/sexy"
)

func TestFormatFlowGraph(t *testing.T) {
	node, err := readSexp("testdata/diamond.sexp")
	be.Err(t, err, nil)

	got := formatFlowGraph(node)
	be.Equal(t, got, `(FlowGraph app::main
  (Constants
    (def v0 null))
  (Entries
    (Normal B1
      (def v1 (Parameter 0))))
  (Block B1 ^{block_type: Normal}
    (Branch (StrictCompare === v1 v0) B2 B3))
  (Block B2 ^{block_type: Target}
    (Goto B4))
  (Block B3 ^{block_type: Target}
    (Goto B4))
  (Block B4 ^{block_type: Join}
    (def v2 (Phi v1 v0))
    (Return v2)))
`)

	reparsed, err := sexy.Parse(got)
	be.Err(t, err, nil)
	be.True(t, sexy.Equal(reparsed, node))
}

func TestFormatFlowGraphKeepsGraphExtras(t *testing.T) {
	node, err := sexy.Parse(`(FlowGraph app::main ^{deopt_id: 0} (Entries (Normal B1)))`)
	be.Err(t, err, nil)
	be.Equal(t, formatFlowGraph(node), "(FlowGraph app::main ^{deopt_id: 0}\n  (Entries\n    (Normal B1)))\n")
}

func TestLoadUniverseWithoutProgram(t *testing.T) {
	u, err := loadUniverse("")
	be.Err(t, err, nil)
	be.True(t, u.LookupLibrary("app") == nil)
	be.True(t, u.Core() != nil)
}

func TestRunCheck(t *testing.T) {
	u, err := loadUniverse("testdata/program.yaml")
	be.Err(t, err, nil)

	var out bytes.Buffer
	be.Err(t, runCheck(&out, u, "testdata/diamond.sexp", false), nil)
	be.Equal(t, out.String(), "testdata/diamond.sexp: app::main: 5 blocks, no errors found\n")
}

func TestRunCheckVerbose(t *testing.T) {
	u, err := loadUniverse("testdata/program.yaml")
	be.Err(t, err, nil)

	var out bytes.Buffer
	be.Err(t, runCheck(&out, u, "testdata/diamond.sexp", true), nil)
	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	be.Equal(t, len(lines), 6)
	be.Equal(t, lines[1], "B0  GraphEntry     idom -   0 instructions")
	be.Equal(t, lines[5], "B4  JoinEntry      idom B1  1 instructions")
}

func TestRunCheckReportsFirstError(t *testing.T) {
	u, err := loadUniverse("testdata/program.yaml")
	be.Err(t, err, nil)

	var out bytes.Buffer
	err = runCheck(&out, u, "testdata/broken.sexp", false)
	be.Err(t, err, "testdata/broken.sexp: unresolved forward reference: no definition found for variable index (at v9)")
	be.Equal(t, out.String(), "")
}

func TestRunRoundTrip(t *testing.T) {
	u, err := loadUniverse("testdata/program.yaml")
	be.Err(t, err, nil)
	h := &roundtrip.Harness{Universe: u, Options: roundtrip.Options{Verify: true}}

	var out bytes.Buffer
	ok, err := runRoundTrip(&out, h, []string{"testdata/diamond.sexp", "testdata/identity.sexp"}, false)
	be.Err(t, err, nil)
	be.True(t, ok)
	be.Equal(t, out.String(), strings.Join([]string{
		"app::main\tok",
		"app::identity\tok",
		"",
		"FunctionEntry\t2",
		"Goto\t2",
		"GraphEntry\t2",
		"Return\t2",
		"TargetEntry\t2",
		"Branch\t1",
		"JoinEntry\t1",
		"Phi\t1",
		"",
	}, "\n"))
}

func TestRunRoundTripJSON(t *testing.T) {
	u, err := loadUniverse("testdata/program.yaml")
	be.Err(t, err, nil)
	var out bytes.Buffer
	h := &roundtrip.Harness{Universe: u, Options: roundtrip.Options{PrintJSON: true}, Out: &out}

	ok, err := runRoundTrip(&out, h, []string{"testdata/diamond.sexp", "testdata/identity.sexp"}, true)
	be.Err(t, err, nil)
	be.True(t, ok)
	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	be.Equal(t, len(lines), 2)
	be.True(t, strings.HasPrefix(lines[0], `{"function":"app::main","success":true,"serialized":"(FlowGraph app::main`))
	be.True(t, strings.HasPrefix(lines[1], `{"function":"app::identity","success":true,`))
}

func TestRunRoundTripStopsAtUnreadableGraph(t *testing.T) {
	u, err := loadUniverse("testdata/program.yaml")
	be.Err(t, err, nil)
	h := &roundtrip.Harness{Universe: u}

	var out bytes.Buffer
	ok, err := runRoundTrip(&out, h, []string{"testdata/identity.sexp", "testdata/broken.sexp"}, false)
	be.True(t, !ok)
	be.Err(t, err, "testdata/broken.sexp: unresolved forward reference")
	be.Equal(t, out.String(), "")
}

func TestWriteTableAlignsWideRunes(t *testing.T) {
	var out bytes.Buffer
	writeTable(&out, [][]string{
		{"名前", "x", "first"},
		{"ab", "yy", "second"},
	})
	be.Equal(t, out.String(), "名前  x   first\nab    yy  second\n")
}

func TestResultStatus(t *testing.T) {
	tests := []struct {
		name   string
		result roundtrip.Result
		status string
		detail string
	}{
		{"success", roundtrip.Result{Success: true}, "ok", ""},
		{
			"unhandled",
			roundtrip.Result{Unhandled: []il.Instruction{
				il.NewBinaryIntegerOp("+", nil, nil, il.DeoptIDNone),
				il.NewInstanceCall("toString", nil, il.DeoptIDNone),
				il.NewBinaryIntegerOp("*", nil, nil, il.DeoptIDNone),
			}},
			"skipped",
			"unhandled BinaryIntegerOp=2 InstanceCall=1",
		},
		{
			"error",
			roundtrip.Result{Error: &deserializer.Error{Message: "shapes differ:\n-want +got"}},
			"FAILED",
			"shapes differ:",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, detail := resultStatus(tt.result)
			be.Equal(t, status, tt.status)
			be.Equal(t, detail, tt.detail)
		})
	}
}

func TestHistogramRowsBars(t *testing.T) {
	rows := histogramRows(map[il.Kind]int{il.KindGoto: 4, il.KindReturn: 1}, true)
	be.Equal(t, rows, [][]string{
		{"Goto", "4", strings.Repeat("#", histogramWidth)},
		{"Return", "1", strings.Repeat("#", histogramWidth/4)},
	})
}
