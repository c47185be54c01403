package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/strager/ilsexp/il"
	"github.com/strager/ilsexp/roundtrip"
)

const histogramWidth = 40

// writeTable writes rows with columns padded to a common display width.
// The last column is not padded.
func writeTable(w io.Writer, rows [][]string) {
	var widths []int
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			if cw := runewidth.StringWidth(cell); cw > widths[i] {
				widths[i] = cw
			}
		}
	}
	for _, row := range rows {
		var b strings.Builder
		for i, cell := range row {
			if i > 0 {
				b.WriteString("  ")
			}
			if i == len(row)-1 {
				b.WriteString(cell)
			} else {
				b.WriteString(runewidth.FillRight(cell, widths[i]))
			}
		}
		fmt.Fprintln(w, strings.TrimRight(b.String(), " "))
	}
}

func writeTSV(w io.Writer, rows [][]string) {
	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
}

func resultStatus(r roundtrip.Result) (status, detail string) {
	switch {
	case r.Success:
		return "ok", ""
	case len(r.Unhandled) > 0:
		counts := r.UnhandledCounts()
		kinds := make([]string, 0, len(counts))
		for kind := range counts {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)
		parts := make([]string, len(kinds))
		for i, kind := range kinds {
			parts[i] = fmt.Sprintf("%s=%d", kind, counts[kind])
		}
		return "skipped", "unhandled " + strings.Join(parts, " ")
	case r.Error != nil:
		msg, _, _ := strings.Cut(r.Error.Message, "\n")
		return "FAILED", msg
	default:
		return "FAILED", ""
	}
}

// kindCounts counts instruction kinds over graphs, phis included.
func kindCounts(graphs []*il.FlowGraph) map[il.Kind]int {
	counts := make(map[il.Kind]int)
	for _, graph := range graphs {
		for _, block := range roundtrip.ShapeOf(graph).Blocks {
			counts[block.Kind]++
			if block.Phis > 0 {
				counts[il.KindPhi] += block.Phis
			}
			for _, kind := range block.Instructions {
				counts[kind]++
			}
		}
	}
	return counts
}

// histogramRows orders kinds by count, most frequent first. Bars are only
// drawn when bars is set.
func histogramRows(counts map[il.Kind]int, bars bool) [][]string {
	kinds := make([]il.Kind, 0, len(counts))
	most := 0
	for kind, n := range counts {
		kinds = append(kinds, kind)
		if n > most {
			most = n
		}
	}
	sort.Slice(kinds, func(i, j int) bool {
		if counts[kinds[i]] != counts[kinds[j]] {
			return counts[kinds[i]] > counts[kinds[j]]
		}
		return kinds[i] < kinds[j]
	})

	rows := make([][]string, 0, len(kinds))
	for _, kind := range kinds {
		row := []string{string(kind), fmt.Sprint(counts[kind])}
		if bars {
			n := counts[kind] * histogramWidth / most
			if n == 0 {
				n = 1
			}
			row = append(row, strings.Repeat("#", n))
		}
		rows = append(rows, row)
	}
	return rows
}

// writeSummary lists the outcome of each round trip and a histogram of the
// instructions in the resulting graphs. human selects aligned columns over
// tab separated ones.
func writeSummary(w io.Writer, results []roundtrip.Result, graphs []*il.FlowGraph, human bool) {
	write := writeTSV
	if human {
		write = writeTable
	}

	rows := make([][]string, 0, len(results))
	for _, r := range results {
		status, detail := resultStatus(r)
		row := []string{r.Function, status}
		if detail != "" {
			row = append(row, detail)
		}
		rows = append(rows, row)
	}
	write(w, rows)

	if counts := kindCounts(graphs); len(counts) > 0 {
		fmt.Fprintln(w)
		write(w, histogramRows(counts, human))
	}
}

// writeBlocks lists the blocks of graph in reverse postorder.
func writeBlocks(w io.Writer, graph *il.FlowGraph) {
	var rows [][]string
	for _, block := range graph.ReversePostorder() {
		b := block.Block()
		dom := "-"
		if b.Dominator != nil {
			dom = fmt.Sprintf("B%d", b.Dominator.Block().ID)
		}
		rows = append(rows, []string{
			fmt.Sprintf("B%d", b.ID),
			string(block.Kind()),
			"idom " + dom,
			fmt.Sprintf("%d instructions", len(b.Instructions)),
		})
	}
	writeTable(w, rows)
}
