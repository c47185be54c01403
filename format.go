package main

import (
	"strings"

	"github.com/strager/ilsexp/sexy"
)

// Forms with these tags are spread over several lines, one child form per
// line. Everything else is printed on one line.
var multilineTags = map[string]bool{
	"FlowGraph": true,
	"Constants": true,
	"Entries":   true,
	"Block":     true,
	"Normal":    true,
	"Unchecked": true,
	"Osr":       true,
	"Catch":     true,
}

// formatFlowGraph renders node the way flow graphs are written by hand:
// a form's leading atoms and its extras on the first line, and each nested
// form indented on a line of its own.
func formatFlowGraph(node *sexy.Node) string {
	var b strings.Builder
	writeForm(&b, node, 0)
	b.WriteByte('\n')
	return b.String()
}

func writeForm(b *strings.Builder, node *sexy.Node, depth int) {
	if node.Type != sexy.NodeList || !multilineTags[node.Tag()] {
		b.WriteString(node.String())
		return
	}
	b.WriteByte('(')
	i := 0
	for ; i < len(node.Items) && node.Items[i].IsAtom(); i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(node.Items[i].String())
	}
	if meta := formatMeta(node); meta != "" {
		b.WriteByte(' ')
		b.WriteString(meta)
	}
	for ; i < len(node.Items); i++ {
		b.WriteByte('\n')
		b.WriteString(strings.Repeat("  ", depth+1))
		writeForm(b, node.Items[i], depth+1)
	}
	b.WriteByte(')')
}

func formatMeta(node *sexy.Node) string {
	if len(node.MetaKeys) == 0 {
		return ""
	}
	parts := make([]string, 0, len(node.MetaKeys))
	for i, key := range node.MetaKeys {
		parts = append(parts, key+": "+node.MetaItems[i].String())
	}
	return "^{" + strings.Join(parts, ", ") + "}"
}
