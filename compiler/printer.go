package compiler

import (
	"bufio"
	"io"
	"strings"
)

// Print writes the tree in pre-order, one node per line, prefixed by one
// '.' per level of depth.
func Print(w io.Writer, root *Node) error {
	bw := bufio.NewWriter(w)
	root.Walk(func(n *Node, depth int) bool {
		bw.WriteString(strings.Repeat(".", depth))
		bw.WriteString(n.Label())
		bw.WriteByte('\n')
		return true
	})
	return bw.Flush()
}

// Sprint returns the pre-order dump of the tree as a string.
func Sprint(root *Node) string {
	var sb strings.Builder
	Print(&sb, root)
	return sb.String()
}
