// SPDX-License-Identifier: GPL-3.0-or-later

package scenario

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Print renders n back to scenario text. Print(Parse(s)) reproduces s up to
// formatting (whitespace, comments, sorted option keys, an always-present
// lambda "=>"), the round-trip property --dump-spec/--dump-spec-phase2
// relies on.
func Print(n Node) string {
	var sb strings.Builder
	writeNode(&sb, n)
	return sb.String()
}

func writeNode(sb *strings.Builder, n Node) {
	switch n.Kind {
	case KindString:
		sb.WriteString(strconv.Quote(n.Str))
	case KindInt:
		sb.WriteString(strconv.FormatInt(n.Int, 10))
	case KindBool:
		if n.Bool {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case KindIdent:
		sb.WriteString(n.Ident)
	case KindLambda:
		sb.WriteString("|")
		sb.WriteString(strings.Join(n.LambdaParams, ", "))
		sb.WriteString("| => ")
		if n.LambdaBody != nil {
			writeNode(sb, *n.LambdaBody)
		}
	case KindCall:
		sb.WriteString(n.Call)
		if len(n.Opts) > 0 {
			sb.WriteString("{")
			keys := make([]string, 0, len(n.Opts))
			for k := range n.Opts {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for i, k := range keys {
				if i > 0 {
					sb.WriteString(", ")
				}
				fmt.Fprintf(sb, "%s: ", k)
				writeNode(sb, n.Opts[k])
			}
			sb.WriteString("}")
		}
		sb.WriteString("(")
		for i, a := range n.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeNode(sb, a)
		}
		sb.WriteString(")")
	}
}
