package track

import (
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/rumwatch/rum/internal/instrument"
)

// targetAttrs in priority order: what the element points at or shows.
var targetAttrs = []string{"href", "currentSrc", "src", "action", "alt"}

// ResolveTarget derives the semantic label of a node. Pure over the node
// descriptor; ok is false when nothing usable exists.
func ResolveTarget(n instrument.Node) (string, bool) {
	for _, key := range targetAttrs {
		if v := n.Attrs[key]; v != "" {
			return v, true
		}
	}
	if n.ID != "" {
		return "#" + n.ID, true
	}
	return "", false
}

// ResolveSource derives the structural path of a node: where in the page the
// element sits. Prefers the element's own path, then its content block.
func ResolveSource(n instrument.Node) (string, bool) {
	if n.Path != "" {
		return n.Path, true
	}
	if n.Block != "" {
		return "." + n.Block, true
	}
	return "", false
}

// SnippetLabel builds a compact label from a markup snippet, for elements
// that resolve to neither target nor source. It parses the fragment and
// renders the first element's tag with its identifying attributes; on any
// parse trouble the trimmed snippet itself is returned.
func SnippetLabel(snippet string) string {
	snippet = strings.TrimSpace(snippet)
	if snippet == "" {
		return ""
	}

	nodes, err := html.ParseFragment(strings.NewReader(snippet), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return snippet
	}
	for _, n := range nodes {
		if n.Type != html.ElementNode {
			continue
		}
		keep := make(map[string]string)
		for _, a := range n.Attr {
			switch a.Key {
			case "id", "class", "src", "href", "alt":
				keep[a.Key] = a.Val
			}
		}
		var b strings.Builder
		b.WriteByte('<')
		b.WriteString(n.Data)
		keys := make([]string, 0, len(keep))
		for k := range keep {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteByte(' ')
			b.WriteString(k)
			b.WriteString(`="`)
			b.WriteString(keep[k])
			b.WriteByte('"')
		}
		b.WriteByte('>')
		return b.String()
	}
	return snippet
}
