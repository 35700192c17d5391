package musicxml

import (
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
)

// elements yields the element-node children of n in document order.
func elements(n *xmlquery.Node) []*xmlquery.Node {
	var out []*xmlquery.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// child returns the first element child named name, or nil.
func child(n *xmlquery.Node, name string) *xmlquery.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode && c.Data == name {
			return c
		}
	}
	return nil
}

// childText returns the trimmed text of the first child named name, or "".
func childText(n *xmlquery.Node, name string) string {
	c := child(n, name)
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.InnerText())
}

// childInt parses the first child named name as an integer, returning def
// when absent or malformed.
func childInt(n *xmlquery.Node, name string, def int) int {
	s := childText(n, name)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// childFloat parses the first child named name as a float, returning def
// when absent or malformed.
func childFloat(n *xmlquery.Node, name string, def float64) float64 {
	s := childText(n, name)
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return v
}

// attr returns the value of the named attribute, or "".
func attr(n *xmlquery.Node, name string) string {
	return n.SelectAttr(name)
}

// attrInt parses the named attribute as an integer, returning def when
// absent or malformed.
func attrInt(n *xmlquery.Node, name string, def int) int {
	s := n.SelectAttr(name)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// text returns the trimmed text content of n.
func text(n *xmlquery.Node) string {
	return strings.TrimSpace(n.InnerText())
}
