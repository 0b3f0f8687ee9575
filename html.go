package main

import (
	"strings"

	"golang.org/x/net/html"
)

// attrVal returns the value of the named attribute, or "".
func attrVal(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

// eachElement walks the subtree depth-first and calls fn on every element
// node. fn returns false to stop the walk.
func eachElement(n *html.Node, fn func(*html.Node) bool) bool {
	if n.Type == html.ElementNode && !fn(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !eachElement(c, fn) {
			return false
		}
	}
	return true
}

// elementByID finds the element with the given id attribute.
func elementByID(root *html.Node, id string) *html.Node {
	var found *html.Node
	eachElement(root, func(n *html.Node) bool {
		if attrVal(n, "id") == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// formInputs collects the name/value pairs of every <input> in a subtree,
// typically a <form>.
func formInputs(form *html.Node) map[string]string {
	fields := make(map[string]string)
	eachElement(form, func(n *html.Node) bool {
		if n.Data == "input" {
			if name := attrVal(n, "name"); name != "" {
				fields[name] = attrVal(n, "value")
			}
		}
		return true
	})
	return fields
}

// inputValue finds an <input name=...> anywhere in the document and returns
// its value.
func inputValue(root *html.Node, name string) (string, bool) {
	var value string
	var ok bool
	eachElement(root, func(n *html.Node) bool {
		if n.Data == "input" && attrVal(n, "name") == name {
			value = attrVal(n, "value")
			ok = true
			return false
		}
		return true
	})
	return value, ok
}

// hasClass reports whether the element's class attribute contains the given
// class name.
func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attrVal(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// textContent concatenates all text nodes in the subtree.
func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// textByClass collects the trimmed text content of every element carrying the
// given class.
func textByClass(root *html.Node, class string) []string {
	var out []string
	eachElement(root, func(n *html.Node) bool {
		if hasClass(n, class) {
			out = append(out, strings.TrimSpace(textContent(n)))
		}
		return true
	})
	return out
}

// scriptText concatenates the text of every <script> in a subtree.
func scriptText(root *html.Node) string {
	var b strings.Builder
	eachElement(root, func(n *html.Node) bool {
		if n.Data == "script" {
			b.WriteString(textContent(n))
		}
		return true
	})
	return b.String()
}
