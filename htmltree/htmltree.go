// Package htmltree converts parsed HTML into the element model the flatten
// and rebuild transforms operate on, so recursively nested markup (divs in
// divs, lists in lists) can be linearized the same way self-nested XML is.
package htmltree

import (
	"io"
	"strings"

	"github.com/beevik/etree"
	"github.com/cockroachdb/errors"
	"golang.org/x/net/html"

	"github.com/dgallion1/xmlsaw/errs"
)

// Parse reads an HTML document from r and returns its root element,
// typically <html>. Comments and doctype declarations are dropped, as is
// whitespace-only text.
func Parse(r io.Reader) (*etree.Element, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "parse html"), errs.ErrSyntax)
	}
	root := firstElement(doc)
	if root == nil {
		return nil, errors.Mark(errors.New("parse html: no element found"), errs.ErrSyntax)
	}
	return convert(root), nil
}

func firstElement(n *html.Node) *html.Node {
	if n.Type == html.ElementNode {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if e := firstElement(c); e != nil {
			return e
		}
	}
	return nil
}

func convert(n *html.Node) *etree.Element {
	el := etree.NewElement(n.Data)
	for _, a := range n.Attr {
		el.CreateAttr(a.Key, a.Val)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.ElementNode:
			el.AddChild(convert(c))
		case html.TextNode:
			if strings.TrimSpace(c.Data) != "" {
				el.CreateText(c.Data)
			}
		}
	}
	return el
}
