package splitter

import (
	"bytes"
	"encoding/xml"
	"io"

	"github.com/beevik/etree"
	"github.com/cockroachdb/errors"
)

// scanSubtrees runs a pull parse over r and hands every completed outermost
// <tag> subtree to emit. Content outside matched subtrees is checked for
// well-formedness and discarded immediately, so memory stays proportional to
// the largest single match rather than the document. A <tag> element nested
// inside a capture stays part of the outer subtree. A second root-level
// element fails the scan. emit returning false stops the scan; aborted
// reports that case.
func scanSubtrees(r io.Reader, tag string, emit func(*etree.Element) bool) (aborted bool, err error) {
	dec := xml.NewDecoder(r)
	var cur *etree.Element // innermost open element of the current capture
	depth := 0
	rootClosed := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			// The decoder itself tolerates trailing content after the root.
			if depth == 0 && rootClosed {
				return false, errors.Newf("unexpected element <%s> after document root", t.Name.Local)
			}
			depth++
			if cur == nil {
				if t.Name.Local != tag {
					continue
				}
				cur = openElement(nil, t)
				continue
			}
			cur = openElement(cur, t)
		case xml.EndElement:
			depth--
			if depth == 0 {
				rootClosed = true
			}
			if cur == nil {
				continue
			}
			parent := cur.Parent()
			if parent == nil {
				done := cur
				cur = nil
				if !emit(done) {
					return true, nil
				}
				continue
			}
			cur = parent
		case xml.CharData:
			// Whitespace-only runs are pretty-print artifacts; the sink
			// re-indents on write.
			if cur != nil && len(bytes.TrimSpace(t)) > 0 {
				cur.CreateText(string(t))
			}
		}
	}
}

// openElement materializes a started element under parent (nil for a capture
// root). Matching and output use local names; namespace declarations are not
// retained.
func openElement(parent *etree.Element, t xml.StartElement) *etree.Element {
	var el *etree.Element
	if parent == nil {
		el = etree.NewElement(t.Name.Local)
	} else {
		el = parent.CreateElement(t.Name.Local)
	}
	for _, a := range t.Attr {
		if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
			continue
		}
		el.CreateAttr(a.Name.Local, a.Value)
	}
	return el
}
