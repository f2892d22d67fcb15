package xmltree

import (
	"strings"

	"github.com/beevik/etree"
)

// Equal reports structural equivalence of two elements: same tag, same
// attribute set, same text content, and recursively equal children in
// document order. Attribute keys listed in ignoreAttrs are excluded from the
// comparison, as are namespace declarations. Whitespace-only text is
// ignored, so trees that differ only in indentation compare equal.
func Equal(a, b *etree.Element, ignoreAttrs ...string) bool {
	ignore := make(map[string]bool, len(ignoreAttrs))
	for _, k := range ignoreAttrs {
		ignore[k] = true
	}
	return equalElements(a, b, ignore)
}

func equalElements(a, b *etree.Element, ignore map[string]bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Tag != b.Tag {
		return false
	}
	if !equalAttrs(a, b, ignore) {
		return false
	}
	ac, bc := normalizeChildren(a), normalizeChildren(b)
	if len(ac) != len(bc) {
		return false
	}
	for i := range ac {
		if ac[i].text != bc[i].text {
			return false
		}
		if ac[i].el != nil {
			if bc[i].el == nil || !equalElements(ac[i].el, bc[i].el, ignore) {
				return false
			}
		} else if bc[i].el != nil {
			return false
		}
	}
	return true
}

// childItem is one comparable unit of an element's content: either a child
// element or a run of non-whitespace text.
type childItem struct {
	el   *etree.Element
	text string
}

// normalizeChildren flattens an element's child tokens into comparable
// items. Whitespace-only character data is dropped and adjacent runs are
// merged, so pretty-printed and compact forms of the same tree normalize
// identically. Comments and processing instructions are not compared.
func normalizeChildren(e *etree.Element) []childItem {
	var items []childItem
	var pending strings.Builder
	flush := func() {
		t := strings.TrimSpace(pending.String())
		pending.Reset()
		if t != "" {
			items = append(items, childItem{text: t})
		}
	}
	for _, tok := range e.Child {
		switch t := tok.(type) {
		case *etree.Element:
			flush()
			items = append(items, childItem{el: t})
		case *etree.CharData:
			pending.WriteString(t.Data)
		}
	}
	flush()
	return items
}

func equalAttrs(a, b *etree.Element, ignore map[string]bool) bool {
	am, bm := attrMap(a, ignore), attrMap(b, ignore)
	if len(am) != len(bm) {
		return false
	}
	for k, v := range am {
		if bv, ok := bm[k]; !ok || bv != v {
			return false
		}
	}
	return true
}

func attrMap(e *etree.Element, ignore map[string]bool) map[string]string {
	m := make(map[string]string, len(e.Attr))
	for _, a := range e.Attr {
		if a.Space == "xmlns" || a.Key == "xmlns" || ignore[a.Key] {
			continue
		}
		m[a.FullKey()] = a.Value
	}
	return m
}
