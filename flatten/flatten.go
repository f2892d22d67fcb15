// Package flatten linearizes recursively self-nested XML structure into a
// flat, identity-linked sequence of subtrees, and reassembles such a
// sequence back into a nested tree. A tag that legally contains itself (a
// Product holding Products) is detached level by level; each detached
// subtree carries an id attribute and a parent_id attribute pointing at the
// node it was detached from.
package flatten

import (
	"github.com/beevik/etree"
	"github.com/cockroachdb/errors"

	"github.com/dgallion1/xmlsaw/errs"
)

// Default attribute names carrying node identity.
const (
	DefaultIDAttr     = "id"
	DefaultParentAttr = "parent_id"
)

// Config controls both directions of the transform.
type Config struct {
	Tag        string // Self-nesting element tag; required.
	IDAttr     string // Identity attribute; default "id".
	ParentAttr string // Parent identity attribute; default "parent_id".

	// FailOnOrphan makes Rebuild fail on a node whose parent reference does
	// not resolve. The default drops such nodes silently.
	FailOnOrphan bool

	// FailOnDuplicateID makes Rebuild fail when two elements carry the same
	// identity. The default keeps the first and resolves parent references
	// to it.
	FailOnDuplicateID bool
}

func (c Config) withDefaults() (Config, error) {
	if c.Tag == "" {
		return c, errors.Mark(errors.New("flatten: tag is required"), errs.ErrInvalidInput)
	}
	if c.IDAttr == "" {
		c.IDAttr = DefaultIDAttr
	}
	if c.ParentAttr == "" {
		c.ParentAttr = DefaultParentAttr
	}
	return c, nil
}

// Result is the output of Flatten. Nodes holds the pruned root copy first,
// followed by every detached subtree copy in detachment-completion order.
// Assigned maps each input element that lacked an identity to the token
// synthesized for its copy; the input tree itself is never modified.
type Result struct {
	Nodes    []*etree.Element
	Assigned map[*etree.Element]string
}

// Flatten walks root once and detaches every Tag element found directly
// inside another Tag element, linking the pieces through identity
// attributes. A Tag element nested below a non-Tag ancestor stays in place
// but still receives its identity and parent link. The walk copies as it
// goes: root and everything under it are left untouched.
func Flatten(root *etree.Element, cfg Config) (*Result, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, errors.Mark(errors.New("flatten: nil root"), errs.ErrInvalidInput)
	}

	f := &flattener{cfg: cfg, assigned: make(map[*etree.Element]string)}
	var detached []*etree.Element
	rootCopy := f.visit(root, "", &detached)

	nodes := make([]*etree.Element, 0, len(detached)+1)
	nodes = append(nodes, rootCopy)
	nodes = append(nodes, detached...)
	return &Result{Nodes: nodes, Assigned: f.assigned}, nil
}

type flattener struct {
	cfg      Config
	assigned map[*etree.Element]string
}

// visit copies orig without its detachable children, appending each detached
// child's own copy to out once that child's subtree has been fully
// processed. parentID is the identity of the nearest Tag ancestor, empty at
// the root.
func (f *flattener) visit(orig *etree.Element, parentID string, out *[]*etree.Element) *etree.Element {
	isMatch := orig.Tag == f.cfg.Tag

	var id string
	if isMatch {
		id = orig.SelectAttrValue(f.cfg.IDAttr, "")
		if id == "" {
			id = NewToken()
			f.assigned[orig] = id
		}
	}

	cp := copyShell(orig)
	if isMatch {
		cp.CreateAttr(f.cfg.IDAttr, id)
		if parentID != "" {
			cp.CreateAttr(f.cfg.ParentAttr, parentID)
		}
	}

	inherit := parentID
	if isMatch {
		inherit = id
	}

	var toDetach []*etree.Element
	for _, tok := range orig.Child {
		switch t := tok.(type) {
		case *etree.Element:
			if isMatch && t.Tag == f.cfg.Tag {
				toDetach = append(toDetach, t)
				continue
			}
			cp.AddChild(f.visit(t, inherit, out))
		case *etree.CharData:
			if t.IsCData() {
				cp.CreateCData(t.Data)
			} else {
				cp.CreateText(t.Data)
			}
		case *etree.Comment:
			cp.CreateComment(t.Data)
		}
	}

	for _, d := range toDetach {
		res := f.visit(d, id, out)
		*out = append(*out, res)
	}

	return cp
}

// copyShell duplicates an element's tag and attributes only.
func copyShell(orig *etree.Element) *etree.Element {
	cp := etree.NewElement(orig.Tag)
	cp.Space = orig.Space
	for _, a := range orig.Attr {
		cp.CreateAttr(a.FullKey(), a.Value)
	}
	return cp
}
