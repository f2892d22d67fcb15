package flatten

import (
	"github.com/beevik/etree"
	"github.com/cockroachdb/errors"

	"github.com/dgallion1/xmlsaw/errs"
)

// RootTag is the synthetic container holding rebuilt top-level elements.
const RootTag = "root"

// Rebuild reassembles a flattened sequence into a nested tree. Identity
// lookup covers every element inside every input tree, so a parent that was
// never detached (one sitting below a non-Tag ancestor) is still found.
// Re-parenting is destructive: sequence elements are moved, not copied.
//
// Identity values are not required to be unique. A duplicated id keeps its
// first element, in sequence order, and parent references resolve there;
// FailOnDuplicateID makes the collision an ErrStructural failure naming the
// id instead.
//
// A sequence element whose parent reference does not resolve is an orphan:
// dropped silently by default, an ErrStructural failure with FailOnOrphan
// set. Elements without a parent reference whose tag equals Tag become
// children of a synthetic <root> container; if no such element exists the
// rebuild fails with ErrStructural.
func Rebuild(nodes []*etree.Element, cfg Config) (*etree.Element, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	lookup := make(map[string]*etree.Element)
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if err := indexByID(n, cfg, lookup); err != nil {
			return nil, err
		}
	}

	var root *etree.Element
	for _, n := range nodes {
		if n == nil {
			continue
		}
		pid := n.SelectAttrValue(cfg.ParentAttr, "")
		if pid != "" {
			parent, ok := lookup[pid]
			if !ok || parent == n {
				if cfg.FailOnOrphan {
					return nil, errors.Mark(
						errors.Newf("rebuild: %s %q references unknown parent %q",
							cfg.IDAttr, n.SelectAttrValue(cfg.IDAttr, ""), pid),
						errs.ErrStructural)
				}
				continue
			}
			parent.AddChild(n)
			continue
		}
		if n.Tag == cfg.Tag {
			if root == nil {
				root = etree.NewElement(RootTag)
			}
			root.AddChild(n)
		}
	}

	if root == nil {
		return nil, errors.Mark(errors.New("no top-level element found"), errs.ErrStructural)
	}
	return root, nil
}

// indexByID records the first element seen under each identity value,
// descending into nested elements. A later element with an already-recorded
// value is ignored, or rejected under FailOnDuplicateID.
func indexByID(el *etree.Element, cfg Config, lookup map[string]*etree.Element) error {
	if id := el.SelectAttrValue(cfg.IDAttr, ""); id != "" {
		if _, ok := lookup[id]; !ok {
			lookup[id] = el
		} else if cfg.FailOnDuplicateID {
			return errors.Mark(
				errors.Newf("rebuild: duplicate %s %q", cfg.IDAttr, id),
				errs.ErrStructural)
		}
	}
	for _, c := range el.ChildElements() {
		if err := indexByID(c, cfg, lookup); err != nil {
			return err
		}
	}
	return nil
}
