// Package xmltree provides the parse, serialize, and comparison helpers
// shared by the splitting and flattening pipelines.
package xmltree

import (
	"bytes"
	"io"
	"os"

	"github.com/beevik/etree"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/errors/oserror"

	"github.com/dgallion1/xmlsaw/errs"
)

// Parse reads a complete XML document from r.
func Parse(r io.Reader) (*etree.Document, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "parse xml"), errs.ErrSyntax)
	}
	if doc.Root() == nil {
		return nil, errors.Mark(errors.New("parse xml: document has no root element"), errs.ErrSyntax)
	}
	return doc, nil
}

// ParseFile reads a complete XML document from path.
func ParseFile(path string) (*etree.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		if oserror.IsNotExist(err) {
			return nil, errors.Mark(err, errs.ErrNotFound)
		}
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	doc, err := Parse(f)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return doc, nil
}

// Write serializes root to w with a standard XML declaration and two-space
// indentation. The element is copied before indenting, so the caller's tree
// is left untouched.
func Write(w io.Writer, root *etree.Element) error {
	if root == nil {
		return errors.Mark(errors.New("write xml: nil element"), errs.ErrInvalidInput)
	}
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	doc.SetRoot(root.Copy())
	doc.Indent(2)
	if _, err := doc.WriteTo(w); err != nil {
		return errors.Wrap(err, "write xml")
	}
	return nil
}

// Bytes serializes root the way Write does and returns the result.
func Bytes(root *etree.Element) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, root); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
