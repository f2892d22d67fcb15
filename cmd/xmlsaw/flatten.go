package main

import (
	"os"

	"github.com/beevik/etree"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/dgallion1/xmlsaw/errs"
	"github.com/dgallion1/xmlsaw/flatten"
	"github.com/dgallion1/xmlsaw/htmltree"
	"github.com/dgallion1/xmlsaw/xmltree"
)

type flattenFlags struct {
	tag        string
	idAttr     string
	parentAttr string
	out        string
	html       bool
}

func newFlattenCmd() *cobra.Command {
	var f flattenFlags
	cmd := &cobra.Command{
		Use:   "flatten <input>",
		Short: "linearize nested matching elements into a flat node list",
		Long: `Flatten walks a document, detaches matching elements nested inside other
matches, and links the copies back together with id / parent-id
attributes. The result is a <flattened> container whose children can be
fed to rebuild.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFlatten(args[0], f)
		},
	}
	cmd.Flags().StringVarP(&f.tag, "tag", "t", "", "element tag to flatten on (required)")
	cmd.Flags().StringVar(&f.idAttr, "id-attr", flatten.DefaultIDAttr, "attribute carrying node identity")
	cmd.Flags().StringVar(&f.parentAttr, "parent-attr", flatten.DefaultParentAttr, "attribute carrying the parent reference")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "output file (default: stdout)")
	cmd.Flags().BoolVar(&f.html, "html", false, "parse the input as HTML")
	cmd.MarkFlagRequired("tag")
	return cmd
}

func runFlatten(input string, f flattenFlags) error {
	root, err := loadRoot(input, f.html)
	if err != nil {
		return err
	}
	res, err := flatten.Flatten(root, flatten.Config{
		Tag:        f.tag,
		IDAttr:     f.idAttr,
		ParentAttr: f.parentAttr,
	})
	if err != nil {
		return err
	}
	out := etree.NewElement("flattened")
	for _, n := range res.Nodes {
		out.AddChild(n)
	}
	return writeOutput(f.out, out)
}

// loadRoot parses the input file as XML, or as HTML when asHTML is set.
func loadRoot(pathname string, asHTML bool) (*etree.Element, error) {
	if asHTML {
		file, err := os.Open(pathname)
		if err != nil {
			return nil, errors.Mark(errors.Wrapf(err, "open %s", pathname), errs.ErrNotFound)
		}
		defer file.Close()
		return htmltree.Parse(file)
	}
	doc, err := xmltree.ParseFile(pathname)
	if err != nil {
		return nil, err
	}
	return doc.Root(), nil
}

// writeOutput serializes root to the given path, or stdout when empty.
func writeOutput(pathname string, root *etree.Element) error {
	if pathname == "" {
		return xmltree.Write(os.Stdout, root)
	}
	file, err := os.Create(pathname)
	if err != nil {
		return errors.Wrapf(err, "create %s", pathname)
	}
	if err := xmltree.Write(file, root); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
