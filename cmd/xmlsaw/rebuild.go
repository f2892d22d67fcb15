package main

import (
	"github.com/spf13/cobra"

	"github.com/dgallion1/xmlsaw/flatten"
	"github.com/dgallion1/xmlsaw/xmltree"
)

type rebuildFlags struct {
	tag           string
	idAttr        string
	parentAttr    string
	out           string
	strictOrphans bool
	strictIDs     bool
}

func newRebuildCmd() *cobra.Command {
	var f rebuildFlags
	cmd := &cobra.Command{
		Use:   "rebuild <input>",
		Short: "reassemble a flattened node list into a hierarchy",
		Long: `Rebuild reads a container document whose children carry id / parent-id
attributes, re-nests each node under its parent, and collects the
parentless matches under a synthetic <root> element.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRebuild(args[0], f)
		},
	}
	cmd.Flags().StringVarP(&f.tag, "tag", "t", "", "element tag the list was flattened on (required)")
	cmd.Flags().StringVar(&f.idAttr, "id-attr", flatten.DefaultIDAttr, "attribute carrying node identity")
	cmd.Flags().StringVar(&f.parentAttr, "parent-attr", flatten.DefaultParentAttr, "attribute carrying the parent reference")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "output file (default: stdout)")
	cmd.Flags().BoolVar(&f.strictOrphans, "strict-orphans", false, "fail on nodes whose parent id cannot be resolved (default: drop them)")
	cmd.Flags().BoolVar(&f.strictIDs, "strict-ids", false, "fail when two nodes carry the same id (default: first one wins)")
	cmd.MarkFlagRequired("tag")
	return cmd
}

func runRebuild(input string, f rebuildFlags) error {
	doc, err := xmltree.ParseFile(input)
	if err != nil {
		return err
	}
	root, err := flatten.Rebuild(doc.Root().ChildElements(), flatten.Config{
		Tag:               f.tag,
		IDAttr:            f.idAttr,
		ParentAttr:        f.parentAttr,
		FailOnOrphan:      f.strictOrphans,
		FailOnDuplicateID: f.strictIDs,
	})
	if err != nil {
		return err
	}
	return writeOutput(f.out, root)
}
