package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dgallion1/xmlsaw/source"
	"github.com/dgallion1/xmlsaw/splitter"
)

type splitFlags struct {
	tag       string
	chunkSize int
	out       string
	pattern   string
	recursive bool
	gzip      bool
	manifest  bool
	keepGoing bool
}

func newSplitCmd() *cobra.Command {
	var f splitFlags
	cmd := &cobra.Command{
		Use:   "split <input>",
		Short: "partition matching subtrees into numbered chunk documents",
		Long: `Split scans an XML document, a directory of documents, or a ZIP archive
for subtrees whose tag matches --tag and writes them out as numbered
chunk documents, each wrapping up to --chunk-size matches.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSplit(args[0], f)
		},
	}
	cmd.Flags().StringVarP(&f.tag, "tag", "t", "", "element tag to extract (required)")
	cmd.Flags().IntVarP(&f.chunkSize, "chunk-size", "n", splitter.DefaultChunkSize, "matches per chunk")
	cmd.Flags().StringVarP(&f.out, "out", "o", "chunks", "output directory")
	cmd.Flags().StringVar(&f.pattern, "pattern", source.DefaultPattern, "filename pattern for directory inputs")
	cmd.Flags().BoolVar(&f.recursive, "recursive", false, "descend into subdirectories")
	cmd.Flags().BoolVar(&f.gzip, "gzip", false, "gzip-compress chunk files")
	cmd.Flags().BoolVar(&f.manifest, "manifest", false, "write a manifest.json alongside the chunks")
	cmd.Flags().BoolVar(&f.keepGoing, "keep-going", false, "skip unparseable sources instead of aborting")
	cmd.MarkFlagRequired("tag")
	return cmd
}

func runSplit(input string, f splitFlags) error {
	src, err := source.Resolve(input, source.Options{
		Pattern:   f.pattern,
		Recursive: f.recursive,
	})
	if err != nil {
		return err
	}
	sp, err := splitter.New(splitter.Config{Tag: f.tag, ChunkSize: f.chunkSize})
	if err != nil {
		return err
	}
	sink, err := splitter.NewDirSink(splitter.SinkConfig{
		Dir:      f.out,
		Gzip:     f.gzip,
		Manifest: f.manifest,
	})
	if err != nil {
		return err
	}

	chunks := 0
	for c, err := range sp.Split(src.Entries()) {
		if err != nil {
			if f.keepGoing {
				slog.Warn("skipping source", "error", err)
				continue
			}
			return err
		}
		if err := sink.Write(c); err != nil {
			return err
		}
		chunks++
	}
	if err := sink.Close(); err != nil {
		return err
	}

	slog.Info("split complete", "input", src.Path(), "kind", src.Kind().String(), "chunks", chunks, "dir", f.out)
	return nil
}
