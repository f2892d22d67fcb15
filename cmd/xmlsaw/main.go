package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(log)

	root := &cobra.Command{
		Use:           "xmlsaw",
		Short:         "split, flatten, and rebuild large XML documents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newSplitCmd(),
		newFlattenCmd(),
		newRebuildCmd(),
		newServeCmd(),
	)

	if err := root.Execute(); err != nil {
		log.Error("command failed", "error", err)
		os.Exit(1)
	}
}
