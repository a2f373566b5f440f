package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"heapstore/cmd/heapstore/internal/config"
	"heapstore/pkg/buffer"
	"heapstore/pkg/heap"
	"heapstore/pkg/logging"
	"heapstore/pkg/primitives"
)

// singleFileID is the identifier every heapstore CLI invocation assigns the
// one heap file it operates on. The core library addresses files by
// primitives.FileID so a process can hold several open at once; the CLI
// only ever opens one per invocation, so a fixed ID is sufficient.
const singleFileID primitives.FileID = 1

func init() {
	createCmd := &cobra.Command{
		Use:   "create <file>",
		Short: "Create a new, empty heap file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(args[0])
		},
	}
	rootCmd.AddCommand(createCmd)
}

func runCreate(path string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logging.InitDefault()
	defer logging.Close()

	files := buffer.NewFileTable()
	bm := buffer.NewManager(cfg.PoolSize, files)

	hf, err := heap.Create(path, singleFileID, bm, files)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	if err := hf.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := bm.FlushFile(singleFileID); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	if err := bm.Close(); err != nil {
		return fmt.Errorf("close buffer pool: %w", err)
	}

	fmt.Printf("created %s\n", path)
	return nil
}
