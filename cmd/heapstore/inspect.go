package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"heapstore/cmd/heapstore/internal/config"
	"heapstore/cmd/heapstore/internal/tui"
	"heapstore/pkg/buffer"
	"heapstore/pkg/file"
	"heapstore/pkg/heap"
	"heapstore/pkg/logging"
)

func init() {
	inspectCmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Open a heap file and launch the interactive inspector",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(args[0])
		},
	}
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(path string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logging.InitDefault()
	defer logging.Close()

	f, err := file.Open(path, singleFileID)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}

	files := buffer.NewFileTable()
	files.Register(f)
	bm := buffer.NewManager(cfg.PoolSize, files)
	defer bm.Close()

	hf, err := heap.Open(singleFileID, bm, files)
	if err != nil {
		return fmt.Errorf("open heap file %s: %w", path, err)
	}
	defer hf.Close()

	model, err := tui.New(hf, bm)
	if err != nil {
		return fmt.Errorf("build inspector: %w", err)
	}
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run inspector: %w", err)
	}
	return nil
}
