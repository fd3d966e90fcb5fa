package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/obslab/otel-demo-k3d/framework"
)

var (
	logsOutputDir string
	logsTail      int64
	logsPrevious  bool
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Dump pod logs and status from all managed namespaces",
	RunE:  runLogs,
}

func init() {
	logsCmd.Flags().StringVarP(&logsOutputDir, "output", "o", "logs", "directory to write logs to")
	logsCmd.Flags().Int64Var(&logsTail, "tail", 0, "limit each log to the last N lines (0 = all)")
	logsCmd.Flags().BoolVar(&logsPrevious, "previous", false, "include logs from previous container instances")
	rootCmd.AddCommand(logsCmd)
}

func runLogs(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	fw, err := newFramework(ctx, cfg, newLogger())
	if err != nil {
		return err
	}

	result, err := fw.CollectLogs(&framework.LogCollectionConfig{
		OutputDir:       logsOutputDir,
		TailLines:       logsTail,
		IncludePrevious: logsPrevious,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Wrote %d files to %s\n", result.Files, result.OutputDir)
	return nil
}
