package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Tear down the cluster, backends, port-forwards and session state",
	Long: `Stops recorded port-forward processes, uninstalls helm releases, deletes
managed namespaces, removes the k3d cluster and deletes the session record.
Safe to run repeatedly; resources that are already gone are skipped.`,
	RunE: runDown,
}

func init() {
	rootCmd.AddCommand(downCmd)
}

func runDown(cmd *cobra.Command, args []string) error {
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

	if err := fw.Down(); err != nil {
		return err
	}
	fmt.Println("Environment torn down.")
	return nil
}
