package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var upBackends []string

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Create the cluster and deploy the demo with the selected backends",
	Example: `  democtl up --backend jaeger
  democtl up --backend jaeger --backend prometheus
  democtl up --profile tracing`,
	RunE: runUp,
}

func init() {
	upCmd.Flags().StringSliceVarP(&upBackends, "backend", "b", nil,
		"observability backend to deploy (repeatable, one or two)")
	rootCmd.AddCommand(upCmd)
}

func runUp(cmd *cobra.Command, args []string) error {
	cfg, prof, err := loadConfig()
	if err != nil {
		return err
	}

	backends := upBackends
	if len(backends) == 0 && prof != nil {
		backends = prof.Backends
	}
	if len(backends) == 0 {
		return fmt.Errorf("no backends selected; use --backend or --profile")
	}

	ctx, cancel := signalContext()
	defer cancel()

	fw, err := newFramework(ctx, cfg, newLogger())
	if err != nil {
		return err
	}

	sess, err := fw.Up(backends)
	if err != nil {
		return err
	}

	fmt.Printf("\nDemo is up.\n")
	fmt.Printf("  Frontend:  http://localhost:%d\n", sess.IngressPort)
	for _, fwd := range sess.Forwards {
		fmt.Printf("  %-10s http://localhost:%d (%s)\n", fwd.Namespace+":", fwd.LocalPort, fwd.Target)
	}
	fmt.Printf("\nRun 'democtl down' to tear everything down.\n")
	return nil
}
