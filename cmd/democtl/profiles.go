package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/obslab/otel-demo-k3d/framework"
	"github.com/obslab/otel-demo-k3d/framework/profile"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List available profiles and backends",
	RunE:  runProfiles,
}

func init() {
	rootCmd.AddCommand(profilesCmd)
}

func runProfiles(cmd *cobra.Command, args []string) error {
	fmt.Printf("Backends: %s\n\n", strings.Join(framework.BackendNames(), ", "))

	profiles, err := profile.LoadAll(profileDir)
	if err != nil {
		fmt.Printf("No profiles loaded from %s: %v\n", profileDir, err)
		return nil
	}
	if len(profiles) == 0 {
		fmt.Printf("No profiles in %s\n", profileDir)
		return nil
	}

	for _, p := range profiles {
		fmt.Printf("%-12s backends=%s", p.Name, strings.Join(p.Backends, ","))
		if p.Description != "" {
			fmt.Printf("  %s", p.Description)
		}
		fmt.Println()
	}
	return nil
}
