package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/obslab/otel-demo-k3d/framework"
	"github.com/obslab/otel-demo-k3d/framework/config"
	"github.com/obslab/otel-demo-k3d/framework/profile"
)

var (
	version = "dev"

	cfgFile     string
	clusterName string
	profileName string
	profileDir  string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "democtl",
	Short: "Stand up local OpenTelemetry Demo environments on k3d",
	Long: `democtl creates a local k3d cluster, deploys one or two observability
backends (jaeger, zipkin, signoz, prometheus), installs the OpenTelemetry
Demo with its collector exporting to those backends, and port-forwards the
backend UIs to localhost.

State for each cluster is recorded in a session file so that status, logs
and down work from any process.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a TOML config file")
	rootCmd.PersistentFlags().StringVar(&clusterName, "cluster", "", "cluster name (overrides config)")
	rootCmd.PersistentFlags().StringVar(&profileName, "profile", "", "named profile to apply")
	rootCmd.PersistentFlags().StringVar(&profileDir, "profile-dir", "profiles", "directory holding profile YAML files")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadConfig builds the effective configuration: defaults, then config file,
// then environment, then profile, then flags.
func loadConfig() (*config.Config, *profile.Profile, error) {
	var cfg *config.Config
	var err error
	if cfgFile != "" {
		cfg, err = config.LoadFile(cfgFile)
		if err != nil {
			return nil, nil, err
		}
	} else {
		cfg = config.FromEnv()
	}

	var prof *profile.Profile
	if profileName != "" {
		prof, err = profile.LoadByName(profileDir, profileName)
		if err != nil {
			return nil, nil, err
		}
		cfg, err = prof.Apply(cfg)
		if err != nil {
			return nil, nil, err
		}
	}

	if clusterName != "" {
		cfg = cfg.WithClusterName(clusterName)
	}
	return cfg, prof, nil
}

func newFramework(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*framework.Framework, error) {
	return framework.New(ctx,
		framework.WithConfig(cfg),
		framework.WithLogger(logger),
	)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM, so a ^C
// during a long helm install unwinds cleanly instead of orphaning processes.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
