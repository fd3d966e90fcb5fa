// Package framework stands up and tears down local OpenTelemetry Demo
// environments on k3d clusters.
//
// One run creates a k3d cluster, deploys one or two observability backends,
// installs the OpenTelemetry Demo with its collector wired to those
// backends, starts background port-forwards for the backend UIs, and records
// everything in a session file so a later run can inspect or tear it down.
//
// # Quick Start
//
// Create a framework instance and bring an environment up:
//
//	ctx := context.Background()
//	fw, err := framework.New(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	sess, err := fw.Up([]string{"jaeger", "prometheus"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("demo at http://localhost:%d\n", sess.IngressPort)
//
// Tear it down later, from the same or a fresh process:
//
//	fw.Down()
//
// # Context Support
//
// All operations honor context cancellation:
//
//	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
//	defer cancel()
//
//	fw, err := framework.New(ctx)
//
// # Package Structure
//
// The framework is organized into subpackages:
//
//   - config: Centralized configuration with environment variable support
//   - helm: Helm repo and release management through the helm CLI
//   - netutil: Free-port scanning for ingress and UI forwards
//   - portforward: Supervised background kubectl port-forward processes
//   - profile: Named environment profiles loaded from YAML
//   - session: Per-cluster session records with run locking
//   - toolexec: External CLI tool execution and prerequisite checks
//   - wait: Polling-based readiness checks
package framework
