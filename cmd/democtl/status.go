package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cluster, session and port-forward state",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	st, err := fw.Status()
	if err != nil {
		return err
	}

	fmt.Printf("Cluster:   %s", st.ClusterName)
	if st.ClusterExists {
		fmt.Printf(" (running)\n")
	} else {
		fmt.Printf(" (not found)\n")
	}

	if len(st.UsedPorts) > 0 {
		ports := make([]string, len(st.UsedPorts))
		for i, p := range st.UsedPorts {
			ports[i] = fmt.Sprintf("%d", p)
		}
		fmt.Printf("Ports:     %s in use in window %d-%d\n",
			strings.Join(ports, ", "), cfg.PreferredPort, cfg.PreferredPort+cfg.PortWindow)
	}

	if st.Session == nil {
		fmt.Println("Session:   none")
		return nil
	}

	fmt.Printf("Session:   created %s\n", st.Session.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Printf("Backends:  %s\n", strings.Join(st.Session.Backends, ", "))
	fmt.Printf("Frontend:  http://localhost:%d\n", st.Session.IngressPort)

	if len(st.Forwards) > 0 {
		fmt.Println("Forwards:")
		for _, f := range st.Forwards {
			state := "running"
			if !f.Alive {
				state = "dead"
			}
			fmt.Printf("  %-40s localhost:%-6d pid %-7d %s\n",
				f.Job.Namespace+"/"+f.Job.Target, f.Job.LocalPort, f.Job.PID, state)
		}
	}
	return nil
}
