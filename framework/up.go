package framework

import (
	"fmt"
	"time"

	"github.com/obslab/otel-demo-k3d/framework/netutil"
	"github.com/obslab/otel-demo-k3d/framework/session"
	"github.com/obslab/otel-demo-k3d/framework/toolexec"
)

// Up stands up the whole demo environment: prerequisite check, cluster
// creation, backend and demo deployment, port-forwards, and finally the
// session record. It fails fast on the first error; Down cleans up whatever
// was reached.
func (f *Framework) Up(backendNames []string) (*session.Session, error) {
	backends, err := LookupBackends(backendNames)
	if err != nil {
		return nil, err
	}

	if result := f.CheckPrerequisites(); !result.AllMet {
		return nil, &toolexec.MissingToolsError{Tools: result.Missing()}
	}

	if err := f.store.Acquire(f.config.ClusterName); err != nil {
		return nil, err
	}

	ingressPort, err := f.CreateCluster()
	if err != nil {
		return nil, err
	}

	if err := f.WaitSystemPodsReady(); err != nil {
		return nil, err
	}

	if err := f.DeployBackends(backends); err != nil {
		return nil, err
	}

	if err := f.SetupDemo(backends); err != nil {
		return nil, err
	}

	forwards, err := f.StartForwards(backends)
	if err != nil {
		return nil, err
	}

	sess := &session.Session{
		ClusterName:   f.config.ClusterName,
		DemoNamespace: f.config.DemoNamespace,
		IngressPort:   ingressPort,
		Backends:      backendNames,
		Forwards:      forwards,
		CreatedAt:     time.Now().UTC(),
	}
	if err := f.store.Save(sess); err != nil {
		return nil, err
	}

	f.logger.Info("environment up",
		"cluster", sess.ClusterName,
		"ingress_port", sess.IngressPort,
		"backends", sess.Backends)
	return sess, nil
}

// StartForwards starts a background port-forward for every UI the selected
// backends expose. A preferred local port that is taken falls over to the
// next free one in the window, same policy as the ingress port.
func (f *Framework) StartForwards(backends []*Backend) ([]session.ForwardJob, error) {
	for _, b := range backends {
		for _, spec := range b.Forwards {
			local, err := netutil.FindFreePort(spec.LocalPort, f.config.PortWindow)
			if err != nil {
				stopErr := f.forwards.StopAll()
				if stopErr != nil {
					f.logger.Warn("failed to stop forwards after error", "error", stopErr)
				}
				return nil, fmt.Errorf("forward for %s %s: %w", b.Name, spec.Target, err)
			}

			h, err := f.pfmgr.Start(f.ctx, b.Namespace, spec.Target, local, spec.RemotePort)
			if err != nil {
				stopErr := f.forwards.StopAll()
				if stopErr != nil {
					f.logger.Warn("failed to stop forwards after error", "error", stopErr)
				}
				return nil, fmt.Errorf("forward for %s %s: %w", b.Name, spec.Target, err)
			}
			f.forwards.Add(h)
			f.logger.Info("port-forward started",
				"backend", b.Name, "target", spec.Target,
				"local_port", local, "remote_port", spec.RemotePort)
		}
	}
	return f.forwards.Jobs(), nil
}

// Down tears the environment down. Safe to call against a partially created
// or already deleted environment.
func (f *Framework) Down() error {
	return f.Cleanup()
}
