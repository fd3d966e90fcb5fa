package framework

import (
	"errors"

	"github.com/obslab/otel-demo-k3d/framework/netutil"
	"github.com/obslab/otel-demo-k3d/framework/portforward"
	"github.com/obslab/otel-demo-k3d/framework/session"
)

// ForwardStatus pairs a recorded port-forward with whether its process is
// still running.
type ForwardStatus struct {
	Job   session.ForwardJob
	Alive bool
}

// Status is a point-in-time view of the environment. UsedPorts lists the
// host ports taken in the allocation window, which explains why an ingress
// or forward port fell over from its preferred value.
type Status struct {
	ClusterName   string
	ClusterExists bool
	Session       *session.Session
	Forwards      []ForwardStatus
	UsedPorts     []int
}

// Status reports the current state of the environment without changing it.
// A missing session record is not an error; it simply means no run is
// active.
func (f *Framework) Status() (*Status, error) {
	st := &Status{
		ClusterName: f.config.ClusterName,
		UsedPorts:   netutil.UsedPorts(f.config.PreferredPort, f.config.PreferredPort+f.config.PortWindow),
	}

	exists, err := f.ClusterExists()
	if err != nil {
		return nil, err
	}
	st.ClusterExists = exists

	sess, err := f.store.Load(f.config.ClusterName)
	if err != nil {
		if errors.Is(err, session.ErrNoSession) {
			return st, nil
		}
		return nil, err
	}
	st.Session = sess

	for _, job := range sess.Forwards {
		h := portforward.Reattach(job)
		st.Forwards = append(st.Forwards, ForwardStatus{Job: job, Alive: h.Alive()})
	}
	return st, nil
}
