package framework

import (
	"context"
	"net"
	"testing"
	"time"

	"k8s.io/client-go/kubernetes/fake"

	"github.com/obslab/otel-demo-k3d/framework/session"
)

func TestStatusWithNoState(t *testing.T) {
	runner := newFakeRunner()
	runner.outputs["k3d cluster list"] = ""

	f := newTestFramework(t, runner)

	st, err := f.Status()
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if st.ClusterExists {
		t.Error("ClusterExists = true, want false")
	}
	if st.Session != nil {
		t.Errorf("Session = %+v, want nil", st.Session)
	}
}

func TestStatusReportsUsedPorts(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("failed to grab a port: %v", err)
	}
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	runner := newFakeRunner()
	runner.outputs["k3d cluster list"] = ""

	cfg := testConfig(t)
	cfg.PreferredPort = port
	cfg.PortWindow = 0

	f, err := New(context.Background(),
		WithConfig(cfg),
		WithLogger(testLogger()),
		WithClient(fake.NewClientset()),
		WithRunner(runner),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	st, err := f.Status()
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}

	found := false
	for _, p := range st.UsedPorts {
		if p == port {
			found = true
		}
	}
	if !found {
		t.Errorf("UsedPorts = %v, want %d reported in use", st.UsedPorts, port)
	}
}

func TestStatusReportsDeadForwards(t *testing.T) {
	runner := newFakeRunner()
	runner.outputs["k3d cluster list"] = "demo-test   1/1   0/0   true"

	f := newTestFramework(t, runner)

	sess := &session.Session{
		ClusterName:   "demo-test",
		DemoNamespace: "otel-demo",
		IngressPort:   8080,
		Backends:      []string{"zipkin"},
		Forwards: []session.ForwardJob{
			{PID: 1 << 30, Namespace: "zipkin", Target: "svc/zipkin", LocalPort: 9411, RemotePort: 9411},
		},
		CreatedAt: time.Now().UTC(),
	}
	if err := f.SessionStore().Save(sess); err != nil {
		t.Fatalf("failed to save session: %v", err)
	}

	st, err := f.Status()
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if !st.ClusterExists {
		t.Error("ClusterExists = false, want true")
	}
	if st.Session == nil {
		t.Fatal("Session = nil, want record")
	}
	if len(st.Forwards) != 1 {
		t.Fatalf("got %d forwards, want 1", len(st.Forwards))
	}
	if st.Forwards[0].Alive {
		t.Error("forward reported alive for a dead PID")
	}
}
