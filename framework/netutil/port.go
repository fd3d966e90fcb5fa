// Package netutil finds free TCP host ports for the cluster ingress mapping.
//
// Availability is probed by asking the kernel directly via net.Listen rather
// than parsing /proc/net or shelling out to lsof/ss, which may need elevated
// permissions. The probe is read-only: the listener is closed immediately, so
// a race exists between check and bind. That is accepted for a single-operator
// local demo.
package netutil

import (
	"errors"
	"fmt"
	"net"
)

// ErrNoPortAvailable is returned when every port in the scanned window is in
// use. Callers treat this as fatal; there is no fallback range.
var ErrNoPortAvailable = errors.New("no free port available")

// FindFreePort scans ports sequentially from preferred through
// preferred+window inclusive and returns the first one no process is
// listening on.
func FindFreePort(preferred, window int) (int, error) {
	if preferred < 1 || preferred > 65535 {
		return 0, fmt.Errorf("preferred port %d out of range", preferred)
	}
	if window < 0 {
		return 0, fmt.Errorf("port window must not be negative, got %d", window)
	}

	last := preferred + window
	if last > 65535 {
		last = 65535
	}

	for port := preferred; port <= last; port++ {
		if isFree(port) {
			return port, nil
		}
	}

	return 0, fmt.Errorf("%w in range %d-%d", ErrNoPortAvailable, preferred, last)
}

// UsedPorts reports which ports in [start, end] inclusive are currently in
// use. Used by the status command to explain an allocation.
func UsedPorts(start, end int) []int {
	var used []int
	for port := start; port <= end; port++ {
		if !isFree(port) {
			used = append(used, port)
		}
	}
	return used
}

// isFree reports whether a TCP listen on the port succeeds. Binding all
// interfaces matches what k3d's port mapping will do afterwards.
func isFree(port int) bool {
	l, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return false
	}
	_ = l.Close()
	return true
}
