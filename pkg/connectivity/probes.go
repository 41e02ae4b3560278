package connectivity

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// DefaultTimeout bounds dial and HTTP probes that are given no timeout.
const DefaultTimeout = 3 * time.Second

// Static always reports the same answer. Useful for forcing offline mode.
type Static bool

func (s Static) Reachable(context.Context) (bool, error) {
	return bool(s), nil
}

// InterfaceProbe reports reachable when any non-loopback interface is up and
// has an address. It is the closest analogue of a platform reachability flag:
// cheap, local and unaware of whether the far end answers.
type InterfaceProbe struct {
	// Interfaces lists interfaces; defaults to net.Interfaces.
	Interfaces func() ([]net.Interface, error)
	// Addrs lists an interface's addresses; defaults to (*net.Interface).Addrs.
	Addrs func(net.Interface) ([]net.Addr, error)
}

func (p InterfaceProbe) Reachable(context.Context) (bool, error) {
	list := p.Interfaces
	if list == nil {
		list = net.Interfaces
	}
	addrs := p.Addrs
	if addrs == nil {
		addrs = func(iface net.Interface) ([]net.Addr, error) { return iface.Addrs() }
	}

	ifaces, err := list()
	if err != nil {
		return false, fmt.Errorf("failed to list interfaces: %w", err)
	}
	// An up interface whose addresses cannot be read leaves the answer
	// undecided rather than offline.
	var lookupErr error
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		a, err := addrs(iface)
		if err != nil {
			lookupErr = fmt.Errorf("failed to list addresses of %s: %w", iface.Name, err)
			continue
		}
		if len(a) > 0 {
			return true, nil
		}
	}
	return false, lookupErr
}

// DialProbe reports reachable when a TCP connection to Addr succeeds. A
// refused or timed-out dial is a definite offline answer.
type DialProbe struct {
	Addr    string
	Timeout time.Duration
	// Dialer overrides net.Dialer, mostly for tests.
	Dialer interface {
		DialContext(ctx context.Context, network, address string) (net.Conn, error)
	}
}

func (p DialProbe) Reachable(ctx context.Context) (bool, error) {
	if p.Addr == "" {
		return false, errors.New("dial probe needs an address")
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dialer := p.Dialer
	if dialer == nil {
		dialer = &net.Dialer{}
	}
	conn, err := dialer.DialContext(ctx, "tcp", p.Addr)
	if err != nil {
		return false, nil
	}
	_ = conn.Close()
	return true, nil
}

// HTTPProbe reports reachable when URL answers with any HTTP status. Even a
// 5xx proves the path to the server works.
type HTTPProbe struct {
	URL     string
	Client  *http.Client
	Timeout time.Duration
}

func (p HTTPProbe) Reachable(ctx context.Context) (bool, error) {
	if p.URL == "" {
		return false, errors.New("http probe needs a URL")
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.URL, nil)
	if err != nil {
		return false, fmt.Errorf("failed to build probe request: %w", err)
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return false, nil
	}
	_ = resp.Body.Close()
	return true, nil
}
