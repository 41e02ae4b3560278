package connectivity

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkify/talkify/pkg/metrics"
)

func TestCheckerFailOpen(t *testing.T) {
	tests := []struct {
		name  string
		probe Probe
		want  bool
	}{
		{name: "online", probe: Static(true), want: true},
		{name: "offline", probe: Static(false), want: false},
		{name: "probe error", probe: ProbeFunc(func(context.Context) (bool, error) {
			return false, errors.New("reachability api unavailable")
		}), want: true},
		{name: "probe panics", probe: ProbeFunc(func(context.Context) (bool, error) {
			panic("native module missing")
		}), want: true},
		{name: "nil probe", probe: nil, want: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := NewChecker(tc.probe)
			assert.Equal(t, tc.want, c.IsOnline(context.Background()))
		})
	}
}

func TestNilCheckerIsOnline(t *testing.T) {
	var c *Checker
	assert.True(t, c.IsOnline(context.Background()))
}

func TestCheckerProbesEveryCall(t *testing.T) {
	calls := 0
	c := NewChecker(ProbeFunc(func(context.Context) (bool, error) {
		calls++
		return calls%2 == 1, nil
	}))
	ctx := context.Background()

	assert.True(t, c.IsOnline(ctx))
	assert.False(t, c.IsOnline(ctx))
	assert.True(t, c.IsOnline(ctx))
	assert.Equal(t, 3, calls)
}

func TestCheckerRecordsOutcomes(t *testing.T) {
	outcomes := metrics.NewOutcomes()
	lt := metrics.NewLatencyTracker(0.01)
	ctx := context.Background()

	NewChecker(Static(true), WithOutcomes(outcomes), WithLatency(lt)).IsOnline(ctx)
	NewChecker(Static(false), WithOutcomes(outcomes), WithLatency(lt)).IsOnline(ctx)
	NewChecker(nil, WithOutcomes(outcomes), WithLatency(lt)).IsOnline(ctx)

	expected := `
# HELP talkify_connectivity_checks_total Connectivity checks by result
# TYPE talkify_connectivity_checks_total counter
talkify_connectivity_checks_total{result="indeterminate"} 1
talkify_connectivity_checks_total{result="offline"} 1
talkify_connectivity_checks_total{result="online"} 1
`
	require.NoError(t, testutil.GatherAndCompare(outcomes.Registry(), strings.NewReader(expected),
		"talkify_connectivity_checks_total"))

	stats, err := lt.GetStats(metrics.OpProbe)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Count)
}

func TestInterfaceProbe(t *testing.T) {
	up := net.Interface{Index: 2, Name: "wlan0", Flags: net.FlagUp}
	down := net.Interface{Index: 3, Name: "eth0"}
	loopback := net.Interface{Index: 1, Name: "lo", Flags: net.FlagUp | net.FlagLoopback}
	addr := &net.IPNet{IP: net.ParseIP("192.168.1.20"), Mask: net.CIDRMask(24, 32)}

	tests := []struct {
		name    string
		ifaces  []net.Interface
		listErr error
		addrs   map[string][]net.Addr
		addrErr map[string]error
		want    bool
		wantErr bool
	}{
		{name: "wifi up with address", ifaces: []net.Interface{loopback, up}, addrs: map[string][]net.Addr{"wlan0": {addr}}, want: true},
		{name: "only loopback", ifaces: []net.Interface{loopback}, addrs: map[string][]net.Addr{"lo": {addr}}, want: false},
		{name: "interface down", ifaces: []net.Interface{down}, addrs: map[string][]net.Addr{"eth0": {addr}}, want: false},
		{name: "up without address", ifaces: []net.Interface{up}, want: false},
		{name: "listing fails", listErr: errors.New("permission denied"), wantErr: true},
		{
			name:    "address lookup fails",
			ifaces:  []net.Interface{up},
			addrErr: map[string]error{"wlan0": errors.New("netlink denied")},
			wantErr: true,
		},
		{
			name:    "one lookup fails another interface has an address",
			ifaces:  []net.Interface{up, {Index: 4, Name: "eth1", Flags: net.FlagUp}},
			addrs:   map[string][]net.Addr{"eth1": {addr}},
			addrErr: map[string]error{"wlan0": errors.New("netlink denied")},
			want:    true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := InterfaceProbe{
				Interfaces: func() ([]net.Interface, error) { return tc.ifaces, tc.listErr },
				Addrs: func(iface net.Interface) ([]net.Addr, error) {
					return tc.addrs[iface.Name], tc.addrErr[iface.Name]
				},
			}
			got, err := p.Reachable(context.Background())
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, NewChecker(p).IsOnline(context.Background()), "errors fail open")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDialProbe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			_ = conn.Close()
		}
	}()
	addr := ln.Addr().String()

	ok, err := DialProbe{Addr: addr}.Reachable(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, ln.Close())
	ok, err = DialProbe{Addr: addr}.Reachable(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = DialProbe{}.Reachable(context.Background())
	require.Error(t, err)
}

func TestHTTPProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	url := srv.URL

	ok, err := HTTPProbe{URL: url, Client: srv.Client()}.Reachable(context.Background())
	require.NoError(t, err)
	assert.True(t, ok, "any status proves reachability")

	srv.Close()
	ok, err = HTTPProbe{URL: url}.Reachable(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = HTTPProbe{URL: "://bad"}.Reachable(context.Background())
	require.Error(t, err)
}
