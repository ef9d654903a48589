package common_test

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/HodayaSing/ai-pos/internal/common"
)

func TestClientIP(t *testing.T) {
	cases := []struct {
		name    string
		xff     string
		realIP  string
		remote  string
		want    string
		network string
	}{
		{name: "forwarded first valid", xff: "junk, 203.0.113.7, 10.0.0.1", remote: "10.0.0.2:5000", want: "203.0.113.7", network: "203.0.113.7"},
		{name: "real ip", realIP: " 198.51.100.4 ", remote: "10.0.0.2:5000", want: "198.51.100.4", network: "198.51.100.4"},
		{name: "remote addr", remote: "192.0.2.1:443", want: "192.0.2.1", network: "192.0.2.1"},
		{name: "mapped v4", remote: "[::ffff:192.0.2.9]:80", want: "192.0.2.9", network: "192.0.2.9"},
		{name: "v6 network", xff: "2001:db8:1:2:aaaa::1", remote: "10.0.0.2:1", want: "2001:db8:1:2:aaaa::1", network: "2001:db8:1:2::/64"},
		{name: "unparseable remote", remote: "pipe", want: "pipe", network: "pipe"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/ai/search", nil)
			req.RemoteAddr = tc.remote
			if tc.xff != "" {
				req.Header.Set("X-Forwarded-For", tc.xff)
			}
			if tc.realIP != "" {
				req.Header.Set("X-Real-IP", tc.realIP)
			}
			require.Equal(t, tc.want, common.ClientIP(req))
			require.Equal(t, tc.network, common.ClientNetwork(req))
		})
	}
	require.Empty(t, common.ClientIP(nil))
}
