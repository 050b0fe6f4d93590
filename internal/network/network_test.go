package network

import (
	"net/http/httptest"
	"testing"
)

func TestForwardedFor(t *testing.T) {
	t.Parallel()

	cases := []struct{ in, want string }{
		{"for=10.10.10.10;host=example.com;proto=http", "10.10.10.10"},
		{"for=10.10.10.10;host=example.com, for=1.1.1.1", "10.10.10.10"},
		{"host=example.com;For=192.0.2.60", "192.0.2.60"},
		{`for="[2001:db8:cafe::17]:4711"`, "[2001:db8:cafe::17]:4711"},
		{"host", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := ForwardedFor(tc.in); got != tc.want {
			t.Fatalf("ForwardedFor(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRemoteAddr(t *testing.T) {
	t.Parallel()

	t.Run("socket peer", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = "1.2.3.4:5678"
		if got := RemoteAddr(req); got != "1.2.3.4" {
			t.Fatalf("expected 1.2.3.4, got %s", got)
		}
	})

	t.Run("forwarded wins", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = "1.2.3.4:5678"
		req.Header.Set("Forwarded", "for=10.10.10.10;host=example.com;proto=http")
		if got := RemoteAddr(req); got != "10.10.10.10" {
			t.Fatalf("expected forwarded address, got %s", got)
		}
	})

	t.Run("malformed forwarded falls back", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = "1.2.3.4:5678"
		req.Header.Set("Forwarded", "host")
		if got := RemoteAddr(req); got != "1.2.3.4" {
			t.Fatalf("expected socket peer, got %s", got)
		}
	})

	t.Run("address without port", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = "1.2.3.4"
		if got := RemoteAddr(req); got != "1.2.3.4" {
			t.Fatalf("expected raw address, got %s", got)
		}
	})
}
