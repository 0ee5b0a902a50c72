package clientip_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/storekit/pkg/clientip"
)

func TestResolver_Resolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "peer address", remote: "203.0.113.7:5555", want: "203.0.113.7"},
		{name: "peer without port", remote: "203.0.113.7", want: "203.0.113.7"},
		{
			name:    "cloudflare wins",
			headers: map[string]string{"CF-Connecting-IP": "198.51.100.1", "X-Forwarded-For": "198.51.100.2"},
			remote:  "10.0.0.1:80",
			want:    "198.51.100.1",
		},
		{
			name:    "first valid forwarded entry",
			headers: map[string]string{"X-Forwarded-For": "garbage, 198.51.100.2, 10.0.0.3"},
			remote:  "10.0.0.1:80",
			want:    "198.51.100.2",
		},
		{
			name:    "invalid headers fall back to peer",
			headers: map[string]string{"X-Real-IP": "not-an-ip"},
			remote:  "10.0.0.1:80",
			want:    "10.0.0.1",
		},
		{
			name:    "ipv6 is normalized",
			headers: map[string]string{"X-Real-IP": "2001:DB8:0:0:0:0:0:1"},
			remote:  "10.0.0.1:80",
			want:    "2001:db8::1",
		},
		{name: "nothing valid", remote: "unix-socket", want: ""},
	}

	res := clientip.Default()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, res.Resolve(r))
		})
	}
}

func TestResolver_UntrustedHeadersIgnored(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:80"
	r.Header.Set("X-Forwarded-For", "198.51.100.2")

	assert.Equal(t, "10.0.0.1", clientip.NewResolver().Resolve(r))
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	var got string
	h := clientip.Default().Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = clientip.Key(r)
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Real-IP", "198.51.100.9")
	h.ServeHTTP(httptest.NewRecorder(), r)

	assert.Equal(t, "198.51.100.9", got)
}

func TestLoggerExtractor(t *testing.T) {
	t.Parallel()

	extract := clientip.LoggerExtractor()

	_, ok := extract(context.Background())
	assert.False(t, ok)

	attr, ok := extract(clientip.WithContext(context.Background(), "198.51.100.9"))
	assert.True(t, ok)
	assert.Equal(t, "client_ip", attr.Key)
	assert.Equal(t, "198.51.100.9", attr.Value.String())
}
