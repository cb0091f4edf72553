package server

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDomainsToHTTPSAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		domains  []string
		expected string
	}{
		{
			name:     "single domain",
			domains:  []string{"example.com"},
			expected: "https://example.com",
		},
		{
			name:     "multiple domains",
			domains:  []string{"example.com", "www.example.com"},
			expected: "https://example.com, https://www.example.com",
		},
		{
			name:     "no domains",
			domains:  []string{},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result := domainsToHTTPSAddress(tt.domains)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestServer_ServeFunc_TLSValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		tls  ServerTLS
	}{
		{name: "autocert without domains", tls: ServerTLS{Enabled: true, Mode: TLSModeAutoCert, AutoCert: &ServerTLSAutoCert{}}},
		{name: "file without cert", tls: ServerTLS{Enabled: true, Mode: TLSModeFile}},
		{name: "unknown mode", tls: ServerTLS{Enabled: true, Mode: "magic"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := &Server{Port: DefaultPort, TLS: tt.tls}

			_, err := s.serveFunc(context.Background(), &http.Server{Addr: s.Addr()}) //nolint:gosec
			assert.Error(t, err)
		})
	}
}

func TestServer_Run_StopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{Host: "127.0.0.1", Port: "0"}

	done := make(chan error, 1)

	go func() {
		done <- s.Run(ctx, http.NotFoundHandler())
	}()

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
