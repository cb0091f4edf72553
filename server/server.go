package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/acme/autocert"
)

const (
	DefaultPort    = "8080"
	DefaultTLSMode = TLSModeAutoCert

	TLSModeAutoCert = "autocert"
	TLSModeFile     = "file"

	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 5 * time.Second
)

type Server struct {
	Port string
	Host string
	TLS  ServerTLS
}

type ServerTLS struct {
	Enabled  bool
	Mode     string
	AutoCert *ServerTLSAutoCert
	CertFile string
	KeyFile  string
}

type ServerTLSAutoCert struct {
	CacheDir string
	Domains  []string
	Email    string
}

type UnsupportedTLSModeError struct {
	Mode string
}

func (err UnsupportedTLSModeError) Error() string {
	return fmt.Sprintf("unsupported tls mode %q", err.Mode)
}

func (s *Server) Addr() string {
	return net.JoinHostPort(s.Host, s.Port)
}

// Run serves handler until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, handler http.Handler) error {
	srv := &http.Server{
		Addr:              s.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serve, err := s.serveFunc(ctx, srv)
	if err != nil {
		return err
	}

	serveErrCh := make(chan error, 1)

	go func() {
		err := serve()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}

		close(serveErrCh)
	}()

	select {
	case <-ctx.Done():
		slog.InfoContext(ctx, "shutdown requested")
	case err := <-serveErrCh:
		if err != nil {
			return fmt.Errorf("failed to serve: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	err = srv.Shutdown(shutdownCtx)
	if err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	slog.InfoContext(ctx, "server stopped")

	return nil
}

func (s *Server) serveFunc(ctx context.Context, srv *http.Server) (func() error, error) {
	if !s.TLS.Enabled {
		slog.InfoContext(ctx, "server listening", "address", "http://"+srv.Addr)

		return srv.ListenAndServe, nil
	}

	switch s.TLS.Mode {
	case TLSModeAutoCert:
		if s.TLS.AutoCert == nil || len(s.TLS.AutoCert.Domains) == 0 {
			return nil, errors.New("autocert requires at least one domain")
		}

		manager := &autocert.Manager{
			Prompt:     autocert.AcceptTOS,
			Cache:      autocert.DirCache(s.TLS.AutoCert.CacheDir),
			HostPolicy: autocert.HostWhitelist(s.TLS.AutoCert.Domains...),
			Email:      s.TLS.AutoCert.Email,
		}

		srv.TLSConfig = manager.TLSConfig()

		slog.InfoContext(ctx, "server listening", "address", domainsToHTTPSAddress(s.TLS.AutoCert.Domains))

		return func() error { return srv.ListenAndServeTLS("", "") }, nil
	case TLSModeFile:
		if s.TLS.CertFile == "" || s.TLS.KeyFile == "" {
			return nil, errors.New("tls file mode requires cert and key files")
		}

		slog.InfoContext(ctx, "server listening", "address", "https://"+srv.Addr)

		return func() error { return srv.ListenAndServeTLS(s.TLS.CertFile, s.TLS.KeyFile) }, nil
	default:
		return nil, UnsupportedTLSModeError{Mode: s.TLS.Mode}
	}
}

func domainsToHTTPSAddress(domains []string) string {
	addresses := make([]string, 0, len(domains))

	for _, domain := range domains {
		addresses = append(addresses, "https://"+domain)
	}

	return strings.Join(addresses, ", ")
}
