// Package metrics serves the Prometheus registry of the market maker.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"pair-maker-go/infrastructure/logger"
)

// Server is a running metrics endpoint.
type Server struct {
	srv  *http.Server
	ln   net.Listener
	done chan error
}

// StartMetricsServer 启动Prometheus指标服务器；/metrics 用给定 handler，/healthz 返回 ok。
func StartMetricsServer(addr string, handler http.Handler, log *logger.Logger) (*Server, error) {
	if handler == nil {
		return nil, errors.New("metrics handler is required")
	}
	if log == nil {
		log = logger.NewNop()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listen %s: %w", addr, err)
	}
	s := &Server{
		srv:  &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		ln:   ln,
		done: make(chan error, 1),
	}
	go func() {
		err := s.srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		if err != nil {
			log.Error("metrics server stopped", zap.Error(err))
		}
		s.done <- err
	}()
	log.Info("metrics server started", zap.String("addr", ln.Addr().String()))
	return s, nil
}

// Addr 实际监听地址（addr 端口为 0 时有用）。
func (s *Server) Addr() string { return s.ln.Addr().String() }

// Shutdown 优雅关闭并等待 Serve 返回。
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.srv.Shutdown(ctx); err != nil {
		return err
	}
	select {
	case err := <-s.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
