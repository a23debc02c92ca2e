package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"google.golang.org/grpc"

	"github.com/jcmexdev/disqueria/internal/pkg/interceptors"
)

// Server serves one Registry over the command stream. Requests arriving on
// a stream are dispatched concurrently and their replies are written back
// as each handler finishes, so a slow command never delays a fast one.
type Server struct {
	registry *Registry
	grpc     *grpc.Server
}

// NewServer wraps registry in a gRPC server built with opts.
func NewServer(registry *Registry, opts ...grpc.ServerOption) *Server {
	s := &Server{
		registry: registry,
		grpc:     grpc.NewServer(opts...),
	}
	s.grpc.RegisterService(&serviceDesc, s)
	return s
}

// Serve accepts connections on lis until Stop or GracefulStop.
func (s *Server) Serve(lis net.Listener) error {
	slog.Info("command server listening", "addr", lis.Addr().String(), "commands", s.registry.Commands())
	return s.grpc.Serve(lis)
}

// Run listens on addr and serves until ctx is done, then stops gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	lis, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	stopped := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			slog.Info("shutting down command server", "addr", addr)
			s.GracefulStop()
		case <-stopped:
		}
	}()
	defer close(stopped)

	return s.Serve(lis)
}

// GracefulStop waits for open streams to finish.
func (s *Server) GracefulStop() { s.grpc.GracefulStop() }

// Stop closes every connection immediately. Outstanding calls on peers fail
// with a TransportError.
func (s *Server) Stop() { s.grpc.Stop() }

func (s *Server) exchange(stream grpc.ServerStream) error {
	ctx := stream.Context()

	var (
		sendMu sync.Mutex
		wg     sync.WaitGroup
	)
	// Replies may not be written after the handler returns.
	defer wg.Wait()

	for {
		var req Request
		if err := stream.RecvMsg(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		wg.Add(1)
		go func(req Request) {
			defer wg.Done()

			callCtx, cancel := interceptors.ExtractMetadata(ctx, req.Meta)
			reply := s.registry.Dispatch(callCtx, req)
			cancel()

			sendMu.Lock()
			defer sendMu.Unlock()
			if err := stream.SendMsg(&reply); err != nil {
				slog.WarnContext(ctx, "could not write reply",
					"command", req.Pattern.Cmd,
					"correlation_id", req.ID,
					"error", err,
				)
			}
		}(req)
	}
}
