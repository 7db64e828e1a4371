// Package server implements the accept loop: secure handshake, one
// mux.Session per connection, one substream per logical request stream,
// dispatched independently and without head-of-line blocking between
// siblings.
package server

import (
	"context"
	"errors"
	"io"

	logging "gopkg.in/op/go-logging.v1"

	"github.com/shinemost/kvbroker/msgstream"
	"github.com/shinemost/kvbroker/mux"
	"github.com/shinemost/kvbroker/securestream"
	"github.com/shinemost/kvbroker/service"
	"github.com/shinemost/kvbroker/internal/worker"
)

// Server accepts connections on a listen address, secures each one via a
// securestream.Provider, and dispatches every substream's single request
// through a service.Service.
type Server struct {
	worker.Worker

	log      *logging.Logger
	addr     string
	provider securestream.Provider
	svc      service.Service

	ln *mux.Listener
}

// New builds a Server. Call ListenAndServe to start accepting.
func New(log *logging.Logger, addr string, provider securestream.Provider, svc service.Service) *Server {
	return &Server{log: log, addr: addr, provider: provider, svc: svc}
}

// ListenAndServe binds addr and runs the accept loop in the background. It
// returns once the listener is bound; call Halt to stop serving.
func (s *Server) ListenAndServe(ctx context.Context) error {
	tlsConfig, err := s.provider.ServerTLSConfig(ctx)
	if err != nil {
		return err
	}
	ln, err := mux.Listen(s.addr, tlsConfig)
	if err != nil {
		return err
	}
	s.ln = ln

	s.Go(func() { s.acceptLoop(ctx) })
	return nil
}

// Addr returns the bound listen address.
func (s *Server) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr()
}

func (s *Server) acceptLoop(ctx context.Context) {
	for {
		select {
		case <-s.HaltCh():
			return
		default:
		}

		sess, err := s.ln.Accept(ctx)
		if err != nil {
			if s.log != nil {
				s.log.Debugf("accept: %v", err)
			}
			select {
			case <-s.HaltCh():
				return
			default:
				continue
			}
		}
		s.Go(func() { s.serveSession(ctx, sess) })
	}
}

// serveSession accepts every substream the peer opens on one connection
// and dispatches each independently, so a slow or stuck substream never
// blocks its siblings.
func (s *Server) serveSession(ctx context.Context, sess mux.Session) {
	defer sess.Close()
	for {
		select {
		case <-s.HaltCh():
			return
		default:
		}

		sub, err := sess.AcceptStream(ctx)
		if err != nil {
			return
		}
		s.Go(func() { s.serveSubstream(ctx, sub) })
	}
}

// serveSubstream reads exactly one CommandRequest, executes it, and
// forwards every CommandResponse the service produces back in order
// before closing the substream.
func (s *Server) serveSubstream(ctx context.Context, sub mux.Substream) {
	defer sub.Close()
	s.handleStream(ctx, msgstream.New(sub))
}

// handleStream runs the request/response half of serveSubstream against
// an already-wrapped msgstream.Stream, split out so it can be exercised
// in tests over a net.Pipe without a real mux.Substream.
func (s *Server) handleStream(ctx context.Context, stream *msgstream.Stream) {
	req, err := stream.RecvRequest(ctx)
	if err != nil {
		if !errors.Is(err, io.EOF) && s.log != nil {
			s.log.Warningf("recv request: %v", err)
		}
		return
	}

	for resp := range s.svc.Execute(ctx, req) {
		if err := stream.SendResponse(ctx, resp); err != nil {
			if s.log != nil {
				s.log.Warningf("send response: %v", err)
			}
			return
		}
	}
}

// Halt stops the accept loop and closes the listener, then waits for
// every in-flight session and substream goroutine to return.
func (s *Server) Halt() {
	if s.ln != nil {
		s.ln.Close()
	}
	s.Worker.Halt()
}
