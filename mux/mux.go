// Package mux provides the connection multiplexer: one secure
// connection carrying many independent logical substreams with no
// head-of-line blocking between them. QUIC's native stream multiplexing
// already gives us exactly this contract, hanging a *tls.Config straight
// off quic-go.
package mux

import (
	"context"
	"crypto/tls"
	"fmt"

	quic "github.com/quic-go/quic-go"
)

// Substream is one independent, full-duplex logical byte channel. It can
// be closed without affecting any sibling substream.
type Substream = quic.Stream

// quicConfig keeps stream-level limits generous so a slow reader on one
// substream cannot stall the others, per no-head-of-line-blocking
// invariant.
func quicConfig() *quic.Config {
	return &quic.Config{
		MaxIncomingStreams:    1 << 16,
		MaxIncomingUniStreams: -1,
	}
}

// Session is the server- or client-side view of one multiplexed
// connection.
type Session interface {
	// OpenStream opens a new logical substream (client side).
	OpenStream(ctx context.Context) (Substream, error)
	// AcceptStream waits for the next logical substream opened by the
	// peer (server side).
	AcceptStream(ctx context.Context) (Substream, error)
	// Close tears down every substream and the underlying connection.
	Close() error
}

type session struct {
	conn quic.Connection
}

func (s *session) OpenStream(ctx context.Context) (Substream, error) {
	stream, err := s.conn.OpenStreamSync(ctx)
	if err != nil {
		return nil, fmt.Errorf("mux: open stream: %w", err)
	}
	return stream, nil
}

func (s *session) AcceptStream(ctx context.Context) (Substream, error) {
	stream, err := s.conn.AcceptStream(ctx)
	if err != nil {
		return nil, fmt.Errorf("mux: accept stream: %w", err)
	}
	return stream, nil
}

func (s *session) Close() error {
	return s.conn.CloseWithError(0, "closed")
}

// Listener accepts new multiplexed Sessions, one per incoming connection.
type Listener struct {
	ln *quic.Listener
}

// Listen starts a QUIC listener on addr using the given TLS configuration,
// built by a securestream.Provider's ServerTLSConfig.
func Listen(addr string, tlsConfig *tls.Config) (*Listener, error) {
	ln, err := quic.ListenAddr(addr, tlsConfig, quicConfig())
	if err != nil {
		return nil, fmt.Errorf("mux: listen %s: %w", addr, err)
	}
	return &Listener{ln: ln}, nil
}

// Accept waits for and returns the next incoming Session.
func (l *Listener) Accept(ctx context.Context) (Session, error) {
	conn, err := l.ln.Accept(ctx)
	if err != nil {
		return nil, fmt.Errorf("mux: accept: %w", err)
	}
	return &session{conn: conn}, nil
}

// Addr returns the listener's local address.
func (l *Listener) Addr() string {
	return l.ln.Addr().String()
}

// Close shuts down the listener; already-accepted Sessions are unaffected.
func (l *Listener) Close() error {
	return l.ln.Close()
}

// Dial opens a new Session to addr using the given TLS configuration,
// built by a securestream.Provider's ClientTLSConfig.
func Dial(ctx context.Context, addr string, tlsConfig *tls.Config) (Session, error) {
	conn, err := quic.DialAddrContext(ctx, addr, tlsConfig, quicConfig())
	if err != nil {
		return nil, fmt.Errorf("mux: dial %s: %w", addr, err)
	}
	return &session{conn: conn}, nil
}
