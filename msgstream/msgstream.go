// Package msgstream wraps one mux.Substream with the frame codec,
// yielding typed Send/Recv of CommandRequest/CommandResponse messages.
// A mutex serializes writers so concurrent Sends never interleave
// frame bytes; concurrent Send and Recv are otherwise independent.
package msgstream

import (
	"context"
	"io"
	"sync"
	"time"

	kverrors "github.com/shinemost/kvbroker/internal/errors"
	"github.com/shinemost/kvbroker/wire"
)

// substream is the minimal surface msgstream needs from a mux.Substream;
// declared locally so tests can exercise Stream over a plain net.Pipe
// without pulling in quic-go.
type substream interface {
	io.Reader
	io.Writer
	io.Closer
	SetReadDeadline(time.Time) error
	SetWriteDeadline(time.Time) error
}

// Stream is a message-typed wrapper over one logical substream.
type Stream struct {
	sub substream
	mu  sync.Mutex // serializes Send; Recv has its own single reader
}

// New wraps sub as a message-typed Stream.
func New(sub substream) *Stream {
	return &Stream{sub: sub}
}

func applyDeadline(ctx context.Context, set func(time.Time) error) {
	if dl, ok := ctx.Deadline(); ok {
		set(dl)
	} else {
		set(time.Time{})
	}
}

// SendRequest frames and writes req. Safe to call concurrently with Recv*
// but not with another Send* on the same Stream.
func (s *Stream) SendRequest(ctx context.Context, req *wire.CommandRequest) error {
	b, err := req.Marshal()
	if err != nil {
		return kverrors.ErrEncode
	}
	return s.send(ctx, b)
}

// SendResponse frames and writes resp.
func (s *Stream) SendResponse(ctx context.Context, resp *wire.CommandResponse) error {
	b, err := resp.Marshal()
	if err != nil {
		return kverrors.ErrEncode
	}
	return s.send(ctx, b)
}

func (s *Stream) send(ctx context.Context, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	applyDeadline(ctx, s.sub.SetWriteDeadline)
	return wire.EncodeFrame(s.sub, payload)
}

// RecvRequest reads the next frame and decodes it as a CommandRequest.
// Returns io.EOF once the peer half-closes its write side.
func (s *Stream) RecvRequest(ctx context.Context) (*wire.CommandRequest, error) {
	b, err := s.recv(ctx)
	if err != nil {
		return nil, err
	}
	req, err := wire.UnmarshalRequest(b)
	if err != nil {
		return nil, kverrors.ErrDecode
	}
	return req, nil
}

// RecvResponse reads the next frame and decodes it as a CommandResponse.
func (s *Stream) RecvResponse(ctx context.Context) (*wire.CommandResponse, error) {
	b, err := s.recv(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := wire.UnmarshalResponse(b)
	if err != nil {
		return nil, kverrors.ErrDecode
	}
	return resp, nil
}

func (s *Stream) recv(ctx context.Context) ([]byte, error) {
	applyDeadline(ctx, s.sub.SetReadDeadline)
	return wire.DecodeFrame(s.sub)
}

// Close closes the underlying substream without affecting any sibling.
func (s *Stream) Close() error {
	return s.sub.Close()
}

// CloseWrite half-closes the stream's write side when the substream
// supports it (e.g. quic.Stream), letting the peer observe io.EOF after
// its last buffered read while this side can still receive. Substreams
// that do not support a half-close (like net.Pipe in tests) fall back to
// a full Close.
func (s *Stream) CloseWrite() error {
	type writeCloser interface {
		CloseWrite() error
	}
	if wc, ok := s.sub.(writeCloser); ok {
		return wc.CloseWrite()
	}
	return s.Close()
}
