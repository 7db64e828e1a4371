package wire

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"

	kverrors "github.com/shinemost/kvbroker/internal/errors"
	"github.com/shinemost/kvbroker/internal/metrics"
)

const (
	// CompressThreshold is the uncompressed payload size, in bytes, at or
	// above which a frame is gzip-compressed.
	CompressThreshold = 1436
	// compressBit is the top bit of the 4-byte header.
	compressBit  = uint32(1) << 31
	lengthMask   = compressBit - 1
	headerLength = 4
)

// EncodeFrame writes payload to w as a length-prefixed frame, compressing
// it with gzip level 6 when it is at or above CompressThreshold bytes.
func EncodeFrame(w io.Writer, payload []byte) error {
	body := payload
	compressed := false
	if len(payload) >= CompressThreshold {
		var buf bytes.Buffer
		gz, err := gzip.NewWriterLevel(&buf, 6)
		if err != nil {
			return fmt.Errorf("%w: gzip writer: %s", kverrors.ErrInvalidFrame, err)
		}
		if _, err := gz.Write(payload); err != nil {
			return fmt.Errorf("%w: gzip write: %s", kverrors.ErrInvalidFrame, err)
		}
		if err := gz.Close(); err != nil {
			return fmt.Errorf("%w: gzip close: %s", kverrors.ErrInvalidFrame, err)
		}
		body = buf.Bytes()
		compressed = true
	}
	if uint64(len(body)) > uint64(lengthMask) {
		return fmt.Errorf("%w: payload too large: %d bytes", kverrors.ErrInvalidFrame, len(body))
	}
	header := uint32(len(body))
	if compressed {
		header |= compressBit
	}
	var hdr [headerLength]byte
	binary.BigEndian.PutUint32(hdr[:], header)
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	if _, err := w.Write(body); err != nil {
		return err
	}
	metrics.FramesSent.Inc()
	return nil
}

// DecodeFrame reads one length-prefixed frame from r, decompressing it if
// the compression bit was set, and returns the raw message payload.
func DecodeFrame(r io.Reader) ([]byte, error) {
	var hdr [headerLength]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: header read: %s", kverrors.ErrInvalidFrame, err)
	}
	header := binary.BigEndian.Uint32(hdr[:])
	compressed := header&compressBit != 0
	length := header & lengthMask

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("%w: payload read: %s", kverrors.ErrInvalidFrame, err)
	}

	if compressed {
		gz, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("%w: gzip reader: %s", kverrors.ErrInvalidFrame, err)
		}
		defer gz.Close()
		decoded, err := io.ReadAll(gz)
		if err != nil {
			return nil, fmt.Errorf("%w: gzip read: %s", kverrors.ErrInvalidFrame, err)
		}
		body = decoded
	}
	metrics.FramesReceived.Inc()
	return body, nil
}
