// Package securestream defines the interface the rest of the core relies
// upon for transport confidentiality and integrity: something that
// can hand the multiplexer a *tls.Config for both dial and accept
// sides. Certificate-based and pre-shared-key implementations are both
// interchangeable Providers.
package securestream

import (
	"context"
	"crypto/tls"
)

// Provider builds the TLS configuration each side of a connection hands
// to the QUIC multiplexer. The core only ever depends on this interface.
type Provider interface {
	// ClientTLSConfig returns the configuration used by a dialing client.
	ClientTLSConfig(ctx context.Context) (*tls.Config, error)
	// ServerTLSConfig returns the configuration used by an accepting server.
	ServerTLSConfig(ctx context.Context) (*tls.Config, error)
}
