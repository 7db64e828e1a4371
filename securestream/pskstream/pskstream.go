// Package pskstream implements securestream.Provider with a pre-shared
// secret in place of a certificate authority: both peers derive the same
// ed25519 identity and self-signed certificate from the secret via HKDF,
// then verify the peer presented that exact certificate, a Noise-like
// alternative to certificate-based TLS for deployments with no CA,
// adapting an hkdf-then-derive-key idiom to certificate identity instead
// of payload sealing.
package pskstream

import (
	"bytes"
	"context"
	cryptorand "crypto/rand"
	"crypto/ed25519"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"io"
	"math/big"
	"time"

	"golang.org/x/crypto/hkdf"

	kverrors "github.com/shinemost/kvbroker/internal/errors"
)

const (
	seedInfo   = "kvbroker-pskstream-seed"
	serialInfo = "kvbroker-pskstream-serial"
)

// fixed validity window: deterministic so both peers derive byte-identical
// certificates from the same secret.
var (
	notBefore = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	notAfter  = time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC)
)

// Provider builds a TLS identity deterministically from a pre-shared key.
type Provider struct {
	secret []byte
}

// New builds a Provider from a pre-shared secret. The secret should be
// high-entropy and known only to the two peers.
func New(secret []byte) *Provider {
	return &Provider{secret: secret}
}

func (p *Provider) derive() (tls.Certificate, *x509.Certificate, error) {
	seed := make([]byte, ed25519.SeedSize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, p.secret, nil, []byte(seedInfo)), seed); err != nil {
		return tls.Certificate{}, nil, fmt.Errorf("%w: derive seed: %s", kverrors.ErrHandshake, err)
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)

	serialBytes := make([]byte, 16)
	if _, err := io.ReadFull(hkdf.New(sha256.New, p.secret, nil, []byte(serialInfo)), serialBytes); err != nil {
		return tls.Certificate{}, nil, fmt.Errorf("%w: derive serial: %s", kverrors.ErrHandshake, err)
	}
	serial := new(big.Int).SetBytes(serialBytes)

	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: "kvbroker-psk"},
		NotBefore:             notBefore,
		NotAfter:              notAfter,
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
	}
	// ed25519 signing is deterministic and does not consume randomness,
	// so both peers produce byte-identical certificates from crypto/rand.
	der, err := x509.CreateCertificate(cryptorand.Reader, template, template, pub, priv)
	if err != nil {
		return tls.Certificate{}, nil, fmt.Errorf("%w: create certificate: %s", kverrors.ErrCertificateParse, err)
	}
	leaf, err := x509.ParseCertificate(der)
	if err != nil {
		return tls.Certificate{}, nil, fmt.Errorf("%w: parse certificate: %s", kverrors.ErrCertificateParse, err)
	}
	cert := tls.Certificate{Certificate: [][]byte{der}, PrivateKey: priv, Leaf: leaf}
	return cert, leaf, nil
}

func (p *Provider) tlsConfig() (*tls.Config, error) {
	cert, expected, err := p.derive()
	if err != nil {
		return nil, err
	}
	expectedDER := expected.Raw
	verify := func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
		if len(rawCerts) == 0 {
			return fmt.Errorf("%w: peer presented no certificate", kverrors.ErrHandshake)
		}
		if !bytes.Equal(rawCerts[0], expectedDER) {
			return fmt.Errorf("%w: peer certificate does not match pre-shared identity", kverrors.ErrHandshake)
		}
		return nil
	}
	return &tls.Config{
		Certificates:          []tls.Certificate{cert},
		InsecureSkipVerify:    true, // identity is checked by VerifyPeerCertificate instead of a CA chain
		ClientAuth:            tls.RequireAnyClientCert,
		VerifyPeerCertificate: verify,
		NextProtos:            []string{"kvbroker"},
	}, nil
}

// ServerTLSConfig implements securestream.Provider.
func (p *Provider) ServerTLSConfig(context.Context) (*tls.Config, error) { return p.tlsConfig() }

// ClientTLSConfig implements securestream.Provider.
func (p *Provider) ClientTLSConfig(context.Context) (*tls.Config, error) { return p.tlsConfig() }
