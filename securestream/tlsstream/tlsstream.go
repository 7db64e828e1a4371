// Package tlsstream implements securestream.Provider with ordinary
// certificate-based TLS, building a *tls.Config consumed directly by
// quic-go.
package tlsstream

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	kverrors "github.com/shinemost/kvbroker/internal/errors"
)

// Provider loads a certificate/key pair and optional CA from disk.
type Provider struct {
	CertFile string
	KeyFile  string
	CAFile   string
	Domain   string // SNI for the client side
}

// New builds a Provider from the given material.
func New(certFile, keyFile, caFile, domain string) *Provider {
	return &Provider{CertFile: certFile, KeyFile: keyFile, CAFile: caFile, Domain: domain}
}

func (p *Provider) loadCert() (tls.Certificate, error) {
	cert, err := tls.LoadX509KeyPair(p.CertFile, p.KeyFile)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("%w: %s", kverrors.ErrCertificateParse, err)
	}
	return cert, nil
}

func (p *Provider) loadCAPool() (*x509.CertPool, error) {
	if p.CAFile == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(p.CAFile)
	if err != nil {
		return nil, fmt.Errorf("%w: read CA: %s", kverrors.ErrCertificateParse, err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(raw) {
		return nil, fmt.Errorf("%w: CA file contains no usable certificates", kverrors.ErrCertificateParse)
	}
	return pool, nil
}

// ServerTLSConfig implements securestream.Provider.
func (p *Provider) ServerTLSConfig(_ context.Context) (*tls.Config, error) {
	cert, err := p.loadCert()
	if err != nil {
		return nil, err
	}
	pool, err := p.loadCAPool()
	if err != nil {
		return nil, err
	}
	cfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{"kvbroker"},
	}
	if pool != nil {
		cfg.ClientCAs = pool
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
	}
	return cfg, nil
}

// ClientTLSConfig implements securestream.Provider.
func (p *Provider) ClientTLSConfig(_ context.Context) (*tls.Config, error) {
	pool, err := p.loadCAPool()
	if err != nil {
		return nil, err
	}
	cfg := &tls.Config{
		ServerName: p.Domain,
		RootCAs:    pool,
		NextProtos: []string{"kvbroker"},
	}
	if p.CertFile != "" && p.KeyFile != "" {
		cert, err := p.loadCert()
		if err != nil {
			return nil, err
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	return cfg, nil
}
