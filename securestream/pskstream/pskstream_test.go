package pskstream_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shinemost/kvbroker/securestream/pskstream"
)

func TestDerivedConfigsAreDeterministic(t *testing.T) {
	secret := []byte("a shared secret known to both peers")
	ctx := context.Background()

	client := pskstream.New(secret)
	server := pskstream.New(secret)

	clientCfg, err := client.ClientTLSConfig(ctx)
	require.NoError(t, err)
	serverCfg, err := server.ServerTLSConfig(ctx)
	require.NoError(t, err)

	require.Equal(t, clientCfg.Certificates[0].Certificate[0], serverCfg.Certificates[0].Certificate[0])
}

func TestMismatchedSecretsProduceDifferentCertificates(t *testing.T) {
	ctx := context.Background()
	a := pskstream.New([]byte("secret-a"))
	b := pskstream.New([]byte("secret-b"))

	ca, err := a.ServerTLSConfig(ctx)
	require.NoError(t, err)
	cb, err := b.ServerTLSConfig(ctx)
	require.NoError(t, err)

	require.NotEqual(t, ca.Certificates[0].Certificate[0], cb.Certificates[0].Certificate[0])
}
