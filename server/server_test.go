package server

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shinemost/kvbroker/broker"
	"github.com/shinemost/kvbroker/msgstream"
	"github.com/shinemost/kvbroker/service"
	"github.com/shinemost/kvbroker/storage/memory"
	"github.com/shinemost/kvbroker/wire"
)

func TestHandleStreamForwardsUnaryResponse(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	svc := service.New(memory.New(), broker.New(nil), service.Interceptors{})
	srv := &Server{svc: svc}

	ctx := context.Background()
	done := make(chan struct{})
	go func() {
		srv.handleStream(ctx, msgstream.New(serverConn))
		close(done)
	}()

	client := msgstream.New(clientConn)
	req := &wire.CommandRequest{Hget: &wire.HgetRequest{Table: "t", Key: "missing"}}
	require.NoError(t, client.SendRequest(ctx, req))

	resp, err := client.RecvResponse(ctx)
	require.NoError(t, err)
	require.Equal(t, uint32(404), resp.Status)

	<-done
}

func TestHandleStreamForwardsEveryStreamingResponse(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	svc := service.New(memory.New(), broker.New(nil), service.Interceptors{})
	srv := &Server{svc: svc}

	ctx := context.Background()
	done := make(chan struct{})
	go func() {
		srv.handleStream(ctx, msgstream.New(serverConn))
		close(done)
	}()

	client := msgstream.New(clientConn)
	req := &wire.CommandRequest{Subscribe: &wire.SubscribeRequest{Topic: "lobby"}}
	require.NoError(t, client.SendRequest(ctx, req))

	ack, err := client.RecvResponse(ctx)
	require.NoError(t, err)
	require.Equal(t, uint32(200), ack.Status)
	require.NotZero(t, ack.Values[0].Int)

	// the subscribe stream stays open past the ack with nothing further
	// published, so handleStream's forwarding loop is still in flight;
	// intentionally not awaiting done here.
}
