package client

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shinemost/kvbroker/msgstream"
	"github.com/shinemost/kvbroker/wire"
)

// These tests do not call ExecuteUnary/ExecuteStream, which need a real
// mux.Session; they exercise the same request/response sequence those
// methods perform directly against a msgstream.Stream over a net.Pipe,
// the same seam server_test.go uses.

func TestExecuteUnaryOverPipe(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	ctx := context.Background()
	go func() {
		stream := msgstream.New(serverConn)
		req, err := stream.RecvRequest(ctx)
		if err != nil {
			return
		}
		require.Equal(t, "hello", req.Hget.Key)
		stream.SendResponse(ctx, wire.OK(wire.StringValue("world")))
	}()

	stream := msgstream.New(clientConn)
	req := &wire.CommandRequest{Hget: &wire.HgetRequest{Table: "t", Key: "hello"}}
	require.NoError(t, stream.SendRequest(ctx, req))
	resp, err := stream.RecvResponse(ctx)
	require.NoError(t, err)
	require.Equal(t, "world", resp.Values[0].Str)
}

func TestExecuteStreamReceivesMultipleResponses(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	ctx := context.Background()
	go func() {
		stream := msgstream.New(serverConn)
		if _, err := stream.RecvRequest(ctx); err != nil {
			return
		}
		stream.SendResponse(ctx, wire.OK(wire.IntValue(1)))
		stream.SendResponse(ctx, wire.OK(wire.StringValue("first")))
		stream.SendResponse(ctx, wire.OK(wire.StringValue("second")))
	}()

	stream := msgstream.New(clientConn)
	req := &wire.CommandRequest{Subscribe: &wire.SubscribeRequest{Topic: "lobby"}}
	require.NoError(t, stream.SendRequest(ctx, req))

	ack, err := stream.RecvResponse(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), ack.Values[0].Int)

	m1, err := stream.RecvResponse(ctx)
	require.NoError(t, err)
	require.Equal(t, "first", m1.Values[0].Str)

	m2, err := stream.RecvResponse(ctx)
	require.NoError(t, err)
	require.Equal(t, "second", m2.Values[0].Str)
}
