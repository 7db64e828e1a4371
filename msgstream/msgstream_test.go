package msgstream_test

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shinemost/kvbroker/msgstream"
	"github.com/shinemost/kvbroker/wire"
)

func TestSendRecvRequestResponse(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	client := msgstream.New(clientConn)
	server := msgstream.New(serverConn)
	ctx := context.Background()

	req := &wire.CommandRequest{Hget: &wire.HgetRequest{Table: "t1", Key: "hello"}}

	errCh := make(chan error, 1)
	go func() { errCh <- client.SendRequest(ctx, req) }()

	got, err := server.RecvRequest(ctx)
	require.NoError(t, err)
	require.NoError(t, <-errCh)
	require.Equal(t, "t1", got.Hget.Table)
	require.Equal(t, "hello", got.Hget.Key)

	resp := wire.OK(wire.StringValue("world"))
	go func() { errCh <- server.SendResponse(ctx, resp) }()

	gotResp, err := client.RecvResponse(ctx)
	require.NoError(t, err)
	require.NoError(t, <-errCh)
	require.Equal(t, uint32(200), gotResp.Status)
	require.Equal(t, "world", gotResp.Values[0].Str)
}
