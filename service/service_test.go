package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shinemost/kvbroker/broker"
	"github.com/shinemost/kvbroker/service"
	"github.com/shinemost/kvbroker/storage/memory"
	"github.com/shinemost/kvbroker/wire"
)

func newService(t *testing.T, interceptors service.Interceptors) service.Service {
	t.Helper()
	return service.New(memory.New(), broker.New(nil), interceptors)
}

func TestHsetThenHgetRoundTrip(t *testing.T) {
	svc := newService(t, service.Interceptors{})
	ctx := context.Background()

	setReq := &wire.CommandRequest{Hset: &wire.HsetRequest{
		Table: "t1",
		Pair:  wire.Kvpair{Key: "hello", Value: wire.StringValue("world")},
	}}
	setResp := <-svc.Execute(ctx, setReq)
	require.Equal(t, uint32(200), setResp.Status)

	getReq := &wire.CommandRequest{Hget: &wire.HgetRequest{Table: "t1", Key: "hello"}}
	getResp := <-svc.Execute(ctx, getReq)
	require.Equal(t, uint32(200), getResp.Status)
	require.Equal(t, "world", getResp.Values[0].Str)
}

func TestHgetMissingKeyReturns404(t *testing.T) {
	svc := newService(t, service.Interceptors{})
	resp := <-svc.Execute(context.Background(), &wire.CommandRequest{Hget: &wire.HgetRequest{Table: "t1", Key: "nope"}})
	require.Equal(t, uint32(404), resp.Status)
}

func TestEmptyCommandIsInvalid(t *testing.T) {
	svc := newService(t, service.Interceptors{})
	resp := <-svc.Execute(context.Background(), &wire.CommandRequest{})
	require.Equal(t, uint32(400), resp.Status)
}

func TestSubscribeRoutesToStreamingDispatch(t *testing.T) {
	svc := newService(t, service.Interceptors{})
	req := &wire.CommandRequest{Subscribe: &wire.SubscribeRequest{Topic: "lobby"}}
	ch := svc.Execute(context.Background(), req)

	ack := <-ch
	require.Equal(t, uint32(200), ack.Status)
	require.NotZero(t, ack.Values[0].Int)
}

func TestPublishThenSubscriberReceives(t *testing.T) {
	svc := newService(t, service.Interceptors{})
	ctx := context.Background()

	subCh := svc.Execute(ctx, &wire.CommandRequest{Subscribe: &wire.SubscribeRequest{Topic: "lobby"}})
	<-subCh // ack

	pubResp := <-svc.Execute(ctx, &wire.CommandRequest{Publish: &wire.PublishRequest{
		Topic:  "lobby",
		Values: []wire.Value{wire.StringValue("hi")},
	}})
	require.Equal(t, uint32(200), pubResp.Status)

	msg := <-subCh
	require.Equal(t, "hi", msg.Values[0].Str)
}

func TestOnReceivedShortCircuitsBeforeStorage(t *testing.T) {
	called := false
	svc := newService(t, service.Interceptors{
		OnReceived: []func(*wire.CommandRequest) *wire.CommandResponse{
			func(req *wire.CommandRequest) *wire.CommandResponse {
				called = true
				return wire.Error(403, "denied")
			},
		},
	})
	resp := <-svc.Execute(context.Background(), &wire.CommandRequest{Hget: &wire.HgetRequest{Table: "t", Key: "k"}})
	require.True(t, called)
	require.Equal(t, uint32(403), resp.Status)
}

func TestOnExecutedCanRewriteUnaryResponse(t *testing.T) {
	svc := newService(t, service.Interceptors{
		OnExecuted: []func(*wire.CommandResponse) *wire.CommandResponse{
			func(resp *wire.CommandResponse) *wire.CommandResponse {
				return wire.Error(500, "rewritten")
			},
		},
	})
	resp := <-svc.Execute(context.Background(), &wire.CommandRequest{Hget: &wire.HgetRequest{Table: "t", Key: "k"}})
	require.Equal(t, uint32(500), resp.Status)
}

func TestOnBeforeSendRunsAfterOnExecuted(t *testing.T) {
	var order []string
	svc := newService(t, service.Interceptors{
		OnExecuted: []func(*wire.CommandResponse) *wire.CommandResponse{
			func(resp *wire.CommandResponse) *wire.CommandResponse {
				order = append(order, "executed")
				return nil
			},
		},
		OnBeforeSend: []func(*wire.CommandResponse) *wire.CommandResponse{
			func(resp *wire.CommandResponse) *wire.CommandResponse {
				order = append(order, "before_send")
				return nil
			},
		},
	})
	<-svc.Execute(context.Background(), &wire.CommandRequest{Hget: &wire.HgetRequest{Table: "t", Key: "k"}})
	require.Equal(t, []string{"executed", "before_send"}, order)
}

func TestStreamingResponsesSkipOnExecutedAndOnBeforeSend(t *testing.T) {
	called := false
	svc := newService(t, service.Interceptors{
		OnExecuted: []func(*wire.CommandResponse) *wire.CommandResponse{
			func(resp *wire.CommandResponse) *wire.CommandResponse {
				called = true
				return nil
			},
		},
		OnBeforeSend: []func(*wire.CommandResponse) *wire.CommandResponse{
			func(resp *wire.CommandResponse) *wire.CommandResponse {
				called = true
				return nil
			},
		},
	})
	ch := svc.Execute(context.Background(), &wire.CommandRequest{Subscribe: &wire.SubscribeRequest{Topic: "lobby"}})
	<-ch
	require.False(t, called)
}
