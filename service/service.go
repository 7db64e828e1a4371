// Package service implements the dispatcher: routing a command to the
// unary storage path or the streaming broadcaster path, and running the
// four ordered interceptor chains around it.
package service

import (
	"context"

	kverrors "github.com/shinemost/kvbroker/internal/errors"
	"github.com/shinemost/kvbroker/broker"
	"github.com/shinemost/kvbroker/storage"
	"github.com/shinemost/kvbroker/wire"
)

// Interceptors holds the four ordered middleware chains. In the
// OnReceived, OnExecuted and OnBeforeSend chains, any entry that returns a
// non-nil response short-circuits the remainder of the chain and the
// Execute call. Execute never invokes OnAfterSend. Set up once before
// serving begins and read-only thereafter, so a Service value can be
// copied freely per connection.
type Interceptors struct {
	OnReceived   []func(*wire.CommandRequest) *wire.CommandResponse
	OnExecuted   []func(*wire.CommandResponse) *wire.CommandResponse
	OnBeforeSend []func(*wire.CommandResponse) *wire.CommandResponse
	OnAfterSend  []func() *wire.CommandResponse
}

// Service holds a storage capability, a broadcaster, and the interceptor
// chains. It is a small value type deliberately left cheap to copy so
// every accepted connection gets its own handle over the same storage
// and broadcaster.
type Service struct {
	Storage      storage.Backend
	Broker       *broker.Broadcaster
	Interceptors Interceptors
}

// New builds a Service over the given storage and broadcaster.
func New(backend storage.Backend, bc *broker.Broadcaster, interceptors Interceptors) Service {
	return Service{Storage: backend, Broker: bc, Interceptors: interceptors}
}

// Execute runs req through on_received, then unary-or-streaming dispatch,
// then (for unary results) on_executed/on_before_send, returning a
// channel of responses. The channel is closed once exhausted: size 1 for
// unary/short-circuited results, broker-fed for streaming. on_after_send
// is not run on either path.
func (s Service) Execute(ctx context.Context, req *wire.CommandRequest) <-chan *wire.CommandResponse {
	for _, hook := range s.Interceptors.OnReceived {
		if resp := hook(req); resp != nil {
			return oneShot(resp)
		}
	}

	unaryResp := s.dispatchUnary(ctx, req)
	if !unaryResp.IsSentinel() {
		for _, hook := range s.Interceptors.OnExecuted {
			if resp := hook(unaryResp); resp != nil {
				return oneShot(resp)
			}
		}
		for _, hook := range s.Interceptors.OnBeforeSend {
			if resp := hook(unaryResp); resp != nil {
				return oneShot(resp)
			}
		}
		return oneShot(unaryResp)
	}

	// Streaming responses never run on_executed/on_before_send per
	// message, and on_after_send does not fire here either.
	return s.dispatchStreaming(req)
}

func oneShot(resp *wire.CommandResponse) <-chan *wire.CommandResponse {
	ch := make(chan *wire.CommandResponse, 1)
	ch <- resp
	close(ch)
	return ch
}

// dispatchUnary handles the nine key-value command variants. It returns
// the zero-valued sentinel CommandResponse when req names none of them,
// signalling the caller to try dispatchStreaming.
func (s Service) dispatchUnary(ctx context.Context, req *wire.CommandRequest) *wire.CommandResponse {
	switch {
	case req.Hget != nil:
		return s.hget(ctx, req.Hget)
	case req.Hset != nil:
		return s.hset(ctx, req.Hset)
	case req.Hgetall != nil:
		return s.hgetall(ctx, req.Hgetall)
	case req.Hmget != nil:
		return s.hmget(ctx, req.Hmget)
	case req.Hmset != nil:
		return s.hmset(ctx, req.Hmset)
	case req.Hdel != nil:
		return s.hdel(ctx, req.Hdel)
	case req.Hmdel != nil:
		return s.hmdel(ctx, req.Hmdel)
	case req.Hexist != nil:
		return s.hexist(ctx, req.Hexist)
	case req.Hmexist != nil:
		return s.hmexist(ctx, req.Hmexist)
	default:
		return &wire.CommandResponse{}
	}
}

// dispatchStreaming handles Subscribe/Publish/Unsubscribe against the
// broadcaster, or a 400 for a wholly empty/unrecognized request.
func (s Service) dispatchStreaming(req *wire.CommandRequest) <-chan *wire.CommandResponse {
	switch {
	case req.Subscribe != nil:
		_, respCh := s.Broker.Subscribe(req.Subscribe.Topic)
		return respCh
	case req.Publish != nil:
		delivered := s.Broker.Publish(req.Publish.Topic, req.Publish.Values)
		_ = delivered
		return oneShot(wire.OK())
	case req.Unsubscribe != nil:
		if err := s.Broker.Unsubscribe(req.Unsubscribe.Topic, req.Unsubscribe.SubscriberID); err != nil {
			return oneShot(wire.Error(404, "Not found"))
		}
		return oneShot(wire.OK())
	default:
		return oneShot(wire.Error(kverrors.ToStatus(kverrors.Invalid("empty command")), "empty command"))
	}
}

func (s Service) hget(ctx context.Context, req *wire.HgetRequest) *wire.CommandResponse {
	v, ok, err := s.Storage.Get(ctx, req.Table, req.Key)
	if err != nil {
		return errResponse(err)
	}
	if !ok {
		return wire.Error(404, "Not found")
	}
	return wire.OK(v)
}

func (s Service) hset(ctx context.Context, req *wire.HsetRequest) *wire.CommandResponse {
	prev, had, err := s.Storage.Set(ctx, req.Table, req.Pair.Key, req.Pair.Value)
	if err != nil {
		return errResponse(err)
	}
	if !had {
		return wire.OK(wire.Value{})
	}
	return wire.OK(prev)
}

func (s Service) hgetall(ctx context.Context, req *wire.HgetallRequest) *wire.CommandResponse {
	pairs, err := s.Storage.GetAll(ctx, req.Table)
	if err != nil {
		return errResponse(err)
	}
	return wire.OKPairs(pairs)
}

func (s Service) hmget(ctx context.Context, req *wire.HmgetRequest) *wire.CommandResponse {
	values := make([]wire.Value, len(req.Keys))
	for i, k := range req.Keys {
		v, ok, err := s.Storage.Get(ctx, req.Table, k)
		if err != nil {
			return errResponse(err)
		}
		if ok {
			values[i] = v
		}
	}
	return wire.OK(values...)
}

func (s Service) hmset(ctx context.Context, req *wire.HmsetRequest) *wire.CommandResponse {
	for _, pair := range req.Pairs {
		if _, _, err := s.Storage.Set(ctx, req.Table, pair.Key, pair.Value); err != nil {
			return errResponse(err)
		}
	}
	return wire.OK()
}

func (s Service) hdel(ctx context.Context, req *wire.HdelRequest) *wire.CommandResponse {
	_, had, err := s.Storage.Del(ctx, req.Table, req.Key)
	if err != nil {
		return errResponse(err)
	}
	if !had {
		return wire.Error(404, "Not found")
	}
	return wire.OK()
}

func (s Service) hmdel(ctx context.Context, req *wire.HmdelRequest) *wire.CommandResponse {
	for _, k := range req.Keys {
		if _, _, err := s.Storage.Del(ctx, req.Table, k); err != nil {
			return errResponse(err)
		}
	}
	return wire.OK()
}

func (s Service) hexist(ctx context.Context, req *wire.HexistRequest) *wire.CommandResponse {
	ok, err := s.Storage.Contains(ctx, req.Table, req.Key)
	if err != nil {
		return errResponse(err)
	}
	return wire.OK(wire.BoolValue(ok))
}

func (s Service) hmexist(ctx context.Context, req *wire.HmexistRequest) *wire.CommandResponse {
	values := make([]wire.Value, len(req.Keys))
	for i, k := range req.Keys {
		ok, err := s.Storage.Contains(ctx, req.Table, k)
		if err != nil {
			return errResponse(err)
		}
		values[i] = wire.BoolValue(ok)
	}
	return wire.OK(values...)
}

func errResponse(err error) *wire.CommandResponse {
	return wire.Error(kverrors.ToStatus(err), err.Error())
}
