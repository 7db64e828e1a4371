// Command kvbroker-client is a small interactive/scripted client for
// issuing key-value commands and subscribing to topics against a
// kvbroker-server instance.
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/shinemost/kvbroker/client"
	"github.com/shinemost/kvbroker/config"
	"github.com/shinemost/kvbroker/securestream"
	"github.com/shinemost/kvbroker/securestream/pskstream"
	"github.com/shinemost/kvbroker/securestream/tlsstream"
	"github.com/shinemost/kvbroker/wire"
)

func main() {
	cfgPath := flag.String("f", "kvbroker-client.toml", "path to configuration file")
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: kvbroker-client -f config.toml <hget|hset|hgetall|subscribe|publish> ...")
		os.Exit(2)
	}

	cfg, err := config.LoadClientConfig(*cfgPath)
	if err != nil {
		fatal(err)
	}
	provider, err := newProvider(cfg.TLS)
	if err != nil {
		fatal(err)
	}

	ctx := context.Background()
	sess, err := client.Dial(ctx, cfg.General.Addr, provider)
	if err != nil {
		fatal(err)
	}
	defer sess.Close()

	req, err := buildRequest(args)
	if err != nil {
		fatal(err)
	}

	if req.IsStreaming() && req.Subscribe != nil {
		runSubscribe(ctx, sess, req)
		return
	}

	resp, err := sess.ExecuteUnary(ctx, req)
	if err != nil {
		fatal(err)
	}
	printResponse(resp)
}

func runSubscribe(ctx context.Context, sess *client.Session, req *wire.CommandRequest) {
	id, respCh, stop, err := sess.ExecuteStream(ctx, req)
	if err != nil {
		fatal(err)
	}
	defer stop()
	fmt.Printf("subscribed id=%d\n", id)
	for resp := range respCh {
		printResponse(resp)
	}
}

func buildRequest(args []string) (*wire.CommandRequest, error) {
	switch args[0] {
	case "hget":
		if len(args) != 3 {
			return nil, fmt.Errorf("usage: hget <table> <key>")
		}
		return &wire.CommandRequest{Hget: &wire.HgetRequest{Table: args[1], Key: args[2]}}, nil
	case "hset":
		if len(args) != 4 {
			return nil, fmt.Errorf("usage: hset <table> <key> <value>")
		}
		return &wire.CommandRequest{Hset: &wire.HsetRequest{
			Table: args[1],
			Pair:  wire.Kvpair{Key: args[2], Value: wire.StringValue(args[3])},
		}}, nil
	case "hgetall":
		if len(args) != 2 {
			return nil, fmt.Errorf("usage: hgetall <table>")
		}
		return &wire.CommandRequest{Hgetall: &wire.HgetallRequest{Table: args[1]}}, nil
	case "hdel":
		if len(args) != 3 {
			return nil, fmt.Errorf("usage: hdel <table> <key>")
		}
		return &wire.CommandRequest{Hdel: &wire.HdelRequest{Table: args[1], Key: args[2]}}, nil
	case "subscribe":
		if len(args) != 2 {
			return nil, fmt.Errorf("usage: subscribe <topic>")
		}
		return &wire.CommandRequest{Subscribe: &wire.SubscribeRequest{Topic: args[1]}}, nil
	case "publish":
		if len(args) < 3 {
			return nil, fmt.Errorf("usage: publish <topic> <value>...")
		}
		values := make([]wire.Value, 0, len(args)-2)
		for _, v := range args[2:] {
			values = append(values, wire.StringValue(v))
		}
		return &wire.CommandRequest{Publish: &wire.PublishRequest{Topic: args[1], Values: values}}, nil
	default:
		return nil, fmt.Errorf("unknown command %q", args[0])
	}
}

func printResponse(resp *wire.CommandResponse) {
	if resp.Status != 200 {
		fmt.Fprintf(os.Stderr, "error %d: %s\n", resp.Status, resp.Message)
		return
	}
	parts := make([]string, 0, len(resp.Values))
	for _, v := range resp.Values {
		parts = append(parts, valueString(v))
	}
	for _, p := range resp.Pairs {
		parts = append(parts, p.Key+"="+valueString(p.Value))
	}
	fmt.Println(strings.Join(parts, " "))
}

func valueString(v wire.Value) string {
	switch v.Kind {
	case wire.KindString:
		return v.Str
	case wire.KindBytes:
		return hex.EncodeToString(v.Bytes)
	case wire.KindInt:
		return fmt.Sprintf("%d", v.Int)
	case wire.KindFloat:
		return fmt.Sprintf("%g", v.Float)
	case wire.KindBool:
		return fmt.Sprintf("%t", v.Bool)
	default:
		return ""
	}
}

func newProvider(cfg config.TLS) (securestream.Provider, error) {
	switch cfg.Kind {
	case config.TLSCert, "":
		return tlsstream.New(cfg.Certificate, cfg.Key, cfg.CA, cfg.Domain), nil
	case config.TLSPSK:
		secret, err := hex.DecodeString(cfg.PSK)
		if err != nil {
			return nil, fmt.Errorf("tls.psk must be hex-encoded: %w", err)
		}
		return pskstream.New(secret), nil
	default:
		return nil, fmt.Errorf("unsupported tls kind %q", cfg.Kind)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
