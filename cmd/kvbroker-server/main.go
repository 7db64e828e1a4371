// Command kvbroker-server runs the key-value and pub/sub broker daemon.
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shinemost/kvbroker/broker"
	"github.com/shinemost/kvbroker/config"
	kvlog "github.com/shinemost/kvbroker/internal/log"
	"github.com/shinemost/kvbroker/internal/metrics"
	"github.com/shinemost/kvbroker/securestream"
	"github.com/shinemost/kvbroker/securestream/pskstream"
	"github.com/shinemost/kvbroker/securestream/tlsstream"
	"github.com/shinemost/kvbroker/server"
	"github.com/shinemost/kvbroker/service"
	"github.com/shinemost/kvbroker/storage"
	"github.com/shinemost/kvbroker/storage/boltstore"
	"github.com/shinemost/kvbroker/storage/memory"
)

func main() {
	cfgPath := flag.String("f", "kvbroker-server.toml", "path to configuration file")
	flag.Parse()

	cfg, err := config.LoadServerConfig(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logBackend, err := kvlog.New(nil, cfg.Logging.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logBackend.GetLogger("kvbroker-server")

	backend, err := newBackend(cfg.Storage)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer backend.Close()

	provider, err := newProvider(cfg.TLS)
	if err != nil {
		log.Fatalf("tls: %v", err)
	}

	bc := broker.New(logBackend.GetLogger("broker"))
	svc := service.New(backend, bc, service.Interceptors{})

	srv := server.New(logBackend.GetLogger("server"), cfg.General.Addr, provider, svc)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.ListenAndServe(ctx); err != nil {
		log.Fatalf("listen: %v", err)
	}
	log.Infof("listening on %s", srv.Addr())

	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil {
				log.Warningf("metrics server: %v", err)
			}
		}()
		log.Infof("metrics listening on %s", cfg.Metrics.Addr)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	srv.Halt()
	bc.Halt()
}

func newBackend(cfg config.Storage) (storage.Backend, error) {
	switch cfg.Kind {
	case config.StorageMemory, "":
		return memory.New(), nil
	case config.StorageEmbeddedLog:
		return boltstore.Open(cfg.Path)
	default:
		return nil, fmt.Errorf("unsupported storage kind %q", cfg.Kind)
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
