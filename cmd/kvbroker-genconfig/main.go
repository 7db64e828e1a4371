// Command kvbroker-genconfig writes a starter server or client TOML
// configuration file: a generator binary that emits a filled-in
// template rather than requiring hand-written TOML from scratch.
package main

import (
	"flag"
	"fmt"
	"os"
	"text/template"
)

const serverTemplate = `[general]
addr = "{{.Addr}}"

[storage]
kind = "{{.StorageKind}}"
path = "{{.StoragePath}}"

[server]
kind = "{{.TLSKind}}"
certificate = "{{.Cert}}"
key = "{{.Key}}"
ca = "{{.CA}}"

[metrics]
addr = "{{.MetricsAddr}}"

[log]
level = "info"
rotation = "never"
enable_log_file = false
`

const clientTemplate = `[general]
addr = "{{.Addr}}"

[client]
kind = "{{.TLSKind}}"
certificate = "{{.Cert}}"
key = "{{.Key}}"
ca = "{{.CA}}"
domain = "{{.Domain}}"

[log]
level = "info"
rotation = "never"
enable_log_file = false
`

type params struct {
	Addr        string
	StorageKind string
	StoragePath string
	TLSKind     string
	Cert        string
	Key         string
	CA          string
	Domain      string
	MetricsAddr string
}

func main() {
	mode := flag.String("mode", "server", "server or client")
	addr := flag.String("addr", "127.0.0.1:4433", "listen/dial address")
	storageKind := flag.String("storage-kind", "memory", "memory or embedded-log-store")
	storagePath := flag.String("storage-path", "kvbroker.db", "path for embedded-log-store")
	tlsKind := flag.String("tls-kind", "cert", "cert or psk")
	cert := flag.String("cert", "kvbroker-cert.pem", "certificate path")
	key := flag.String("key", "kvbroker-key.pem", "key path")
	ca := flag.String("ca", "", "CA path")
	domain := flag.String("domain", "kvbroker", "server name for client verification")
	metricsAddr := flag.String("metrics-addr", "", "address for the /metrics endpoint, empty disables it")
	out := flag.String("o", "", "output path (default stdout)")
	flag.Parse()

	p := params{
		Addr:        *addr,
		StorageKind: *storageKind,
		StoragePath: *storagePath,
		TLSKind:     *tlsKind,
		Cert:        *cert,
		Key:         *key,
		CA:          *ca,
		Domain:      *domain,
		MetricsAddr: *metricsAddr,
	}

	var tmplSrc string
	switch *mode {
	case "server":
		tmplSrc = serverTemplate
	case "client":
		tmplSrc = clientTemplate
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q (want server or client)\n", *mode)
		os.Exit(2)
	}

	tmpl, err := template.New("config").Parse(tmplSrc)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	w := os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer f.Close()
		w = f
	}
	if err := tmpl.Execute(w, p); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
