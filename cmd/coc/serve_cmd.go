package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adjoshi06/chainofCommand/pkg/api"
)

// runServeCmd implements `coc serve`, binding the read API to
// COC_API_HOST:COC_API_PORT (overridable by flags) and blocking until
// SIGINT/SIGTERM, grounded on the teacher's runServer signal-handling tail
// in cmd/helm/main.go.
func runServeCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("serve", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	var host, port string
	cmd.StringVar(&host, "host", "", "override COC_API_HOST")
	cmd.StringVar(&port, "port", "", "override COC_API_PORT")
	if err := cmd.Parse(args); err != nil {
		return 2
	}

	e, err := openEnv()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 4
	}
	if host == "" {
		host = e.cfg.APIHost
	}
	if port == "" {
		port = e.cfg.APIPort
	}

	srv := api.New(e.traces, e.ledger, e.store, e.keys, e.cfg.PolicyProfile, e.logger)
	addr := host + ":" + port

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(stdout, "coc read API listening on %s\n", addr)
		errCh <- http.ListenAndServe(addr, srv)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		fmt.Fprintf(stderr, "error: server stopped: %v\n", err)
		return 4
	case <-sigCh:
		fmt.Fprintln(stdout, "coc: shutting down")
		return 0
	}
}
