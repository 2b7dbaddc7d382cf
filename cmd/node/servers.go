package main

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ledgerless/ledgerless/co"
	"github.com/ledgerless/ledgerless/metrics"
)

// startHTTPServer serves handler on addr until ctx is canceled,
// returning the bound address (useful when addr ends in ":0") and a
// function that waits for the listener goroutine to exit.
func startHTTPServer(ctx context.Context, addr string, handler http.Handler) (string, func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, err
	}
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: time.Second, ReadTimeout: 30 * time.Second}
	var goes co.Goes
	goes.Go(func() {
		_ = srv.Serve(listener)
	})
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	return listener.Addr().String(), goes.Wait, nil
}

func startMetricsServer(ctx context.Context, addr string) (string, func(), error) {
	router := mux.NewRouter()
	router.PathPrefix("/metrics").Handler(metrics.HTTPHandler())
	return startHTTPServer(ctx, addr, router)
}
