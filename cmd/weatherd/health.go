package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// healthRunner binds cfg.Host:cfg.Port and serves /healthz plus the
// daemon's prometheus registry on /metrics. The full oracle HTTP API
// (event creation, entries, file upload) would mount on this same mux.
type healthRunner struct {
	srv *http.Server
}

func newHealthRunner(host string, port int, collectors ...[]prometheus.Collector) *healthRunner {
	registry := prometheus.NewRegistry()
	for _, cs := range collectors {
		for _, c := range cs {
			registry.MustRegister(c)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	return &healthRunner{
		srv: &http.Server{
			Addr:    fmt.Sprintf("%s:%d", host, port),
			Handler: mux,
		},
	}
}

func (r *healthRunner) Name() string { return "health" }

func (r *healthRunner) Run() error {
	glog.Infof("health: listening on %s", r.srv.Addr)
	err := r.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (r *healthRunner) Stop(err error) {
	if err != nil {
		glog.Warningf("health: stopping due to: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if shutdownErr := r.srv.Shutdown(ctx); shutdownErr != nil {
		glog.Warningf("health: shutdown: %v", shutdownErr)
	}
}
