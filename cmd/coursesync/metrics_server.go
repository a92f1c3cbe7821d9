package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// prometheusRegistererFor starts a background /metrics endpoint on addr
// and returns its registry, or returns nil if addr is empty — metrics are
// then computed but never exported, matching internal/metrics.New's
// nil-safe contract.
func prometheusRegistererFor(addr string) prometheus.Registerer {
	if addr == "" {
		return nil
	}

	reg := prometheus.NewRegistry()
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	go http.ListenAndServe(addr, mux) //nolint:errcheck

	return reg
}
