/*
Package monitoring collects kernel metrics with Prometheus.

# Overview

Metrics live on a private registry so several kernels (as in tests) never
collide on the default one. The collector implements the observer
interfaces of the rpc, filesystem and process packages.

# Metrics

- Inspector HTTP requests (count, latency)
- Application launches by outcome and launch latency
- Live process count
- Remote service calls by service, method and outcome
- Filesystem operations by backend and outcome
- Emitted kernel events
- Event stream connections and messages
- Uptime

# Usage

	metrics := monitoring.NewMetrics()
	registry := rpc.NewRegistry(cfg.Remote, logger, rpc.WithObserver(metrics))
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
*/
package monitoring
