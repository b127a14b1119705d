package main

import (
	"net/http"

	"github.com/listboard/gateway/internal/aggregator"
	"github.com/listboard/gateway/internal/circuitbreaker"
	"github.com/listboard/gateway/internal/config"
	"github.com/listboard/gateway/internal/gateway"
	"github.com/listboard/gateway/internal/health"
	"github.com/listboard/gateway/internal/observability"
	"github.com/listboard/gateway/internal/proxy"
	"github.com/listboard/gateway/internal/registry"
	"github.com/listboard/gateway/internal/router"
	"github.com/listboard/gateway/internal/supervisor"
)

// application aggregates the gateway's long-lived components.
type application struct {
	config     config.Config
	logger     observability.Logger
	registry   *registry.Registry
	reaper     *registry.Reaper
	supervisor *supervisor.Supervisor
	server     *gateway.Server
}

// newApplication wires the component graph from configuration.
func newApplication(cfg config.Config, logger observability.Logger) *application {
	reg := registry.New(
		registry.WithLogger(logger.With(observability.String("component", "registry"))),
		registry.WithStore(registry.NewFileStore(cfg.Registry.FilePath)),
	)

	bank := circuitbreaker.NewBank(
		&circuitbreaker.Config{
			FailureThreshold: cfg.Breaker.FailureThreshold,
			Cooldown:         cfg.Breaker.Cooldown,
		},
		logger.With(observability.String("component", "circuitbreaker")),
	)

	table := router.DefaultTable()
	forwarder := proxy.NewForwarder(table, reg, bank,
		proxy.WithForwarderLogger(logger.With(observability.String("component", "proxy"))),
		proxy.WithForwarderClient(&http.Client{Timeout: cfg.Proxy.Timeout}),
	)

	aggClient := aggregator.NewClient(reg, bank,
		aggregator.WithHTTPClient(&http.Client{Timeout: cfg.Proxy.Timeout}),
		aggregator.WithClientLogger(logger.With(observability.String("component", "aggregator"))),
	)
	agg := aggregator.New(aggClient, logger.With(observability.String("component", "aggregator")))

	checker := health.NewChecker(version, reg, bank)

	sup := supervisor.New(reg, cfg.Probe.Interval, cfg.Probe.Timeout,
		supervisor.WithLogger(logger.With(observability.String("component", "supervisor"))),
	)
	reaper := registry.NewReaper(reg, cfg.Registry.ReapInterval, cfg.Registry.ReapTTL,
		logger.With(observability.String("component", "reaper")),
	)

	handler := gateway.NewHandler(reg, agg, checker, forwarder, logger)
	server := gateway.NewServer(
		&gateway.ServerConfig{
			Port:           cfg.Server.Port,
			ReadTimeout:    cfg.Server.ReadTimeout,
			WriteTimeout:   cfg.Server.WriteTimeout,
			IdleTimeout:    cfg.Server.IdleTimeout,
			MaxHeaderBytes: 1 << 20,
		},
		handler,
		logger.With(observability.String("component", "server")),
	)

	return &application{
		config:     cfg,
		logger:     logger,
		registry:   reg,
		reaper:     reaper,
		supervisor: sup,
		server:     server,
	}
}
