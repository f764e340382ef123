package main

import (
	"os"

	"go.uber.org/zap"

	"roas/internal/metrics"
	"roas/internal/metrics/datadog"
	"roas/internal/metrics/prompush"
)

const (
	defaultPushgatewayURL = "http://localhost:9091"
	defaultStatsdAddr     = "127.0.0.1:8125"
)

// firstSet returns the first non-empty value: flag, then env, then default.
func firstSet(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// setupMetrics installs the selected backend. Failures leave the nop backend
// in place; metrics never block a run.
func (c *cli) setupMetrics(job string) {
	if job == "" {
		job = "roas"
	}
	backendName := firstSet(c.metricsBackend, os.Getenv("METRICS_BACKEND"))

	switch backendName {
	case "pushgateway":
		gwURL := firstSet(c.pushgatewayURL, os.Getenv("PUSHGATEWAY_URL"), defaultPushgatewayURL)
		b, err := prompush.NewBackend(job, gwURL)
		if err != nil {
			c.logger.Warn("metrics: failed to init prom push backend; using nop", zap.Error(err))
			return
		}
		c.logger.Debug("metrics: enabled", zap.String("backend", backendName), zap.String("url", gwURL), zap.String("job", job))
		metrics.SetBackend(b)

	case "datadog":
		addr := firstSet(c.statsdAddr, os.Getenv("DD_DOGSTATSD_URL"), defaultStatsdAddr)
		b, err := datadog.NewBackend(datadog.Config{
			Addr:       addr,
			Namespace:  "roas.",
			GlobalTags: []string{"job:" + job},
		})
		if err != nil {
			c.logger.Warn("metrics: failed to init datadog backend; using nop", zap.Error(err))
			return
		}
		c.logger.Debug("metrics: enabled", zap.String("backend", backendName), zap.String("addr", addr), zap.String("job", job))
		metrics.SetBackend(b)

	case "", "none":
		c.logger.Debug("metrics: disabled", zap.String("backend", backendName))

	default:
		c.logger.Warn("metrics: unknown backend; metrics disabled", zap.String("backend", backendName))
	}
}
