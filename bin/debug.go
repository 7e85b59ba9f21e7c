package main

import (
	"net"
	"net/http"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"www.velocidex.com/golang/proctree/config"
	"www.velocidex.com/golang/proctree/logging"
)

var (
	metrics_flag = app.Flag("metrics", "Serve prometheus metrics on this address (e.g. 127.0.0.1:8003).").String()
)

// Starts the metrics server if configured on the command line or in
// the config file.
func maybeStartMetrics(config_obj *config.Config) {
	address := *metrics_flag
	if address == "" && config_obj.Metrics != nil {
		address = config_obj.Metrics.BindAddress
	}
	if address == "" {
		return
	}

	logger := logging.GetLogger(logging.ToolComponent)
	addr, err := startMetricsServer(address)
	if err != nil {
		logger.Error("Metrics server: %v", err)
		return
	}
	logger.Info("Started metrics server on %v", addr)
}

func startMetricsServer(address string) (net.Addr, error) {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, errors.Wrap(err, "metrics")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		err := http.Serve(listener, mux)
		if err != nil {
			logging.GetLogger(logging.ToolComponent).Error(
				"Metrics server: %v", err)
		}
	}()

	return listener.Addr(), nil
}
