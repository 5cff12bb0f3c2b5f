// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"

	"github.com/filecachedb/vfdcache/common"
	"github.com/filecachedb/vfdcache/vfd"
)

var metricsAddr string

func init() {
	serveCmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9102", "Address the Prometheus /metrics endpoint listens on.")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Construct the vfd manager, sweep stale temp files, and block until signaled",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()

		exporter, err := prometheus.New()
		if err != nil {
			return err
		}
		otel.SetMeterProvider(metric.NewMeterProvider(metric.WithReader(exporter)))
		metrics, err := common.NewOTelMetrics()
		if err != nil {
			return err
		}

		httpSrv := &http.Server{Addr: metricsAddr, Handler: promhttp.Handler()}
		go func() {
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server exited", "err", err)
			}
		}()
		defer httpSrv.Close()

		m, err := vfd.NewManager(&config, vfd.WithLogger(logger), vfd.WithMetrics(metrics))
		if err != nil {
			return err
		}
		if err := m.RemoveStaleTempFiles(); err != nil {
			logger.Warn("startup temp-file sweep reported errors", "err", err)
		}

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

		logger.Info("vfdcached serving", "max_safe_fds", m.MaxSafeFds())
		<-sig

		m.AtXactCancel()
		m.AtEOXact()
		m.AtProcExit()
		logger.Info("vfdcached exiting")
		return nil
	},
}
