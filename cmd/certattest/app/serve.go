// Copyright 2026 The Certattest Authors.
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

package app

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/certattest/certattest/pkg/config"
	"github.com/certattest/certattest/pkg/log"
	"github.com/certattest/certattest/pkg/server"
	"github.com/certattest/certattest/pkg/service"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "start http server with configured api",
		Long:  `Starts a http server and serves the attestation api`,
		RunE:  runServeCmd,
	}

	cmd.Flags().String("listen-addr", ":8080", "address the API listens on")
	cmd.Flags().String("metrics-addr", ":2112", "address the prometheus metrics listen on, empty to disable")
	cmd.Flags().Int64("max-body-bytes", server.DefaultMaxBodyBytes, "maximum accepted request body size")
	cmd.Flags().Bool("enable-pprof", false, "serve pprof under /debug")
	cmd.Flags().Duration("drain-duration", 0, "time between marking the server not ready and shutting down")
	cmd.Flags().Duration("graceful-shutdown-duration", 30*time.Second, "time allowed for in-flight requests on shutdown")
	cmd.Flags().Duration("read-timeout", 60*time.Second, "HTTP read timeout")
	cmd.Flags().Duration("write-timeout", 60*time.Second, "HTTP write timeout")
	cmd.Flags().Duration("idle-connection-timeout", 30*time.Second, "idle keep-alive connection timeout")

	for _, name := range []string{
		"listen-addr", "metrics-addr", "max-body-bytes", "enable-pprof", "drain-duration",
		"graceful-shutdown-duration", "read-timeout", "write-timeout", "idle-connection-timeout",
	} {
		mustBindPFlag(name, cmd.Flags().Lookup(name))
	}
	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := config.With(cmd.Context(), cfg)

	svc, err := newService(ctx, true, service.WithObserver(server.MetricsObserver{}))
	if err != nil {
		return err
	}

	srv := server.New(&server.Config{
		ListenAddr:               viper.GetString("listen-addr"),
		MetricsAddr:              viper.GetString("metrics-addr"),
		EnablePprof:              viper.GetBool("enable-pprof"),
		MaxBodyBytes:             viper.GetInt64("max-body-bytes"),
		DrainDuration:            viper.GetDuration("drain-duration"),
		GracefulShutdownDuration: viper.GetDuration("graceful-shutdown-duration"),
		ReadTimeout:              viper.GetDuration("read-timeout"),
		WriteTimeout:             viper.GetDuration("write-timeout"),
		IdleTimeout:              viper.GetDuration("idle-connection-timeout"),
	}, svc)

	log.Logger.Infow("starting certattest",
		"keyEncoding", cfg.KeyEncoding,
		"source", cfg.Source.Type,
		"store", cfg.Store.Type)
	srv.RunInBackground()

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()

	// received an interrupt signal, shut down
	srv.Shutdown(context.Background())
	return nil
}
