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
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/certattest/certattest/pkg/attest"
	"github.com/certattest/certattest/pkg/certificate"
	"github.com/certattest/certattest/pkg/config"
	"github.com/certattest/certattest/pkg/log"
	"github.com/certattest/certattest/pkg/service"
	"github.com/certattest/certattest/pkg/source"
	"github.com/certattest/certattest/pkg/store"
)

// Execute builds the command tree and runs it. This is called by main.main().
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		log.Logger.Error(err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "certattest",
		Short:        "Certificate attestation",
		Long:         "certattest signs the public key of an X.509 certificate with a fresh ephemeral key and records the signature under the certificate's common name",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(cmd)
		},
	}

	pf := cmd.PersistentFlags()
	pf.String("log_type", "dev", "logger type to use (dev/prod)")
	pf.String("config-path", "/etc/certattest/config.yaml", "path to certattest config yaml")
	pf.String("env-file", ".env", "dotenv file loaded into the environment when present")
	pf.String("key-encoding", "", "public key material to sign (der/pem)")
	pf.String("source-type", "", "certificate source (file/s3)")
	pf.String("source-dir", "", "base directory of the file source")
	pf.String("source-bucket", "", "S3 bucket holding certificates")
	pf.String("source-prefix", "", "key prefix within the S3 bucket")
	pf.String("default-key", "", "object attested when a request names none")
	pf.String("store-type", "", "record store (memory/dynamodb)")
	pf.String("store-table", "", "DynamoDB table for records")
	pf.Int("store-capacity", 0, "capacity of the memory store")
	pf.Bool("create-table", false, "create the DynamoDB table on startup when missing")
	pf.String("aws-region", "", "AWS region for S3 and DynamoDB")
	pf.String("aws-endpoint", "", "AWS endpoint override, e.g. a local emulator")

	pf.VisitAll(func(f *pflag.Flag) {
		mustBindPFlag(f.Name, f)
	})
	mustBindEnv("aws-region", "AWS_REGION")

	cmd.AddCommand(newServeCmd(), newAttestCmd(), newVerifyCmd(), newVersionCmd())
	return cmd
}

// initConfig loads the dotenv file and copies environment values into any
// flag not set on the command line.
func initConfig(cmd *cobra.Command) error {
	if err := loadEnvFile(viper.GetString("env-file")); err != nil {
		return err
	}

	viper.SetEnvPrefix("certattest")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	var changedFlags []string
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if !f.Changed && viper.IsSet(f.Name) {
			changedFlags = append(changedFlags, f.Name)
		}
	})
	for _, flag := range changedFlags {
		val := viper.Get(flag)
		if err := cmd.Flags().Set(flag, fmt.Sprintf("%v", val)); err != nil {
			return err
		}
	}

	log.ConfigureLogger(viper.GetString("log_type"))
	return nil
}

func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// loadConfig reads the config file and applies explicitly set flags and
// environment variables on top of it.
func loadConfig() (*config.AttestConfig, error) {
	cfg, err := config.Load(viper.GetString("config-path"))
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}

	overlay := func(key string, dst *string) {
		if viper.IsSet(key) {
			*dst = viper.GetString(key)
		}
	}
	overlay("key-encoding", &cfg.KeyEncoding)
	overlay("source-type", &cfg.Source.Type)
	overlay("source-dir", &cfg.Source.Dir)
	overlay("source-bucket", &cfg.Source.Bucket)
	overlay("source-prefix", &cfg.Source.Prefix)
	overlay("default-key", &cfg.Source.DefaultKey)
	overlay("store-type", &cfg.Store.Type)
	overlay("store-table", &cfg.Store.Table)
	overlay("aws-region", &cfg.Source.AWS.Region)
	overlay("aws-region", &cfg.Store.AWS.Region)
	overlay("aws-endpoint", &cfg.Source.AWS.Endpoint)
	overlay("aws-endpoint", &cfg.Store.AWS.Endpoint)
	if viper.IsSet("store-capacity") {
		cfg.Store.Capacity = viper.GetInt("store-capacity")
	}
	if viper.IsSet("create-table") {
		cfg.Store.CreateTable = viper.GetBool("create-table")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newService assembles the service from the config carried in ctx. Records
// are only persisted when persist is set.
func newService(ctx context.Context, persist bool, opts ...service.Option) (*service.Service, error) {
	cfg := config.FromContext(ctx)
	if cfg == nil {
		return nil, errors.New("no config in context")
	}
	enc, err := certificate.ParseKeyEncoding(cfg.KeyEncoding)
	if err != nil {
		return nil, err
	}

	src, err := source.New(cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("certificate source: %w", err)
	}
	var st store.Store
	if persist {
		st, err = store.New(ctx, cfg.Store)
		if err != nil {
			return nil, fmt.Errorf("record store: %w", err)
		}
	}

	opts = append([]service.Option{service.WithDefaultKey(cfg.Source.DefaultKey)}, opts...)
	return service.New(attest.New(attest.Options{KeyEncoding: enc}), src, st, opts...), nil
}

func mustBindPFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		log.Logger.Fatalw("failed to bind flag", "flag", key, "error", err)
	}
}

func mustBindEnv(key, envVar string) {
	if err := viper.BindEnv(key, envVar); err != nil {
		log.Logger.Fatalw("failed to bind env var", "var", envVar, "error", err)
	}
}
