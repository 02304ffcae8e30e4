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

package config

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/certattest/certattest/pkg/certificate"
	"github.com/certattest/certattest/pkg/log"
	"gopkg.in/yaml.v3"
)

const (
	SourceTypeS3   = "s3"
	SourceTypeFile = "file"

	StoreTypeDynamoDB = "dynamodb"
	StoreTypeMemory   = "memory"
)

// AttestConfig configures the collaborators around the attestation pipeline.
// The pipeline itself only reads KeyEncoding.
type AttestConfig struct {
	KeyEncoding string       `yaml:"keyEncoding"`
	Source      SourceConfig `yaml:"source"`
	Store       StoreConfig  `yaml:"store"`
}

// AWSConfig holds connection settings shared by the S3 source and the
// DynamoDB store. Empty credentials fall back to the SDK default chain.
type AWSConfig struct {
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"accessKeyID"`
	SecretAccessKey string `yaml:"secretAccessKey"`
}

type SourceConfig struct {
	Type string `yaml:"type"`
	// DefaultKey is fetched when a request names no object.
	DefaultKey string `yaml:"defaultKey"`

	// file
	Dir string `yaml:"dir"`

	// s3
	Bucket string    `yaml:"bucket"`
	Prefix string    `yaml:"prefix"`
	AWS    AWSConfig `yaml:"aws"`
}

type StoreConfig struct {
	Type string `yaml:"type"`

	// memory
	Capacity int `yaml:"capacity"`

	// dynamodb
	Table string    `yaml:"table"`
	AWS   AWSConfig `yaml:"aws"`
	// CreateTable creates Table on startup when it does not exist.
	CreateTable bool `yaml:"createTable"`
}

var DefaultConfig = AttestConfig{
	KeyEncoding: string(certificate.KeyEncodingDER),
	Source: SourceConfig{
		Type:       SourceTypeFile,
		Dir:        ".",
		DefaultKey: "public-cert.pem",
	},
	Store: StoreConfig{
		Type:     StoreTypeMemory,
		Capacity: 1024,
	},
}

func Parse(b []byte) (*AttestConfig, error) {
	cfg := DefaultConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load a config from disk, or use defaults
func Load(configPath string) (*AttestConfig, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Logger.Infof("No config at %s, using defaults: %+v", configPath, DefaultConfig)
		cfg := DefaultConfig
		return &cfg, nil
	}
	b, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", configPath, err)
	}
	log.Logger.Infof("Loaded config from %s", configPath)
	return cfg, nil
}

func (c *AttestConfig) Validate() error {
	if _, err := certificate.ParseKeyEncoding(c.KeyEncoding); err != nil {
		return err
	}

	switch c.Source.Type {
	case SourceTypeFile:
		if c.Source.Dir == "" {
			return errors.New("file source requires dir")
		}
	case SourceTypeS3:
		if c.Source.Bucket == "" {
			return errors.New("s3 source requires bucket")
		}
		if c.Source.AWS.Region == "" {
			return errors.New("s3 source requires aws region")
		}
	default:
		return fmt.Errorf("unknown source type %q", c.Source.Type)
	}

	switch c.Store.Type {
	case StoreTypeMemory:
		if c.Store.Capacity <= 0 {
			return errors.New("memory store capacity must be positive")
		}
	case StoreTypeDynamoDB:
		if c.Store.Table == "" {
			return errors.New("dynamodb store requires table")
		}
		if c.Store.AWS.Region == "" {
			return errors.New("dynamodb store requires aws region")
		}
	default:
		return fmt.Errorf("unknown store type %q", c.Store.Type)
	}
	return nil
}

type configKey struct{}

func With(ctx context.Context, cfg *AttestConfig) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

func FromContext(ctx context.Context) *AttestConfig {
	untyped := ctx.Value(configKey{})
	if untyped == nil {
		return nil
	}
	return untyped.(*AttestConfig)
}
