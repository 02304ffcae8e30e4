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
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var validCfg = `
keyEncoding: pem
source:
  type: s3
  bucket: certs
  prefix: devices
  defaultKey: public-cert.pem
  aws:
    region: ap-southeast-1
store:
  type: dynamodb
  table: attestations
  aws:
    region: ap-southeast-1
    endpoint: http://localhost:8000
`

func TestLoad(t *testing.T) {
	td := t.TempDir()
	cfgPath := filepath.Join(td, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(validCfg), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatal(err)
	}

	want := &AttestConfig{
		KeyEncoding: "pem",
		Source: SourceConfig{
			Type:       SourceTypeS3,
			DefaultKey: "public-cert.pem",
			Dir:        ".",
			Bucket:     "certs",
			Prefix:     "devices",
			AWS:        AWSConfig{Region: "ap-southeast-1"},
		},
		Store: StoreConfig{
			Type:     StoreTypeDynamoDB,
			Capacity: 1024,
			Table:    "attestations",
			AWS: AWSConfig{
				Region:   "ap-southeast-1",
				Endpoint: "http://localhost:8000",
			},
		},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Load(): -want +got: %s", diff)
	}
}

func TestLoadDefaults(t *testing.T) {
	td := t.TempDir()

	// Don't put anything here!
	cfgPath := filepath.Join(td, "config.yaml")
	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff(DefaultConfig, *cfg); diff != "" {
		t.Errorf("DefaultConfig(): -want +got: %s", diff)
	}
}

func TestParseInvalid(t *testing.T) {
	tests := map[string]string{
		"not yaml":                "keyEncoding: [",
		"unknown key encoding":    "keyEncoding: hex",
		"unknown source":          "source: {type: ftp}",
		"s3 without bucket":       "source: {type: s3, aws: {region: us-east-1}}",
		"s3 without region":       "source: {type: s3, bucket: certs}",
		"file without dir":        "source: {type: file, dir: ''}",
		"unknown store":           "store: {type: redis}",
		"dynamodb without table":  "store: {type: dynamodb, aws: {region: us-east-1}}",
		"dynamodb without region": "store: {type: dynamodb, table: t}",
		"zero capacity":           "store: {type: memory, capacity: 0}",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(in)); err == nil {
				t.Errorf("expected error parsing %q", in)
			}
		})
	}
}

func TestContext(t *testing.T) {
	ctx := context.Background()
	if got := FromContext(ctx); got != nil {
		t.Fatalf("expected nil config, got %+v", got)
	}
	cfg := DefaultConfig
	ctx = With(ctx, &cfg)
	if got := FromContext(ctx); got != &cfg {
		t.Errorf("FromContext() returned %p, want %p", got, &cfg)
	}
}
