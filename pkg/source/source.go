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

// Package source fetches certificate PEM bytes from where they are kept.
package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/certattest/certattest/pkg/config"
)

var ErrNotFound = errors.New("certificate object not found")

// Source returns the raw bytes stored under key, unmodified.
type Source interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
	Name() string
}

// New builds the source described by cfg.
func New(cfg config.SourceConfig) (Source, error) {
	switch cfg.Type {
	case config.SourceTypeS3:
		return NewS3Source(cfg.Bucket, cfg.Prefix, cfg.AWS)
	case config.SourceTypeFile:
		return NewFileSource(cfg.Dir)
	default:
		return nil, fmt.Errorf("unknown source type %q", cfg.Type)
	}
}
