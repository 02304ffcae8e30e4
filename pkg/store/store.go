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

// Package store persists attestation records keyed by identity.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/certattest/certattest/pkg/attest"
	"github.com/certattest/certattest/pkg/config"
)

var ErrNotFound = errors.New("attestation record not found")

// Store keeps the latest record per identity. Put returns only after the
// record is durably written, or with the error that prevented it.
type Store interface {
	Put(ctx context.Context, record *attest.Record) error
	Get(ctx context.Context, identity string) (*attest.Record, error)
	Name() string
}

// New builds the store described by cfg.
func New(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Type {
	case config.StoreTypeDynamoDB:
		s, err := NewDynamoDBStore(cfg.Table, cfg.AWS)
		if err != nil {
			return nil, err
		}
		if cfg.CreateTable {
			if err := s.CreateTable(ctx); err != nil {
				return nil, err
			}
		}
		return s, nil
	case config.StoreTypeMemory:
		return NewMemoryStore(cfg.Capacity)
	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.Type)
	}
}

func validate(record *attest.Record) error {
	if record == nil {
		return errors.New("nil record")
	}
	if record.Identity == "" {
		return errors.New("record has no identity")
	}
	if record.Signature == "" {
		return errors.New("record has no signature")
	}
	return nil
}
