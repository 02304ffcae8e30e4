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

package store

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru"

	"github.com/certattest/certattest/pkg/attest"
)

// MemoryStore keeps up to a fixed number of records, evicting the least
// recently used identity first.
type MemoryStore struct {
	cache *lru.Cache
}

func NewMemoryStore(capacity int) (*MemoryStore, error) {
	cache, err := lru.New(capacity)
	if err != nil {
		return nil, fmt.Errorf("creating memory store: %w", err)
	}
	return &MemoryStore{cache: cache}, nil
}

func (m *MemoryStore) Put(ctx context.Context, record *attest.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validate(record); err != nil {
		return err
	}
	stored := *record
	m.cache.Add(record.Identity, &stored)
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, identity string) (*attest.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, ok := m.cache.Get(identity)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, identity)
	}
	record := *v.(*attest.Record)
	return &record, nil
}

func (m *MemoryStore) Len() int {
	return m.cache.Len()
}

func (m *MemoryStore) Name() string {
	return "memory"
}
