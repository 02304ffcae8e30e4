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

// Package service wires the attestation pipeline to its certificate source
// and record store.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/certattest/certattest/pkg/attest"
	"github.com/certattest/certattest/pkg/log"
	"github.com/certattest/certattest/pkg/source"
	"github.com/certattest/certattest/pkg/store"
)

var (
	// ErrSource wraps failures fetching the certificate.
	ErrSource = errors.New("certificate source failure")
	// ErrStore wraps failures persisting or reading a record.
	ErrStore = errors.New("record store failure")
)

// Observer is notified of every attestation outcome.
type Observer interface {
	ObserveAttestation(outcome string, duration time.Duration)
}

type Service struct {
	pipeline   *attest.Pipeline
	source     source.Source
	store      store.Store
	defaultKey string
	observer   Observer
}

type Option func(*Service)

// WithDefaultKey sets the object fetched when AttestObject gets an empty key.
func WithDefaultKey(key string) Option {
	return func(s *Service) { s.defaultKey = key }
}

func WithObserver(o Observer) Option {
	return func(s *Service) { s.observer = o }
}

func New(pipeline *attest.Pipeline, src source.Source, st store.Store, opts ...Option) *Service {
	s := &Service{
		pipeline: pipeline,
		source:   src,
		store:    st,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Pipeline() *attest.Pipeline {
	return s.pipeline
}

// AttestObject fetches the certificate stored under key, attests it and
// persists the record.
func (s *Service) AttestObject(ctx context.Context, key string) (*attest.Record, error) {
	if key == "" {
		key = s.defaultKey
	}
	if key == "" {
		return nil, fmt.Errorf("%w: no object key given", ErrSource)
	}
	if s.source == nil {
		return nil, fmt.Errorf("%w: no source configured", ErrSource)
	}

	pemBytes, err := s.source.Fetch(ctx, key)
	if err != nil {
		s.observe("source_error", 0)
		return nil, fmt.Errorf("%w: %s: %w", ErrSource, s.source.Name(), err)
	}
	return s.AttestPEM(ctx, pemBytes)
}

// AttestPEM attests certificatePEM and persists the record. The record is
// returned only after the store accepted it.
func (s *Service) AttestPEM(ctx context.Context, certificatePEM []byte) (*attest.Record, error) {
	start := time.Now()
	logger := log.ContextLogger(ctx)

	record, err := s.pipeline.Attest(ctx, certificatePEM)
	if err != nil {
		s.observe(attest.KindOf(err), time.Since(start))
		return nil, err
	}

	if s.store != nil {
		if err := s.store.Put(ctx, record); err != nil {
			s.observe("store_error", time.Since(start))
			return nil, fmt.Errorf("%w: %s: %w", ErrStore, s.store.Name(), err)
		}
	}

	s.observe("success", time.Since(start))
	logger.Infow("attestation recorded", "identity", record.Identity, "store", s.storeName())
	return record, nil
}

// Lookup returns the stored record for identity.
func (s *Service) Lookup(ctx context.Context, identity string) (*attest.Record, error) {
	if s.store == nil {
		return nil, fmt.Errorf("%w: no store configured", ErrStore)
	}
	record, err := s.store.Get(ctx, identity)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrStore, s.store.Name(), err)
	}
	return record, nil
}

// VerifyStored checks the stored record for identity against certificatePEM.
func (s *Service) VerifyStored(ctx context.Context, identity string, certificatePEM []byte) (*attest.Record, error) {
	record, err := s.Lookup(ctx, identity)
	if err != nil {
		return nil, err
	}
	if err := s.pipeline.Verify(record, certificatePEM); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *Service) observe(outcome string, d time.Duration) {
	if s.observer != nil {
		s.observer.ObserveAttestation(outcome, d)
	}
}

func (s *Service) storeName() string {
	if s.store == nil {
		return "none"
	}
	return s.store.Name()
}
