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

package service

import (
	"context"
	"crypto/x509/pkix"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certattest/certattest/pkg/attest"
	"github.com/certattest/certattest/pkg/source"
	"github.com/certattest/certattest/pkg/store"
	"github.com/certattest/certattest/pkg/test"
)

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *recordingObserver) ObserveAttestation(outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

type failingStore struct {
	store.Store
}

func (failingStore) Put(context.Context, *attest.Record) error {
	return errors.New("table unavailable")
}

func (failingStore) Get(context.Context, string) (*attest.Record, error) {
	return nil, errors.New("table unavailable")
}

func (failingStore) Name() string { return "failing" }

func setup(t *testing.T) (*Service, *store.MemoryStore, *recordingObserver, string) {
	t.Helper()
	dir := t.TempDir()
	certPEM, err := test.SelfSignedPEM(pkix.Name{CommonName: "alice.example.com"})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "public-cert.pem"), certPEM, 0o600))

	src, err := source.NewFileSource(dir)
	require.NoError(t, err)
	mem, err := store.NewMemoryStore(16)
	require.NoError(t, err)
	obs := &recordingObserver{}

	svc := New(attest.New(attest.Options{}), src, mem, WithDefaultKey("public-cert.pem"), WithObserver(obs))
	return svc, mem, obs, dir
}

func TestAttestObjectDefaultKey(t *testing.T) {
	svc, mem, obs, _ := setup(t)
	ctx := context.Background()

	record, err := svc.AttestObject(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "alice.example.com", record.Identity)

	stored, err := mem.Get(ctx, "alice.example.com")
	require.NoError(t, err)
	assert.Equal(t, record, stored)
	assert.Equal(t, []string{"success"}, obs.outcomes)
}

func TestAttestObjectMissing(t *testing.T) {
	svc, _, obs, _ := setup(t)

	_, err := svc.AttestObject(context.Background(), "nope.pem")
	assert.ErrorIs(t, err, ErrSource)
	assert.ErrorIs(t, err, source.ErrNotFound)
	assert.Equal(t, []string{"source_error"}, obs.outcomes)
}

func TestAttestPEMErrorsAreNotStored(t *testing.T) {
	svc, mem, obs, _ := setup(t)
	ctx := context.Background()

	_, err := svc.AttestPEM(ctx, []byte("not a certificate"))
	assert.ErrorIs(t, err, attest.ErrCertificateParse)

	noCN, err := test.SelfSignedPEM(pkix.Name{Organization: []string{"ExampleOrg"}})
	require.NoError(t, err)
	_, err = svc.AttestPEM(ctx, noCN)
	assert.ErrorIs(t, err, attest.ErrIdentityExtraction)

	assert.Equal(t, 0, mem.Len())
	assert.Equal(t, []string{"certificate_parse_error", "identity_extraction_error"}, obs.outcomes)
}

func TestAttestPEMStoreFailure(t *testing.T) {
	obs := &recordingObserver{}
	svc := New(attest.New(attest.Options{}), nil, failingStore{}, WithObserver(obs))
	certPEM, err := test.SelfSignedPEM(pkix.Name{CommonName: "alice.example.com"})
	require.NoError(t, err)

	record, err := svc.AttestPEM(context.Background(), certPEM)
	assert.Nil(t, record)
	assert.ErrorIs(t, err, ErrStore)
	assert.Equal(t, []string{"store_error"}, obs.outcomes)

	_, err = svc.Lookup(context.Background(), "alice.example.com")
	assert.ErrorIs(t, err, ErrStore)
}

func TestAttestObjectWithoutSource(t *testing.T) {
	svc := New(attest.New(attest.Options{}), nil, nil)
	_, err := svc.AttestObject(context.Background(), "cert.pem")
	assert.ErrorIs(t, err, ErrSource)
	_, err = svc.AttestObject(context.Background(), "")
	assert.ErrorIs(t, err, ErrSource)
}

func TestVerifyStored(t *testing.T) {
	svc, _, _, dir := setup(t)
	ctx := context.Background()

	_, err := svc.AttestObject(ctx, "public-cert.pem")
	require.NoError(t, err)

	certPEM, err := os.ReadFile(filepath.Join(dir, "public-cert.pem"))
	require.NoError(t, err)
	record, err := svc.VerifyStored(ctx, "alice.example.com", certPEM)
	require.NoError(t, err)
	assert.Equal(t, "alice.example.com", record.Identity)

	_, err = svc.VerifyStored(ctx, "bob.example.com", certPEM)
	assert.ErrorIs(t, err, store.ErrNotFound)

	impostor, err := test.SelfSignedPEM(pkix.Name{CommonName: "alice.example.com"})
	require.NoError(t, err)
	_, err = svc.VerifyStored(ctx, "alice.example.com", impostor)
	assert.ErrorIs(t, err, attest.ErrVerification)
}
