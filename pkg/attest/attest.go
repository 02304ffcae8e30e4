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

// Package attest binds a certificate's public key to its subject identity
// with a signature from a freshly generated key.
package attest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/certattest/certattest/pkg/certificate"
	"github.com/certattest/certattest/pkg/keys"
	"github.com/certattest/certattest/pkg/log"
	"github.com/certattest/certattest/pkg/signer"
)

// Record is the durable output of one attestation.
type Record struct {
	// Identity is the subject common name.
	Identity string `json:"identity"`
	// Signature is base64 ASN.1 ECDSA P-256/SHA-256 over the public key
	// material of the certificate.
	Signature string `json:"signature"`
	// VerificationKey is the PKIX PEM public half of the ephemeral key that
	// produced Signature. The private half is discarded.
	VerificationKey string `json:"verificationKey"`
	// KeyEncoding records which byte form of the public key was signed.
	KeyEncoding certificate.KeyEncoding `json:"keyEncoding"`
	CreatedAt   time.Time               `json:"createdAt"`
}

type Options struct {
	// KeyEncoding of the signed public key material. Defaults to DER.
	KeyEncoding certificate.KeyEncoding
	// Rand overrides crypto/rand for key generation.
	Rand io.Reader
	// Now overrides time.Now for CreatedAt.
	Now func() time.Time
}

// Pipeline holds no mutable state and is safe for concurrent use.
type Pipeline struct {
	encoding certificate.KeyEncoding
	generate func() (*keys.KeyPair, error)
	now      func() time.Time
}

func New(opts Options) *Pipeline {
	p := &Pipeline{
		encoding: opts.KeyEncoding,
		generate: keys.Generate,
		now:      opts.Now,
	}
	if p.encoding == "" {
		p.encoding = certificate.KeyEncodingDER
	}
	if opts.Rand != nil {
		r := opts.Rand
		p.generate = func() (*keys.KeyPair, error) { return keys.GenerateFrom(r) }
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

func (p *Pipeline) KeyEncoding() certificate.KeyEncoding {
	return p.encoding
}

// Attest runs inspect, identity extraction, key generation and signing in
// order. The first failing step aborts the invocation with an *Error.
func (p *Pipeline) Attest(ctx context.Context, certificatePEM []byte) (*Record, error) {
	logger := log.ContextLogger(ctx)

	inspection, err := certificate.Inspect(certificatePEM, p.encoding)
	if err != nil {
		return nil, stageError(StageInspect, ErrCertificateParse, err)
	}

	identity, err := identityOf(inspection)
	if err != nil {
		return nil, err
	}

	kp, err := p.generate()
	if err != nil {
		return nil, stageError(StageGenerate, ErrKeyGeneration, err)
	}

	sig, err := signer.Sign(inspection.PublicKey(), kp.PrivateKeyPEM)
	if err != nil {
		return nil, stageError(StageSign, ErrInvalidKey, err)
	}

	logger.Debugw("attested certificate",
		"identity", identity,
		"subject", inspection.Subject(),
		"publicKeyAlgorithm", inspection.PublicKeyAlgorithm(),
		"keyEncoding", p.encoding)

	return &Record{
		Identity:        identity,
		Signature:       sig,
		VerificationKey: string(kp.PublicKeyPEM),
		KeyEncoding:     p.encoding,
		CreatedAt:       p.now().UTC(),
	}, nil
}

// Identity extracts only the subject identity of a certificate.
func (p *Pipeline) Identity(certificatePEM []byte) (string, error) {
	inspection, err := certificate.Inspect(certificatePEM, p.encoding)
	if err != nil {
		return "", stageError(StageInspect, ErrCertificateParse, err)
	}
	return identityOf(inspection)
}

// Verify checks that record was produced for certificatePEM: same identity and
// a signature over its public key material under record.VerificationKey.
func (p *Pipeline) Verify(record *Record, certificatePEM []byte) error {
	if record == nil {
		return stageError(StageVerify, ErrVerification, errors.New("nil record"))
	}
	enc := record.KeyEncoding
	if enc == "" {
		enc = p.encoding
	}
	inspection, err := certificate.Inspect(certificatePEM, enc)
	if err != nil {
		return stageError(StageInspect, ErrCertificateParse, err)
	}
	identity, err := identityOf(inspection)
	if err != nil {
		return err
	}
	if identity != record.Identity {
		return stageError(StageVerify, ErrVerification,
			fmt.Errorf("record identity %q does not match certificate identity %q", record.Identity, identity))
	}
	if err := signer.Verify(record.Signature, inspection.PublicKey(), []byte(record.VerificationKey)); err != nil {
		if errors.Is(err, ErrInvalidKey) {
			return stageError(StageVerify, ErrInvalidKey, err)
		}
		return stageError(StageVerify, ErrVerification, err)
	}
	return nil
}

func identityOf(inspection *certificate.Inspection) (string, error) {
	cn, ok := inspection.CommonName()
	if !ok {
		return "", stageError(StageIdentity, ErrIdentityExtraction,
			fmt.Errorf("subject %q has no common name", inspection.Subject()))
	}
	if cn == "" {
		return "", stageError(StageIdentity, ErrIdentityExtraction,
			fmt.Errorf("subject %q has an empty common name", inspection.Subject()))
	}
	return cn, nil
}
