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

// Package keys generates the ephemeral signing key pair used for one
// attestation.
package keys

import (
	"crypto"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/sigstore/sigstore/pkg/cryptoutils"
	"github.com/sigstore/sigstore/pkg/signature"
)

// Curve is the only curve keys are generated on. Signatures are ASN.1 DER
// ECDSA over SHA-256, so any verifier must expect P-256.
const Curve = "P-256"

var ErrKeyGeneration = errors.New("key pair generation failed")

// KeyPair holds an ephemeral key pair. PrivateKeyPEM is PKCS#8 and
// PublicKeyPEM is PKIX; both are PEM armored.
type KeyPair struct {
	PrivateKeyPEM []byte
	PublicKeyPEM  []byte
}

// Generate creates a P-256 key pair from crypto/rand.
func Generate() (*KeyPair, error) {
	return GenerateFrom(rand.Reader)
}

// GenerateFrom creates a P-256 key pair reading randomness from r. r must be
// a cryptographically secure source outside of tests.
func GenerateFrom(r io.Reader) (*KeyPair, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: nil random source", ErrKeyGeneration)
	}

	_, priv, err := signature.NewECDSASignerVerifier(elliptic.P256(), r, crypto.SHA256)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyGeneration, err)
	}

	privPEM, err := cryptoutils.MarshalPrivateKeyToPEM(priv)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding private key: %v", ErrKeyGeneration, err)
	}
	pubPEM, err := cryptoutils.MarshalPublicKeyToPEM(priv.Public())
	if err != nil {
		return nil, fmt.Errorf("%w: encoding public key: %v", ErrKeyGeneration, err)
	}

	return &KeyPair{
		PrivateKeyPEM: privPEM,
		PublicKeyPEM:  pubPEM,
	}, nil
}
