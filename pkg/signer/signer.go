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

// Package signer produces and checks attestation signatures.
//
// A signature is an ASN.1 DER encoded ECDSA signature over the SHA-256 digest
// of the public key material, rendered as standard base64.
package signer

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/sigstore/sigstore/pkg/cryptoutils"
	"github.com/sigstore/sigstore/pkg/signature"
)

// Hash is the digest signed over.
const Hash = crypto.SHA256

var (
	ErrInvalidKey   = errors.New("invalid signing key")
	ErrVerification = errors.New("signature verification failed")
)

// Sign signs material with the PKCS#8 PEM encoded P-256 private key. material
// is hashed as given; it is never parsed or re-encoded.
func Sign(material, privateKeyPEM []byte) (string, error) {
	sv, err := loadSigner(privateKeyPEM)
	if err != nil {
		return "", err
	}

	sig, err := sv.SignMessage(bytes.NewReader(material))
	if err != nil {
		return "", fmt.Errorf("signing public key material: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// Verify checks sig against exactly material using the PEM encoded public key.
func Verify(sig string, material, publicKeyPEM []byte) error {
	raw, err := base64.StdEncoding.DecodeString(sig)
	if err != nil {
		return fmt.Errorf("%w: decoding signature: %v", ErrVerification, err)
	}

	pub, err := cryptoutils.UnmarshalPEMToPublicKey(publicKeyPEM)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if _, ok := pub.(*ecdsa.PublicKey); !ok {
		return fmt.Errorf("%w: expected ECDSA public key, got %T", ErrInvalidKey, pub)
	}
	verifier, err := signature.LoadVerifier(pub, Hash)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	if err := verifier.VerifySignature(bytes.NewReader(raw), bytes.NewReader(material)); err != nil {
		return fmt.Errorf("%w: %v", ErrVerification, err)
	}
	return nil
}

func loadSigner(privateKeyPEM []byte) (*signature.ECDSASignerVerifier, error) {
	priv, err := cryptoutils.UnmarshalPEMToPrivateKey(privateKeyPEM, cryptoutils.SkipPassword)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	ecPriv, ok := priv.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: expected ECDSA private key, got %T", ErrInvalidKey, priv)
	}
	if ecPriv.Curve != elliptic.P256() {
		return nil, fmt.Errorf("%w: expected P-256, got %s", ErrInvalidKey, ecPriv.Curve.Params().Name)
	}

	sv, err := signature.LoadECDSASignerVerifier(ecPriv, Hash)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return sv, nil
}
