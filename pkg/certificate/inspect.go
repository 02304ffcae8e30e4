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

// Package certificate exposes the parts of an X.509 certificate that an
// attestation binds: the subject identity and the public key material.
package certificate

import (
	"crypto/x509"
	"encoding/asn1"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"

	"github.com/sigstore/sigstore/pkg/cryptoutils"
)

// ErrCertificateParse is returned for any input that is not a well-formed
// PEM encoded certificate with a supported public key.
var ErrCertificateParse = errors.New("certificate could not be parsed")

// KeyEncoding selects the byte form of the public key material.
type KeyEncoding string

const (
	// KeyEncodingDER is the SubjectPublicKeyInfo exactly as embedded in the
	// certificate.
	KeyEncodingDER KeyEncoding = "der"
	// KeyEncodingPEM wraps the same DER bytes in a PUBLIC KEY PEM block, the
	// text form signed by the legacy Lambda handler.
	KeyEncodingPEM KeyEncoding = "pem"
)

func ParseKeyEncoding(s string) (KeyEncoding, error) {
	switch KeyEncoding(strings.ToLower(strings.TrimSpace(s))) {
	case "", KeyEncodingDER:
		return KeyEncodingDER, nil
	case KeyEncodingPEM:
		return KeyEncodingPEM, nil
	default:
		return "", fmt.Errorf("unknown key encoding %q", s)
	}
}

var oidCommonName = asn1.ObjectIdentifier{2, 5, 4, 3}

// Inspection is a read-only view of one parsed certificate.
type Inspection struct {
	cert     *x509.Certificate
	encoding KeyEncoding
}

// Inspect decodes the first PEM block of pemText, which must be a
// CERTIFICATE. Any failure wraps ErrCertificateParse.
func Inspect(pemText []byte, enc KeyEncoding) (*Inspection, error) {
	if enc == "" {
		enc = KeyEncodingDER
	}
	if enc != KeyEncodingDER && enc != KeyEncodingPEM {
		return nil, fmt.Errorf("unknown key encoding %q", enc)
	}

	block, _ := pem.Decode(pemText)
	if block == nil {
		return nil, fmt.Errorf("%w: no valid PEM data", ErrCertificateParse)
	}
	if block.Type != string(cryptoutils.CertificatePEMType) {
		return nil, fmt.Errorf("%w: expected %s block, got %s", ErrCertificateParse, cryptoutils.CertificatePEMType, block.Type)
	}
	if len(block.Bytes) == 0 {
		return nil, fmt.Errorf("%w: PEM block is empty", ErrCertificateParse)
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCertificateParse, err)
	}
	if cert.PublicKeyAlgorithm == x509.UnknownPublicKeyAlgorithm || cert.PublicKey == nil {
		return nil, fmt.Errorf("%w: unsupported public key algorithm", ErrCertificateParse)
	}
	if len(cert.RawSubjectPublicKeyInfo) == 0 {
		return nil, fmt.Errorf("%w: missing subject public key info", ErrCertificateParse)
	}

	return &Inspection{cert: cert, encoding: enc}, nil
}

// CommonName returns the value of the first CN attribute of the subject, in
// RDN sequence order, with surrounding whitespace removed. ok is false when the
// subject carries no CN at all; an empty string with ok true means the
// attribute is present but blank.
func (i *Inspection) CommonName() (cn string, ok bool) {
	for _, atv := range i.cert.Subject.Names {
		if !atv.Type.Equal(oidCommonName) {
			continue
		}
		switch v := atv.Value.(type) {
		case string:
			return strings.TrimSpace(v), true
		default:
			return strings.TrimSpace(fmt.Sprint(v)), true
		}
	}
	return "", false
}

// PublicKey returns the public key material in the configured encoding. The
// signature is defined over exactly these bytes.
func (i *Inspection) PublicKey() []byte {
	if i.encoding == KeyEncodingPEM {
		return cryptoutils.PEMEncode(cryptoutils.PublicKeyPEMType, i.cert.RawSubjectPublicKeyInfo)
	}
	return i.cert.RawSubjectPublicKeyInfo
}

func (i *Inspection) KeyEncoding() KeyEncoding {
	return i.encoding
}

// Subject is the RFC 2253 rendering of the subject, for logging.
func (i *Inspection) Subject() string {
	return i.cert.Subject.String()
}

func (i *Inspection) PublicKeyAlgorithm() string {
	return i.cert.PublicKeyAlgorithm.String()
}
