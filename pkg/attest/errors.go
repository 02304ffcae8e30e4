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

package attest

import (
	"errors"
	"fmt"

	"github.com/certattest/certattest/pkg/certificate"
	"github.com/certattest/certattest/pkg/keys"
	"github.com/certattest/certattest/pkg/signer"
)

// Error kinds. Match with errors.Is.
var (
	ErrCertificateParse   = certificate.ErrCertificateParse
	ErrIdentityExtraction = errors.New("no identity in certificate subject")
	ErrKeyGeneration      = keys.ErrKeyGeneration
	ErrInvalidKey         = signer.ErrInvalidKey
	ErrVerification       = signer.ErrVerification
)

type Stage string

const (
	StageInspect  Stage = "inspect"
	StageIdentity Stage = "identity"
	StageGenerate Stage = "generate"
	StageSign     Stage = "sign"
	StageVerify   Stage = "verify"
)

// Error is the single failure surfaced by a pipeline invocation.
type Error struct {
	Stage Stage
	Kind  error
	Err   error
}

func (e *Error) Error() string {
	switch {
	case e.Err == nil:
		return fmt.Sprintf("attest %s: %v", e.Stage, e.Kind)
	case errors.Is(e.Err, e.Kind):
		return fmt.Sprintf("attest %s: %v", e.Stage, e.Err)
	default:
		return fmt.Sprintf("attest %s: %v: %v", e.Stage, e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Retryable reports whether a fresh attempt with the same input may succeed.
func (e *Error) Retryable() bool {
	return errors.Is(e.Kind, ErrKeyGeneration)
}

func stageError(stage Stage, kind, err error) *Error {
	return &Error{Stage: stage, Kind: kind, Err: err}
}

// KindOf names the kind of err for metrics labels and API responses.
func KindOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrCertificateParse):
		return "certificate_parse_error"
	case errors.Is(err, ErrIdentityExtraction):
		return "identity_extraction_error"
	case errors.Is(err, ErrKeyGeneration):
		return "key_generation_error"
	case errors.Is(err, ErrInvalidKey):
		return "invalid_key_error"
	case errors.Is(err, ErrVerification):
		return "verification_error"
	default:
		return "error"
	}
}
