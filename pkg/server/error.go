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

package server

import (
	"errors"
	"net/http"

	"github.com/certattest/certattest/pkg/attest"
	"github.com/certattest/certattest/pkg/log"
	"github.com/certattest/certattest/pkg/service"
	"github.com/certattest/certattest/pkg/source"
	"github.com/certattest/certattest/pkg/store"
)

const (
	invalidRequest      = "The request body could not be parsed"
	requestTooLarge     = "The request body exceeds the maximum allowed size"
	invalidCertificate  = "The certificate supplied in the request could not be parsed"
	missingIdentity     = "The certificate subject does not contain a common name"
	keyGenerationError  = "Error generating attestation key"
	signingError        = "Error signing certificate public key material"
	certificateNotFound = "The requested certificate object does not exist"
	sourceError         = "Error retrieving certificate from source"
	storeError          = "Error accessing attestation record store"
	recordNotFound      = "No attestation record exists for this identity"
	verificationFailed  = "The attestation record does not match the certificate"
	genericError        = "Internal server error"
)

var errBadRequest = errors.New("invalid request")

type errorResponse struct {
	Code    int    `json:"code"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// classify maps err to a status code, a stable kind name and a client message.
func classify(err error) (int, string, string) {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge, "request_too_large", requestTooLarge
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "invalid_request", invalidRequest
	case errors.Is(err, source.ErrNotFound):
		return http.StatusNotFound, "certificate_not_found", certificateNotFound
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "record_not_found", recordNotFound
	case errors.Is(err, service.ErrSource):
		return http.StatusBadGateway, "source_error", sourceError
	case errors.Is(err, service.ErrStore):
		return http.StatusBadGateway, "store_error", storeError
	}

	kind := attest.KindOf(err)
	switch {
	case errors.Is(err, attest.ErrCertificateParse):
		return http.StatusBadRequest, kind, invalidCertificate
	case errors.Is(err, attest.ErrIdentityExtraction):
		return http.StatusUnprocessableEntity, kind, missingIdentity
	case errors.Is(err, attest.ErrKeyGeneration):
		return http.StatusServiceUnavailable, kind, keyGenerationError
	case errors.Is(err, attest.ErrInvalidKey):
		return http.StatusInternalServerError, kind, signingError
	case errors.Is(err, attest.ErrVerification):
		return http.StatusConflict, kind, verificationFailed
	default:
		return http.StatusInternalServerError, kind, genericError
	}
}

func handleAttestError(w http.ResponseWriter, r *http.Request, err error, fields ...interface{}) {
	code, kind, message := classify(err)

	fields = append([]interface{}{"code", code, "kind", kind, "clientMessage", message, "error", err}, fields...)
	// client errors are logged as warnings
	if code < http.StatusInternalServerError {
		log.ContextLogger(r.Context()).Warnw(err.Error(), fields...)
	} else {
		log.ContextLogger(r.Context()).Errorw(err.Error(), fields...)
	}

	var ae *attest.Error
	if errors.As(err, &ae) && ae.Retryable() {
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, code, errorResponse{Code: code, Kind: kind, Message: message})
}
