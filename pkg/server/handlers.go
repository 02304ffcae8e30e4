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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/certattest/certattest/pkg/attest"
	"github.com/certattest/certattest/pkg/log"
)

const pemContentType = "application/x-pem-file"

type attestRequest struct {
	Certificate string `json:"certificate,omitempty"`
	ObjectKey   string `json:"objectKey,omitempty"`
}

type verifyRequest struct {
	Certificate string `json:"certificate"`
}

type verifyResponse struct {
	Verified bool           `json:"verified"`
	Record   *attest.Record `json:"record"`
}

type statusResponse struct {
	Status string `json:"status"`
}

// handleAttest attests an inline certificate, a named source object, or the
// configured default object when the body is empty.
func (s *Server) handleAttest(w http.ResponseWriter, r *http.Request) {
	var req attestRequest
	if isPEM(r) {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			handleAttestError(w, r, err)
			return
		}
		req.Certificate = string(b)
	} else if err := decodeBody(r, &req); err != nil {
		handleAttestError(w, r, err)
		return
	}
	if req.Certificate != "" && req.ObjectKey != "" {
		handleAttestError(w, r, fmt.Errorf("%w: certificate and objectKey are mutually exclusive", errBadRequest))
		return
	}

	var (
		record *attest.Record
		err    error
	)
	if req.Certificate != "" {
		record, err = s.svc.AttestPEM(r.Context(), []byte(req.Certificate))
	} else {
		record, err = s.svc.AttestObject(r.Context(), req.ObjectKey)
	}
	if err != nil {
		handleAttestError(w, r, err, "objectKey", req.ObjectKey)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	identity, err := identityParam(r)
	if err != nil {
		handleAttestError(w, r, err)
		return
	}
	record, err := s.svc.Lookup(r.Context(), identity)
	if err != nil {
		handleAttestError(w, r, err, "identity", identity)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	identity, err := identityParam(r)
	if err != nil {
		handleAttestError(w, r, err)
		return
	}
	var req verifyRequest
	if err := decodeBody(r, &req); err != nil {
		handleAttestError(w, r, err)
		return
	}
	if req.Certificate == "" {
		handleAttestError(w, r, fmt.Errorf("%w: certificate is required", errBadRequest))
		return
	}

	record, err := s.svc.VerifyStored(r.Context(), identity, []byte(req.Certificate))
	if err != nil {
		handleAttestError(w, r, err, "identity", identity)
		return
	}
	writeJSON(w, http.StatusOK, verifyResponse{Verified: true, Record: record})
}

func identityParam(r *http.Request) (string, error) {
	identity, err := url.PathUnescape(chi.URLParam(r, "identity"))
	if err != nil || identity == "" {
		return "", fmt.Errorf("%w: bad identity in path", errBadRequest)
	}
	return identity, nil
}

func isPEM(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == pemContentType
}

// decodeBody decodes a JSON body into v. An empty body leaves v untouched.
func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxBytes *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return nil
		case errors.As(err, &maxBytes):
			return err
		default:
			return fmt.Errorf("%w: %v", errBadRequest, err)
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Logger.Errorw("error writing response", "error", err)
	}
}
