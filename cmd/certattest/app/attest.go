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

package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/certattest/certattest/pkg/attest"
	"github.com/certattest/certattest/pkg/config"
)

func newAttestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attest",
		Short: "attest one certificate and print the record",
		Long: `Attests a certificate read from a local file or fetched from the configured
source and prints the resulting record as JSON. Without --cert-file or
--object-key the configured default object is attested.`,
		Args: cobra.NoArgs,
		RunE: runAttestCmd,
	}
	cmd.Flags().String("cert-file", "", "PEM certificate file to attest")
	cmd.Flags().String("object-key", "", "object to fetch from the configured source")
	cmd.Flags().Bool("store", false, "persist the record in the configured store")
	cmd.MarkFlagsMutuallyExclusive("cert-file", "object-key")
	return cmd
}

func runAttestCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := config.With(cmd.Context(), cfg)

	persist, _ := cmd.Flags().GetBool("store")
	svc, err := newService(ctx, persist)
	if err != nil {
		return err
	}

	certFile, _ := cmd.Flags().GetString("cert-file")
	objectKey, _ := cmd.Flags().GetString("object-key")

	var record *attest.Record
	if certFile != "" {
		pemBytes, err := os.ReadFile(certFile)
		if err != nil {
			return err
		}
		record, err = svc.AttestPEM(ctx, pemBytes)
		if err != nil {
			return err
		}
	} else {
		record, err = svc.AttestObject(ctx, objectKey)
		if err != nil {
			return err
		}
	}
	return printJSON(cmd.OutOrStdout(), record)
}

func newVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "verify an attestation record against a certificate",
		Long: `Checks that an attestation record signs the public key of the given
certificate. The record is read from --record-file or looked up in the
configured store by --identity.`,
		Args: cobra.NoArgs,
		RunE: runVerifyCmd,
	}
	cmd.Flags().String("cert-file", "", "PEM certificate file the record should match")
	cmd.Flags().String("identity", "", "identity to look up in the configured store")
	cmd.Flags().String("record-file", "", "JSON record as printed by attest")
	cmd.MarkFlagsMutuallyExclusive("identity", "record-file")
	_ = cmd.MarkFlagRequired("cert-file")
	return cmd
}

type verifyOutput struct {
	Verified bool   `json:"verified"`
	Identity string `json:"identity"`
}

func runVerifyCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := config.With(cmd.Context(), cfg)

	certFile, _ := cmd.Flags().GetString("cert-file")
	identity, _ := cmd.Flags().GetString("identity")
	recordFile, _ := cmd.Flags().GetString("record-file")
	if identity == "" && recordFile == "" {
		return errors.New("one of --identity or --record-file is required")
	}

	pemBytes, err := os.ReadFile(certFile)
	if err != nil {
		return err
	}

	svc, err := newService(ctx, recordFile == "")
	if err != nil {
		return err
	}

	var record *attest.Record
	if recordFile != "" {
		b, err := os.ReadFile(recordFile)
		if err != nil {
			return err
		}
		record = &attest.Record{}
		if err := json.Unmarshal(b, record); err != nil {
			return fmt.Errorf("parsing record %s: %w", recordFile, err)
		}
		if err := svc.Pipeline().Verify(record, pemBytes); err != nil {
			return err
		}
	} else {
		record, err = svc.VerifyStored(ctx, identity, pemBytes)
		if err != nil {
			return err
		}
	}
	return printJSON(cmd.OutOrStdout(), verifyOutput{Verified: true, Identity: record.Identity})
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
