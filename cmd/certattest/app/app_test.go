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
	"bytes"
	"crypto/x509/pkix"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certattest/certattest/pkg/attest"
	"github.com/certattest/certattest/pkg/certificate"
	"github.com/certattest/certattest/pkg/test"
)

// run executes the command tree with args and returns stdout.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append(args,
		"--config-path", filepath.Join(dir, "config.yaml"),
		"--env-file", filepath.Join(dir, ".env")))
	err := cmd.Execute()
	return out.String(), err
}

func writeCert(t *testing.T, dir, name, cn string) string {
	t.Helper()
	b, err := test.SelfSignedPEM(pkix.Name{CommonName: cn})
	require.NoError(t, err)
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, b, 0o600))
	return p
}

func TestAttestCertFile(t *testing.T) {
	dir := t.TempDir()
	certFile := writeCert(t, dir, "cert.pem", "alice.example.com")

	out, err := run(t, dir, "attest", "--cert-file", certFile)
	require.NoError(t, err)

	var record attest.Record
	require.NoError(t, json.Unmarshal([]byte(out), &record))
	assert.Equal(t, "alice.example.com", record.Identity)
	assert.Equal(t, certificate.KeyEncodingDER, record.KeyEncoding)
	assert.NotEmpty(t, record.Signature)
}

func TestAttestDefaultObjectFromConfig(t *testing.T) {
	dir := t.TempDir()
	certDir := filepath.Join(dir, "certs")
	require.NoError(t, os.Mkdir(certDir, 0o700))
	writeCert(t, certDir, "public-cert.pem", "device-7")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(`
keyEncoding: pem
source:
  type: file
  dir: `+certDir+`
  defaultKey: public-cert.pem
`), 0o600))

	out, err := run(t, dir, "attest", "--store")
	require.NoError(t, err)

	var record attest.Record
	require.NoError(t, json.Unmarshal([]byte(out), &record))
	assert.Equal(t, "device-7", record.Identity)
	assert.Equal(t, certificate.KeyEncodingPEM, record.KeyEncoding)
}

func TestAttestEnvFile(t *testing.T) {
	dir := t.TempDir()
	certFile := writeCert(t, dir, "cert.pem", "alice.example.com")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("CERTATTEST_KEY_ENCODING=pem\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("CERTATTEST_KEY_ENCODING") })

	out, err := run(t, dir, "attest", "--cert-file", certFile)
	require.NoError(t, err)

	var record attest.Record
	require.NoError(t, json.Unmarshal([]byte(out), &record))
	assert.Equal(t, certificate.KeyEncodingPEM, record.KeyEncoding)
}

func TestAttestErrors(t *testing.T) {
	dir := t.TempDir()
	noCN, err := test.SelfSignedPEM(pkix.Name{Organization: []string{"ExampleOrg"}})
	require.NoError(t, err)
	noCNFile := filepath.Join(dir, "nocn.pem")
	require.NoError(t, os.WriteFile(noCNFile, noCN, 0o600))

	tests := map[string]struct {
		Args    []string
		WantErr error
		Match   string
	}{
		"no common name": {
			Args:    []string{"attest", "--cert-file", noCNFile},
			WantErr: attest.ErrIdentityExtraction,
		},
		"bad key encoding": {
			Args:  []string{"attest", "--cert-file", noCNFile, "--key-encoding", "jwk"},
			Match: "invalid config",
		},
		"exclusive flags": {
			Args:  []string{"attest", "--cert-file", noCNFile, "--object-key", "x"},
			Match: "none of the others can be",
		},
		"missing default object": {
			Args:  []string{"attest", "--source-dir", dir},
			Match: "certificate source failure",
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := run(t, dir, tc.Args...)
			require.Error(t, err)
			if tc.WantErr != nil {
				assert.ErrorIs(t, err, tc.WantErr)
			}
			if tc.Match != "" {
				assert.Contains(t, err.Error(), tc.Match)
			}
		})
	}
}

func TestVerifyRecordFile(t *testing.T) {
	dir := t.TempDir()
	certFile := writeCert(t, dir, "cert.pem", "alice.example.com")
	otherFile := writeCert(t, dir, "other.pem", "alice.example.com")

	out, err := run(t, dir, "attest", "--cert-file", certFile)
	require.NoError(t, err)
	recordFile := filepath.Join(dir, "record.json")
	require.NoError(t, os.WriteFile(recordFile, []byte(out), 0o600))

	out, err = run(t, dir, "verify", "--cert-file", certFile, "--record-file", recordFile)
	require.NoError(t, err)
	var got verifyOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, verifyOutput{Verified: true, Identity: "alice.example.com"}, got)

	_, err = run(t, dir, "verify", "--cert-file", otherFile, "--record-file", recordFile)
	assert.ErrorIs(t, err, attest.ErrVerification)

	_, err = run(t, dir, "verify", "--cert-file", certFile)
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := run(t, t.TempDir(), "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "certattest devel "), out)
}
