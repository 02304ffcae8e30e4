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

package awsutil

import (
	"testing"

	"github.com/aws/aws-sdk-go/aws"

	"github.com/certattest/certattest/pkg/config"
)

func TestNewSession(t *testing.T) {
	tests := map[string]struct {
		Config        config.AWSConfig
		WantPathStyle bool
		WantStatic    bool
	}{
		"region only": {
			Config: config.AWSConfig{Region: "ap-southeast-1"},
		},
		"local endpoint": {
			Config:        config.AWSConfig{Region: "us-east-1", Endpoint: "http://localhost:4566"},
			WantPathStyle: true,
		},
		"static credentials": {
			Config:     config.AWSConfig{Region: "us-east-1", AccessKeyID: "AKID", SecretAccessKey: "SECRET"},
			WantStatic: true,
		},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			sess, err := NewSession(test.Config)
			if err != nil {
				t.Fatal(err)
			}
			if got := aws.StringValue(sess.Config.Region); got != test.Config.Region {
				t.Errorf("region = %q, want %q", got, test.Config.Region)
			}
			if got := aws.BoolValue(sess.Config.S3ForcePathStyle); got != test.WantPathStyle {
				t.Errorf("path style = %v, want %v", got, test.WantPathStyle)
			}
			if test.WantStatic {
				creds, err := sess.Config.Credentials.Get()
				if err != nil {
					t.Fatal(err)
				}
				if creds.AccessKeyID != "AKID" {
					t.Errorf("access key = %q, want AKID", creds.AccessKeyID)
				}
			}
		})
	}
}
