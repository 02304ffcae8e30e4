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

package log

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestID(t *testing.T) {
	tests := map[string]struct {
		ctx  context.Context
		want string
	}{
		"empty context": {
			ctx:  context.Background(),
			want: "",
		},
		"request id set": {
			ctx:  WithRequestID(context.Background(), "abc-123"),
			want: "abc-123",
		},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			if got := RequestID(test.ctx); got != test.want {
				t.Errorf("RequestID() = %q, want %q", got, test.want)
			}
		})
	}
}

func TestContextLoggerAddsRequestID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	saved := Logger
	Logger = zap.New(core).Sugar()
	t.Cleanup(func() { Logger = saved })

	ContextLogger(WithRequestID(context.Background(), "req-1")).Info("hello")
	ContextLogger(context.Background()).Info("bare")

	entries := logs.AllUntimed()
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["requestID"]; got != "req-1" {
		t.Errorf("expected requestID field req-1, got %v", got)
	}
	if _, ok := entries[1].ContextMap()["requestID"]; ok {
		t.Error("did not expect requestID field without a request id")
	}
}

func TestConfigureLogger(t *testing.T) {
	saved := Logger
	t.Cleanup(func() { Logger = saved })

	for _, logType := range []string{"dev", "prod"} {
		ConfigureLogger(logType)
		if Logger == nil {
			t.Fatalf("logger not configured for %s", logType)
		}
	}
}
