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

// Command prometheus checks the metrics of a certattest server after an
// end-to-end run that performed exactly one successful attestation.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

const (
	latencyMetric = "certattest_api_latency"
	attestMetric  = "certattest_attestations_total"
)

func parseMF(r io.Reader) (map[string]*dto.MetricFamily, error) {
	var parser expfmt.TextParser
	return parser.TextToMetricFamilies(r)
}

func main() {
	f := flag.String("url", "http://localhost:2112/metrics", "set url to fetch metrics from")
	flag.Parse()

	resp, err := http.Get(*f) // nolint
	if err != nil {
		log.Fatalf("Failed to fetch metrics: %v", err)
	}
	defer resp.Body.Close()

	mf, err := parseMF(resp.Body)
	if err != nil {
		log.Fatalf("Failed to parse metrics: %v", err)
	}
	if err := check(mf); err != nil {
		log.Fatal(err)
	}
}

func check(mf map[string]*dto.MetricFamily) error {
	latency, ok := mf[latencyMetric]
	if !ok || latency == nil {
		return fmt.Errorf("did not get %s metric", latencyMetric)
	}
	if err := checkLatency(latency); err != nil {
		return fmt.Errorf("%s metric failed: %w", latencyMetric, err)
	}

	attestations, ok := mf[attestMetric]
	if !ok || attestations == nil {
		return fmt.Errorf("did not get %s metric", attestMetric)
	}
	if err := checkAttestations(attestations); err != nil {
		return fmt.Errorf("%s metric failed: %w", attestMetric, err)
	}
	return nil
}

// checkLatency requires a histogram with a single POST answered with 201.
func checkLatency(latency *dto.MetricFamily) error {
	if latency.GetType() != dto.MetricType_HISTOGRAM {
		return fmt.Errorf("wrong type, wanted %v, got: %v", dto.MetricType_HISTOGRAM, latency.GetType())
	}
	var found *dto.Metric
	for _, m := range latency.Metric {
		if label(m, "code") == "201" && label(m, "method") == "post" {
			found = m
		}
	}
	if found == nil {
		return errors.New("no post answered with 201")
	}
	if found.GetHistogram().GetSampleCount() != 1 {
		return fmt.Errorf("unexpected samplecount, wanted 1, got %d", found.GetHistogram().GetSampleCount())
	}
	return nil
}

func checkAttestations(attestations *dto.MetricFamily) error {
	if attestations.GetType() != dto.MetricType_COUNTER {
		return fmt.Errorf("wrong type, wanted %v, got: %v", dto.MetricType_COUNTER, attestations.GetType())
	}
	for _, m := range attestations.Metric {
		if label(m, "outcome") != "success" {
			continue
		}
		if m.GetCounter().GetValue() < 1 {
			return fmt.Errorf("got incorrect attestation count, wanted one, got: %f", m.GetCounter().GetValue())
		}
		return nil
	}
	return errors.New("no successful attestations")
}

func label(m *dto.Metric, name string) string {
	for _, l := range m.Label {
		if l.GetName() == name {
			return l.GetValue()
		}
	}
	return ""
}
