/*
Copyright 2025 The apidiff Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package executor

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"

	"github.com/apidiff/apidiff/internal/fuzzconfig"
)

// target wraps one http.Client configured once at construction with base
// URL, TLS material, and default headers (§4.6).
type target struct {
	name       string
	baseURL    string
	headers    map[string]string
	httpClient *http.Client
}

// newTarget builds a target's HTTP client from its configuration.
func newTarget(name string, cfg fuzzconfig.TargetConfig) (*target, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	tlsConfig := &tls.Config{}
	if cfg.VerifySSL != nil && !*cfg.VerifySSL {
		tlsConfig.InsecureSkipVerify = true
	}

	if cfg.Cert != "" && cfg.Key != "" {
		cert, err := tls.LoadX509KeyPair(cfg.Cert, cfg.Key)
		if err != nil {
			return nil, fmt.Errorf("target %s: loading client cert: %w", name, err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	if cfg.CABundle != "" {
		pem, err := os.ReadFile(cfg.CABundle)
		if err != nil {
			return nil, fmt.Errorf("target %s: reading ca_bundle: %w", name, err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("target %s: ca_bundle contains no usable certificates", name)
		}
		tlsConfig.RootCAs = pool
	}

	transport.TLSClientConfig = tlsConfig

	return &target{
		name:    name,
		baseURL: cfg.BaseURL,
		headers: cfg.Headers,
		httpClient: &http.Client{
			Transport: transport,
		},
	}, nil
}

// Close releases the target's idle connections.
func (t *target) Close() {
	if tr, ok := t.httpClient.Transport.(*http.Transport); ok {
		tr.CloseIdleConnections()
	}
}
