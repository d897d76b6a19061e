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

// Package executor drives HTTP requests against two targets, in order,
// with global rate limiting, per-operation timeouts, and transport-error
// capture (§4.6).
package executor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/apidiff/apidiff/internal/apijson"
	"github.com/apidiff/apidiff/internal/fuzzcase"
	"github.com/apidiff/apidiff/internal/fuzzconfig"
)

// Config controls timeouts and rate limiting for an Executor (§4.6, §6).
type Config struct {
	DefaultTimeout    time.Duration
	OperationTimeouts map[string]time.Duration
	RequestsPerSecond float64
}

// Executor wraps one HTTP client per target and issues requests serially:
// Target A strictly before Target B, for every case (§5 "Ordering").
type Executor struct {
	targetA *target
	targetB *target
	limiter *rateLimiter
	cfg     Config
}

// New builds an Executor for the two named targets in cfg.
func New(runtimeCfg *fuzzconfig.Config, nameA, nameB string, execCfg Config) (*Executor, error) {
	tcA, err := runtimeCfg.Target(nameA)
	if err != nil {
		return nil, err
	}
	tcB, err := runtimeCfg.Target(nameB)
	if err != nil {
		return nil, err
	}

	a, err := newTarget(nameA, tcA)
	if err != nil {
		return nil, err
	}
	b, err := newTarget(nameB, tcB)
	if err != nil {
		a.Close()
		return nil, err
	}

	rps := execCfg.RequestsPerSecond
	if runtimeCfg.RateLimit != nil && rps == 0 {
		rps = runtimeCfg.RateLimit.RequestsPerSecond
	}

	return &Executor{
		targetA: a,
		targetB: b,
		limiter: newRateLimiter(rps),
		cfg:     execCfg,
	}, nil
}

// Close releases both targets' HTTP clients even if the first panics
// mid-release (§5 "HTTP clients").
func (e *Executor) Close() {
	defer e.targetB.Close()
	e.targetA.Close()
}

func (e *Executor) timeoutFor(operationID string) time.Duration {
	if d, ok := e.cfg.OperationTimeouts[operationID]; ok {
		return d
	}
	if e.cfg.DefaultTimeout > 0 {
		return e.cfg.DefaultTimeout
	}
	return 30 * time.Second
}

// Execute sends request to Target A then Target B, in that order, gated
// by the shared rate limiter (§4.6 "execute").
func (e *Executor) Execute(ctx context.Context, request *fuzzcase.RequestCase) (*fuzzcase.ResponseCase, *fuzzcase.ResponseCase) {
	timeout := e.timeoutFor(request.OperationID)

	e.limiter.wait()
	respA := e.send(ctx, e.targetA, request, timeout)

	e.limiter.wait()
	respB := e.send(ctx, e.targetB, request, timeout)

	return respA, respB
}

// send issues one request against t, translating transport failures into
// a ResponseCase with Error set and StatusCode 0 (§4.6, §7).
func (e *Executor) send(ctx context.Context, t *target, rc *fuzzcase.RequestCase, timeout time.Duration) *fuzzcase.ResponseCase {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := e.buildRequest(reqCtx, t, rc)
	if err != nil {
		return &fuzzcase.ResponseCase{Error: err.Error()}
	}

	start := time.Now()
	httpResp, err := t.httpClient.Do(httpReq)
	elapsed := time.Since(start)
	if err != nil {
		return &fuzzcase.ResponseCase{Error: err.Error(), ElapsedMS: elapsed.Milliseconds()}
	}
	defer httpResp.Body.Close()

	bodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return &fuzzcase.ResponseCase{Error: fmt.Sprintf("reading response body: %v", err), ElapsedMS: elapsed.Milliseconds()}
	}

	headers := fuzzcase.NewOrderedMap()
	for name, values := range httpResp.Header {
		for _, v := range values {
			headers.Add(name, v)
		}
	}

	return &fuzzcase.ResponseCase{
		StatusCode: httpResp.StatusCode,
		Headers:    headers,
		Body:       decodeBody(httpResp.Header.Get("Content-Type"), bodyBytes),
		ElapsedMS:  elapsed.Milliseconds(),
		Proto:      httpResp.Proto,
	}
}

func (e *Executor) buildRequest(ctx context.Context, t *target, rc *fuzzcase.RequestCase) (*http.Request, error) {
	if missing := rc.MissingPathParams(); len(missing) > 0 {
		return nil, fmt.Errorf("request %s: unbound path parameters %v", rc.ID, missing)
	}

	url := t.baseURL + rc.Path
	if q := encodeQuery(rc.Query); q != "" {
		url += "?" + q
	}

	var bodyReader io.Reader
	if rc.Body.HasBinary {
		bodyReader = bytes.NewReader(rc.Body.Binary)
	} else if rc.Body.Structured != nil {
		encoded, err := apijson.Marshal(rc.Body.Structured)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, rc.Method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	for name, value := range t.headers {
		httpReq.Header.Set(name, value)
	}
	if rc.Headers != nil {
		for _, key := range rc.Headers.Keys() {
			values, _ := rc.Headers.Values(key)
			for _, v := range values {
				httpReq.Header.Add(key, v)
			}
		}
	}
	if rc.MediaType != "" {
		httpReq.Header.Set("Content-Type", rc.MediaType)
	} else if rc.Body.Structured != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	return httpReq, nil
}

func encodeQuery(q *fuzzcase.OrderedMap) string {
	if q == nil {
		return ""
	}
	var parts []string
	for _, key := range q.Keys() {
		values, _ := q.Values(key)
		for _, v := range values {
			parts = append(parts, url.QueryEscape(key)+"="+url.QueryEscape(v))
		}
	}
	return strings.Join(parts, "&")
}

func decodeBody(contentType string, raw []byte) fuzzcase.Body {
	if len(raw) == 0 {
		return fuzzcase.Body{}
	}
	if strings.Contains(contentType, "json") {
		var v any
		if err := apijson.Unmarshal(raw, &v); err == nil {
			return fuzzcase.StructuredBody(v)
		}
	}
	return fuzzcase.BinaryBody(raw)
}
