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
	"context"

	"golang.org/x/time/rate"
)

// rateLimiter gates outbound requests to a minimum interval, mirroring
// the teacher's evalaf/eval/runner.go use of golang.org/x/time/rate: a
// single-token-burst limiter whose internal Reserve() computes the next
// allowed send time under its own lock, while the resulting sleep happens
// outside that lock so ordering is preserved even under accidental
// concurrent callers (§4.6, §5 "Rate limiter").
type rateLimiter struct {
	limiter *rate.Limiter
}

// newRateLimiter builds a limiter from requests-per-second; zero or
// negative disables gating. Burst is fixed at 1 so the limiter behaves as
// the spec's (min_interval, last_send_time) gate rather than admitting a
// batch of requests up front.
func newRateLimiter(requestsPerSecond float64) *rateLimiter {
	if requestsPerSecond <= 0 {
		return &rateLimiter{}
	}
	return &rateLimiter{limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1)}
}

// wait reserves the next send slot and sleeps until it arrives.
func (r *rateLimiter) wait() {
	if r.limiter == nil {
		return
	}
	_ = r.limiter.Wait(context.Background())
}
