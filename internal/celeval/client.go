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

package celeval

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// callerTimeout is the timeout §4.1 mandates the caller enforce; it is
// intentionally larger than the evaluator's own 5s internal timeout so a
// hung subprocess is detected here rather than relied upon to self-police.
const callerTimeout = 10 * time.Second

// maxConsecutiveRestarts bounds subprocess restart attempts (§4.1, §5)
// before a fatal error is surfaced.
const maxConsecutiveRestarts = 3

// Client hosts one evaluator subprocess and serializes access to it. The
// Evaluator interface is single-reader/single-writer: callers must not
// invoke Eval concurrently (§4.1 Concurrency) — Client enforces this with
// a mutex and detects accidental interleaving via id mismatch.
type Client struct {
	evaluatorPath string
	logger        *zap.Logger

	mu      sync.Mutex
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stdout  *bufio.Reader
	nextID  atomic.Uint64
	restarts int
}

// NewClient returns a Client that spawns evaluatorPath on first use.
func NewClient(evaluatorPath string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{evaluatorPath: evaluatorPath, logger: logger}
}

// Eval evaluates expr against data and returns its boolean result. Compile
// errors, evaluation errors, and non-boolean results come back as a
// regular (false, err) pair per the failure taxonomy in §4.1; only a
// subprocess crash after exhausting restarts is fatal.
func (c *Client) Eval(ctx context.Context, expr string, data map[string]any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	evalCtx, cancel := context.WithTimeout(ctx, callerTimeout)
	defer cancel()

	for {
		if c.cmd == nil {
			if err := c.spawnLocked(); err != nil {
				return false, fmt.Errorf("spawning evaluator: %w", err)
			}
		}

		resp, err := c.sendLocked(evalCtx, expr, data)
		if err == nil {
			c.restarts = 0
			if !resp.OK {
				return false, fmt.Errorf("%s", resp.Error)
			}
			return resp.Result, nil
		}

		if !isCrash(err) {
			return false, err
		}

		c.teardownLocked()
		c.restarts++
		if c.restarts >= maxConsecutiveRestarts {
			return false, fmt.Errorf("evaluator crashed %d times consecutively, giving up: %w", c.restarts, err)
		}
		c.logger.Warn("evaluator subprocess crashed, restarting", zap.Error(err), zap.Int("restart", c.restarts))
	}
}

type crashError struct{ err error }

func (e crashError) Error() string { return e.err.Error() }
func (e crashError) Unwrap() error { return e.err }

func isCrash(err error) bool {
	_, ok := err.(crashError)
	return ok
}

func (c *Client) spawnLocked() error {
	cmd := exec.Command(c.evaluatorPath)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return err
	}

	reader := bufio.NewReader(stdout)
	line, err := reader.ReadString('\n')
	if err != nil {
		_ = cmd.Process.Kill()
		_, _ = cmd.Process.Wait()
		return fmt.Errorf("reading ready handshake: %w", err)
	}
	var ready ReadyMessage
	if err := json.Unmarshal([]byte(line), &ready); err != nil || !ready.Ready {
		_ = cmd.Process.Kill()
		_, _ = cmd.Process.Wait()
		return fmt.Errorf("evaluator did not send ready handshake")
	}

	c.cmd = cmd
	c.stdin = stdin
	c.stdout = reader
	return nil
}

func (c *Client) sendLocked(ctx context.Context, expr string, data map[string]any) (Response, error) {
	id := strconv.FormatUint(c.nextID.Add(1), 10)
	req := Request{ID: id, Expr: expr, Data: data}

	encoded, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("encoding request: %w", err)
	}
	encoded = append(encoded, '\n')

	type result struct {
		resp Response
		err  error
	}
	done := make(chan result, 1)

	go func() {
		if _, err := c.stdin.Write(encoded); err != nil {
			done <- result{err: crashError{err}}
			return
		}
		line, err := c.stdout.ReadString('\n')
		if err != nil {
			done <- result{err: crashError{fmt.Errorf("reading response: %w", err)}}
			return
		}
		var resp Response
		if err := json.Unmarshal([]byte(line), &resp); err != nil {
			done <- result{err: crashError{fmt.Errorf("decoding response: %w", err)}}
			return
		}
		if resp.ID != id {
			done <- result{err: fmt.Errorf("id mismatch: sent %s, got %s (concurrent access?)", id, resp.ID)}
			return
		}
		done <- result{resp: resp}
	}()

	select {
	case r := <-done:
		return r.resp, r.err
	case <-ctx.Done():
		c.teardownLocked()
		return Response{}, crashError{fmt.Errorf("evaluator timed out: %w", ctx.Err())}
	}
}

// teardownLocked terminates the subprocess, waits with a bound, and force
// kills if it does not exit, reaping the child on every branch (§5).
func (c *Client) teardownLocked() {
	if c.cmd == nil {
		return
	}
	cmd := c.cmd
	c.cmd, c.stdin, c.stdout = nil, nil, nil

	_ = cmd.Process.Kill()
	waitDone := make(chan struct{})
	go func() {
		_, _ = cmd.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
	case <-time.After(2 * time.Second):
	}
}

// Close terminates the evaluator subprocess, if running.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardownLocked()
	return nil
}
