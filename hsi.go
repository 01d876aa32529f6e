// Copyright (c) 2018 DDN. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package hsi mediates programmatic access to HPSS through the hsi
// command-line tool. It keeps a single hsi child process alive in pipe
// mode, frames commands and their output with an identity-probe
// completion marker, and parses hsi's human-oriented listing formats
// into structured metadata.
package hsi

import (
	"context"
	"fmt"
	"os/user"
	"strings"
	"sync"
	"time"

	"github.com/intel-hpdd/logging/audit"
	"github.com/intel-hpdd/logging/debug"
	"github.com/pkg/errors"
)

type (
	// Config holds everything needed to run hsi sessions.
	Config struct {
		// Username is the HPSS account to log in as. Defaults to
		// the current user.
		Username string
		// Keytab is the path to the user's keytab file. Located
		// via FindKeytab when empty.
		Keytab string
		// Bin is the path to the hsi binary. Located on PATH when
		// empty.
		Bin string
		// Base is the HPSS directory all relative paths are
		// resolved against. Defaults to ".".
		Base string
		// CallbackAddress, when set on a multi-homed host, is the
		// address hsi uses for data-channel callback ports.
		CallbackAddress string
		// DefaultCOS is the class of service for new files; -1
		// leaves the account default in place.
		DefaultCOS int
		// PollInterval is the backoff while waiting for command
		// output. Defaults to 100ms.
		PollInterval time.Duration
	}

	// Hsi is a client for one HPSS account. It owns at most one hsi
	// child process; commands are serialized, as the wire protocol
	// has no multiplexing.
	Hsi struct {
		cfg   Config
		stats *SessionStats

		mu sync.Mutex // serializes commands and guards s
		s  *session
	}
)

// DefaultPollInterval is the default output-polling backoff.
const DefaultPollInterval = 100 * time.Millisecond

// New returns a client for the supplied configuration. The hsi process
// isn't started until the first command needs it.
func New(cfg Config) (*Hsi, error) {
	if cfg.Username == "" {
		u, err := user.Current()
		if err != nil {
			return nil, errors.Wrap(err, "no username configured")
		}
		cfg.Username = u.Username
	}
	if cfg.Keytab == "" {
		keytab, err := FindKeytab(cfg.Username)
		if err != nil {
			return nil, err
		}
		cfg.Keytab = keytab
	}
	if cfg.Bin == "" {
		bin, err := FindBinary()
		if err != nil {
			return nil, err
		}
		cfg.Bin = bin
	}
	if cfg.Base == "" {
		cfg.Base = "."
	}
	if cfg.DefaultCOS == 0 {
		cfg.DefaultCOS = -1
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = DefaultPollInterval
	}

	return &Hsi{
		cfg:   cfg,
		stats: newSessionStats(),
	}, nil
}

// ensure starts a fresh hsi process if none exists or the previous one
// has died, then primes it. Spawn failures surface immediately and are
// never retried.
func (h *Hsi) ensure(ctx context.Context) error {
	if h.s != nil && h.s.alive() {
		return nil
	}
	if h.s != nil {
		h.stats.Restarted()
	}

	s, err := startSession(h.cfg.Bin, h.cfg.Keytab, h.cfg.Username, h.cfg.CallbackAddress)
	if err != nil {
		return err
	}
	h.s = s

	return h.prime(ctx)
}

// prime issues the fixed startup sequence on a fresh process and caches
// the remote working directory and HPSS version. Both are resolved
// exactly once per process lifetime. "glob" disables server-side glob
// expansion so paths pass through untouched; the idletime directive
// keeps the connection from timing out between commands.
func (h *Hsi) prime(ctx context.Context) error {
	cmd := "pwd;lscon;lpwd;glob;idletime -1"
	if h.cfg.DefaultCOS != -1 {
		cmd += fmt.Sprintf(";cos=%d", h.cfg.DefaultCOS)
	}

	intro, err := execute(ctx, h.s, cmd, h.cfg.PollInterval)
	if err != nil {
		return errors.Wrap(err, "session priming failed")
	}
	for _, l := range intro {
		if strings.HasPrefix(l, "pwd0:") && len(l) > 6 {
			h.s.cwd = l[6:]
			debug.Printf("setting cwd to %s", h.s.cwd)
		}
		if strings.HasPrefix(l, "->") {
			parts := strings.Fields(l)
			if len(parts) > 4 {
				h.s.version = parts[4]
				debug.Printf("setting HPSS version to %s", h.s.version)
			}
		}
	}
	return nil
}

// Run executes one hsi command and returns its output lines. If this
// client has no hsi process, or the previous one has died, a new one is
// created first. A dead process or fatal error is returned to the
// caller as-is; there are no retries at this layer.
func (h *Hsi) Run(ctx context.Context, cmd string) ([]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.ensure(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	lines, err := execute(ctx, h.s, cmd, h.cfg.PollInterval)
	h.stats.Completed(start, err)
	return lines, err
}

// RunArgs joins the non-empty arguments into a single command line and
// runs it.
func (h *Hsi) RunArgs(ctx context.Context, args ...string) ([]string, error) {
	fields := make([]string, 0, len(args))
	for _, a := range args {
		if a != "" {
			fields = append(fields, a)
		}
	}
	return h.Run(ctx, strings.Join(fields, " "))
}

// Version returns the remote HPSS version string (e.g. "H743.0.2"), or
// "" if no session has been established yet.
func (h *Hsi) Version() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.s == nil {
		return ""
	}
	return h.s.version
}

// Cwd returns hsi's remote working directory, or "" if no session has
// been established yet.
func (h *Hsi) Cwd() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.s == nil {
		return ""
	}
	return h.s.cwd
}

// Stats returns this client's session statistics.
func (h *Hsi) Stats() *SessionStats {
	return h.stats
}

// Config returns the resolved configuration this client was built with.
func (h *Hsi) Config() Config {
	return h.cfg
}

// Close force-terminates the hsi process, if one is running. The client
// remains usable; the next command starts a fresh process. Close is
// idempotent.
func (h *Hsi) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.s == nil {
		return nil
	}
	h.s.kill()
	h.s = nil
	audit.Logf("hsi session for %s closed: %s", h.cfg.Username, h.stats)
	return nil
}
