// Copyright (c) 2018 DDN. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hsi

import (
	"os"
	"testing"

	"github.com/pkg/errors"
)

// The typed errors are leaves: errors.Cause must stop at them, not
// unwrap through to whatever they carry.
func TestStartupErrorIsACause(t *testing.T) {
	spawn := &os.PathError{Op: "fork/exec", Path: "/nonexistent/hsi", Err: os.ErrNotExist}
	err := errors.Wrap(&StartupError{Bin: "/nonexistent/hsi", Err: spawn}, "session start failed")

	se, ok := errors.Cause(err).(*StartupError)
	if !ok {
		t.Fatalf("expected StartupError, got %v", errors.Cause(err))
	}
	if se.Err != spawn {
		t.Fatalf("spawn error not preserved: %v", se.Err)
	}
}

func TestCommandErrorIsACause(t *testing.T) {
	line := "*** hsi: operation failed"
	err := errors.Wrap(&CommandError{Line: line}, "chmod failed")

	ce, ok := errors.Cause(err).(*CommandError)
	if !ok {
		t.Fatalf("expected CommandError, got %v", errors.Cause(err))
	}
	if ce.Line != line {
		t.Fatalf("line not preserved: %q", ce.Line)
	}
}
