// Copyright (c) 2018 DDN. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hsi

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

type (
	// StartupError indicates that the hsi child process could not be
	// spawned. It is never retried.
	StartupError struct {
		Bin string
		Err error
	}

	// ExitError indicates that the hsi process exited before a command
	// completed.
	ExitError struct {
		Code int
	}

	// CommandError carries the exact text of a fatal *** line emitted
	// by hsi while a command was running.
	CommandError struct {
		Line string
	}

	// ParseError indicates that listing output didn't match any
	// recognized layout.
	ParseError struct {
		Line   string
		Reason string
	}
)

func (e *StartupError) Error() string {
	return fmt.Sprintf("cannot start %s: %s", e.Bin, e.Err)
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("hsi process died, rc: %d", e.Code)
}

func (e *CommandError) Error() string {
	return e.Line
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unparseable listing line %q: %s", e.Line, e.Reason)
}

// IsNotExist returns true if the error indicates that the path named by
// an operation does not exist on HPSS. This is the single place where
// hsi error text is interpreted; everything else propagates unchanged.
func IsNotExist(err error) bool {
	if ce, ok := errors.Cause(err).(*CommandError); ok {
		return strings.Contains(ce.Line, "HPSS_ENOENT")
	}
	return false
}
