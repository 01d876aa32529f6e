// Copyright (c) 2018 DDN. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hsi

import (
	"context"
	"io"
	"regexp"
	"time"

	"github.com/intel-hpdd/logging/debug"
	"github.com/pkg/errors"
)

// Every command is suffixed with an identity probe; its output is the
// completion marker. No listing or management command can produce a
// line in this format.
const probeSuffix = ";id"

var (
	markerPattern = regexp.MustCompile(`^uid=\d+\(.+`)
	failPattern   = regexp.MustCompile(`^\*\*\*.+`)

	// benignPatterns is the ordered allow-list of *** lines that do
	// not abort a command. First match wins; anything unmatched is
	// fatal. "heirarchy" is hsi's own spelling.
	benignPatterns = []*regexp.Regexp{
		regexp.MustCompile(`.+getFile: no valid checksum for.*`),
		regexp.MustCompile(`.+no data at heirarchy level.*`),
		regexp.MustCompile(`.+ls:.+HPSS_NOENT.*`),
		regexp.MustCompile(`.+Background stage failed with error -5.*`),
		regexp.MustCompile(`.+setting nameserver attributes.+HPSS_EACCES.*`),
		regexp.MustCompile(`.+stage: No such file or directory.*`),
	}
)

type lineClass int

const (
	lineData lineClass = iota
	lineBenign
	lineFatal
	lineMarker
)

func classify(line string) lineClass {
	if failPattern.MatchString(line) {
		for _, p := range benignPatterns {
			if p.MatchString(line) {
				return lineBenign
			}
		}
		return lineFatal
	}
	if markerPattern.MatchString(line) {
		return lineMarker
	}
	return lineData
}

// execute sends one command to the session and collects its output up
// to the completion marker. The marker line is excluded from the
// result. A fatal *** line aborts immediately with a CommandError
// carrying that exact text; process death before the marker is an
// ExitError. Waiting for output backs off in interval-sized steps so a
// caller timeout or shutdown can cancel an in-flight command, which
// kills the process.
func execute(ctx context.Context, s *session, cmd string, interval time.Duration) ([]string, error) {
	debug.Printf("running command: %s%s", cmd, probeSuffix)
	if _, err := io.WriteString(s.stdin, cmd+probeSuffix+"\n"); err != nil {
		if !s.alive() {
			return nil, &ExitError{Code: s.exitCode}
		}
		return nil, errors.Wrap(err, "write command failed")
	}

	var result []string
	for {
		select {
		case line, ok := <-s.lines:
			if !ok {
				// Output stream closed: the process is on
				// its way out. Wait for the exit status.
				<-s.done
				return nil, &ExitError{Code: s.exitCode}
			}
			debug.Printf("got line: [%s]", line)
			switch classify(line) {
			case lineBenign:
				// Ignorable tool complaint; keep reading.
			case lineFatal:
				return nil, &CommandError{Line: line}
			case lineMarker:
				return result, nil
			default:
				result = append(result, line)
			}
		case <-ctx.Done():
			s.kill()
			return nil, errors.Wrap(ctx.Err(), "command aborted")
		case <-time.After(interval):
			// No output yet; re-poll. Process death shows up as
			// a closed line stream above.
		}
	}
}
