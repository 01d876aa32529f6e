// Copyright (c) 2018 DDN. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hsi

import (
	"bytes"
	"context"
	"reflect"
	"testing"
	"time"
)

type stdinRecorder struct {
	bytes.Buffer
}

func (r *stdinRecorder) Close() error { return nil }

// fakeSession returns a session fed by a canned response, without a
// child process behind it.
func fakeSession(lines ...string) (*session, *stdinRecorder) {
	rec := &stdinRecorder{}
	ch := make(chan string, len(lines))
	for _, l := range lines {
		ch <- l
	}
	return &session{
		stdin: rec,
		lines: ch,
		done:  make(chan struct{}),
	}, rec
}

func TestExecuteFramesOneCommand(t *testing.T) {
	s, stdin := fakeSession(
		"drwxr-xr-x   2 alice users    5 100  512 Jan 01 2024 09:00:00 stuff",
		"-rw-r--r--   1 alice users    5 100  1024 Jan 01 2024 12:00:00 foo.txt",
		"uid=1000(alice) gid=100(users) groups=100(users)",
	)

	lines, err := execute(context.Background(), s, "ls -alD /hpss/home/alice", time.Millisecond)
	if err != nil {
		t.Fatalf("err: %s", err)
	}

	if got := stdin.String(); got != "ls -alD /hpss/home/alice;id\n" {
		t.Fatalf("sent %q, expected exactly one probe suffix", got)
	}
	expected := []string{
		"drwxr-xr-x   2 alice users    5 100  512 Jan 01 2024 09:00:00 stuff",
		"-rw-r--r--   1 alice users    5 100  1024 Jan 01 2024 12:00:00 foo.txt",
	}
	if !reflect.DeepEqual(lines, expected) {
		t.Fatalf("\nexpected: %#v\ngot: %#v", expected, lines)
	}
}

func TestExecuteBenignErrors(t *testing.T) {
	benign := []string{
		"*** hashcreate: getFile: no valid checksum for /hpss/home/alice/foo.txt",
		"*** hashlist: no data at heirarchy level 0",
		"*** ls: /hpss/home/alice/gone: HPSS_NOENT",
		"*** Background stage failed with error -5",
		"*** Error setting nameserver attributes for foo: HPSS_EACCES",
		"*** stage: No such file or directory",
	}
	for _, line := range benign {
		s, _ := fakeSession(line, "uid=1000(alice) gid=100(users)")
		lines, err := execute(context.Background(), s, "stage -w foo", time.Millisecond)
		if err != nil {
			t.Fatalf("%q should be benign, got %s", line, err)
		}
		if len(lines) != 0 {
			t.Fatalf("%q leaked into output: %#v", line, lines)
		}
	}
}

func TestExecuteFatalError(t *testing.T) {
	s, _ := fakeSession(
		"*** ls: foo: HPSS_ENOENT",
		"uid=1000(alice) gid=100(users)",
		"trailing line",
	)

	_, err := execute(context.Background(), s, "ls -aldD foo", time.Millisecond)
	ce, ok := err.(*CommandError)
	if !ok {
		t.Fatalf("expected CommandError, got %v", err)
	}
	if ce.Line != "*** ls: foo: HPSS_ENOENT" {
		t.Fatalf("expected exact error line, got %q", ce.Line)
	}
	// A fatal line aborts immediately; nothing else is consumed.
	if len(s.lines) != 2 {
		t.Fatalf("expected 2 unread lines, found %d", len(s.lines))
	}
}

func TestExecuteProcessDied(t *testing.T) {
	s, _ := fakeSession("some partial output")
	close(s.lines)
	s.exitCode = 3
	close(s.done)

	_, err := execute(context.Background(), s, "ls", time.Millisecond)
	ee, ok := err.(*ExitError)
	if !ok {
		t.Fatalf("expected ExitError, got %v", err)
	}
	if ee.Code != 3 {
		t.Fatalf("expected rc 3, got %d", ee.Code)
	}
}

func TestExecuteCancel(t *testing.T) {
	s, _ := fakeSession() // no output ever arrives

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := execute(ctx, s, "ls", time.Millisecond)
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if time.Since(start) > time.Second {
		t.Fatal("cancellation didn't interrupt the polling wait")
	}
}

func TestClassify(t *testing.T) {
	var tests = []struct {
		line  string
		class lineClass
	}{
		{"uid=1000(alice) gid=100(users)", lineMarker},
		{"uid=(alice)", lineData}, // no digits, not a marker
		{"-rw-r--r-- 1 a b 5 100 10 Jan 01 2024 12:00:00 f", lineData},
		{"*** ls: foo: HPSS_ENOENT", lineFatal},
		{"*** ls: foo: HPSS_NOENT", lineBenign},
		{"***", lineData}, // bare prefix never occurs; needs trailing text
		{"*** anything else at all", lineFatal},
	}

	for _, tc := range tests {
		if got := classify(tc.line); got != tc.class {
			t.Errorf("classify(%q) = %v, expected %v", tc.line, got, tc.class)
		}
	}
}
