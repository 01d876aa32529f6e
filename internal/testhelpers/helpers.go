// Copyright (c) 2018 DDN. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package testhelpers supplies fixtures for exercising the hsi wrapper
// without a real HPSS installation, chiefly a scriptable stand-in for
// the hsi binary itself.
package testhelpers

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/mitchellh/go-ps"
	"github.com/pkg/errors"
)

var testPrefix = "hsitest"

// TempDir creates a scratch directory and returns it with its cleanup
// function.
func TempDir(t *testing.T) (string, func()) {
	tdir, err := ioutil.TempDir("", testPrefix)
	if err != nil {
		t.Fatal(err)
	}
	return tdir, func() {
		if err := os.RemoveAll(tdir); err != nil {
			t.Fatal(err)
		}
	}
}

// WriteFile writes contents with the given mode and fails the test on
// error.
func WriteFile(t *testing.T, path, contents string, mode os.FileMode) {
	if err := ioutil.WriteFile(path, []byte(contents), mode); err != nil {
		t.Fatal(err)
	}
	// WriteFile won't tighten an existing file's mode.
	if err := os.Chmod(path, mode); err != nil {
		t.Fatal(err)
	}
}

// FakeHsi drops an executable shell script named name into dir and
// returns its path. The script stands in for the hsi binary: it ignores
// the authentication arguments, answers the session priming sequence,
// and replies to each subsequent command line per the supplied case
// body. Every received line is appended to <path>.log so tests can
// assert on the exact commands issued.
func FakeHsi(t *testing.T, dir, name, caseBody string) string {
	path := filepath.Join(dir, name)
	script := `#!/bin/sh
log="$0.log"
while IFS= read -r line; do
  printf '%s\n' "$line" >> "$log"
  case "$line" in
    "pwd;lscon;lpwd;glob;idletime -1"*)
      echo "pwd0: /hpss/home/hsitest"
      echo "-> 1 hpss01.example.com PIPE H743.0.2"
      echo "uid=1000(hsitest) gid=100(users)"
      ;;
` + caseBody + `
    *)
      echo "uid=1000(hsitest) gid=100(users)"
      ;;
  esac
done
`
	WriteFile(t, path, script, 0755)
	return path
}

// CommandLog returns the lines the fake hsi script received on stdin.
func CommandLog(t *testing.T, bin string) []string {
	data, err := ioutil.ReadFile(bin + ".log")
	if err != nil {
		t.Fatal(err)
	}
	var lines []string
	for _, l := range splitLines(string(data)) {
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return append(out, s[start:])
}

// FindProcess looks for a running process by executable name.
func FindProcess(psName string) (ps.Process, error) {
	psList, err := ps.Processes()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get process list")
	}
	for _, process := range psList {
		if filepath.Base(process.Executable()) == psName {
			return process, nil
		}
	}
	return nil, errors.Errorf("failed to find %s in running process list", psName)
}
