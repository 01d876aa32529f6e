// Copyright (c) 2018 DDN. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hsi

import (
	"bufio"
	"io"
	"os"
	"os/exec"
	"syscall"

	"github.com/intel-hpdd/logging/debug"
)

// session owns one long-lived hsi child process and the line-oriented
// channel to it. A session's cached working directory and HPSS version
// are resolved at most once, on the first command after startup.
type session struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser

	// lines carries stdout lines from the reader goroutine; it is
	// closed when the stream ends.
	lines chan string

	// done is closed once the process has been reaped; exitCode is
	// valid afterwards.
	done     chan struct{}
	exitCode int

	cwd     string
	version string
}

// startSession spawns hsi in pipe mode with keytab authentication. The
// callback address, when set, is passed through HPSS_HOSTNAME so that
// hsi opens data-channel callback ports on the right interface of a
// multi-homed host.
func startSession(bin, keytab, username, callback string) (*session, error) {
	cmd := exec.Command(bin,
		"-P", // pipe access
		"-A", "keytab",
		"-k", keytab,
		"-l", username)
	if callback != "" {
		cmd.Env = append(os.Environ(), "HPSS_HOSTNAME="+callback)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &StartupError{Bin: bin, Err: err}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &StartupError{Bin: bin, Err: err}
	}

	if err := cmd.Start(); err != nil {
		return nil, &StartupError{Bin: bin, Err: err}
	}
	debug.Printf("started %s (pid %d) for %s", bin, cmd.Process.Pid, username)

	s := &session{
		cmd:   cmd,
		stdin: stdin,
		lines: make(chan string, 32),
		done:  make(chan struct{}),
	}

	go func() {
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			s.lines <- scanner.Text()
		}
		close(s.lines)

		err := cmd.Wait()
		s.exitCode = exitCode(err)
		debug.Printf("%s (pid %d) exited, rc: %d", bin, cmd.Process.Pid, s.exitCode)
		close(s.done)
	}()

	return s, nil
}

// alive reports whether the child process is still running.
func (s *session) alive() bool {
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// kill force-terminates the child. The wire protocol has no in-band
// abort, so this is the only way to stop an in-flight command.
func (s *session) kill() {
	if s.cmd == nil || !s.alive() {
		return
	}
	s.stdin.Close()
	if err := s.cmd.Process.Kill(); err != nil {
		debug.Printf("kill pid %d: %v", s.cmd.Process.Pid, err)
	}
	// Unblock the reader so the process can be reaped.
	for range s.lines {
	}
	<-s.done
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if ee, ok := err.(*exec.ExitError); ok {
		if ws, ok := ee.Sys().(syscall.WaitStatus); ok {
			if ws.Signaled() {
				return -int(ws.Signal())
			}
			return ws.ExitStatus()
		}
	}
	return -1
}
