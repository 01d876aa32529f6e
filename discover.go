// Copyright (c) 2018 DDN. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hsi

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/pkg/errors"
)

const keytabName = ".hsi.keytab"

// FindKeytab looks for the user's hsi keytab in the usual places: the
// current home directory, then /home/<username>.
func FindKeytab(username string) (string, error) {
	if home, err := os.UserHomeDir(); err == nil {
		p := filepath.Join(home, keytabName)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	p := filepath.Join("/home", username, keytabName)
	if _, err := os.Stat(p); err == nil {
		return p, nil
	}
	return "", errors.Errorf("cannot find %s for %s", keytabName, username)
}

// FindBinary searches PATH for the hsi binary.
func FindBinary() (string, error) {
	bin, err := exec.LookPath("hsi")
	if err != nil {
		return "", errors.Wrap(err, "cannot find hsi binary")
	}
	return bin, nil
}

// Ping is a lightweight liveness check of the remote HPSS service: a
// one-shot hsi invocation whose exit status tells whether the server is
// answering. It does not touch any long-lived session.
func Ping(cfg Config) (bool, error) {
	cmd := exec.Command(cfg.Bin,
		"-P",
		"-A", "keytab",
		"-k", cfg.Keytab,
		"-l", cfg.Username,
		"pwd")
	if cfg.CallbackAddress != "" {
		cmd.Env = append(os.Environ(), "HPSS_HOSTNAME="+cfg.CallbackAddress)
	}

	if err := cmd.Run(); err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return false, nil
		}
		return false, errors.Wrap(err, "cannot ping HPSS")
	}
	return true, nil
}
