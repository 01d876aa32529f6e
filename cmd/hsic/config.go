// Copyright (c) 2018 DDN. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"io/ioutil"
	"os"

	"github.com/hashicorp/hcl"
	"github.com/pkg/errors"
)

type hsicConfig struct {
	Username string `hcl:"username"`
	Keytab   string `hcl:"keytab"`
	Binary   string `hcl:"binary"`
	Base     string `hcl:"base"`
	Callback string `hcl:"callback"`
	COS      int    `hcl:"cos"`
}

// DefaultConfigPath is consulted when no -config flag is given.
const DefaultConfigPath = "/etc/hsic/hsic.hcl"

// loadConfig reads and decodes an hcl config file. The keytab path in
// the file grants HPSS access, so a world- or group-readable config is
// rejected.
func loadConfig(cfgFile string, cfg *hsicConfig) error {
	fi, err := os.Stat(cfgFile)
	if err != nil {
		return errors.Wrap(err, "stat config file failed")
	}
	if (int(fi.Mode()) & 077) != 0 {
		return errors.New("config file permissions are insecure")
	}

	data, err := ioutil.ReadFile(cfgFile)
	if err != nil {
		return errors.Wrap(err, "read config file failed")
	}

	if err := hcl.Decode(cfg, string(data)); err != nil {
		return errors.Wrap(err, "decode config file failed")
	}

	return nil
}
