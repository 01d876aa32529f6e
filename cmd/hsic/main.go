// Copyright (c) 2018 DDN. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// hsic is a thin command-line front end over the go-hsi wrapper, mainly
// useful for poking at an HPSS installation with the same code paths
// the library's consumers use.
package main

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/urfave/cli.v1"

	"github.com/intel-hpdd/logging/alert"
	"github.com/intel-hpdd/logging/debug"

	hsi "github.com/whamcloud/go-hsi"
)

var version string // set by build environment

func main() {
	app := cli.NewApp()
	app.Usage = "HPSS access via hsi"
	app.Version = version
	app.Commands = commands
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "config",
			EnvVar: "HSIC_CONFIG",
			Usage:  "Path to config file",
			Value:  DefaultConfigPath,
		},
		cli.StringFlag{
			Name:   "user, l",
			EnvVar: "HSIC_USER",
			Usage:  "HPSS username",
		},
		cli.StringFlag{
			Name:   "keytab, k",
			EnvVar: "HSIC_KEYTAB",
			Usage:  "Path to the hsi keytab",
		},
		cli.StringFlag{
			Name:   "bin",
			EnvVar: "HSIC_BIN",
			Usage:  "Path to the hsi binary",
		},
		cli.StringFlag{
			Name:   "base",
			EnvVar: "HSIC_BASE",
			Usage:  "HPSS base directory for relative paths",
		},
		cli.StringFlag{
			Name:   "callback",
			EnvVar: "HSIC_CALLBACK",
			Usage:  "Local address for hsi data-channel callbacks",
		},
		cli.IntFlag{
			Name:   "cos",
			EnvVar: "HSIC_COS",
			Usage:  "Default class of service for new files",
			Value:  -1,
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: "Enable debug logging",
		},
	}
	app.Before = func(c *cli.Context) error {
		if c.Bool("debug") {
			debug.Enable()
		}
		return nil
	}

	if err := app.Run(os.Args); err != nil {
		alert.Abort(err)
	}
}

// client builds a go-hsi client from the config file, with any command
// line flags taking precedence.
func client(c *cli.Context) (*hsi.Hsi, error) {
	var fileCfg hsicConfig
	cfgPath := c.GlobalString("config")
	if err := loadConfig(cfgPath, &fileCfg); err != nil {
		if !(cfgPath == DefaultConfigPath && os.IsNotExist(errors.Cause(err))) {
			return nil, err
		}
		fileCfg.COS = -1
	}

	cfg := hsi.Config{
		Username:        fileCfg.Username,
		Keytab:          fileCfg.Keytab,
		Bin:             fileCfg.Binary,
		Base:            fileCfg.Base,
		CallbackAddress: fileCfg.Callback,
		DefaultCOS:      fileCfg.COS,
	}
	if v := c.GlobalString("user"); v != "" {
		cfg.Username = v
	}
	if v := c.GlobalString("keytab"); v != "" {
		cfg.Keytab = v
	}
	if v := c.GlobalString("bin"); v != "" {
		cfg.Bin = v
	}
	if v := c.GlobalString("base"); v != "" {
		cfg.Base = v
	}
	if v := c.GlobalString("callback"); v != "" {
		cfg.CallbackAddress = v
	}
	if c.GlobalIsSet("cos") {
		cfg.DefaultCOS = c.GlobalInt("cos")
	}

	return hsi.New(cfg)
}

// withClient wraps a command action with client setup and teardown.
func withClient(fn func(context.Context, *hsi.Hsi, *cli.Context) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		h, err := client(c)
		if err != nil {
			return err
		}
		defer h.Close()
		return fn(context.Background(), h, c)
	}
}
