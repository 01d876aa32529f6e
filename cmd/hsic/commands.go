// Copyright (c) 2018 DDN. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"gopkg.in/urfave/cli.v1"

	hsi "github.com/whamcloud/go-hsi"
	"github.com/whamcloud/go-hsi/pkg/checksum"
)

var commands []cli.Command

func init() {
	commands = []cli.Command{
		{
			Name:      "ls",
			Usage:     "List a directory",
			ArgsUsage: "path",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "pattern, p",
					Usage: "Only list entries matching this anchored regexp",
				},
				cli.BoolFlag{
					Name:  "recursive, R",
					Usage: "Recurse into subdirectories",
				},
				cli.BoolFlag{
					Name:  "storage, X",
					Usage: "Include storage level information",
				},
			},
			Action: withClient(lsAction),
		},
		{
			Name:      "stat",
			Usage:     "Show metadata for a single entry",
			ArgsUsage: "path",
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "storage, X",
					Usage: "Include storage level information",
				},
			},
			Action: withClient(statAction),
		},
		{
			Name:      "mkdir",
			Usage:     "Create a directory",
			ArgsUsage: "path",
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "parents, p",
					Usage: "Create missing parent directories",
				},
			},
			Action: withClient(func(ctx context.Context, h *hsi.Hsi, c *cli.Context) error {
				return h.Mkdir(ctx, pathArg(c), c.Bool("parents"))
			}),
		},
		{
			Name:      "rmdir",
			Usage:     "Remove a directory",
			ArgsUsage: "path",
			Action: withClient(func(ctx context.Context, h *hsi.Hsi, c *cli.Context) error {
				return h.Rmdir(ctx, pathArg(c))
			}),
		},
		{
			Name:      "rm",
			Usage:     "Delete a file",
			ArgsUsage: "path",
			Action: withClient(func(ctx context.Context, h *hsi.Hsi, c *cli.Context) error {
				return h.Delete(ctx, pathArg(c))
			}),
		},
		{
			Name:      "mv",
			Usage:     "Rename (move) a file",
			ArgsUsage: "old new",
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "force, f",
					Usage: "Force the move",
				},
			},
			Action: withClient(func(ctx context.Context, h *hsi.Hsi, c *cli.Context) error {
				if c.NArg() != 2 {
					return errors.New("mv needs a source and a destination")
				}
				return h.Rename(ctx, c.Args().Get(0), c.Args().Get(1), c.Bool("force"))
			}),
		},
		{
			Name:      "chmod",
			Usage:     "Change an entry's mode (symbolic, e.g. u+rwx)",
			ArgsUsage: "mode path",
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "recursive, R",
					Usage: "Recurse into subdirectories",
				},
			},
			Action: withClient(func(ctx context.Context, h *hsi.Hsi, c *cli.Context) error {
				if c.NArg() != 2 {
					return errors.New("chmod needs a mode and a path")
				}
				var flags hsi.Flags
				if c.Bool("recursive") {
					flags |= hsi.ChmodRecursive
				}
				return h.Chmod(ctx, c.Args().Get(0), c.Args().Get(1), flags)
			}),
		},
		{
			Name:      "chcos",
			Usage:     "Change a file's class of service",
			ArgsUsage: "path",
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "cos",
					Usage: "Target class of service (-1 for auto)",
					Value: -1,
				},
			},
			Action: withClient(func(ctx context.Context, h *hsi.Hsi, c *cli.Context) error {
				return h.Chcos(ctx, pathArg(c), c.Int("cos"))
			}),
		},
		{
			Name:      "annotate",
			Usage:     "Attach an annotation to a path",
			ArgsUsage: "path annotation",
			Action: withClient(func(ctx context.Context, h *hsi.Hsi, c *cli.Context) error {
				if c.NArg() != 2 {
					return errors.New("annotate needs a path and an annotation")
				}
				return h.Annotate(ctx, c.Args().Get(0), c.Args().Get(1))
			}),
		},
		{
			Name:  "hash",
			Usage: "Checksum operations",
			Subcommands: []cli.Command{
				{
					Name:      "create",
					Usage:     "Checksum a file in place",
					ArgsUsage: "path",
					Action: withClient(func(ctx context.Context, h *hsi.Hsi, c *cli.Context) error {
						sum, err := h.HashCreate(ctx, pathArg(c))
						if err != nil {
							return err
						}
						fmt.Println(sum)
						return nil
					}),
				},
				{
					Name:      "list",
					Usage:     "Show a file's stored checksum",
					ArgsUsage: "path",
					Action: withClient(func(ctx context.Context, h *hsi.Hsi, c *cli.Context) error {
						sum, err := h.HashGet(ctx, pathArg(c), false)
						if err != nil {
							return err
						}
						if sum == "" {
							sum = "(none)"
						}
						fmt.Println(sum)
						return nil
					}),
				},
				{
					Name:      "verify",
					Usage:     "Verify a file against its stored checksum",
					ArgsUsage: "path",
					Flags: []cli.Flag{
						cli.StringFlag{
							Name:  "local",
							Usage: "Also compare the stored checksum against this local file",
						},
					},
					Action: withClient(func(ctx context.Context, h *hsi.Hsi, c *cli.Context) error {
						ok, err := h.HashVerify(ctx, pathArg(c), false)
						if err != nil {
							return err
						}
						if !ok {
							return errors.Errorf("%s failed checksum verification", pathArg(c))
						}
						if local := c.String("local"); local != "" {
							stored, err := h.HashGet(ctx, pathArg(c), false)
							if err != nil {
								return err
							}
							sum, err := checksum.FileMd5Sum(local)
							if err != nil {
								return err
							}
							if sum != stored {
								return errors.Errorf("%s does not match %s (%s != %s)",
									local, pathArg(c), sum, stored)
							}
						}
						fmt.Println("OK")
						return nil
					}),
				},
			},
		},
		{
			Name:      "du",
			Usage:     "Show disk usage for a path",
			ArgsUsage: "path",
			Action: withClient(func(ctx context.Context, h *hsi.Hsi, c *cli.Context) error {
				n, err := h.Du(ctx, pathArg(c))
				if err != nil {
					return err
				}
				fmt.Printf("%s\t%s\n", humanize.IBytes(uint64(n)), pathArg(c))
				return nil
			}),
		},
		{
			Name:      "get",
			Usage:     "Retrieve a file to the local filesystem",
			ArgsUsage: "remote local",
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "recursive, R",
					Usage: "Retrieve recursively",
				},
			},
			Action: withClient(func(ctx context.Context, h *hsi.Hsi, c *cli.Context) error {
				if c.NArg() != 2 {
					return errors.New("get needs a remote path and a local path")
				}
				return h.Get(ctx, c.Args().Get(0), c.Args().Get(1), c.Bool("recursive"))
			}),
		},
		{
			Name:      "put",
			Usage:     "Store a local file on HPSS",
			ArgsUsage: "local remote",
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "cos",
					Usage: "Class of service for the new file (-1 for the default)",
					Value: -1,
				},
			},
			Action: withClient(func(ctx context.Context, h *hsi.Hsi, c *cli.Context) error {
				if c.NArg() != 2 {
					return errors.New("put needs a local path and a remote path")
				}
				return h.Put(ctx, c.Args().Get(0), c.Args().Get(1), c.Int("cos"))
			}),
		},
		{
			Name:      "stage",
			Usage:     "Stage files from tape to the disk cache",
			ArgsUsage: "path [path...]",
			Action: withClient(func(ctx context.Context, h *hsi.Hsi, c *cli.Context) error {
				if c.NArg() < 1 {
					return errors.New("stage needs at least one path")
				}
				return h.Stage(ctx, c.Args())
			}),
		},
		{
			Name:      "purge",
			Usage:     "Purge a file's copy from the disk cache",
			ArgsUsage: "path",
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "recursive, R",
					Usage: "Purge recursively",
				},
			},
			Action: withClient(func(ctx context.Context, h *hsi.Hsi, c *cli.Context) error {
				return h.Purge(ctx, pathArg(c), c.Bool("recursive"))
			}),
		},
		{
			Name:      "migrate",
			Usage:     "Migrate data toward slower tiers",
			ArgsUsage: "path",
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "recursive, R",
					Usage: "Migrate recursively",
				},
				cli.BoolFlag{
					Name:  "force, F",
					Usage: "Migrate regardless of storage properties",
				},
				cli.BoolFlag{
					Name:  "purge, P",
					Usage: "Purge the disk copy after migration",
				},
			},
			Action: withClient(func(ctx context.Context, h *hsi.Hsi, c *cli.Context) error {
				var flags hsi.Flags
				if c.Bool("recursive") {
					flags |= hsi.MigrateRecursive
				}
				if c.Bool("force") {
					flags |= hsi.MigrateForce
				}
				if c.Bool("purge") {
					flags |= hsi.MigratePurge
				}
				return h.Migrate(ctx, pathArg(c), flags)
			}),
		},
		{
			Name:  "ping",
			Usage: "Check whether the HPSS service is answering",
			Action: func(c *cli.Context) error {
				h, err := client(c)
				if err != nil {
					return err
				}
				// Ping is one-shot; reuse the resolved config only.
				ok, err := hsi.Ping(h.Config())
				if err != nil {
					return err
				}
				if !ok {
					return errors.New("HPSS is not responding")
				}
				fmt.Println("HPSS is up")
				return nil
			},
		},
	}
}

func pathArg(c *cli.Context) string {
	return c.Args().First()
}

func lsAction(ctx context.Context, h *hsi.Hsi, c *cli.Context) error {
	var flags hsi.Flags
	if c.Bool("recursive") {
		flags |= hsi.DirRecursive
	}
	if c.Bool("storage") {
		flags |= hsi.StatStorageInfo
	}

	entries, err := h.StatDir(ctx, pathArg(c), c.String("pattern"), flags)
	if err != nil {
		return err
	}
	for _, e := range entries {
		printEntry(e, c.Bool("storage"))
	}
	return nil
}

func statAction(ctx context.Context, h *hsi.Hsi, c *cli.Context) error {
	var flags hsi.Flags
	if c.Bool("storage") {
		flags |= hsi.StatStorageInfo
	}
	s, err := h.Stat(ctx, pathArg(c), flags)
	if err != nil {
		return err
	}
	printEntry(s, c.Bool("storage"))
	return nil
}

func printEntry(s *hsi.Stat, storage bool) {
	w := os.Stdout
	fmt.Fprintf(w, "%-4s %04o %-8s %-8s %10s  %s  %s\n",
		s.Type, s.Mode, s.Owner, s.Group,
		humanize.IBytes(uint64(s.Size)),
		s.ModTime.Format("2006-01-02 15:04:05"),
		s.Name)
	if !storage {
		return
	}
	for _, l := range s.Levels {
		state := "partial"
		if l.Complete {
			state = "complete"
		}
		fmt.Fprintf(w, "     level %d (%s): %s %s", l.Level, l.Medium,
			humanize.IBytes(uint64(l.Bytes)), state)
		if l.Volume != "" {
			fmt.Fprintf(w, " on %s at %d+%d", l.Volume, l.Section, l.Offset)
		}
		fmt.Fprintln(w)
	}
}
