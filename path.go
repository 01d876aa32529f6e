// Copyright (c) 2018 DDN. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hsi

import (
	"context"
	"strings"
)

// CleanPath removes duplicate slashes and '.' elements and interprets
// '..' elements. The result always leads with '/'.
func CleanPath(path string) string {
	var stack []string
	for _, d := range strings.Split(path, "/") {
		switch d {
		case "", ".":
		case "..":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		default:
			stack = append(stack, d)
		}
	}
	return "/" + strings.Join(stack, "/")
}

// AbsPath converts a path to an HPSS absolute path, resolving against
// the session's remote working directory and this client's base
// directory. A session is established if none exists yet.
func (h *Hsi) AbsPath(ctx context.Context, path string) (string, error) {
	if h.Cwd() == "" {
		if _, err := h.Run(ctx, "lpwd"); err != nil {
			return "", err
		}
	}
	cwd := h.Cwd()

	switch {
	case strings.HasPrefix(path, "/hpss/"):
		return path, nil
	case strings.HasPrefix(path, h.cfg.Base):
		return cwd + "/" + path, nil
	default:
		return cwd + "/" + h.cfg.Base + CleanPath(path), nil
	}
}

// RelPath converts a path to one relative to this client's base
// directory.
func (h *Hsi) RelPath(ctx context.Context, path string) (string, error) {
	if h.Cwd() == "" {
		if _, err := h.Run(ctx, "lpwd"); err != nil {
			return "", err
		}
	}
	cwd := h.Cwd()

	if strings.HasPrefix(path, "/hpss/") && len(path) > len(cwd)+1 {
		path = path[len(cwd)+1:]
	}
	path = strings.TrimPrefix(path, "/")
	if strings.HasPrefix(path, h.cfg.Base+"/") {
		path = path[len(h.cfg.Base)+1:]
	}
	return path, nil
}

// remotePath anchors a caller-supplied path under the configured base
// directory, the form every remote command wants.
func (h *Hsi) remotePath(path string) string {
	return h.cfg.Base + CleanPath(path)
}
