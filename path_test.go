// Copyright (c) 2018 DDN. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hsi

import (
	"context"
	"testing"
)

func TestCleanPath(t *testing.T) {
	var tests = []struct {
		in  string
		out string
	}{
		{"", "/"},
		{"/", "/"},
		{".", "/"},
		{"foo", "/foo"},
		{"/foo/bar", "/foo/bar"},
		{"foo//bar", "/foo/bar"},
		{"./foo/./bar/.", "/foo/bar"},
		{"foo/baz/../bar", "/foo/bar"},
		{"../../foo", "/foo"}, // .. past the root is dropped
		{"foo/bar/..", "/foo"},
	}

	for _, tc := range tests {
		if got := CleanPath(tc.in); got != tc.out {
			t.Errorf("CleanPath(%q) = %q, expected %q", tc.in, got, tc.out)
		}
	}
}

func TestRelPath(t *testing.T) {
	// A client with the remote cwd already cached, so no session is
	// needed to resolve paths.
	client := func(base string) *Hsi {
		return &Hsi{
			cfg: Config{Base: base},
			s:   &session{cwd: "/hpss/home/hsitest"},
		}
	}

	var tests = []struct {
		base string
		in   string
		out  string
	}{
		{".", "/hpss/home/hsitest/projects/a.txt", "projects/a.txt"},
		{".", "a.txt", "a.txt"},
		{".", "/a.txt", "a.txt"},
		{"projects", "/hpss/home/hsitest/projects/a.txt", "a.txt"},
		{"projects", "projects/a.txt", "a.txt"},
		{"projects", "other/a.txt", "other/a.txt"},
	}

	ctx := context.Background()
	for _, tc := range tests {
		got, err := client(tc.base).RelPath(ctx, tc.in)
		if err != nil {
			t.Fatalf("err: %s", err)
		}
		if got != tc.out {
			t.Errorf("RelPath(%q) with base %q = %q, expected %q",
				tc.in, tc.base, got, tc.out)
		}
	}
}
