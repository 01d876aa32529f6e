// Copyright (c) 2018 DDN. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hsi

import (
	"testing"
	"time"
)

func TestParseModeString(t *testing.T) {
	var tests = []struct {
		mode string
		t    FileType
		bits uint32
	}{
		{"drwxr-xr-x", TypeDir, 0o755},
		{"-rw-------", TypeFile, 0o600},
		{"-rw-r--r--", TypeFile, 0o644},
		{"drwxrwxrwx", TypeDir, 0o777},
		{"----------", TypeFile, 0},
		{"-rwsr-xr-x", TypeFile, 0o755 | 0o200}, // any non-dash sets the bit
		{"drwx", TypeDir, 0},                    // too short for permission bits
		{"", TypeFile, 0},
	}

	for _, tc := range tests {
		ft, bits := parseModeString(tc.mode)
		if ft != tc.t || bits != tc.bits {
			t.Errorf("parseModeString(%q) = %s/%o, expected %s/%o",
				tc.mode, ft, bits, tc.t, tc.bits)
		}
	}
}

func TestParseMedium(t *testing.T) {
	var tests = []struct {
		in  string
		out Medium
	}{
		{"(disk)", MediumDisk},
		{"(tape)", MediumTape},
		{"(ssd)", MediumUnknown},
		{"disk", MediumUnknown}, // only the parenthesized keyword counts
		{"", MediumUnknown},
	}

	for _, tc := range tests {
		if got := parseMedium(tc.in); got != tc.out {
			t.Errorf("parseMedium(%q) = %s, expected %s", tc.in, got, tc.out)
		}
	}
}

func TestParseListingTime(t *testing.T) {
	expected := time.Date(2024, time.January, 1, 12, 30, 45, 0, time.Local)

	// Year and time tokens are accepted in either order.
	got, err := parseListingTime("Jan", "01", "2024", "12:30:45")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(expected) {
		t.Errorf("got %s, expected %s", got, expected)
	}

	got, err = parseListingTime("Jan", "01", "12:30:45", "2024")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(expected) {
		t.Errorf("swapped order: got %s, expected %s", got, expected)
	}

	for _, bad := range [][4]string{
		{"Janvier", "01", "2024", "12:30:45"},
		{"Jan", "first", "2024", "12:30:45"},
		{"Jan", "01", "2024", "1230"},
		{"Jan", "01", "24x", "12:30:45"},
	} {
		if _, err := parseListingTime(bad[0], bad[1], bad[2], bad[3]); err == nil {
			t.Errorf("%v: expected an error", bad)
		}
	}
}

func TestStatPath(t *testing.T) {
	s := &Stat{Name: "foo.txt", Parent: "/hpss/home/alice"}
	if s.Path() != "/hpss/home/alice/foo.txt" {
		t.Errorf("path = %q", s.Path())
	}
	s.Parent = ""
	if s.Path() != "foo.txt" {
		t.Errorf("path without parent = %q", s.Path())
	}
}
