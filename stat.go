// Copyright (c) 2018 DDN. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hsi

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

type (
	// FileType is the type of an HPSS namespace entry.
	FileType int

	// Medium is the kind of media backing a storage level.
	Medium int

	// StorageLevel describes one level of the storage hierarchy
	// occupied by a file. Level 0 is closest to the user.
	StorageLevel struct {
		Level  int
		Medium Medium
		Bytes  int64

		// Volume placement is only filled in when HPSS reported
		// a physical volume for this level.
		Volume  string
		Section int
		Offset  int64

		// Complete is derived: the level holds the same number of
		// bytes as the object itself.
		Complete bool
	}

	// Stat holds the metadata for a single HPSS namespace entry, as
	// reported by an hsi listing.
	Stat struct {
		Type    FileType
		Mode    uint32
		Nlink   int
		Owner   string
		Group   string
		COS     int // -1 when unset; always unset for directories
		Size    int64
		ModTime time.Time
		Name    string
		Parent  string

		// Levels is only populated when the listing was requested
		// with storage information.
		Levels []StorageLevel
	}
)

const (
	// TypeFile is a regular file
	TypeFile FileType = iota
	// TypeDir is a directory
	TypeDir
)

const (
	// MediumUnknown is an unrecognized storage medium
	MediumUnknown Medium = iota
	// MediumDisk is the disk cache
	MediumDisk
	// MediumTape is a tape tier
	MediumTape
)

func (t FileType) String() string {
	if t == TypeDir {
		return "dir"
	}
	return "file"
}

func (m Medium) String() string {
	switch m {
	case MediumDisk:
		return "disk"
	case MediumTape:
		return "tape"
	default:
		return "unknown"
	}
}

// IsDir returns true if the entry is a directory.
func (s *Stat) IsDir() bool {
	return s.Type == TypeDir
}

// Path returns the entry's name joined to its parent directory.
func (s *Stat) Path() string {
	if s.Parent == "" {
		return s.Name
	}
	return s.Parent + "/" + s.Name
}

func (s *Stat) String() string {
	return fmt.Sprintf("%s %o %d %s %s cos:%d %d %s %s levels:%d",
		s.Type, s.Mode, s.Nlink, s.Owner, s.Group, s.COS, s.Size,
		s.ModTime, s.Name, len(s.Levels))
}

// parseModeString decodes a -rwxr-xr-x style permission string. The
// first character distinguishes directories from files; the remaining
// nine map to a 9-bit mode, a bit set for every character that isn't
// '-'.
func parseModeString(mode string) (FileType, uint32) {
	t := TypeFile
	if strings.HasPrefix(mode, "d") {
		t = TypeDir
	}
	if len(mode) < 10 {
		return t, 0
	}
	var bits uint32
	for i := 1; i < 10; i++ {
		bits <<= 1
		if mode[i] != '-' {
			bits++
		}
	}
	return t, bits
}

// parseMedium maps hsi's storage level keyword to a Medium. Anything
// unrecognized is MediumUnknown, never an error.
func parseMedium(s string) Medium {
	switch s {
	case "(disk)":
		return MediumDisk
	case "(tape)":
		return MediumTape
	default:
		return MediumUnknown
	}
}

var monthsByName = map[string]time.Month{
	"Jan": time.January, "Feb": time.February, "Mar": time.March,
	"Apr": time.April, "May": time.May, "Jun": time.June,
	"Jul": time.July, "Aug": time.August, "Sep": time.September,
	"Oct": time.October, "Nov": time.November, "Dec": time.December,
}

// parseListingTime converts the 4-token date/time group from a full-date
// (-D) listing into a time.Time. The group is a month name, a day of
// month, and -- in either order, depending on server version -- a year
// and an hh:mm:ss token; the token containing a colon is the time.
// Timestamps are interpreted in the local timezone, matching how hsi
// prints them.
func parseListingTime(month, day, a, b string) (time.Time, error) {
	m, ok := monthsByName[month]
	if !ok {
		return time.Time{}, errors.Errorf("bad month %q", month)
	}
	d, err := strconv.Atoi(day)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "bad day %q", day)
	}

	yearTok, timeTok := a, b
	if strings.Contains(a, ":") {
		yearTok, timeTok = b, a
	}
	year, err := strconv.Atoi(yearTok)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "bad year %q", yearTok)
	}
	hms := strings.Split(timeTok, ":")
	if len(hms) != 3 {
		return time.Time{}, errors.Errorf("bad time %q", timeTok)
	}
	var clock [3]int
	for i, part := range hms {
		clock[i], err = strconv.Atoi(part)
		if err != nil {
			return time.Time{}, errors.Wrapf(err, "bad time %q", timeTok)
		}
	}

	return time.Date(year, m, d, clock[0], clock[1], clock[2], 0, time.Local), nil
}
