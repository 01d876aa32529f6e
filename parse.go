// Copyright (c) 2018 DDN. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hsi

import (
	"regexp"
	"strconv"
	"strings"
)

// hsi's listing output is meant for humans, and its shape depends on
// which flags were passed: a full-date (-D) listing carries 11 fields
// per entry, an extended-storage (-X/-V) listing carries 12 for
// directories and 14 for files (directories never have a class of
// service), and each extended entry may be followed by a block of
// storage-level rows with nested volume placement lines. The parser
// walks the bounded output of exactly one command with an advancing
// cursor and one line of lookahead.

var (
	parentPattern  = regexp.MustCompile(`^\S.*:$`)
	storagePattern = regexp.MustCompile(`^Storage\s+VV.+`)
)

type cursor struct {
	lines []string
	pos   int
}

func (c *cursor) next() (string, bool) {
	if c.pos >= len(c.lines) {
		return "", false
	}
	line := c.lines[c.pos]
	c.pos++
	return line, true
}

func (c *cursor) peek() (string, bool) {
	if c.pos >= len(c.lines) {
		return "", false
	}
	return c.lines[c.pos], true
}

// splitFields splits on runs of whitespace into at most n fields; the
// remainder of the line, if any, stays intact in the last field.
func splitFields(s string, n int) []string {
	var out []string
	rest := strings.TrimLeft(s, " \t")
	for len(out) < n-1 {
		i := strings.IndexAny(rest, " \t")
		if i < 0 {
			break
		}
		out = append(out, rest[:i])
		rest = strings.TrimLeft(rest[i:], " \t")
	}
	if rest != "" {
		out = append(out, rest)
	}
	return out
}

// parseListing converts the output of an hsi ls command into Stat
// records, in listing order. extended must be true if the command was
// run with -X or -V. An inline *** line stops parsing and returns the
// entries collected so far; a data line that doesn't match the active
// layout is a ParseError, never a silent misparse.
func parseListing(lines []string, extended bool) ([]*Stat, error) {
	var result []*Stat
	var parent string

	c := &cursor{lines: lines}
	for {
		line, ok := c.next()
		if !ok {
			break
		}
		if line == "" {
			continue
		}
		if parentPattern.MatchString(line) {
			parent = line[:len(line)-1]
			continue
		}
		if strings.HasPrefix(line, "***") {
			// Error mid-listing; keep what we have.
			break
		}

		s, err := parseEntry(line, extended, parent)
		if err != nil {
			return nil, err
		}
		result = append(result, s)

		if extended {
			if next, ok := c.peek(); ok && storagePattern.MatchString(next) {
				if err := parseStorageLevels(c, s); err != nil {
					return nil, err
				}
			}
		}
	}
	return result, nil
}

func parseEntry(line string, extended bool, parent string) (*Stat, error) {
	t, mode := parseModeString(line)

	// Field positions depend jointly on the listing mode and on
	// directory vs file. In the plain layout the trailing time token
	// and the name share the final field.
	nfields, cosIdx, sizeIdx, nameIdx := 11, -1, 6, -1
	if extended {
		if t == TypeDir {
			nfields, cosIdx, sizeIdx, nameIdx = 12, -1, 6, 11
		} else {
			nfields, cosIdx, sizeIdx, nameIdx = 14, 4, 8, 13
		}
	}

	fields := splitFields(line, nfields)
	if len(fields) != nfields {
		return nil, &ParseError{Line: line, Reason: "unexpected field count"}
	}

	s := &Stat{
		Type:   t,
		Mode:   mode,
		COS:    -1,
		Parent: parent,
	}

	var err error
	if s.Nlink, err = strconv.Atoi(fields[1]); err != nil {
		return nil, &ParseError{Line: line, Reason: "bad link count"}
	}
	s.Owner = fields[2]
	s.Group = fields[3]
	if cosIdx >= 0 {
		if s.COS, err = strconv.Atoi(fields[cosIdx]); err != nil {
			return nil, &ParseError{Line: line, Reason: "bad class of service"}
		}
	}
	if s.Size, err = strconv.ParseInt(fields[sizeIdx], 10, 64); err != nil {
		return nil, &ParseError{Line: line, Reason: "bad size"}
	}

	dateIdx := sizeIdx + 1
	var timeTok string
	if nameIdx < 0 {
		// Plain layout: "<time> <name...>" is the final field.
		tail := splitFields(fields[nfields-1], 2)
		if len(tail) != 2 {
			return nil, &ParseError{Line: line, Reason: "missing name"}
		}
		timeTok, s.Name = tail[0], tail[1]
	} else {
		timeTok = fields[dateIdx+3]
		s.Name = fields[nameIdx]
	}
	s.ModTime, err = parseListingTime(fields[dateIdx], fields[dateIdx+1], fields[dateIdx+2], timeTok)
	if err != nil {
		return nil, &ParseError{Line: line, Reason: err.Error()}
	}

	return s, nil
}

// parseStorageLevels consumes an extended storage block: a fixed
// 3-line header, then one row per hierarchy level until a blank line.
// A row may be followed by an Object ID/ServerDep/Pos triple carrying
// the physical volume placement.
func parseStorageLevels(c *cursor, s *Stat) error {
	for i := 0; i < 3; i++ { // Storage VV / Level Count / separator
		if _, ok := c.next(); !ok {
			return &ParseError{Reason: "truncated storage header"}
		}
	}

	line, ok := c.next()
	for ok && line != "" {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return &ParseError{Line: line, Reason: "bad storage level row"}
		}

		sl := StorageLevel{Medium: parseMedium(fields[1]), Section: -1, Offset: -1}
		var err error
		if sl.Level, err = strconv.Atoi(fields[0]); err != nil {
			return &ParseError{Line: line, Reason: "bad storage level number"}
		}
		if len(fields) == 5 {
			if sl.Bytes, err = strconv.ParseInt(fields[4], 10, 64); err != nil {
				return &ParseError{Line: line, Reason: "bad storage level byte count"}
			}
		}
		sl.Complete = sl.Bytes == s.Size

		line, ok = c.next()
		if ok && strings.Contains(line, "Object ID:") {
			line, ok = c.next()
			if ok && strings.Contains(line, "ServerDep:") {
				line, ok = c.next()
				if ok && strings.Contains(line, "Pos:") {
					if err := parsePosition(line, &sl); err != nil {
						return err
					}
					line, ok = c.next()
				}
			}
		}

		s.Levels = append(s.Levels, sl)
	}
	return nil
}

// parsePosition extracts the volume id and the section+offset position
// from a Pos line. The position token is either "section+offset" or a
// bare section number with offset 0.
func parsePosition(line string, sl *StorageLevel) error {
	fields := strings.Fields(line)
	if len(fields) < 5 {
		return &ParseError{Line: line, Reason: "bad volume position"}
	}
	sl.Volume = fields[4]

	var err error
	pos := fields[1]
	if i := strings.Index(pos, "+"); i >= 0 {
		if sl.Section, err = strconv.Atoi(pos[:i]); err != nil {
			return &ParseError{Line: line, Reason: "bad volume section"}
		}
		if sl.Offset, err = strconv.ParseInt(pos[i+1:], 10, 64); err != nil {
			return &ParseError{Line: line, Reason: "bad volume offset"}
		}
	} else {
		if sl.Section, err = strconv.Atoi(pos); err != nil {
			return &ParseError{Line: line, Reason: "bad volume section"}
		}
		sl.Offset = 0
	}
	return nil
}
