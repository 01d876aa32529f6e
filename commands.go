// Copyright (c) 2018 DDN. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hsi

import (
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/pborman/uuid"
	"github.com/pkg/errors"
)

// Flags adjust the behavior of listing and mutation operations.
type Flags int

const (
	// StatMtime reports the modification time rather than the last
	// write time.
	StatMtime Flags = 1 << iota
	// StatStorageInfo includes the extended storage-level records.
	StatStorageInfo
	// DirRecursive recurses into subdirectories.
	DirRecursive
	// DirAbsPath rewrites entry names to HPSS absolute paths.
	DirAbsPath
	// DirRelPath rewrites entry names relative to the base directory.
	DirRelPath
	// ChmodFilesOnly applies a mode change to files only.
	ChmodFilesOnly
	// ChmodDirsOnly applies a mode change to directories only.
	ChmodDirsOnly
	// MigrateForce migrates regardless of storage properties.
	MigrateForce
	// MigratePurge purges the disk copy after migration completes.
	MigratePurge

	// ChmodRecursive recursively applies a mode change.
	ChmodRecursive = DirRecursive
	// MigrateRecursive recursively migrates.
	MigrateRecursive = DirRecursive
)

// stageSpoolThreshold is the point at which a stage request is spooled
// through a command file instead of being passed inline.
const stageSpoolThreshold = 50

func flagOpt(flags, flag Flags, opt string) string {
	if flags&flag != 0 {
		return opt
	}
	return ""
}

// Stat looks up one file or directory. Pass StatStorageInfo to populate
// the storage-level records.
func (h *Hsi) Stat(ctx context.Context, path string, flags Flags) (*Stat, error) {
	lines, err := h.RunArgs(ctx, "ls", "-aldD",
		flagOpt(flags, StatMtime, "-Tm"),
		flagOpt(flags, StatStorageInfo, "-X"),
		h.remotePath(path))
	if err != nil {
		return nil, err
	}
	stats, err := parseListing(lines, flags&StatStorageInfo != 0)
	if err != nil {
		return nil, err
	}
	if len(stats) == 0 {
		return nil, errors.Errorf("no listing output for %q", path)
	}
	return stats[0], nil
}

// StatDir stats every entry in a directory, optionally filtered by an
// anchored regular expression and recursing into subdirectories. On a
// non-directory it returns the single entry's stat.
func (h *Hsi) StatDir(ctx context.Context, path, pattern string, flags Flags) ([]*Stat, error) {
	if pattern == "" {
		pattern = ".+"
	}
	re, err := regexp.Compile("^" + pattern)
	if err != nil {
		return nil, errors.Wrapf(err, "bad pattern %q", pattern)
	}
	path = CleanPath(path)

	root, err := h.Stat(ctx, path, flags&StatStorageInfo)
	if err != nil {
		return nil, err
	}
	if !root.IsDir() {
		if err := h.rewriteName(ctx, root, path, flags); err != nil {
			return nil, err
		}
		return []*Stat{root}, nil
	}

	lines, err := h.RunArgs(ctx, "ls", "-alD",
		flagOpt(flags, StatStorageInfo, "-X"),
		flagOpt(flags, StatMtime, "-Tm"),
		h.remotePath(path))
	if err != nil {
		return nil, err
	}
	entries, err := parseListing(lines, flags&StatStorageInfo != 0)
	if err != nil {
		return nil, err
	}

	var results []*Stat
	for _, entry := range entries {
		if !re.MatchString(entry.Name) {
			continue
		}
		child := path + "/" + entry.Name
		if err := h.rewriteName(ctx, entry, path, flags); err != nil {
			return nil, err
		}
		results = append(results, entry)
		if flags&DirRecursive != 0 && entry.IsDir() {
			sub, err := h.StatDir(ctx, child, pattern, flags)
			if err != nil {
				return nil, err
			}
			results = append(results, sub...)
		}
	}
	return results, nil
}

// ListDir is a fast directory listing. The returned stats are barely
// filled out: parent, name and type only.
func (h *Hsi) ListDir(ctx context.Context, path, pattern string, flags Flags) ([]*Stat, error) {
	if pattern == "" {
		pattern = ".+"
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.Wrapf(err, "bad pattern %q", pattern)
	}

	lines, err := h.RunArgs(ctx, "ls", "-1", h.remotePath(path))
	if err != nil {
		return nil, err
	}

	var results []*Stat
	for _, l := range lines {
		if !re.MatchString(l) {
			continue
		}
		s := &Stat{Type: TypeFile, COS: -1, Parent: path, Name: l}
		if strings.HasSuffix(l, "/") {
			s.Type = TypeDir
			s.Name = l[:len(l)-1]
			if flags&DirRecursive != 0 {
				sub, err := h.ListDir(ctx, path+"/"+baseName(s.Name), pattern, flags)
				if err != nil {
					return nil, err
				}
				results = append(results, sub...)
			}
		}
		s.Name = baseName(s.Name)
		if err := h.rewriteName(ctx, s, path, flags); err != nil {
			return nil, err
		}
		results = append(results, s)
	}
	return results, nil
}

// rewriteName applies the DirAbsPath/DirRelPath naming modes to an
// entry found under dir.
func (h *Hsi) rewriteName(ctx context.Context, s *Stat, dir string, flags Flags) error {
	switch {
	case flags&DirRelPath != 0:
		s.Name = dir + "/" + s.Name
	case flags&DirAbsPath != 0:
		abs, err := h.AbsPath(ctx, dir+"/"+s.Name)
		if err != nil {
			return err
		}
		s.Name = abs
	}
	return nil
}

func baseName(name string) string {
	return name[strings.LastIndex(name, "/")+1:]
}

// Exists checks whether a path exists on HPSS. A not-found error from
// the remote side is reported as false; any other failure propagates.
func (h *Hsi) Exists(ctx context.Context, path string) (bool, error) {
	if _, err := h.Stat(ctx, path, 0); err != nil {
		if IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Mkdir creates a directory, optionally with any missing parents.
func (h *Hsi) Mkdir(ctx context.Context, path string, parents bool) error {
	opt := ""
	if parents {
		opt = "-p"
	}
	_, err := h.RunArgs(ctx, "mkdir", opt, h.remotePath(path))
	return err
}

// Rmdir removes a directory.
func (h *Hsi) Rmdir(ctx context.Context, path string) error {
	_, err := h.RunArgs(ctx, "rmdir", h.remotePath(path))
	return err
}

// Delete removes a file.
func (h *Hsi) Delete(ctx context.Context, path string) error {
	_, err := h.RunArgs(ctx, "delete", h.remotePath(path))
	return err
}

// Rename moves a file.
func (h *Hsi) Rename(ctx context.Context, oldName, newName string, force bool) error {
	opt := ""
	if force {
		opt = "-f"
	}
	_, err := h.RunArgs(ctx, "mv", opt, h.remotePath(oldName), h.remotePath(newName))
	return err
}

// A symbolic mode is one or more [ugoa...] clauses with +-= operators
// over rwxXst permission letters.
var symbolicModePattern = regexp.MustCompile(`^[ugoa]*([-+=][rwxXst]+)+$`)

// Chmod changes an entry's mode using a symbolic mode string.
func (h *Hsi) Chmod(ctx context.Context, mode, path string, flags Flags) error {
	if !symbolicModePattern.MatchString(mode) {
		return errors.Errorf("invalid mode string %q", mode)
	}
	return h.chmod(ctx, mode, path, flags)
}

// ChmodNum changes an entry's mode using a numeric mode.
func (h *Hsi) ChmodNum(ctx context.Context, mode int, path string, flags Flags) error {
	if mode < 0 || mode > 0o7777 {
		return errors.Errorf("mode %o out of range 0000..07777", mode)
	}
	return h.chmod(ctx, strconv.FormatInt(int64(mode), 8), path, flags)
}

func (h *Hsi) chmod(ctx context.Context, mode, path string, flags Flags) error {
	if flags&ChmodFilesOnly != 0 && flags&ChmodDirsOnly != 0 {
		return errors.New("cannot specify files only and dirs only")
	}
	_, err := h.RunArgs(ctx, "chmod",
		flagOpt(flags, ChmodRecursive, "-R"),
		flagOpt(flags, ChmodFilesOnly, "-f"),
		flagOpt(flags, ChmodDirsOnly, "-d"),
		mode, h.remotePath(path))
	return err
}

// Annotate attaches up to 250 characters of annotation text to a path.
// Double quotes are not representable in the annotate grammar.
func (h *Hsi) Annotate(ctx context.Context, path, annotation string) error {
	if len(annotation) > 250 {
		return errors.New("annotation must be shorter than 250 characters")
	}
	if strings.Contains(annotation, `"`) {
		return errors.New(`annotation cannot contain the double quote (") character`)
	}
	_, err := h.RunArgs(ctx, "annotate", "-A", `"`+annotation+`"`, h.remotePath(path))
	return err
}

// GetAnnotation retrieves a path's annotation, or "" if it has none.
func (h *Hsi) GetAnnotation(ctx context.Context, path string) (string, error) {
	lines, err := h.RunArgs(ctx, "ls", "-Ad", h.remotePath(path))
	if err != nil {
		return "", err
	}
	for _, l := range lines {
		if strings.HasPrefix(l, "Annotation: ") {
			return l[len("Annotation: "):], nil
		}
	}
	return "", nil
}

// Chcos changes a file's class of service; -1 selects the automatic
// class. The file may be re-copied to different media as a result.
func (h *Hsi) Chcos(ctx context.Context, path string, cos int) error {
	class := "auto"
	if cos != -1 {
		class = strconv.Itoa(cos)
	}
	_, err := h.RunArgs(ctx, "chcos", class, h.remotePath(path))
	return err
}

// Link creates a hard link.
func (h *Hsi) Link(ctx context.Context, srcPath, destPath string) error {
	_, err := h.RunArgs(ctx, "ln", "-f", h.remotePath(srcPath), h.remotePath(destPath))
	return err
}

// Symlink creates a symbolic link.
func (h *Hsi) Symlink(ctx context.Context, srcPath, destPath string) error {
	_, err := h.RunArgs(ctx, "ln", "-f", "-s", h.remotePath(srcPath), h.remotePath(destPath))
	return err
}

// HashCreate checksums a file in place and returns the MD5 value. An
// already-hashed file returns its existing checksum.
func (h *Hsi) HashCreate(ctx context.Context, path string) (string, error) {
	lines, err := h.RunArgs(ctx, "hashcreate", "-H", "md5", h.remotePath(path))
	if err != nil {
		return "", err
	}
	return firstHashField(lines, path)
}

// HashGet returns the stored checksum for a file, creating one first if
// create is set. Without create, an unhashed file returns "".
func (h *Hsi) HashGet(ctx context.Context, path string, create bool) (string, error) {
	lines, err := h.RunArgs(ctx, "hashlist", "-h", h.remotePath(path))
	if err != nil {
		return "", err
	}
	if len(lines) == 0 {
		return "", errors.Errorf("no hashlist output for %q", path)
	}
	if strings.HasPrefix(lines[0], "(none)") {
		if create {
			return h.HashCreate(ctx, path)
		}
		return "", nil
	}
	return firstHashField(lines, path)
}

// HashVerify verifies a file's contents against its stored checksum. A
// file without a checksum is an error unless create is set, in which
// case one is created.
func (h *Hsi) HashVerify(ctx context.Context, path string, create bool) (bool, error) {
	lines, err := h.RunArgs(ctx, "hashverify", h.remotePath(path))
	if err != nil {
		return false, err
	}
	if len(lines) == 0 {
		return false, errors.Errorf("no hashverify output for %q", path)
	}
	if strings.HasPrefix(lines[0], "no valid checksum found") {
		if !create {
			return false, errors.Errorf("%s has no checksum to verify", path)
		}
		if _, err := h.HashCreate(ctx, path); err != nil {
			return false, err
		}
		return true, nil
	}
	return strings.HasSuffix(lines[0], "OK"), nil
}

func firstHashField(lines []string, path string) (string, error) {
	if len(lines) == 0 {
		return "", errors.Errorf("no checksum output for %q", path)
	}
	fields := strings.Fields(lines[0])
	if len(fields) == 0 {
		return "", errors.Errorf("no checksum output for %q", path)
	}
	return fields[0], nil
}

// Du returns the number of bytes used by a file, or by all contents of
// a directory.
func (h *Hsi) Du(ctx context.Context, path string) (int64, error) {
	lines, err := h.RunArgs(ctx, "du", "-n", "-s", h.remotePath(path))
	if err != nil {
		return 0, err
	}
	if len(lines) < 3 {
		return 0, errors.Errorf("short du output for %q", path)
	}
	total := strings.Split(lines[2], "\t")[0]
	n, err := strconv.ParseInt(total, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "bad du total %q", total)
	}
	return n, nil
}

// Get retrieves a file to the local filesystem. If localPath is a
// directory the files are retrieved into it; otherwise the retrieved
// file is stored as localPath. Transfers verify checksums on the way
// out.
func (h *Hsi) Get(ctx context.Context, remotePath, localPath string, recursive bool) error {
	opt := ""
	if recursive {
		opt = "-R"
	}
	fi, err := os.Stat(localPath)
	if err == nil && fi.IsDir() {
		if _, err := h.RunArgs(ctx, "lcwd", localPath); err != nil {
			return err
		}
		_, err := h.RunArgs(ctx, "get", "-c", "on", opt, h.remotePath(remotePath))
		return err
	}
	_, err = h.RunArgs(ctx, "get", "-c", "on", opt, localPath, ":", h.remotePath(remotePath))
	return err
}

// Put stores a local file on HPSS with an MD5 hash, optionally into a
// specific class of service (-1 uses the client default).
func (h *Hsi) Put(ctx context.Context, localPath, remotePath string, cos int) error {
	if cos == -1 {
		cos = h.cfg.DefaultCOS
	}
	class := ""
	if cos != -1 {
		class = fmt.Sprintf("cos=%d", cos)
	}
	_, err := h.RunArgs(ctx, "put", "-c", "on", "-H", "md5",
		localPath, ":", h.remotePath(remotePath), class)
	return err
}

// Stage synchronously stages a list of files from tape to the disk
// cache. Long lists are spooled through a command file so the request
// doesn't exceed the tool's line limits.
func (h *Hsi) Stage(ctx context.Context, paths []string) error {
	abs := make([]string, 0, len(paths))
	for _, p := range paths {
		a, err := h.AbsPath(ctx, p)
		if err != nil {
			return err
		}
		abs = append(abs, a)
	}

	if len(abs) <= stageSpoolThreshold {
		args := append([]string{"stage", "-w"}, abs...)
		_, err := h.RunArgs(ctx, args...)
		return err
	}

	spoolPath := filepath.Join(os.TempDir(), fmt.Sprintf("stage-queue-%s.txt", uuid.New()))
	var buf strings.Builder
	buf.WriteString("stage -w <<EOF\n")
	for _, p := range abs {
		buf.WriteString(p)
		buf.WriteString("\n")
	}
	buf.WriteString("EOF\n")
	if err := ioutil.WriteFile(spoolPath, []byte(buf.String()), 0600); err != nil {
		return errors.Wrap(err, "write stage spool failed")
	}
	defer os.Remove(spoolPath)

	_, err := h.RunArgs(ctx, "in", spoolPath)
	return err
}

// Purge removes a file's copy from the HPSS disk cache. Files not yet
// migrated to tape are left alone; a file mid-migration blocks the
// purge until the migration completes.
func (h *Hsi) Purge(ctx context.Context, path string, recursive bool) error {
	opt := ""
	if recursive {
		opt = "-R"
	}
	_, err := h.RunArgs(ctx, "purge", opt, h.remotePath(path))
	return err
}

// Migrate copies data from a higher hierarchy level toward a lower one
// per the file's class of service.
func (h *Hsi) Migrate(ctx context.Context, path string, flags Flags) error {
	_, err := h.RunArgs(ctx, "migrate",
		flagOpt(flags, MigrateRecursive, "-R"),
		flagOpt(flags, MigrateForce, "-F"),
		flagOpt(flags, MigratePurge, "-P"),
		h.remotePath(path))
	return err
}

// IsOnDisk reports whether a complete copy of the file is in the disk
// cache.
func (h *Hsi) IsOnDisk(ctx context.Context, path string) (bool, error) {
	s, err := h.Stat(ctx, path, StatStorageInfo)
	if err != nil {
		return false, err
	}
	for _, sl := range s.Levels {
		if sl.Medium == MediumDisk && sl.Complete {
			return true, nil
		}
	}
	return false, nil
}

// IsOnTape reports whether a complete copy of the file is on tape.
func (h *Hsi) IsOnTape(ctx context.Context, path string) (bool, error) {
	s, err := h.Stat(ctx, path, StatStorageInfo)
	if err != nil {
		return false, err
	}
	for _, sl := range s.Levels {
		if sl.Medium == MediumTape && sl.Complete {
			return true, nil
		}
	}
	return false, nil
}

// MigrationFinished reports whether every tape level holds a complete
// copy of the file.
func (h *Hsi) MigrationFinished(ctx context.Context, path string) (bool, error) {
	s, err := h.Stat(ctx, path, StatStorageInfo)
	if err != nil {
		return false, err
	}
	for _, sl := range s.Levels {
		if sl.Medium == MediumTape && !sl.Complete {
			return false, nil
		}
	}
	return true, nil
}
