// Copyright (c) 2018 DDN. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package checksum computes local MD5 digests in the same form hsi
// stores them, so transfers can be verified end to end against the
// checksum HPSS keeps for a file.
package checksum

import (
	"crypto/md5"
	"encoding/hex"
	"hash"
	"io"
	"os"

	"github.com/pkg/errors"
)

type (
	// Writer wraps an io.Writer and updates a digest with every
	// write.
	Writer interface {
		io.Writer
		Sum() string
	}

	// Md5HashWriter implements Writer using the MD5 algorithm,
	// matching the hashes hsi records with "-H md5".
	Md5HashWriter struct {
		dest  io.Writer
		cksum hash.Hash
	}
)

// NewMd5HashWriter returns a new Md5HashWriter
func NewMd5HashWriter(dest io.Writer) Writer {
	return &Md5HashWriter{
		dest:  dest,
		cksum: md5.New(),
	}
}

// Write updates the digest and passes the byte slice through
func (hw *Md5HashWriter) Write(b []byte) (int, error) {
	_, err := hw.cksum.Write(b)
	if err != nil {
		return 0, errors.Wrap(err, "updating checksum failed")
	}
	return hw.dest.Write(b)
}

// Sum returns the digest as a lowercase hex string
func (hw *Md5HashWriter) Sum() string {
	return hex.EncodeToString(hw.cksum.Sum(nil))
}

// FileMd5Sum returns the MD5 digest for the supplied file path, as a
// lowercase hex string
func FileMd5Sum(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", errors.Wrapf(err, "Failed to open %s for checksum", filePath)
	}
	defer file.Close()

	hash := md5.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", errors.Wrapf(err, "Failed to compute checksum for %s", filePath)
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}
