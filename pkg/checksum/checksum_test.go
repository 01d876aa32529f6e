// Copyright (c) 2018 DDN. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package checksum

import (
	"bytes"
	"path"
	"testing"

	"github.com/whamcloud/go-hsi/internal/testhelpers"
)

// md5("hello world\n"), as computed by md5sum(1).
const helloSum = "6f5902ac237024bdd0c176cb93063dc4"

func TestFileMd5Sum(t *testing.T) {
	dir, cleanup := testhelpers.TempDir(t)
	defer cleanup()

	file := path.Join(dir, "hello.txt")
	testhelpers.WriteFile(t, file, "hello world\n", 0644)

	sum, err := FileMd5Sum(file)
	if err != nil {
		t.Fatalf("err: %s", err)
	}
	if sum != helloSum {
		t.Fatalf("expected %s, got %s", helloSum, sum)
	}
}

func TestFileMd5SumMissingFile(t *testing.T) {
	if _, err := FileMd5Sum("/nonexistent/hello.txt"); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestMd5HashWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewMd5HashWriter(&buf)

	for _, chunk := range []string{"hello ", "world\n"} {
		if _, err := w.Write([]byte(chunk)); err != nil {
			t.Fatalf("err: %s", err)
		}
	}

	if buf.String() != "hello world\n" {
		t.Fatalf("destination got %q", buf.String())
	}
	if w.Sum() != helloSum {
		t.Fatalf("expected %s, got %s", helloSum, w.Sum())
	}
}
