package extract

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"
)

func writeGzip(t *testing.T, path, content string) {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestExpandFile(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "genomic.fna.gz")
	content := ">seq1\nACGTACGT\n"
	writeGzip(t, archive, content)

	if err := ExpandFile(archive); err != nil {
		t.Fatalf("ExpandFile() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "genomic.fna"))
	if err != nil {
		t.Fatalf("expanded file: %v", err)
	}
	if string(data) != content {
		t.Errorf("expanded content = %q, want %q", data, content)
	}

	// The archive is removed on success.
	if _, err := os.Stat(archive); !os.IsNotExist(err) {
		t.Errorf("archive still present after expansion: %v", err)
	}
}

func TestExpandFileRejectsNonGzip(t *testing.T) {
	dir := t.TempDir()

	plain := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(plain, []byte("plain"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := ExpandFile(plain); err == nil {
		t.Error("ExpandFile() of a non-.gz name succeeded")
	}

	fake := filepath.Join(dir, "fake.gz")
	if err := os.WriteFile(fake, []byte("not gzip data"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := ExpandFile(fake); err == nil {
		t.Error("ExpandFile() of invalid gzip data succeeded")
	}
	// A failed expansion keeps the archive and leaves no partial output.
	if _, err := os.Stat(fake); err != nil {
		t.Errorf("archive removed after failed expansion: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "fake")); !os.IsNotExist(err) {
		t.Error("partial output left after failed expansion")
	}
}

func TestExpandDir(t *testing.T) {
	dir := t.TempDir()
	writeGzip(t, filepath.Join(dir, "a.fna.gz"), "AAAA\n")
	writeGzip(t, filepath.Join(dir, "b.gff.gz"), "##gff-version 3\n")
	if err := os.WriteFile(filepath.Join(dir, "md5checksums.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	expanded, err := ExpandDir(dir)
	if err != nil {
		t.Fatalf("ExpandDir() error = %v", err)
	}
	if expanded != 2 {
		t.Errorf("expanded = %d, want 2", expanded)
	}

	for _, name := range []string{"a.fna", "b.gff", "md5checksums.txt"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}

	// A second pass finds no archives.
	expanded, err = ExpandDir(dir)
	if err != nil {
		t.Fatalf("second ExpandDir() error = %v", err)
	}
	if expanded != 0 {
		t.Errorf("second pass expanded = %d, want 0", expanded)
	}
}
