package skillmd

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"
	"testing"
)

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create zip entry %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write zip entry %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestExtractZipHappyPath(t *testing.T) {
	data := buildZip(t, map[string]string{
		"scripts/run.sh": "#!/bin/sh\n",
		"docs/notes.md":  "notes",
	})
	files, err := ExtractZip(data)
	if err != nil {
		t.Fatalf("ExtractZip: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("got %d files", len(files))
	}
	if string(files["scripts/run.sh"]) != "#!/bin/sh\n" {
		t.Fatalf("content mismatch: %q", files["scripts/run.sh"])
	}
}

func TestExtractZipSkipsEmbeddedSkillMD(t *testing.T) {
	data := buildZip(t, map[string]string{
		"SKILL.md":  "---\nname: sneaky\ndescription: d\n---\n",
		"helper.py": "print('hi')",
	})
	files, err := ExtractZip(data)
	if err != nil {
		t.Fatalf("ExtractZip: %v", err)
	}
	if _, present := files["SKILL.md"]; present {
		t.Fatal("embedded SKILL.md must be skipped")
	}
	if _, present := files["helper.py"]; !present {
		t.Fatal("helper.py missing")
	}
}

func TestExtractZipRejectsTraversal(t *testing.T) {
	for _, path := range []string{"../escape.txt", "nested/../../escape.txt", "/absolute.txt"} {
		data := buildZip(t, map[string]string{path: "x"})
		if _, err := ExtractZip(data); err == nil {
			t.Fatalf("ExtractZip accepted unsafe path %q", path)
		} else if !strings.Contains(err.Error(), "unsafe path") {
			t.Fatalf("unexpected error for %q: %v", path, err)
		}
	}
}

func TestExtractZipRejectsTooManyEntries(t *testing.T) {
	files := map[string]string{}
	for i := 0; i < MaxZipFileCount+1; i++ {
		files[fmt.Sprintf("files/f%04d.txt", i)] = "x"
	}
	data := buildZip(t, files)
	if _, err := ExtractZip(data); err == nil {
		t.Fatal("ExtractZip accepted an archive above the entry limit")
	} else if !strings.Contains(err.Error(), "too many files") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExtractZipRejectsInvalidArchive(t *testing.T) {
	if _, err := ExtractZip([]byte("not a zip")); err == nil {
		t.Fatal("ExtractZip accepted garbage")
	}
}
