package archive

import (
	"archive/zip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"golang.org/x/text/encoding/charmap"
)

type entry struct {
	header  zip.FileHeader
	content string
}

func createZip(t *testing.T, entries []entry) string {
	t.Helper()
	zipPath := filepath.Join(t.TempDir(), "styles.zip")
	zipFile, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("Failed to create zip file: %v", err)
	}
	w := zip.NewWriter(zipFile)
	for _, e := range entries {
		fw, err := w.CreateHeader(&e.header)
		if err != nil {
			t.Fatalf("Failed to create file %s in zip: %v", e.header.Name, err)
		}
		if _, err := io.WriteString(fw, e.content); err != nil {
			t.Fatalf("Failed to write content for %s: %v", e.header.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := zipFile.Close(); err != nil {
		t.Fatal(err)
	}
	return zipPath
}

func named(names ...string) []entry {
	res := make([]entry, 0, len(names))
	for _, n := range names {
		res = append(res, entry{header: zip.FileHeader{Name: n}, content: n})
	}
	return res
}

func TestWalk(t *testing.T) {
	dir := zip.FileHeader{Name: "styles/"}
	dir.SetMode(os.ModeDir | 0755)
	entries := append([]entry{{header: dir}},
		named("styles/roads10.css", "styles/roads2.css", "styles/roads1.css", "README.md", "other/water.css")...)
	zipPath := createZip(t, entries)

	tests := []struct {
		name   string
		prefix string
		want   []string
	}{
		{"prefix in natural order", "styles/", []string{"styles/roads1.css", "styles/roads2.css", "styles/roads10.css"}},
		{"everything", "", []string{"README.md", "other/water.css", "styles/roads1.css", "styles/roads2.css", "styles/roads10.css"}},
		{"single file", "other/water.css", []string{"other/water.css"}},
		{"nothing", "missing/", nil},
		{"case sensitive", "STYLES/", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var visited []string
			err := Walk(zipPath, tt.prefix, nil, func(archive, name string, f *zip.File) error {
				if archive != zipPath {
					t.Errorf("archive = %s, want %s", archive, zipPath)
				}
				visited = append(visited, name)
				return nil
			})
			if err != nil {
				t.Fatalf("Walk() error = %v", err)
			}
			if !slices.Equal(visited, tt.want) {
				t.Errorf("visited %v, want %v", visited, tt.want)
			}
		})
	}
}

func TestWalk_FileContent(t *testing.T) {
	zipPath := createZip(t, []entry{{header: zip.FileHeader{Name: "roads.css"}, content: "* { stroke: black }"}})
	err := Walk(zipPath, "", nil, func(_, _ string, f *zip.File) error {
		r, err := f.Open()
		if err != nil {
			return err
		}
		defer r.Close()
		data, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		if string(data) != "* { stroke: black }" {
			t.Errorf("content = %q", data)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
}

func TestWalk_EarlyTermination(t *testing.T) {
	zipPath := createZip(t, named("a.css", "b.css", "c.css"))
	stopErr := errors.New("stop walking")
	var visited int
	err := Walk(zipPath, "", nil, func(_, _ string, _ *zip.File) error {
		visited++
		if visited == 2 {
			return stopErr
		}
		return nil
	})
	if !errors.Is(err, stopErr) {
		t.Errorf("Walk() error = %v, want %v", err, stopErr)
	}
	if visited != 2 {
		t.Errorf("visited %d files, want 2", visited)
	}
}

func TestWalk_UnsafePaths(t *testing.T) {
	for _, name := range []string{"../evil.css", "styles/../../evil.css", "/etc/evil.css"} {
		t.Run(name, func(t *testing.T) {
			zipPath := createZip(t, named("good.css", name))
			err := Walk(zipPath, "", nil, func(_, _ string, _ *zip.File) error {
				t.Error("walkFn called for archive with unsafe entries")
				return nil
			})
			if err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestWalk_NonUTF8Names(t *testing.T) {
	raw, err := charmap.Windows1251.NewEncoder().String("дороги.css")
	if err != nil {
		t.Fatal(err)
	}
	zipPath := createZip(t, []entry{{header: zip.FileHeader{Name: raw, NonUTF8: true}, content: "*{}"}})

	var got string
	if err := Walk(zipPath, "", charmap.Windows1251, func(_, name string, _ *zip.File) error {
		got = name
		return nil
	}); err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	if got != "дороги.css" {
		t.Errorf("name = %q, want дороги.css", got)
	}

	// without encoding raw name is passed through
	if err := Walk(zipPath, "", nil, func(_, name string, _ *zip.File) error {
		got = name
		return nil
	}); err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	if got != raw {
		t.Errorf("name = %q, want raw name", got)
	}
}

func TestWalk_InvalidArchive(t *testing.T) {
	if err := Walk("/nonexistent/file.zip", "", nil, func(_, _ string, _ *zip.File) error { return nil }); err == nil {
		t.Error("Expected error for nonexistent file")
	}

	invalid := filepath.Join(t.TempDir(), "invalid.zip")
	if err := os.WriteFile(invalid, []byte("not a zip file"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := Walk(invalid, "", nil, func(_, _ string, _ *zip.File) error { return nil }); err == nil {
		t.Error("Expected error for invalid zip file")
	}
}
