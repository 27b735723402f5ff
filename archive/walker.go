// Package archive builds Walk abstraction on top of "archive/zip".
package archive

import (
	"archive/zip"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/maruel/natural"
	"golang.org/x/text/encoding"
)

// WalkFunc is the type of the function called for each file in archive
// visited by Walk. The archive argument contains path to archive passed to
// Walk, name is the entry name (decoded when archive does not use UTF-8 for
// it) and file is the zip.File of the entry. If an error is returned,
// processing stops.
type WalkFunc func(archive, name string, file *zip.File) error

// Walk walks files in the archive which names start with prefix in natural
// order of their names, calling walkFn for each item. Archives with entries
// which could escape extraction directory (absolute paths or "..") are
// rejected. When names is not nil it is used to decode entry names not
// flagged as UTF-8.
func Walk(archive, prefix string, names encoding.Encoding, walkFn WalkFunc) error {

	r, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer r.Close()

	type item struct {
		name string
		file *zip.File
	}
	items := make([]item, 0, len(r.File))
	for _, f := range r.File {
		name := f.FileHeader.Name
		if !isSafePath(name) {
			return fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", name)
		}
		if f.FileInfo().IsDir() {
			continue
		}
		if names != nil && f.FileHeader.NonUTF8 {
			decoded, err := names.NewDecoder().String(name)
			if err != nil {
				return fmt.Errorf("zip entry %q: unable to decode name: %w", name, err)
			}
			name = decoded
		}
		if strings.HasPrefix(name, prefix) {
			items = append(items, item{name: name, file: f})
		}
	}
	slices.SortStableFunc(items, func(a, b item) int {
		switch {
		case natural.Less(a.name, b.name):
			return -1
		case natural.Less(b.name, a.name):
			return 1
		}
		return 0
	})

	for _, it := range items {
		if err := walkFn(archive, it.name, it.file); err != nil {
			return err
		}
	}
	return nil
}

// isSafePath returns false for paths that could escape the extraction
// directory: absolute paths and those containing ".." components.
func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return false
	}
	return !slices.Contains(strings.Split(name, "/"), "..")
}
