package convert

import (
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/matchers"
)

const stylesheetExt = ".css"

// isArchiveFile reports whether path is a zip archive. Only files with zip
// extension are looked at.
func isArchiveFile(path string) (bool, error) {
	if !strings.EqualFold(filepath.Ext(path), ".zip") {
		return false, nil
	}
	kind, err := filetype.MatchFile(path)
	if err != nil {
		return false, err
	}
	return kind == matchers.TypeZip, nil
}

// isStylesheet reports whether name looks like GeoCSS stylesheet.
func isStylesheet(name string) bool {
	return strings.EqualFold(filepath.Ext(name), stylesheetExt)
}
