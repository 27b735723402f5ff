package convert

import (
	"bytes"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"

	"geocss/config"
	"geocss/style"
)

// Values is a struct that holds variables we make available for template expansion
type Values struct {
	Context    string
	Name       string // source base name without extension
	Style      string
	Title      string
	Format     string
	SourceFile string // source path relative to the processed directory or archive
	TypeNames  []string
	Rules      int
}

func typeNames(st *style.Style) []string {
	var names []string
	for _, fts := range st.FeatureTypeStyles {
		if fts.FeatureTypeName == "" {
			continue
		}
		if !slices.Contains(names, fts.FeatureTypeName) {
			names = append(names, fts.FeatureTypeName)
		}
	}
	return names
}

func expandTemplate(st *style.Style, src string, name config.TemplateFieldName, field string, format config.OutputFmt) (string, error) {
	funcMap := sprig.FuncMap()

	tmpl, err := template.New(string(name)).Funcs(funcMap).Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", name, err)
	}

	values := Values{
		Context:    string(name),
		Name:       strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)),
		Style:      st.Name,
		Title:      st.Title,
		Format:     format.String(),
		SourceFile: filepath.ToSlash(src),
		TypeNames:  typeNames(st),
		Rules:      len(st.Rules()),
	}

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		return "", err
	}
	return buf.String(), nil
}
