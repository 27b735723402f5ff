package resource

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"geocss/css"
)

// MaxImportDepth limits nesting of @import chains.
const MaxImportDepth = 8

var (
	// ErrImportCycle is returned when stylesheet imports itself, directly or not.
	ErrImportCycle = errors.New("import cycle")
	// ErrImportTooDeep is returned when @import chain is longer than MaxImportDepth.
	ErrImportTooDeep = errors.New("imports nested too deep")
)

// Importer replaces @import items with the rules of imported stylesheets.
type Importer struct {
	log    *zap.Logger
	parser *css.Parser
	loader Loader
}

// NewImporter creates Importer loading stylesheets with loader.
func NewImporter(log *zap.Logger, parser *css.Parser, loader Loader) *Importer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Importer{log: log.Named("importer"), parser: parser, loader: loader}
}

// Resolve returns stylesheet with all imports inlined at the place of the
// @import rule. References inside imported stylesheets are made absolute, so
// they keep pointing to the right place. base is the location of sheet and
// may be nil.
func (im *Importer) Resolve(ctx context.Context, sheet *css.Stylesheet, base *url.URL) (*css.Stylesheet, error) {
	var visiting []string
	if base != nil {
		visiting = append(visiting, base.String())
	}
	return im.resolve(ctx, sheet, base, visiting, 0)
}

// resolve inlines imports of the sheet found at depth levels below the
// top level stylesheet.
func (im *Importer) resolve(ctx context.Context, sheet *css.Stylesheet, base *url.URL, visiting []string, depth int) (*css.Stylesheet, error) {
	if len(sheet.Imports()) == 0 {
		return sheet, nil
	}
	if depth >= MaxImportDepth {
		return nil, fmt.Errorf("%w: %v", ErrImportTooDeep, visiting)
	}

	out := &css.Stylesheet{
		Items:    make([]css.StylesheetItem, 0, len(sheet.Items)),
		Warnings: append([]string(nil), sheet.Warnings...),
	}
	for _, item := range sheet.Items {
		if item.Import == nil {
			out.Items = append(out.Items, item)
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		target, err := Resolve(base, *item.Import)
		if err != nil {
			return nil, fmt.Errorf("bad @import %q: %w", *item.Import, err)
		}
		key := target.String()
		for _, v := range visiting {
			if v == key {
				return nil, fmt.Errorf("%w: %s", ErrImportCycle, key)
			}
		}

		im.log.Debug("Importing stylesheet", zap.String("url", key), zap.Int("depth", depth+1))
		data, err := im.loader.Load(ctx, target)
		if err != nil {
			return nil, err
		}
		if data, err = DecodeStylesheet(data, nil); err != nil {
			return nil, fmt.Errorf("import %s: %w", key, err)
		}
		imported, err := im.parser.Parse(data, key)
		if err != nil {
			return nil, err
		}
		imported.RewriteURLs(func(ref string) string {
			if u, err := Resolve(target, ref); err == nil {
				return u.String()
			}
			return ref
		})
		imported, err = im.resolve(ctx, imported, target, append(visiting[:len(visiting):len(visiting)], key), depth+1)
		if err != nil {
			return nil, err
		}
		out.Items = append(out.Items, imported.Items...)
		out.Warnings = append(out.Warnings, imported.Warnings...)
	}
	return out, nil
}

// Resolve resolves reference against base. With nil base the reference is
// returned as is.
func Resolve(base *url.URL, ref string) (*url.URL, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, err
	}
	if base == nil {
		return u, nil
	}
	return base.ResolveReference(u), nil
}
