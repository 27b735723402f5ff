package convert

import (
	"archive/zip"
	"context"
	"fmt"
	"image"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	fixzip "github.com/hidez8891/zip"
	"go.uber.org/zap"

	"geocss/config"
	"geocss/legend"
	"geocss/resource"
	"geocss/style"
)

const graphicsDir = "graphics"

// output is everything produced for a single stylesheet.
type output struct {
	style  *style.Style
	legend image.Image // nil when not requested
}

// writeOutput writes style in requested format. Legend, if any, is put
// inside bundle or written next to the output file.
func writeOutput(ctx context.Context, out *output, outputName string, format config.OutputFmt, loader resource.Loader, log *zap.Logger) error {
	switch format {
	case config.OutputFmtSld:
		if err := writeFile(outputName, func(w io.Writer) error { return style.WriteSLD(w, out.style) }); err != nil {
			return err
		}
	case config.OutputFmtYsld:
		if err := writeFile(outputName, func(w io.Writer) error { return style.WriteYSLD(w, out.style) }); err != nil {
			return err
		}
	case config.OutputFmtBundle:
		return writeBundle(ctx, out, outputName, loader, log)
	default:
		return fmt.Errorf("unsupported output format %s", format)
	}

	if out.legend != nil {
		name := legendPath(outputName)
		if err := writeFile(name, func(w io.Writer) error { return legend.Encode(w, out.legend) }); err != nil {
			return fmt.Errorf("unable to write legend: %w", err)
		}
	}
	return nil
}

func writeFile(name string, write func(io.Writer) error) error {
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("unable to create output file: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("unable to write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("unable to finalize %s: %w", name, err)
	}
	return nil
}

// writeBundle produces zip archive with SLD document, every external graphic
// which could be loaded and legend image. Graphic references in the packed
// style point to archive entries.
func writeBundle(ctx context.Context, out *output, outputName string, loader resource.Loader, log *zap.Logger) error {
	tmp, err := os.CreateTemp(filepath.Dir(outputName), ".bundle-*.zip")
	if err != nil {
		return fmt.Errorf("unable to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	zw := zip.NewWriter(tmp)
	if err := packBundle(ctx, zw, out, strings.TrimSuffix(filepath.Base(outputName), filepath.Ext(outputName)), loader, log); err != nil {
		zw.Close()
		tmp.Close()
		return err
	}
	// make sure buffers are flushed before continuing
	if err := zw.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("unable to close output archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("unable to finalize output file: %w", err)
	}
	return copyZipWithoutDataDescriptors(tmpName, outputName)
}

func packBundle(ctx context.Context, zw *zip.Writer, out *output, name string, loader resource.Loader, log *zap.Logger) error {
	graphics := out.style.ExternalGraphics()

	// style is shared with the caller, restore original references when done
	original := make([]string, len(graphics))
	for i, eg := range graphics {
		original[i] = eg.Href
	}
	defer func() {
		for i, eg := range graphics {
			eg.Href = original[i]
		}
	}()

	entries := make(map[string]string) // href -> entry name
	used := make(map[string]bool)
	for _, eg := range graphics {
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry, ok := entries[eg.Href]; ok {
			eg.Href = entry
			continue
		}
		u, err := url.Parse(eg.Href)
		if err != nil || loader == nil {
			log.Warn("Graphic is left outside of bundle", zap.String("href", eg.Href), zap.Error(err))
			continue
		}
		// unresolved reference, there is no location to load it from
		if !u.IsAbs() {
			log.Warn("Graphic is left outside of bundle, reference is relative", zap.String("href", eg.Href))
			continue
		}
		data, err := loader.Load(ctx, u)
		if err != nil {
			log.Warn("Graphic is left outside of bundle", zap.String("href", eg.Href), zap.Error(err))
			continue
		}

		entry := uniqueEntry(path.Join(graphicsDir, graphicName(u)), used)
		if err := saveEntry(zw, entry, data); err != nil {
			return fmt.Errorf("unable to write graphic %s: %w", entry, err)
		}
		log.Debug("Graphic bundled", zap.String("href", eg.Href), zap.String("entry", entry))
		entries[eg.Href] = entry
		eg.Href = entry
	}

	sld, err := zw.Create(name + config.OutputFmtSld.Ext())
	if err != nil {
		return err
	}
	if err := style.WriteSLD(sld, out.style); err != nil {
		return fmt.Errorf("unable to write style: %w", err)
	}

	if out.legend != nil {
		w, err := zw.Create("legend.png")
		if err != nil {
			return err
		}
		if err := legend.Encode(w, out.legend); err != nil {
			return fmt.Errorf("unable to write legend: %w", err)
		}
	}
	return nil
}

func graphicName(u *url.URL) string {
	p := u.Path
	if p == "" {
		p = u.Opaque
	}
	base := path.Base(filepath.ToSlash(p))
	if base == "." || base == "/" || base == "" {
		return "graphic"
	}
	return config.CleanFileName(base)
}

func uniqueEntry(name string, used map[string]bool) string {
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	candidate := name
	for i := 2; used[candidate]; i++ {
		candidate = stem + "-" + strconv.Itoa(i) + ext
	}
	used[candidate] = true
	return candidate
}

func saveEntry(zw *zip.Writer, name string, data []byte) error {
	// images are compressed already
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store})
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// copyZipWithoutDataDescriptors rewrites archive so entries do not use data
// descriptors, some map servers refuse style archives with them.
func copyZipWithoutDataDescriptors(from, to string) error {

	out, err := os.Create(to)
	if err != nil {
		return fmt.Errorf("unable to create target file (%s): %w", to, err)
	}
	defer out.Close()

	r, err := fixzip.OpenReader(from)
	if err != nil {
		return fmt.Errorf("unable to read archive file (%s): %w", from, err)
	}
	defer r.Close()

	w := fixzip.NewWriter(out)
	for _, file := range r.File {
		// unset data descriptor flag.
		file.Flags &= ^fixzip.FlagDataDescriptor

		// copy zip entry
		if err := w.CopyFile(file); err != nil {
			w.Close()
			return fmt.Errorf("unable to write target file (%s): %w", to, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("unable to finalize target file (%s): %w", to, err)
	}
	return out.Close()
}

// relativizeGraphics turns references to local files under dir into paths
// relative to it, so produced style refers to graphics the way stylesheet
// does.
func relativizeGraphics(st *style.Style, dir string) {
	for _, eg := range st.ExternalGraphics() {
		u, err := url.Parse(eg.Href)
		if err != nil || u.Scheme != "file" {
			continue
		}
		rel, err := filepath.Rel(dir, filepath.FromSlash(u.Path))
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		eg.Href = filepath.ToSlash(rel)
	}
}
