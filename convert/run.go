package convert

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"runtime/debug"
	"slices"
	"strings"
	"time"

	"github.com/maruel/natural"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/ianaindex"

	"geocss/archive"
	"geocss/config"
	"geocss/css2sld"
	"geocss/legend"
	"geocss/resource"
	"geocss/state"
	"geocss/translate"
)

func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("convert")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	src, err = filepath.Abs(src)
	if err != nil {
		return err
	}

	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Mailformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	env.Format, err = config.ParseOutputFmt(cmd.String("to"))
	if err != nil {
		log.Warn("Unknown output format requested, switching to sld", zap.Error(err))
		env.Format = config.OutputFmtSld
	}

	env.NoDirs, env.Overwrite, env.Legend = cmd.Bool("nodirs"), cmd.Bool("overwrite"), cmd.Bool("legend")

	// command line takes precedence over configuration
	charset := cmd.String("force-charset")
	if len(charset) == 0 {
		charset = env.Cfg.Conversion.ForceCharset
	}
	if len(charset) > 0 {
		if env.Charset, err = resource.EncodingByName(charset); err != nil {
			return fmt.Errorf("unable to use stylesheet charset: %w", err)
		}
		log.Debug("Stylesheets without charset declaration are decoded forcefully", zap.String("charset", charset))
	}

	// Since zip "standard" does not define file name encoding we may need to
	// force archaic code page for old archives
	cp := cmd.String("force-zip-cp")
	if len(cp) > 0 {
		env.CodePage, err = ianaindex.IANA.Encoding(cp)
		if err != nil || env.CodePage == nil {
			log.Warn("Unknown character set specification. Ignoring...", zap.String("charset", cp), zap.Error(err))
			env.CodePage = nil
		} else {
			n, _ := ianaindex.IANA.Name(env.CodePage)
			log.Debug("Forcefully converting all non UTF-8 file names in archives", zap.String("charset", n))
		}
	}

	if base := cmd.String("base"); len(base) > 0 {
		if env.Base, err = url.Parse(base); err != nil {
			return fmt.Errorf("unable to parse base location: %w", err)
		}
		if !env.Base.IsAbs() {
			return fmt.Errorf("base location must be absolute: %s", base)
		}
		// references are resolved against directory
		if !strings.HasSuffix(env.Base.Path, "/") {
			env.Base.Path += "/"
		}
	}

	c, err := newConverter(env, log)
	if err != nil {
		return err
	}

	log.Info("Processing starting", zap.String("source", src), zap.String("destination", dst), zap.Stringer("format", env.Format))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	return c.process(ctx, src, dst)
}

// converter keeps everything shared by conversions of a single run.
type converter struct {
	env      *state.LocalEnv
	log      *zap.Logger
	pipeline *css2sld.Pipeline
	loader   resource.Loader
	legend   *legend.Renderer
	failed   error
}

func newConverter(env *state.LocalEnv, log *zap.Logger) (*converter, error) {
	loader, err := env.Loader()
	if err != nil {
		return nil, err
	}

	conf := env.Cfg.Conversion
	trOpts := []translate.Option{
		translate.WithMaxCombinations(conf.MaxCombinations),
		translate.WithDefaultMIME(conf.DefaultMIME),
	}
	if env.Cfg.Resources.Sniff {
		trOpts = append(trOpts, translate.WithSniffing(loader))
	}

	c := &converter{
		env:    env,
		log:    log,
		loader: loader,
		pipeline: css2sld.NewPipeline(
			css2sld.WithLogger(log),
			css2sld.WithLoader(loader),
			css2sld.WithEncoding(env.Charset),
			css2sld.WithTranslator(translate.NewTranslator(log, trOpts...)),
		),
	}
	if env.Legend {
		lc := env.Cfg.Legend
		def := legend.DefaultOptions()
		c.legend = legend.NewRenderer(log, legend.Options{
			IconSize:   lc.IconSize,
			Width:      lc.Width,
			Background: legend.HexColor(lc.Background, def.Background),
			TextColor:  legend.HexColor(lc.FontColour, def.TextColor),
			Grayscale:  lc.Grayscale,
			Loader:     loader,
		})
	}
	return c, nil
}

// process determines the input type (directory, archive, or single file) and
// processes accordingly. Failure of individual stylesheets does not stop
// processing, but is reported at the end.
func (c *converter) process(ctx context.Context, src, dst string) error {
	var head, tail string
	for head = src; len(head) != 0; head, tail = filepath.Split(head) {
		if err := ctx.Err(); err != nil {
			return err
		}

		head = strings.TrimSuffix(head, string(filepath.Separator))

		fi, err := os.Stat(head)
		if err != nil {
			// does not exists - probably path in archive
			continue
		}

		if fi.Mode().IsDir() {
			if len(tail) != 0 {
				// directory cannot have tail - it would be simple file
				return fmt.Errorf("input source was not found (%s) => (%s)", head, strings.TrimPrefix(src, head))
			}
			if err := c.processDir(ctx, head, dst); err != nil {
				return fmt.Errorf("unable to process directory: %w", err)
			}
			break
		}

		if !fi.Mode().IsRegular() {
			return fmt.Errorf("unexpected path mode for (%s) => (%s)", head, strings.TrimPrefix(src, head))
		}

		isArchive, err := isArchiveFile(head)
		if err != nil {
			// checking format - but cannot open target file
			return fmt.Errorf("unable to check archive type: %w", err)
		}
		if isArchive {
			// we need to look inside to see if path makes sense
			tail = filepath.ToSlash(strings.TrimPrefix(strings.TrimPrefix(src, head), string(filepath.Separator)))
			if err := c.processArchive(ctx, head, tail, "", dst); err != nil {
				return fmt.Errorf("unable to process archive: %w", err)
			}
			break
		}

		if len(tail) == 0 && isStylesheet(head) {
			c.processFile(ctx, head, filepath.Base(head), dst)
			break
		}
		return fmt.Errorf("input was not recognized as stylesheet (%s)", head)
	}
	if len(head) == 0 {
		return fmt.Errorf("input source was not found (%s)", src)
	}
	return c.failed
}

// processDir walks directory tree finding stylesheets and archives and
// processes them in natural order of their paths.
func (c *converter) processDir(ctx context.Context, dir, dst string) error {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err != nil {
			c.log.Warn("Skipping path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if d.Type().IsRegular() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return err
	}
	slices.SortFunc(paths, func(a, b string) int {
		switch {
		case natural.Less(a, b):
			return -1
		case natural.Less(b, a):
			return 1
		}
		return 0
	})

	count := 0
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}

		rel := strings.TrimPrefix(strings.TrimPrefix(path, dir), string(filepath.Separator))

		isArchive, err := isArchiveFile(path)
		if err != nil {
			// checking format - but cannot open target file
			c.log.Warn("Skipping file", zap.String("file", path), zap.Error(err))
			continue
		}
		if isArchive {
			if err := c.processArchive(ctx, path, "", filepath.Dir(rel), dst); err != nil {
				c.log.Error("Unable to process archive", zap.String("file", path), zap.Error(err))
				c.failed = multierr.Append(c.failed, fmt.Errorf("%s: %w", path, err))
			}
			continue
		}
		if !isStylesheet(path) {
			c.log.Debug("Skipping file, not recognized as stylesheet or archive", zap.String("file", path))
			continue
		}
		count++
		c.processFile(ctx, path, rel, dst)
	}
	if count == 0 {
		c.log.Debug("Nothing to process", zap.String("dir", dir))
	}
	return nil
}

// processArchive walks all files inside archive, finds stylesheets under
// "pathIn" and processes them.
func (c *converter) processArchive(ctx context.Context, path, pathIn, pathOut, dst string) error {
	count := 0
	err := archive.Walk(path, pathIn, c.env.CodePage, func(archive, name string, f *zip.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !isStylesheet(name) {
			c.log.Debug("Skipping file, not recognized as stylesheet", zap.String("archive", archive), zap.String("file", name))
			return nil
		}

		count++

		r, err := f.Open()
		if err != nil {
			c.log.Error("Unable to process file in archive",
				zap.String("archive", archive), zap.String("file", name), zap.Error(err))
			c.failed = multierr.Append(c.failed, fmt.Errorf("%s/%s: %w", archive, name, err))
			return nil
		}
		defer r.Close()

		src := filepath.Join(pathOut, filepath.FromSlash(name))
		// there is no location to resolve relative references against unless
		// one was requested
		var base *url.URL
		if c.env.Base != nil {
			base = c.env.Base.ResolveReference(&url.URL{Path: filepath.ToSlash(src)})
		}
		if err := c.processStylesheet(ctx, r, src, base, dst); err != nil {
			c.log.Error("Unable to process file in archive",
				zap.String("archive", archive), zap.String("file", name), zap.Error(err))
			c.failed = multierr.Append(c.failed, fmt.Errorf("%s/%s: %w", archive, name, err))
		}
		return nil
	})
	if err == nil && count == 0 {
		c.log.Debug("Nothing to process", zap.String("archive", path))
	}
	return err
}

// processFile converts stylesheet from disk, "src" is its path relative to
// the processed directory.
func (c *converter) processFile(ctx context.Context, path, src, dst string) {
	err := func() error {
		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()

		base := fileURL(path)
		if c.env.Base != nil {
			base = c.env.Base.ResolveReference(&url.URL{Path: filepath.ToSlash(src)})
		}
		c.env.Rpt.Store(fmt.Sprintf("source/%s", filepath.ToSlash(src)), path)
		return c.processStylesheet(ctx, file, src, base, dst)
	}()
	if err != nil {
		c.log.Error("Unable to process file", zap.String("file", path), zap.Error(err))
		c.failed = multierr.Append(c.failed, fmt.Errorf("%s: %w", path, err))
	}
}

// processStylesheet converts single stylesheet. "src" is part of the source
// path (always including file name) relative to the original path. When
// actual file was specified it will be just base file name without a path.
// When looking inside archive or directory it will be relative path inside
// archive or directory (including base file name). "base" is the location
// relative references are resolved against, may be nil. "dst" is the
// destination directory where the converted file should be written.
func (c *converter) processStylesheet(ctx context.Context, r io.Reader, src string, base *url.URL, dst string) (rerr error) {
	env := c.env
	log := c.log

	var outputName string
	rules := 0

	log.Info("Conversion starting", zap.String("from", src))
	defer func(start time.Time) {
		// NOTE: image decoders and rasterizers used for legends may panic on
		// malformed graphics, when multiple stylesheets are being processed
		// we do not want to stop.
		if r := recover(); r != nil {
			log.Error("Conversion ended with panic",
				zap.Any("panic", r), zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName), zap.ByteString("stack", debug.Stack()))
			rerr = fmt.Errorf("conversion panic: %v", r)
		} else if rerr == nil {
			log.Info("Conversion completed", zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName), zap.Int("rules", rules))
		}
	}(time.Now())

	res, err := c.pipeline.Run(ctx, r, base)
	if err != nil {
		return fmt.Errorf("unable to convert stylesheet (%s): %w", src, err)
	}
	for _, w := range res.Warnings {
		log.Warn("Stylesheet problem", zap.String("file", src), zap.String("warning", w))
	}
	st := res.Style
	rules = len(st.Rules())
	if env.Rpt != nil {
		env.Rpt.StoreData(fmt.Sprintf("style/%s-%d.txt", filepath.ToSlash(src), time.Now().UnixNano()), []byte(st.String()))
	}

	// Determine output file name and path based on input and configuration.
	outputName = buildOutputPath(st, src, dst, env)

	// Check if output file already exists
	if _, err := os.Stat(outputName); err == nil {
		if !env.Overwrite {
			return fmt.Errorf("output file already exists: %s", outputName)
		}
		log.Warn("Overwriting existing file", zap.String("file", outputName))
		if err = os.Remove(outputName); err != nil {
			return err
		}
	} else if !os.IsNotExist(err) {
		return err
	} else if err := os.MkdirAll(filepath.Dir(outputName), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}

	out := &output{style: st}
	if c.legend != nil {
		if out.legend, err = c.legend.Render(ctx, st); err != nil {
			log.Warn("Legend will not be produced", zap.String("file", src), zap.Error(err))
		}
	}

	// graphics are packed into bundle by their resolved locations, for plain
	// documents restore references the stylesheet made relative to itself
	if !env.Format.Packaged() && env.Base == nil && base != nil && base.Scheme == "file" {
		relativizeGraphics(st, filepath.Dir(filepath.FromSlash(base.Path)))
	}

	if err := writeOutput(ctx, out, outputName, env.Format, c.loader, log); err != nil {
		return fmt.Errorf("unable to generate output: %w", err)
	}

	// Store conversion result for debugging
	if err := env.Rpt.StoreCopy(fmt.Sprintf("result/%s", filepath.Base(outputName)), outputName); err != nil {
		log.Warn("Unable to store conversion result in report", zap.Error(err))
	}
	return nil
}

func fileURL(path string) *url.URL {
	p := filepath.ToSlash(path)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return &url.URL{Scheme: "file", Path: p}
}
