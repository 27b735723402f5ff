// Package css2sld converts GeoCSS stylesheets into rendering styles.
//
// Convert and ConvertWithBase are the simplest entry points, each call builds
// its own pipeline so calls never share state. Facade holds a configured
// Converter for callers who need to tune the pipeline or substitute it.
package css2sld

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"

	"geocss/css"
	"geocss/resource"
	"geocss/style"
	"geocss/translate"
)

// ErrNilInput is returned when no stylesheet reader is given.
var ErrNilInput = errors.New("nil input")

// Converter turns stylesheet read from r into style. Relative references are
// resolved against base, nil base leaves them as they are.
type Converter interface {
	Convert(ctx context.Context, r io.Reader, base *url.URL) (*style.Style, error)
}

// ConverterFunc adapts ordinary function to Converter.
type ConverterFunc func(ctx context.Context, r io.Reader, base *url.URL) (*style.Style, error)

func (f ConverterFunc) Convert(ctx context.Context, r io.Reader, base *url.URL) (*style.Style, error) {
	return f(ctx, r, base)
}

type options struct {
	log             *zap.Logger
	loader          resource.Loader
	translator      *translate.Translator
	converter       Converter
	maxCombinations int
	encoding        encoding.Encoding
}

// Option configures Facade and Pipeline.
type Option func(*options)

// WithLogger sets logger, by default nothing is logged.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithLoader sets loader used for @import targets.
func WithLoader(loader resource.Loader) Option {
	return func(o *options) {
		o.loader = loader
	}
}

// WithTranslator replaces default translator.
func WithTranslator(t *translate.Translator) Option {
	return func(o *options) {
		o.translator = t
	}
}

// WithConverter makes Facade delegate to c instead of building a pipeline.
func WithConverter(c Converter) Option {
	return func(o *options) {
		o.converter = c
	}
}

// WithMaxCombinations limits rule combinations of the default translator.
func WithMaxCombinations(n int) Option {
	return func(o *options) {
		o.maxCombinations = n
	}
}

// WithEncoding forces stylesheet encoding when input has neither BOM nor
// @charset rule.
func WithEncoding(enc encoding.Encoding) Option {
	return func(o *options) {
		o.encoding = enc
	}
}

func collect(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}
	return o
}

// Facade converts stylesheets with a configured Converter.
type Facade struct {
	conv Converter
}

// New creates Facade. Without WithConverter it delegates to a Pipeline built
// from the same options.
func New(opts ...Option) *Facade {
	o := collect(opts)
	if o.converter != nil {
		return &Facade{conv: o.converter}
	}
	return &Facade{conv: newPipeline(o)}
}

// Convert converts stylesheet without base location.
func (f *Facade) Convert(ctx context.Context, r io.Reader) (*style.Style, error) {
	return f.conv.Convert(ctx, r, nil)
}

// ConvertWithBase converts stylesheet located at base.
func (f *Facade) ConvertWithBase(ctx context.Context, r io.Reader, base *url.URL) (*style.Style, error) {
	return f.conv.Convert(ctx, r, base)
}

// Convert converts stylesheet using default pipeline. Relative references
// are kept as written.
func Convert(r io.Reader) (*style.Style, error) {
	return New().Convert(context.Background(), r)
}

// ConvertWithBase converts stylesheet using default pipeline. Relative
// url() references and @import targets are resolved against base.
func ConvertWithBase(r io.Reader, base *url.URL) (*style.Style, error) {
	return New().ConvertWithBase(context.Background(), r, base)
}

// Pipeline is the default Converter: decode, parse, inline imports and
// translate.
type Pipeline struct {
	log        *zap.Logger
	parser     *css.Parser
	importer   *resource.Importer
	translator *translate.Translator
	encoding   encoding.Encoding
}

// NewPipeline creates conversion pipeline. WithConverter is ignored.
func NewPipeline(opts ...Option) *Pipeline {
	return newPipeline(collect(opts))
}

func newPipeline(o options) *Pipeline {
	loader := o.loader
	if loader == nil {
		loader = resource.NewFetcher(o.log)
	}
	tr := o.translator
	if tr == nil {
		tr = translate.NewTranslator(o.log, translate.WithMaxCombinations(o.maxCombinations))
	}
	parser := css.NewParser(o.log)
	return &Pipeline{
		log:        o.log.Named("css2sld"),
		parser:     parser,
		importer:   resource.NewImporter(o.log, parser, loader),
		translator: tr,
		encoding:   o.encoding,
	}
}

// Run converts stylesheet and returns style together with warnings.
func (p *Pipeline) Run(ctx context.Context, r io.Reader, base *url.URL) (*translate.Result, error) {
	if r == nil {
		return nil, ErrNilInput
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("unable to read stylesheet: %w", err)
	}
	if data, err = resource.DecodeStylesheet(data, p.encoding); err != nil {
		return nil, fmt.Errorf("unable to decode stylesheet: %w", err)
	}

	source := "stylesheet"
	if base != nil {
		source = base.String()
	}
	sheet, err := p.parser.Parse(data, source)
	if err != nil {
		return nil, err
	}
	if sheet, err = p.importer.Resolve(ctx, sheet, base); err != nil {
		return nil, err
	}
	return p.translator.Translate(ctx, sheet, base)
}

// Convert implements Converter, warnings are logged.
func (p *Pipeline) Convert(ctx context.Context, r io.Reader, base *url.URL) (*style.Style, error) {
	res, err := p.Run(ctx, r, base)
	if err != nil {
		return nil, err
	}
	for _, w := range res.Warnings {
		p.log.Warn("Stylesheet problem", zap.String("warning", w))
	}
	return res.Style, nil
}
