// Package translate turns parsed GeoCSS stylesheet into rendering style.
//
// CSS rules overlap freely while style rules must not, so translation
// enumerates every satisfiable combination of rules, merges declarations of
// each combination in specificity order and turns merged properties into
// symbolizers.
package translate

import (
	"context"
	"errors"
	"net/url"
	"slices"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"geocss/css"
	"geocss/resource"
	"geocss/style"
)

// DefaultMaxCombinations bounds number of rule combinations kept alive.
const DefaultMaxCombinations = 10000

// DefaultMIME is used for external graphics when nothing better is known.
const DefaultMIME = "image/png"

// ErrTooManyCombinations is returned when stylesheet rules overlap in too
// many ways to be translated.
var ErrTooManyCombinations = errors.New("too many rule combinations")

// Result holds the translated style and problems found along the way.
type Result struct {
	Style    *style.Style
	Warnings []string
}

// Translator converts stylesheets to styles.
type Translator struct {
	log             *zap.Logger
	maxCombinations int
	defaultMIME     string
	loader          resource.Loader
	sniff           bool
}

// Option configures Translator.
type Option func(*Translator)

// WithMaxCombinations changes the limit of live rule combinations.
func WithMaxCombinations(n int) Option {
	return func(t *Translator) {
		if n > 0 {
			t.maxCombinations = n
		}
	}
}

// WithDefaultMIME changes media type assumed for graphics of unknown type.
func WithDefaultMIME(mime string) Option {
	return func(t *Translator) {
		if mime != "" {
			t.defaultMIME = mime
		}
	}
}

// WithSniffing lets translator load external graphics of unknown type and
// guess their media type from content.
func WithSniffing(loader resource.Loader) Option {
	return func(t *Translator) {
		t.loader = loader
		t.sniff = loader != nil
	}
}

// NewTranslator creates a new stylesheet translator.
func NewTranslator(log *zap.Logger, opts ...Option) *Translator {
	if log == nil {
		log = zap.NewNop()
	}
	t := &Translator{
		log:             log.Named("translator"),
		maxCombinations: DefaultMaxCombinations,
		defaultMIME:     DefaultMIME,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Translate converts stylesheet into style. Relative url() references are
// resolved against base when it is not nil.
func (t *Translator) Translate(ctx context.Context, sheet *css.Stylesheet, base *url.URL) (*Result, error) {
	tr := &translation{
		Translator: t,
		ctx:        ctx,
		base:       base,
		sniffed:    make(map[string]string),
		result: &Result{
			Warnings: append([]string(nil), sheet.Warnings...),
		},
	}

	st := &style.Style{
		FeatureTypeStyles: make([]*style.FeatureTypeStyle, 0),
	}
	st.Name, _ = sheet.Directive("styleName")
	st.Title, _ = sheet.Directive("styleTitle")
	st.Abstract, _ = sheet.Directive("styleAbstract")
	if st.Name == "" {
		st.Name = anonymousName(sheet)
	}

	rules := expandRules(sheet.Rules())
	mode, _ := sheet.Directive("mode")

	var (
		layers []layer
		err    error
	)
	if strings.EqualFold(mode, "flat") {
		layers, err = tr.flat(rules)
	} else {
		layers, err = tr.cascade(rules)
	}
	if err != nil {
		return nil, err
	}
	st.FeatureTypeStyles = buildFeatureTypeStyles(layers)
	tr.result.Style = st

	t.log.Debug("Translated stylesheet",
		zap.String("name", st.Name),
		zap.Int("rules", len(rules)),
		zap.Int("feature type styles", len(st.FeatureTypeStyles)),
		zap.Int("warnings", len(tr.result.Warnings)))
	return tr.result, nil
}

// anonymousName derives stable style name from stylesheet content, so the
// same stylesheet always gets the same name.
func anonymousName(sheet *css.Stylesheet) string {
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(sheet.String()))
	return "style-" + id.String()[:8]
}

// translation carries state of a single Translate call.
type translation struct {
	*Translator
	ctx     context.Context
	base    *url.URL
	sniffed map[string]string // media types by graphic url
	result  *Result
}

// warn records problem once, the same declaration is seen by many rule
// combinations.
func (tr *translation) warn(msg string) {
	if slices.Contains(tr.result.Warnings, msg) {
		return
	}
	tr.result.Warnings = append(tr.result.Warnings, msg)
	tr.log.Debug("Translation warning", zap.String("warning", msg))
}
