// Package resource takes care of everything stylesheet conversion needs from
// outside world: decoding stylesheet bytes, fetching imported stylesheets and
// external graphics, caching them and guessing their media types.
package resource

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}

	charsetRule = regexp.MustCompile(`^@charset\s+"([^"]+)"\s*;`)
)

// EncodingByName returns encoding for IANA or WHATWG label.
func EncodingByName(name string) (encoding.Encoding, error) {
	if enc, _ := charset.Lookup(name); enc != nil {
		return enc, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("unknown charset %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", name)
	}
	return enc, nil
}

// DecodeStylesheet converts stylesheet bytes to UTF-8. Byte order mark wins,
// then @charset rule, then forced encoding (if not nil). Without any of them
// data is expected to be UTF-8 already.
func DecodeStylesheet(data []byte, forced encoding.Encoding) ([]byte, error) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return data[len(bomUTF8):], nil
	case bytes.HasPrefix(data, bomUTF16LE):
		return decodeWith(unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM), data)
	case bytes.HasPrefix(data, bomUTF16BE):
		return decodeWith(unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM), data)
	}

	if m := charsetRule.FindSubmatch(data); m != nil {
		label := strings.TrimSpace(string(m[1]))
		enc, err := EncodingByName(label)
		if err != nil {
			return nil, err
		}
		return decodeWith(enc, data)
	}

	if forced != nil {
		return decodeWith(forced, data)
	}

	if !utf8.Valid(data) {
		return nil, fmt.Errorf("stylesheet is not valid UTF-8 and does not declare its charset")
	}
	return data, nil
}

func decodeWith(enc encoding.Encoding, data []byte) ([]byte, error) {
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("unable to decode stylesheet: %w", err)
	}
	return out, nil
}
