package analysis

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
)

// errInvalidText marks content that does not decode under the configured encoding.
var errInvalidText = errors.New("content is not valid in the configured encoding")

// decoder turns raw scene bytes into text.
type decoder struct {
	name string
	enc  encoding.Encoding // nil for UTF-8
}

func newDecoder(name string) (*decoder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultEncoding
	}

	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("encoding %q is not supported", name)
	}

	canonical, err := ianaindex.IANA.Name(enc)
	if err == nil && strings.EqualFold(canonical, "UTF-8") {
		return &decoder{name: canonical}, nil
	}
	if err != nil {
		canonical = name
	}
	return &decoder{name: canonical, enc: enc}, nil
}

// decode validates UTF-8 strictly. Other encodings go through x/text, and a
// replacement character in the output means some input byte had no mapping.
func (d *decoder) decode(b []byte) (string, error) {
	if d.enc == nil {
		if !utf8.Valid(b) {
			return "", fmt.Errorf("%w: %s", errInvalidText, d.name)
		}
		return string(b), nil
	}

	out, err := d.enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", errInvalidText, d.name, err)
	}
	if strings.ContainsRune(string(out), utf8.RuneError) {
		return "", fmt.Errorf("%w: %s", errInvalidText, d.name)
	}
	return string(out), nil
}
