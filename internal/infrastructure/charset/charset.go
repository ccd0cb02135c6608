// Package charset converts between UTF-8 and the text encodings used by
// catalog exports and storefront upload formats.
package charset

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/CoffeeTonya/priceCheck/internal/domain"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Canonical encoding names
const (
	UTF8     = "utf-8"
	UTF8BOM  = "utf-8-sig"
	ShiftJIS = "shift_jis"
	EUCJP    = "euc-jp"
)

var aliases = map[string]string{
	"utf-8":       UTF8,
	"utf8":        UTF8,
	"utf-8-sig":   UTF8BOM,
	"utf8-sig":    UTF8BOM,
	"utf-8-bom":   UTF8BOM,
	"shift_jis":   ShiftJIS,
	"shift-jis":   ShiftJIS,
	"sjis":        ShiftJIS,
	"cp932":       ShiftJIS,
	"windows-31j": ShiftJIS,
	"ms932":       ShiftJIS,
	"euc-jp":      EUCJP,
	"eucjp":       EUCJP,
}

// Normalize returns the canonical name for a declared encoding
func Normalize(name string) (string, error) {
	canonical, ok := aliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("%w: unsupported encoding %q", domain.ErrEncoding, name)
	}
	return canonical, nil
}

// lookup resolves a declared name to an x/text encoding
func lookup(name string) (encoding.Encoding, error) {
	canonical, err := Normalize(name)
	if err != nil {
		return nil, err
	}
	switch canonical {
	case UTF8:
		return unicode.UTF8, nil
	case UTF8BOM:
		return unicode.UTF8BOM, nil
	case ShiftJIS:
		// x/text's ShiftJIS covers the Windows-31J (CP932) extensions
		return japanese.ShiftJIS, nil
	default:
		return japanese.EUCJP, nil
	}
}

// Decode converts data in the declared encoding to UTF-8.
// A leading UTF-8 BOM is dropped. Bytes that do not decode are ErrEncoding.
func Decode(data []byte, name string) ([]byte, error) {
	enc, err := lookup(name)
	if err != nil {
		return nil, err
	}
	if enc == unicode.UTF8 {
		enc = unicode.UTF8BOM
	}

	out, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEncoding, err)
	}
	// x/text decoders substitute U+FFFD for invalid input instead of failing
	if bytes.ContainsRune(out, utf8.RuneError) {
		return nil, fmt.Errorf("%w: input is not valid %s", domain.ErrEncoding, name)
	}
	return out, nil
}

// Encode converts UTF-8 text to the declared encoding.
// Characters the target cannot represent are ErrEncoding.
func Encode(text []byte, name string) ([]byte, error) {
	enc, err := lookup(name)
	if err != nil {
		return nil, err
	}
	out, _, err := transform.Bytes(enc.NewEncoder(), text)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot encode as %s: %v", domain.ErrEncoding, name, err)
	}
	return out, nil
}
