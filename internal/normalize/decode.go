package normalize

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// ErrDecode is returned when no supported text encoding can decode the input.
var ErrDecode = errors.New("cannot decode input")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decoder turns raw bytes into text or reports that the bytes are not in its encoding
type decoder struct {
	name   string
	decode func([]byte) (string, bool)
}

// decoders are tried in order; the first that succeeds wins.
var decoders = []decoder{
	{name: "utf-8-sig", decode: decodeUTF8Sig},
	{name: "utf-8", decode: decodeUTF8},
	{name: "tis-620", decode: decodeTIS620},
	{name: "cp874", decode: decodeCP874},
}

// Decode converts raw bytes to text using the first encoding that accepts
// them and returns the name of that encoding.
func Decode(raw []byte) (string, string, error) {
	for _, d := range decoders {
		if text, ok := d.decode(raw); ok {
			return text, d.name, nil
		}
	}
	return "", "", fmt.Errorf("%w: tried %s", ErrDecode, encodingNames())
}

func encodingNames() string {
	names := make([]string, len(decoders))
	for i, d := range decoders {
		names[i] = d.name
	}
	return strings.Join(names, ", ")
}

func decodeUTF8Sig(raw []byte) (string, bool) {
	return decodeUTF8(bytes.TrimPrefix(raw, utf8BOM))
}

func decodeUTF8(raw []byte) (string, bool) {
	if !utf8.Valid(raw) {
		return "", false
	}
	return string(raw), true
}

// decodeTIS620 accepts only the TIS-620 repertoire, which lacks the C1 range
// and the non-breaking space that Windows-874 adds.
func decodeTIS620(raw []byte) (string, bool) {
	for _, b := range raw {
		if b >= 0x80 && b <= 0xA0 {
			return "", false
		}
	}
	return decodeCP874(raw)
}

func decodeCP874(raw []byte) (string, bool) {
	out, err := charmap.Windows874.NewDecoder().Bytes(raw)
	if err != nil || bytes.ContainsRune(out, utf8.RuneError) {
		return "", false
	}
	return string(out), true
}
