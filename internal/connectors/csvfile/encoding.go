package csvfile

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Encoding names a supported file encoding.
type Encoding string

const (
	EncodingUTF8        Encoding = "utf-8"
	EncodingUTF16       Encoding = "utf-16"
	EncodingUTF16LE     Encoding = "utf-16le"
	EncodingUTF16BE     Encoding = "utf-16be"
	EncodingWindows1255 Encoding = "windows-1255"
)

// ParseEncoding normalises an encoding name. Empty means UTF-8.
func ParseEncoding(name string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return EncodingUTF8, nil
	case "utf-16", "utf16":
		return EncodingUTF16, nil
	case "utf-16le", "utf16le":
		return EncodingUTF16LE, nil
	case "utf-16be", "utf16be":
		return EncodingUTF16BE, nil
	case "windows-1255", "cp1255", "hebrew":
		return EncodingWindows1255, nil
	default:
		return "", fmt.Errorf("unsupported encoding %q", name)
	}
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// codec returns the x/text encoding. UTF-16 without an explicit byte order
// reads a BOM and falls back to little endian, which is what Excel writes.
func (e Encoding) codec() encoding.Encoding {
	switch e {
	case EncodingUTF16:
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)
	case EncodingUTF16LE:
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
	case EncodingUTF16BE:
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
	case EncodingWindows1255:
		return charmap.Windows1255
	default:
		return unicode.UTF8
	}
}

// decode converts raw file bytes to UTF-8. A UTF-8 BOM is stripped and
// reported so it can be written back.
func (e Encoding) decode(raw []byte) (string, bool, error) {
	if e == EncodingUTF8 {
		hadBOM := bytes.HasPrefix(raw, utf8BOM)
		return string(bytes.TrimPrefix(raw, utf8BOM)), hadBOM, nil
	}
	out, err := io.ReadAll(transform.NewReader(bytes.NewReader(raw), e.codec().NewDecoder()))
	if err != nil {
		return "", false, fmt.Errorf("decode %s: %w", e, err)
	}
	// IgnoreBOM decoders pass a BOM through as U+FEFF.
	return strings.TrimPrefix(string(out), "\ufeff"), false, nil
}

// encode converts UTF-8 text back to the file encoding. Characters the
// target cannot represent are replaced rather than failing the write.
func (e Encoding) encode(text string, bom bool) ([]byte, error) {
	if e == EncodingUTF8 {
		if bom {
			return append(append([]byte{}, utf8BOM...), text...), nil
		}
		return []byte(text), nil
	}
	enc := encoding.ReplaceUnsupported(e.codec().NewEncoder())
	out, _, err := transform.Bytes(enc, []byte(text))
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", e, err)
	}
	return out, nil
}
