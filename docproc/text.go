package docproc

import (
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// textEncodings is the fallback chain attempted in order: UTF-8,
// UTF-16, Latin-1, then cp1252. UTF-8 is taken only for valid UTF-8
// input and UTF-16 only when a byte order mark is present. The first
// decoding that succeeds wins; if all fail, UTF-8 is used with
// replacement runes.
var textEncodings = []encoding.Encoding{
	unicode.UTF8,
	unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM),
	charmap.ISO8859_1,
	charmap.Windows1252,
}

// extractText decodes file_content attempting each encoding in
// textEncodings, falling back to lossy UTF-8 if none succeed cleanly.
func extractText(content []byte) (string, error) {
	for _, enc := range textEncodings {
		if enc == unicode.UTF8 && !utf8.Valid(content) {
			continue
		}
		decoded, err := enc.NewDecoder().Bytes(content)
		if err == nil {
			return string(decoded), nil
		}
	}

	decoded, _ := unicode.UTF8.NewDecoder().Bytes(content)
	return string(decoded), nil
}
