// Package encoding normalises uploaded text files to UTF-8.
package encoding

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Charset names reported by NewUTF8Reader.
const (
	UTF8        = "UTF-8"
	UTF16LE     = "UTF-16LE"
	UTF16BE     = "UTF-16BE"
	Windows1252 = "windows-1252"
	ISO88599    = "ISO-8859-9"
)

const sniffSize = 4096

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// NewUTF8Reader returns a reader that decodes r to UTF-8, plus the charset it decided on.
// A byte order mark wins, then plain UTF-8 validity, then chardet. Anything else is read
// as Windows-1252, which is what spreadsheet exports on Windows default to.
func NewUTF8Reader(r io.Reader) (io.Reader, string, error) {
	br := bufio.NewReaderSize(r, sniffSize)

	buf, err := br.Peek(sniffSize)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, "", fmt.Errorf("peek: %w", err)
	}

	switch {
	case bytes.HasPrefix(buf, bomUTF8):
		_, _ = br.Discard(len(bomUTF8))
		return br, UTF8, nil
	case bytes.HasPrefix(buf, bomUTF16LE):
		return decode(br, unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()), UTF16LE, nil
	case bytes.HasPrefix(buf, bomUTF16BE):
		return decode(br, unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder()), UTF16BE, nil
	case validUTF8Prefix(buf):
		return br, UTF8, nil
	}

	if result, err := chardet.NewTextDetector().DetectBest(buf); err == nil {
		switch result.Charset {
		case "UTF-8":
			return br, UTF8, nil
		case "ISO-8859-9":
			return decode(br, charmap.ISO8859_9.NewDecoder()), ISO88599, nil
		}
	}

	return decode(br, charmap.Windows1252.NewDecoder()), Windows1252, nil
}

func decode(r io.Reader, t transform.Transformer) io.Reader {
	return transform.NewReader(r, t)
}

// validUTF8Prefix tolerates a multi-byte rune cut off by the sniff window.
func validUTF8Prefix(buf []byte) bool {
	if utf8.Valid(buf) {
		return true
	}

	for cut := 1; cut < utf8.UTFMax && cut < len(buf); cut++ {
		if utf8.Valid(buf[:len(buf)-cut]) && !utf8.FullRune(buf[len(buf)-cut:]) {
			return true
		}
	}

	return false
}
