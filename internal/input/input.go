// Package input reads reference lists from text and PDF files.
package input

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrEmpty is returned when a file holds no text.
var ErrEmpty = errors.New("no text in input")

// pdfMagic starts every PDF file.
var pdfMagic = []byte("%PDF-")

// ReadFile returns the normalized text of a text or PDF file. "-" reads
// standard input.
func ReadFile(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}

	if bytes.HasPrefix(data, pdfMagic) || strings.EqualFold(filepath.Ext(path), ".pdf") {
		return PDFText(bytes.NewReader(data), int64(len(data)))
	}
	return Decode(data)
}

// Decode converts raw bytes to NFKC-normalized UTF-8 text. A byte-order
// mark selects UTF-8 or UTF-16; input that is not valid UTF-8 is read as
// Windows-1252.
func Decode(data []byte) (string, error) {
	var dec transform.Transformer
	switch {
	case hasUTF16BOM(data):
		dec = unicode.BOMOverride(unicode.UTF8.NewDecoder())
	case utf8.Valid(data):
		dec = unicode.UTF8BOM.NewDecoder()
	default:
		dec = charmap.Windows1252.NewDecoder()
	}

	text, _, err := transform.Bytes(transform.Chain(dec, norm.NFKC), data)
	if err != nil {
		return "", fmt.Errorf("decoding input: %w", err)
	}
	if len(bytes.TrimSpace(text)) == 0 {
		return "", ErrEmpty
	}
	return string(text), nil
}

func hasUTF16BOM(data []byte) bool {
	return bytes.HasPrefix(data, []byte{0xFE, 0xFF}) || bytes.HasPrefix(data, []byte{0xFF, 0xFE})
}

// PDFText extracts plain text from every page of a PDF.
func PDFText(r io.ReaderAt, size int64) (_ string, err error) {
	// The PDF parser panics on some malformed files.
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("opening PDF: malformed file: %v", p)
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("opening PDF: %w", err)
	}

	var builder strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		builder.WriteString(text)
		builder.WriteString("\n")
	}

	text := norm.NFKC.String(builder.String())
	if strings.TrimSpace(text) == "" {
		return "", ErrEmpty
	}
	return text, nil
}
