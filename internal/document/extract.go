// Package document turns uploaded PDF and text files into stored summaries.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

var (
	ErrFileTooLarge    = errors.New("file exceeds the upload limit")
	ErrUnsupportedFile = errors.New("unsupported file type, upload a PDF or plain text file")
	ErrCorruptFile     = errors.New("file could not be read")
	ErrEmptyDocument   = errors.New("no text found in document")
)

// Kind is a supported upload format.
type Kind string

const (
	KindPDF  Kind = "pdf"
	KindText Kind = "text"
)

// ContentType is the canonical media type of the format.
func (k Kind) ContentType() string {
	if k == KindPDF {
		return "application/pdf"
	}
	return "text/plain"
}

// File is an uploaded document held in memory.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Extracted is the plain text of a file plus what was learned while reading it.
type Extracted struct {
	Kind  Kind
	Text  string
	Pages int
}

// DetectKind resolves the format from the file extension. The declared
// content type is only consulted when the name has no extension.
func DetectKind(name, contentType string) (Kind, error) {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".pdf":
		return KindPDF, nil
	case ".txt":
		return KindText, nil
	case "":
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFile, ext)
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", ErrUnsupportedFile
	}
	switch mediaType {
	case "application/pdf":
		return KindPDF, nil
	case "text/plain":
		return KindText, nil
	}
	return "", ErrUnsupportedFile
}

// Extract validates the file and returns its text. It never partially
// extracts: any failure returns no text.
func Extract(file File, maxBytes int64) (Extracted, error) {
	if maxBytes > 0 && int64(len(file.Data)) > maxBytes {
		return Extracted{}, ErrFileTooLarge
	}
	kind, err := DetectKind(file.Name, file.ContentType)
	if err != nil {
		return Extracted{}, err
	}

	out := Extracted{Kind: kind}
	switch kind {
	case KindPDF:
		out.Text, out.Pages, err = extractPDF(file.Data)
		if err != nil {
			return Extracted{}, err
		}
	case KindText:
		if !utf8.Valid(file.Data) {
			return Extracted{}, fmt.Errorf("%w: text is not valid UTF-8", ErrCorruptFile)
		}
		out.Text = string(file.Data)
	}

	out.Text = strings.TrimSpace(strings.ToValidUTF8(out.Text, ""))
	if out.Text == "" {
		return Extracted{}, ErrEmptyDocument
	}
	return out, nil
}

func extractPDF(data []byte) (text string, pages int, err error) {
	// the parser panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			text, pages, err = "", 0, fmt.Errorf("%w: %v", ErrCorruptFile, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrCorruptFile, err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrCorruptFile, err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrCorruptFile, err)
	}
	return buf.String(), reader.NumPage(), nil
}
