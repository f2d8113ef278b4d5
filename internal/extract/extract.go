// Package extract turns uploaded document bytes into plain text.
package extract

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

// MaxDocumentBytes is the largest payload callers may pass to Extract.
const MaxDocumentBytes = 10 << 20

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeDOC  = "application/msword"
	mimeTXT  = "text/plain"
)

var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrNoExtractableText   = errors.New("no extractable text")
	ErrUnreadableDocument  = errors.New("unreadable document")
)

// Kind is the closed set of document formats Extract understands.
type Kind int

const (
	KindUnknown Kind = iota
	KindPDF
	KindDOCX
	KindTXT
)

func (k Kind) String() string {
	switch k {
	case KindPDF:
		return "pdf"
	case KindDOCX:
		return "docx"
	case KindTXT:
		return "txt"
	default:
		return "unknown"
	}
}

// MimeType returns the canonical content type for k.
func (k Kind) MimeType() string {
	switch k {
	case KindPDF:
		return mimePDF
	case KindDOCX:
		return mimeDOCX
	case KindTXT:
		return mimeTXT + "; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

// Classify resolves the document kind from the declared MIME type, falling
// back to the file-name suffix when the type is absent or ambiguous.
func Classify(mimeType, fileName string) Kind {
	clean := strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	switch {
	case clean == "", clean == "application/octet-stream", clean == "application/zip", clean == "binary/octet-stream":
	case strings.Contains(clean, "pdf"):
		return KindPDF
	case strings.Contains(clean, "wordprocessingml"), clean == mimeDOC:
		return KindDOCX
	case clean == mimeTXT:
		return KindTXT
	}
	return classifySuffix(fileName)
}

func classifySuffix(fileName string) Kind {
	name := strings.TrimSpace(fileName)
	// Only absolute URLs carry a query or fragment; a bare name may contain '#'.
	if strings.Contains(name, "://") {
		if u, err := url.Parse(name); err == nil && u.Scheme != "" {
			name = u.Path
		}
	}
	switch strings.ToLower(path.Ext(name)) {
	case ".pdf":
		return KindPDF
	case ".docx", ".doc":
		return KindDOCX
	case ".txt":
		return KindTXT
	default:
		return KindUnknown
	}
}

// Extract returns the text content of data. An empty result is never a success.
func Extract(ctx context.Context, data []byte, mimeType, fileName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var (
		text string
		err  error
	)
	switch kind := Classify(mimeType, fileName); kind {
	case KindPDF:
		text, err = extractPDF(data)
	case KindDOCX:
		text, err = extractDOCX(data)
	case KindTXT:
		text = strings.ToValidUTF8(string(data), "�")
	default:
		return "", fmt.Errorf("%w: mime=%q name=%q", ErrUnsupportedFileType, mimeType, fileName)
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrNoExtractableText
	}
	return text, nil
}

func extractPDF(data []byte) (text string, err error) {
	// The PDF reader panics on some malformed cross-reference tables.
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("%w: pdf: %v", ErrUnreadableDocument, rec)
		}
	}()

	pdfReader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		if errors.Is(err, pdf.ErrInvalidPassword) {
			return "", ErrNoExtractableText
		}
		return "", fmt.Errorf("%w: pdf: %v", ErrUnreadableDocument, err)
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: pdf text: %v", ErrUnreadableDocument, err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("%w: pdf text: %v", ErrUnreadableDocument, err)
	}
	return buf.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrNoExtractableText
	}
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: docx: %v", ErrUnreadableDocument, err)
	}
	defer doc.Close()
	return stripDocxXML(doc.Editable().GetContent()), nil
}

func stripDocxXML(raw string) string {
	decoder := xml.NewDecoder(strings.NewReader(raw))
	var buf strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return raw
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.WriteString(string(t))
		case xml.StartElement:
			if t.Name.Local == "tab" {
				buf.WriteString("\t")
			}
		case xml.EndElement:
			if t.Name.Local == "p" || t.Name.Local == "br" {
				if buf.Len() > 0 {
					buf.WriteString("\n")
				}
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
