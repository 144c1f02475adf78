// Package textextract converts uploaded résumé files into plain text.
//
// Extraction never fails: a document that cannot be read yields empty text
// and a logged warning, and the caller carries on with an empty record.
package textextract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	pdf "github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// Format is a supported document format.
type Format string

const (
	FormatPDF     Format = "pdf"
	FormatDOCX    Format = "docx"
	FormatText    Format = "txt"
	FormatUnknown Format = ""
)

const pdftotextTimeout = 30 * time.Second

var (
	reHSpace    = regexp.MustCompile(`[ \t\r\f\v\x{00A0}]+`)
	reBlankRuns = regexp.MustCompile(`\n{3,}`)

	magicPDF = []byte("%PDF-")
	magicZip = []byte("PK\x03\x04")
)

// Extensions lists the file extensions handled by Extract.
var Extensions = []string{".pdf", ".docx", ".txt"}

// FormatOf resolves a format from a file name, an extension or a bare
// format name.
func FormatOf(hint string) Format {
	hint = strings.ToLower(strings.TrimSpace(hint))
	if ext := filepath.Ext(hint); ext != "" {
		hint = ext
	}
	switch strings.TrimPrefix(hint, ".") {
	case "pdf":
		return FormatPDF
	case "docx":
		return FormatDOCX
	case "txt", "text", "md":
		return FormatText
	default:
		return FormatUnknown
	}
}

// Sniff detects the format from magic bytes.
func Sniff(data []byte) Format {
	switch {
	case bytes.HasPrefix(data, magicPDF):
		return FormatPDF
	case bytes.HasPrefix(data, magicZip):
		return FormatDOCX
	case utf8.Valid(data):
		return FormatText
	default:
		return FormatUnknown
	}
}

// Extractor turns document bytes into text.
type Extractor struct {
	logger   *zap.Logger
	lookPath func(string) (string, error)
	command  func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// New creates an Extractor. A nil logger discards warnings.
func New(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		logger:   logger,
		lookPath: exec.LookPath,
		command:  exec.CommandContext,
	}
}

// Extract returns the plain text of data. formatHint is a file name or
// extension; when it names no known format the content is sniffed.
func (e *Extractor) Extract(data []byte, formatHint string) string {
	if len(data) == 0 {
		return ""
	}

	format := FormatOf(formatHint)
	if format == FormatUnknown {
		format = Sniff(data)
	}

	log := e.logger.With(zap.String("format", string(format)), zap.String("hint", formatHint))

	var (
		text string
		err  error
	)
	switch format {
	case FormatPDF:
		text, err = e.pdfText(data)
	case FormatDOCX:
		text, err = docxText(data)
	case FormatText:
		text, err = plainText(data)
	default:
		err = errors.New("unsupported document format")
	}

	if err != nil {
		log.Warn("text extraction failed", zap.Error(err))
		return ""
	}

	return normalize(text)
}

func (e *Extractor) pdfText(data []byte) (string, error) {
	text, err := readPDF(data)
	if err == nil && strings.TrimSpace(text) != "" {
		return text, nil
	}

	path, lookErr := e.lookPath("pdftotext")
	if lookErr != nil {
		if err == nil {
			err = errors.New("pdf has no extractable text")
		}
		return "", err
	}

	e.logger.Debug("falling back to pdftotext", zap.Error(err))

	ctx, cancel := context.WithTimeout(context.Background(), pdftotextTimeout)
	defer cancel()

	cmd := e.command(ctx, path, "-layout", "-enc", "UTF-8", "-", "-")
	cmd.Stdin = bytes.NewReader(data)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, runErr := cmd.Output()
	if runErr != nil {
		return "", fmt.Errorf("pdftotext: %w: %s", runErr, strings.TrimSpace(stderr.String()))
	}
	return string(out), nil
}

// readPDF joins the text of every page with newlines. The pdf library panics
// on some malformed inputs, so panics are turned into errors.
func readPDF(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("read pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		content, perr := page.GetPlainText(nil)
		if perr != nil {
			return "", fmt.Errorf("read pdf page %d: %w", i, perr)
		}
		pages = append(pages, content)
	}

	return strings.Join(pages, "\n"), nil
}

// docxText reads word/document.xml and emits one line per paragraph.
func docxText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", errors.New("no document.xml found in docx")
	}

	rc, err := doc.Open()
	if err != nil {
		return "", fmt.Errorf("open document.xml: %w", err)
	}
	defer rc.Close()

	var (
		b      strings.Builder
		inText bool
	)
	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				b.WriteByte('\t')
			case "br", "cr":
				b.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}

	return b.String(), nil
}

func plainText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		return strings.ToValidUTF8(string(data), "�"), nil
	}
	return string(data), nil
}

// normalize collapses horizontal whitespace and long blank runs but keeps
// line structure, which the field extractors rely on.
func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(reHSpace.ReplaceAllString(line, " "))
	}
	s = strings.Join(lines, "\n")
	s = reBlankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
