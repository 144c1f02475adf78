package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/spigell/cv-parser/internal/extract"
	"github.com/spigell/cv-parser/internal/record"
	"github.com/spigell/cv-parser/internal/textextract"
)

// Document is one résumé moving through the pipeline. Each stage writes only
// to the document it is given, so documents can be processed in parallel.
type Document struct {
	Index  int
	Path   string
	Name   string
	Data   []byte
	Text   string
	Fields extract.Fields
	Record *record.CandidateRecord

	mu       sync.Mutex
	warnings []string
}

// Warn records a non-fatal problem with the document.
func (d *Document) Warn(format string, args ...any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.warnings = append(d.warnings, fmt.Sprintf(format, args...))
}

// Warnings returns the problems recorded so far.
func (d *Document) Warnings() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.warnings)
}

// Batch is an ordered set of documents.
type Batch struct {
	Documents []*Document
}

// NewBatch creates a batch of documents read from paths.
func NewBatch(paths []string) *Batch {
	b := &Batch{Documents: make([]*Document, 0, len(paths))}
	for i, p := range paths {
		b.Documents = append(b.Documents, &Document{Index: i, Path: p, Name: filepath.Base(p)})
	}
	return b
}

// NewBatchFromData creates a single-document batch from in-memory content.
func NewBatchFromData(name string, data []byte) *Batch {
	return &Batch{Documents: []*Document{{Name: name, Data: data}}}
}

// Len returns the number of documents.
func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Documents)
}

// Records returns the assembled records in document order. Documents that
// never reached the extract stage are skipped.
func (b *Batch) Records() []record.CandidateRecord {
	if b == nil {
		return nil
	}
	out := make([]record.CandidateRecord, 0, len(b.Documents))
	for _, d := range b.Documents {
		if d.Record != nil {
			out = append(out, *d.Record)
		}
	}
	return out
}

// ExpandPaths replaces directories with the supported documents they
// directly contain, sorted by name. Files are kept as given.
func ExpandPaths(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}

		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("read dir %s: %w", p, err)
		}
		var found []string
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			ext := strings.ToLower(filepath.Ext(e.Name()))
			if slices.Contains(textextract.Extensions, ext) {
				found = append(found, filepath.Join(p, e.Name()))
			}
		}
		slices.Sort(found)
		out = append(out, found...)
	}
	return out, nil
}
