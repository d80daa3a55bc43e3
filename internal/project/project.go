// Package project reads and writes the TOML snapshot of a project: its
// documents, code definitions and annotations.
//
//	[[document]]
//	id = "i1"
//	title = "Interview 1"
//	file = "interview1.txt"   # relative to the project file, or inline text = "..."
//
//	[[code]]
//	id = "c1"
//	name = "Trust"
//	color = "#ffd0d0"
//
//	[[segment]]
//	document = "i1"
//	start = 10
//	end = 42
//	code = "c1"
//
// Highlights are [[highlight]] tables with a color; memos are [[memo]]
// tables whose start and end are omitted for document-level memos.
package project

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"go.uber.org/multierr"

	"github.com/cptaffe/acme-qda/annot"
	"github.com/cptaffe/acme-qda/internal/store"
)

type documentRecord struct {
	ID    string `toml:"id"`
	Title string `toml:"title,omitempty"`
	File  string `toml:"file,omitempty"`
	Text  string `toml:"text,omitempty"`
}

type memoRecord struct {
	ID       string `toml:"id"`
	Document string `toml:"document"`
	Start    *int   `toml:"start,omitempty"`
	End      *int   `toml:"end,omitempty"`
	Title    string `toml:"title,omitempty"`
	Content  string `toml:"content,omitempty"`
}

type file struct {
	Documents  []documentRecord       `toml:"document"`
	Codes      []annot.CodeDefinition `toml:"code"`
	Segments   []annot.CodeSegment    `toml:"segment"`
	Highlights []annot.Highlight      `toml:"highlight"`
	Memos      []memoRecord           `toml:"memo"`
}

// Load reads the project at path into a new store.  Every record that
// the store rejects is reported; the returned store holds the rest.
func Load(path string) (*store.Store, error) {
	var f file
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	s, err := build(filepath.Dir(path), f)
	if err != nil {
		return s, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Decode reads a project from TOML text.  Document files are resolved
// relative to dir.
func Decode(data []byte, dir string) (*store.Store, error) {
	var f file
	if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	return build(dir, f)
}

func build(dir string, f file) (*store.Store, error) {
	s := store.New()
	var errs error

	for _, d := range f.Documents {
		text := d.Text
		if d.File != "" {
			p := d.File
			if !filepath.IsAbs(p) {
				p = filepath.Join(dir, p)
			}
			data, err := os.ReadFile(p)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("document %s: %w", d.ID, err))
				continue
			}
			text = string(data)
		}
		if err := s.AddDocument(annot.NewDocument(d.ID, d.Title, text)); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	for _, c := range f.Codes {
		if _, err := s.AddCode(c); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("code %q: %w", c.Name, err))
		}
	}
	for _, seg := range f.Segments {
		if _, err := s.AddCodeSegment(seg); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("segment %s: %w", seg.ID, err))
		}
	}
	for _, h := range f.Highlights {
		if _, err := s.AddHighlight(h); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("highlight %s: %w", h.ID, err))
		}
	}
	for _, m := range f.Memos {
		memo := annot.Memo{
			ID:         m.ID,
			DocumentID: m.Document,
			Start:      annot.Unanchored,
			End:        annot.Unanchored,
			Title:      m.Title,
			Content:    m.Content,
		}
		if m.Start != nil || m.End != nil {
			if m.Start == nil || m.End == nil {
				errs = multierr.Append(errs, fmt.Errorf("memo %s: %w: start and end must both be set", m.ID, store.ErrInvalidInterval))
				continue
			}
			memo.Start, memo.End = *m.Start, *m.End
		}
		if _, err := s.AddMemo(memo); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("memo %s: %w", m.ID, err))
		}
	}
	return s, errs
}

// Save writes the project held by s to path.  Document text is written
// inline unless the original document record named a file, in which case
// files maps document ids to those file names.
func Save(path string, s *store.Store, files map[string]string) error {
	var buf bytes.Buffer
	if err := Encode(&buf, s, files); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Encode writes the project held by s as TOML.
func Encode(w io.Writer, s *store.Store, files map[string]string) error {
	var f file
	for _, d := range s.Documents() {
		rec := documentRecord{ID: d.ID, Title: d.Title}
		if name, ok := files[d.ID]; ok {
			rec.File = name
		} else {
			rec.Text = d.Text
		}
		f.Documents = append(f.Documents, rec)
		f.Segments = append(f.Segments, s.CodeSegments(d.ID)...)
		f.Highlights = append(f.Highlights, s.Highlights(d.ID)...)
		for _, m := range s.Memos(d.ID) {
			rec := memoRecord{ID: m.ID, Document: m.DocumentID, Title: m.Title, Content: m.Content}
			if m.Anchored() {
				start, end := m.Start, m.End
				rec.Start, rec.End = &start, &end
			}
			f.Memos = append(f.Memos, rec)
		}
	}
	f.Codes = s.Codes()
	return toml.NewEncoder(w).Encode(f)
}

// Files returns the document id to file name mapping of the project at
// path, so that Save can keep document text out of the snapshot.
func Files(path string) (map[string]string, error) {
	var f file
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	out := make(map[string]string)
	for _, d := range f.Documents {
		if d.File != "" {
			out[d.ID] = d.File
		}
	}
	return out, nil
}
