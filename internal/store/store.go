// Package store holds the documents, code definitions and annotations of
// one project in memory.
//
// The store checks interval invariants at its boundary and cascades
// deletions; it never clamps.  It is not safe for concurrent mutation:
// callers hand the read views to the overlap and compose passes as
// snapshots.
package store

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/cptaffe/acme-qda/annot"
)

// Sentinel store errors.
var (
	ErrInvalidInterval = errors.New("invalid interval")
	ErrUnknownDocument = errors.New("unknown document")
	ErrUnknownCode     = errors.New("unknown code")
	ErrDuplicateCode   = errors.New("duplicate code name")
	ErrDuplicateID     = errors.New("duplicate id")
	ErrNotFound        = errors.New("annotation not found")
	ErrInvalidRecord   = errors.New("invalid record")
)

type docEntry struct {
	doc        *annot.Document
	segments   []annot.CodeSegment
	highlights []annot.Highlight
	memos      []annot.Memo
}

// Store is the in-memory annotation store of a project.
type Store struct {
	docs      map[string]*docEntry
	docOrder  []string
	codes     map[string]annot.CodeDefinition
	codeOrder []string
	validate  *validator.Validate
}

// New returns an empty store.
func New() *Store {
	return &Store{
		docs:     make(map[string]*docEntry),
		codes:    make(map[string]annot.CodeDefinition),
		validate: validator.New(),
	}
}

func newID() string {
	return uuid.NewString()
}

func (s *Store) check(v any) error {
	if err := s.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return nil
}

func (s *Store) entry(docID string) (*docEntry, error) {
	e, ok := s.docs[docID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDocument, docID)
	}
	return e, nil
}

func anchoredIn(doc *annot.Document, start, end int) error {
	if !doc.Valid(start, end) {
		return fmt.Errorf("%w: [%d, %d) in document %s of length %d",
			ErrInvalidInterval, start, end, doc.ID, doc.Len())
	}
	return nil
}

// ---- documents ----

// AddDocument registers doc.  Documents are immutable once added.
func (s *Store) AddDocument(doc *annot.Document) error {
	if doc == nil || doc.ID == "" {
		return fmt.Errorf("%w: document without id", ErrInvalidRecord)
	}
	if _, ok := s.docs[doc.ID]; ok {
		return fmt.Errorf("%w: document %s", ErrDuplicateID, doc.ID)
	}
	s.docs[doc.ID] = &docEntry{doc: doc}
	s.docOrder = append(s.docOrder, doc.ID)
	return nil
}

// RemoveDocument deletes the document and every annotation anchored to it.
func (s *Store) RemoveDocument(docID string) error {
	if _, err := s.entry(docID); err != nil {
		return err
	}
	delete(s.docs, docID)
	s.docOrder = slices.DeleteFunc(s.docOrder, func(id string) bool { return id == docID })
	return nil
}

// Document returns the document with the given id.
func (s *Store) Document(docID string) (*annot.Document, bool) {
	e, ok := s.docs[docID]
	if !ok {
		return nil, false
	}
	return e.doc, true
}

// Documents returns all documents in insertion order.
func (s *Store) Documents() []*annot.Document {
	out := make([]*annot.Document, 0, len(s.docOrder))
	for _, id := range s.docOrder {
		out = append(out, s.docs[id].doc)
	}
	return out
}

// DocumentByTitle returns the first document whose title or id equals name.
func (s *Store) DocumentByTitle(name string) (*annot.Document, bool) {
	for _, id := range s.docOrder {
		d := s.docs[id].doc
		if d.ID == name || d.Title == name {
			return d, true
		}
	}
	return nil, false
}

// ---- codes ----

func (s *Store) nameTaken(name, exceptID string) bool {
	for _, id := range s.codeOrder {
		if id != exceptID && s.codes[id].Name == name {
			return true
		}
	}
	return false
}

// AddCode registers c, assigning an id when c.ID is empty.  Names are
// trimmed, required and unique.
func (s *Store) AddCode(c annot.CodeDefinition) (annot.CodeDefinition, error) {
	if c.ID == "" {
		c.ID = newID()
	}
	c.Name = strings.TrimSpace(c.Name)
	if err := s.check(c); err != nil {
		return annot.CodeDefinition{}, err
	}
	if _, ok := s.codes[c.ID]; ok {
		return annot.CodeDefinition{}, fmt.Errorf("%w: code %s", ErrDuplicateID, c.ID)
	}
	if s.nameTaken(c.Name, "") {
		return annot.CodeDefinition{}, fmt.Errorf("%w: %q", ErrDuplicateCode, c.Name)
	}
	s.codes[c.ID] = c
	s.codeOrder = append(s.codeOrder, c.ID)
	return c, nil
}

// UpdateCode replaces the name, description and color of an existing code.
func (s *Store) UpdateCode(c annot.CodeDefinition) error {
	if _, ok := s.codes[c.ID]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCode, c.ID)
	}
	c.Name = strings.TrimSpace(c.Name)
	if err := s.check(c); err != nil {
		return err
	}
	if s.nameTaken(c.Name, c.ID) {
		return fmt.Errorf("%w: %q", ErrDuplicateCode, c.Name)
	}
	s.codes[c.ID] = c
	return nil
}

// RemoveCode deletes the code and every CodeSegment referencing it.  It
// returns the number of segments removed.
func (s *Store) RemoveCode(codeID string) (int, error) {
	if _, ok := s.codes[codeID]; !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownCode, codeID)
	}
	delete(s.codes, codeID)
	s.codeOrder = slices.DeleteFunc(s.codeOrder, func(id string) bool { return id == codeID })
	n := 0
	for _, e := range s.docs {
		before := len(e.segments)
		e.segments = slices.DeleteFunc(e.segments, func(seg annot.CodeSegment) bool {
			return seg.CodeID == codeID
		})
		n += before - len(e.segments)
	}
	return n, nil
}

// Code returns the code with the given id.
func (s *Store) Code(codeID string) (annot.CodeDefinition, bool) {
	c, ok := s.codes[codeID]
	return c, ok
}

// CodeByName returns the code with the given name.
func (s *Store) CodeByName(name string) (annot.CodeDefinition, bool) {
	name = strings.TrimSpace(name)
	for _, id := range s.codeOrder {
		if s.codes[id].Name == name {
			return s.codes[id], true
		}
	}
	return annot.CodeDefinition{}, false
}

// Codes returns all codes in insertion order.
func (s *Store) Codes() []annot.CodeDefinition {
	out := make([]annot.CodeDefinition, 0, len(s.codeOrder))
	for _, id := range s.codeOrder {
		out = append(out, s.codes[id])
	}
	return out
}

// CodeMap returns the codes keyed by id.
func (s *Store) CodeMap() map[string]annot.CodeDefinition {
	out := make(map[string]annot.CodeDefinition, len(s.codes))
	for id, c := range s.codes {
		out[id] = c
	}
	return out
}
