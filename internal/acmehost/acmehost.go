// Package acmehost reads the selection and body of an acme window, the
// rendering host acme-qda annotates.
package acmehost

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"9fans.net/go/acme"

	"github.com/cptaffe/acme-qda/annot"
)

var (
	// ErrNoWindow is returned when $winid is not set, i.e. the command
	// was not run from acme.
	ErrNoWindow = errors.New("acmehost: $winid not set")

	// ErrStaleBody is returned when the window text no longer matches
	// the stored document, so dot offsets would point at the wrong text.
	ErrStaleBody = errors.New("acmehost: window body differs from document")
)

// WinID returns the window id from $winid.
func WinID() (int, error) {
	v := os.Getenv("winid")
	if v == "" {
		return 0, ErrNoWindow
	}
	id, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("acmehost: bad $winid %q: %w", v, err)
	}
	return id, nil
}

// Window is an open acme window.
type Window struct {
	ID  int
	win *acme.Win
}

// Open opens window id.
func Open(id int) (*Window, error) {
	w, err := acme.Open(id, nil)
	if err != nil {
		return nil, fmt.Errorf("acmehost: open window %d: %w", id, err)
	}
	return &Window{ID: id, win: w}, nil
}

// Close releases the window's files.
func (w *Window) Close() {
	w.win.CloseFiles()
}

// Name returns the file name shown in the window tag.
func (w *Window) Name() (string, error) {
	tag, err := w.win.ReadAll("tag")
	if err != nil {
		return "", err
	}
	return TagName(string(tag)), nil
}

// Body returns the window text.
func (w *Window) Body() (string, error) {
	b, err := w.win.ReadAll("body")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Dot returns the window selection as a rune interval.  The addr file is
// opened by the first ReadAddr before addr=dot is written, so acme does
// not reset the address when the file is first opened.
func (w *Window) Dot() (q0, q1 int, err error) {
	if _, _, err := w.win.ReadAddr(); err != nil {
		return 0, 0, fmt.Errorf("acmehost: open addr: %w", err)
	}
	if err := w.win.Ctl("addr=dot"); err != nil {
		return 0, 0, fmt.Errorf("acmehost: addr=dot: %w", err)
	}
	return w.win.ReadAddr()
}

// CheckBody returns ErrStaleBody unless the window shows doc's text.
func (w *Window) CheckBody(doc *annot.Document) error {
	body, err := w.Body()
	if err != nil {
		return err
	}
	if body != doc.Text {
		return fmt.Errorf("%w: %s", ErrStaleBody, doc.ID)
	}
	return nil
}

// TagName returns the first field of an acme tag, the window's file name.
func TagName(tag string) string {
	fields := strings.Fields(tag)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// MatchDocument picks the document whose file is shown in a window named
// name.  files maps document ids to file names relative to dir.
func MatchDocument(name, dir string, files map[string]string) (string, bool) {
	if name == "" {
		return "", false
	}
	name = filepath.Clean(name)
	for id, f := range files {
		if !filepath.IsAbs(f) {
			f = filepath.Join(dir, f)
		}
		if abs, err := filepath.Abs(f); err == nil {
			f = abs
		}
		if f == name {
			return id, true
		}
	}
	return "", false
}
