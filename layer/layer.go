// Package layer paints composed annotation segments into an acme window
// through the acme-styles compositor.
//
// acme-styles keeps named layers of style runs per acme window and
// composes them into the window's style file.  acme-qda owns one layer
// (by default "qda"):
//
//	sl, err := layer.Open(winID, "qda")
//	if err != nil { ... }
//	defer sl.Delete()
//	p := layer.NewPainter(sl)
//	p.Paint(palette, runs)
//
// A Painter remembers what it last wrote and, while the palette is
// unchanged, rewrites only the dirty interval.
package layer

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"9fans.net/go/plan9"
	"9fans.net/go/plan9/client"

	"github.com/cptaffe/acme-qda/style"
)

// StyleLayer is a handle for one named layer of an acme window.  A single
// 9P connection is shared by all StyleLayers of the process and
// re-established on first use after any error.
type StyleLayer struct {
	WinID   int
	LayerID int
	name    string // for re-allocation after a compositor restart
}

// ---- connection management ----

var (
	connMu sync.Mutex
	fsys   *client.Fsys
)

func currentFsys() (*client.Fsys, error) {
	connMu.Lock()
	defer connMu.Unlock()
	if fsys != nil {
		return fsys, nil
	}
	fs, err := client.MountService("acme-styles")
	if err != nil {
		return nil, err
	}
	fsys = fs
	return fs, nil
}

func resetFsys() {
	connMu.Lock()
	fsys = nil
	connMu.Unlock()
}

// ---- StyleLayer ----

// Open returns the named layer of winID, creating it if needed.
func Open(winID int, name string) (*StyleLayer, error) {
	fs, err := currentFsys()
	if err != nil {
		return nil, err
	}
	layID, err := FindOrCreate(fs, winID, name)
	if err != nil {
		resetFsys()
		return nil, err
	}
	return &StyleLayer{WinID: winID, LayerID: layID, name: name}, nil
}

func (sl *StyleLayer) path(file string) string {
	return fmt.Sprintf("%d/layers/%d/%s", sl.WinID, sl.LayerID, file)
}

// openStyle opens the layer's style file for writing, re-allocating the
// layer once if the compositor has forgotten it.
func (sl *StyleLayer) openStyle() (*client.Fid, error) {
	fs, err := currentFsys()
	if err != nil {
		return nil, err
	}
	fid, err := fs.Open(sl.path("style"), plan9.OWRITE)
	if err == nil {
		return fid, nil
	}
	resetFsys()
	if fs, err = currentFsys(); err != nil {
		return nil, err
	}
	newID, err := FindOrCreate(fs, sl.WinID, sl.name)
	if err != nil {
		resetFsys()
		return nil, fmt.Errorf("re-alloc layer: %w", err)
	}
	sl.LayerID = newID
	fid, err = fs.Open(sl.path("style"), plan9.OWRITE)
	if err != nil {
		resetFsys()
		return nil, err
	}
	return fid, nil
}

// Write replaces the whole layer with text in the acme-styles wire format.
func (sl *StyleLayer) Write(text string) error {
	if sl == nil {
		return nil
	}
	fid, err := sl.openStyle()
	if err != nil {
		return err
	}
	defer fid.Close()
	if _, err := fid.Write([]byte(text)); err != nil {
		resetFsys()
		return err
	}
	return nil
}

// WriteAt replaces the layer's runs inside [q0, q1) with text, whose run
// offsets are relative to q0.  The addr fid stays open across the style
// write so that the compositor keeps the address.
func (sl *StyleLayer) WriteAt(q0, q1 int, text string) error {
	if sl == nil {
		return nil
	}
	fs, err := currentFsys()
	if err != nil {
		return err
	}
	addr, err := fs.Open(sl.path("addr"), plan9.OWRITE)
	if err != nil {
		resetFsys()
		return fmt.Errorf("open addr: %w", err)
	}
	defer addr.Close()
	if _, err := addr.Write([]byte(fmt.Sprintf("%d %d", q0, q1))); err != nil {
		resetFsys()
		return fmt.Errorf("write addr: %w", err)
	}
	return sl.Write(text)
}

// Clear removes all runs from the layer.  Best-effort.
func (sl *StyleLayer) Clear() {
	if sl == nil {
		return
	}
	sl.ctl("clear\n")
}

// Delete removes the layer from the compositor.  Call it on shutdown so
// annotations do not linger in the window.  Best-effort.
func (sl *StyleLayer) Delete() {
	if sl == nil {
		return
	}
	sl.ctl("delete\n")
}

func (sl *StyleLayer) ctl(cmd string) {
	fs, err := currentFsys()
	if err != nil {
		return
	}
	fid, err := fs.Open(sl.path("ctl"), plan9.OWRITE)
	if err != nil {
		resetFsys()
		return
	}
	if _, err := fid.Write([]byte(cmd)); err != nil {
		resetFsys()
	}
	fid.Close()
}

// ---- helpers for callers that manage their own connection ----

// Find looks up a layer by name in the window's layers/index.
func Find(fs *client.Fsys, winID int, name string) (int, bool) {
	fid, err := fs.Open(fmt.Sprintf("%d/layers/index", winID), plan9.OREAD)
	if err != nil {
		return 0, false
	}
	data, err := io.ReadAll(fid)
	fid.Close()
	if err != nil {
		return 0, false
	}
	return parseIndex(string(data), name)
}

// parseIndex finds name in the "id name" lines of a layers/index file.
func parseIndex(index, name string) (int, bool) {
	for _, line := range strings.Split(index, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 2 && fields[1] == name {
			if id, err := strconv.Atoi(fields[0]); err == nil {
				return id, true
			}
		}
	}
	return 0, false
}

// FindOrCreate returns the id of the named layer, creating and naming it
// if it does not exist yet.
func FindOrCreate(fs *client.Fsys, winID int, name string) (int, error) {
	if id, ok := Find(fs, winID, name); ok {
		return id, nil
	}

	newFid, err := fs.Open(fmt.Sprintf("%d/layers/new", winID), plan9.OREAD)
	if err != nil {
		return 0, fmt.Errorf("open layers/new: %w", err)
	}
	data, err := io.ReadAll(newFid)
	newFid.Close()
	if err != nil {
		return 0, fmt.Errorf("read layers/new: %w", err)
	}
	layID, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse layer id %q: %w", string(data), err)
	}

	nameFid, err := fs.Open(fmt.Sprintf("%d/layers/%d/name", winID, layID), plan9.OWRITE)
	if err != nil {
		return 0, fmt.Errorf("open layer name: %w", err)
	}
	nameFid.Write([]byte(name)) //nolint:errcheck
	nameFid.Close()

	return layID, nil
}

// ---- Painter ----

// Writer is the part of a StyleLayer a Painter needs.
type Writer interface {
	Write(text string) error
	WriteAt(q0, q1 int, text string) error
}

// Painter writes successive composition results to a layer, sending only
// what changed.
type Painter struct {
	w           Writer
	painted     bool
	prevPalette style.Palette
	prevRuns    []style.StyleRun
}

// NewPainter returns a Painter writing to w.
func NewPainter(w Writer) *Painter {
	return &Painter{w: w}
}

// Paint brings the layer up to date with palette and runs.  The first
// paint and any palette change rewrite the whole layer; otherwise only
// the dirty interval is rewritten, and nothing at all when the runs are
// unchanged.  It reports whether anything was written.
func (p *Painter) Paint(palette style.Palette, runs []style.StyleRun) (bool, error) {
	if !p.painted || !style.PaletteEqual(palette, p.prevPalette) {
		if err := p.w.Write(style.Format(palette, runs)); err != nil {
			return false, err
		}
		p.remember(palette, runs)
		return true, nil
	}
	q0, q1, changed := style.Diff(p.prevRuns, runs)
	if !changed {
		return false, nil
	}
	if err := p.w.WriteAt(q0, q1, style.FormatAt(palette, runs, q0, q1)); err != nil {
		return false, err
	}
	p.remember(palette, runs)
	return true, nil
}

func (p *Painter) remember(palette style.Palette, runs []style.StyleRun) {
	p.painted = true
	p.prevPalette = append(style.Palette(nil), palette...)
	p.prevRuns = append([]style.StyleRun(nil), runs...)
}
