package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cptaffe/acme-qda/annot"
	"github.com/cptaffe/acme-qda/internal/acmehost"
	"github.com/cptaffe/acme-qda/internal/compose"
	"github.com/cptaffe/acme-qda/internal/logger"
	"github.com/cptaffe/acme-qda/layer"
	"github.com/cptaffe/acme-qda/style"
)

var (
	activeCode string
	activeMemo string
	codeColors bool
	query      string
	matchIndex int
	winFlag    int
	paintClear bool
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Print the display segments of a document",
	Args:  cobra.NoArgs,
	RunE:  runRender,
}

var searchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Find case-insensitive matches of QUERY in a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

var paintCmd = &cobra.Command{
	Use:   "paint",
	Short: "Paint a document's annotations into its acme window once",
	Args:  cobra.NoArgs,
	RunE:  runPaint,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Repaint a document's annotations whenever the project changes",
	Long: "watch paints the document shown in the window and repaints it each time the\n" +
		"project or styles file is written.  The layer is removed on exit.",
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	for _, c := range []*cobra.Command{renderCmd, paintCmd, watchCmd} {
		c.Flags().StringVar(&activeCode, "active", "", "id of the active code segment")
		c.Flags().StringVar(&activeMemo, "active-memo", "", "id of the active memo")
		c.Flags().BoolVar(&codeColors, "codecolors", false, "tint every code segment (default from styles file)")
		c.Flags().StringVar(&query, "query", "", "search query to show as matches")
		c.Flags().IntVar(&matchIndex, "match", 0, "index of the current match")
	}
	for _, c := range []*cobra.Command{paintCmd, watchCmd} {
		c.Flags().IntVar(&winFlag, "win", 0, "acme window id (default $winid)")
	}
	paintCmd.Flags().BoolVar(&paintClear, "clear", false, "clear the layer instead of painting")
}

// activeState builds the toggle state from flags; --codecolors overrides
// the styles file only when given.
func activeState(cmd *cobra.Command, s *session, matches []annot.SearchMatch) compose.ActiveState {
	st := compose.DefaultState
	if activeCode != "" {
		st = st.ToggleCode(activeCode)
	}
	if activeMemo != "" {
		st = st.ToggleMemo(activeMemo)
	}
	st.ShowCodeColors = s.cfg.ShowCodeColors
	if cmd.Flags().Changed("codecolors") {
		st.ShowCodeColors = codeColors
	}
	if len(matches) > 0 {
		st.CurrentMatchIndex = compose.Step(matches, 0, matchIndex)
	}
	return st
}

// pass is one compositor run over a document.
type pass struct {
	doc      *annot.Document
	matches  []annot.SearchMatch
	segments []annot.DisplaySegment
	palette  style.Palette
	runs     []style.StyleRun
}

func composePass(s *session, doc *annot.Document, st compose.ActiveState, matches []annot.SearchMatch) pass {
	layers := s.store.Layers(doc.ID)
	layers.Matches = matches
	segs := compose.Compose(doc, layers, st)
	return pass{
		doc:      doc,
		matches:  matches,
		segments: segs,
		palette:  compose.Palette(s.cfg.Palette, s.store.Codes(), layers.Highlights),
		runs:     compose.Runs(segs),
	}
}

func runRender(cmd *cobra.Command, _ []string) error {
	s, err := loadSession(cmd.Context(), false)
	if err != nil {
		return err
	}
	win, err := openWindow()
	if err != nil {
		return err
	}
	if win != nil {
		defer win.Close()
	}
	doc, err := s.document(win)
	if err != nil {
		return err
	}
	matches := compose.Search(doc, query)
	p := composePass(s, doc, activeState(cmd, s, matches), matches)
	return writeSegments(cmd.OutOrStdout(), p.segments)
}

func writeSegments(w io.Writer, segs []annot.DisplaySegment) error {
	tw := tabwriter.NewWriter(w, 0, 8, 1, ' ', 0)
	for _, seg := range segs {
		kind := "plain"
		if seg.Source != nil {
			kind = seg.Source.Kind().String()
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s%q\n", seg.Start, seg.End, kind, seg.Style, seg.Marker, seg.Content)
	}
	return tw.Flush()
}

func runSearch(cmd *cobra.Command, args []string) error {
	s, err := loadSession(cmd.Context(), false)
	if err != nil {
		return err
	}
	win, err := openWindow()
	if err != nil {
		return err
	}
	if win != nil {
		defer win.Close()
	}
	doc, err := s.document(win)
	if err != nil {
		return err
	}
	for i, m := range compose.Search(doc, args[0]) {
		fmt.Fprintf(cmd.OutOrStdout(), "%d\t#%d,#%d\t%q\n", i, m.Start, m.End, m.Text)
	}
	return nil
}

// paintTarget opens the window to paint and resolves its document.
func paintTarget(s *session) (*acmehost.Window, *annot.Document, error) {
	id := winFlag
	if id == 0 {
		var err error
		if id, err = acmehost.WinID(); err != nil {
			return nil, nil, err
		}
	}
	win, err := acmehost.Open(id)
	if err != nil {
		return nil, nil, err
	}
	doc, err := s.document(win)
	if err != nil {
		win.Close()
		return nil, nil, err
	}
	return win, doc, nil
}

func runPaint(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	s, err := loadSession(ctx, false)
	if err != nil {
		return err
	}
	win, doc, err := paintTarget(s)
	if err != nil {
		return err
	}
	defer win.Close()
	if err := win.CheckBody(doc); err != nil {
		return err
	}

	sl, err := layer.Open(win.ID, s.cfg.Layer)
	if err != nil {
		return fmt.Errorf("open layer %q: %w", s.cfg.Layer, err)
	}
	if paintClear {
		sl.Clear()
		return nil
	}
	matches := compose.Search(doc, query)
	p := composePass(s, doc, activeState(cmd, s, matches), matches)
	if _, err := layer.NewPainter(sl).Paint(p.palette, p.runs); err != nil {
		return err
	}
	logger.L(ctx).Debug("painted",
		zap.Int("win", win.ID),
		zap.String("doc", doc.ID),
		zap.Int("runs", len(p.runs)))
	return nil
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	l := logger.L(ctx)

	s, err := loadSession(ctx, false)
	if err != nil {
		return err
	}
	win, doc, err := paintTarget(s)
	if err != nil {
		return err
	}
	defer win.Close()

	sl, err := retryOn(ctx, 10, 200*time.Millisecond, func() (*layer.StyleLayer, error) {
		return layer.Open(win.ID, s.cfg.Layer)
	})
	if err != nil {
		return fmt.Errorf("open layer %q: %w", s.cfg.Layer, err)
	}
	defer sl.Delete()

	w := &watcher{
		cmd:     cmd,
		win:     win,
		docID:   doc.ID,
		painter: layer.NewPainter(sl),
	}
	if err := w.repaint(ctx, s); err != nil {
		return err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	watched := make(map[string]bool)
	for _, p := range []string{projectPath, stylesPath} {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		watched[abs] = true
		// Editors replace files by renaming, so watch the directory.
		if err := fw.Add(filepath.Dir(abs)); err != nil {
			return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
		}
	}
	l.Info("watching", zap.Int("win", win.ID), zap.String("doc", doc.ID), zap.String("project", projectPath))

	for {
		select {
		case <-ctx.Done():
			l.Info("shutting down")
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !watched[filepath.Clean(ev.Name)] || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			s, err := loadSession(ctx, false)
			if err != nil {
				l.Warn("reload", zap.String("file", ev.Name), zap.Error(err))
				continue
			}
			if err := w.repaint(ctx, s); err != nil {
				l.Warn("repaint", zap.Error(err))
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			l.Warn("watcher", zap.Error(err))
		}
	}
}

// watcher repaints one window, carrying the current match across reloads.
type watcher struct {
	cmd     *cobra.Command
	win     *acmehost.Window
	docID   string
	painter *layer.Painter

	painted  bool
	matches  []annot.SearchMatch
	matchIdx int
}

// state is the toggle state of the next pass.  Once a pass has been
// painted the current match is reconciled with the previous pass instead
// of taken from --match.
func (w *watcher) state(s *session, matches []annot.SearchMatch) compose.ActiveState {
	st := activeState(w.cmd, s, matches)
	if w.painted {
		st.CurrentMatchIndex = compose.ReconcileMatchIndex(w.matches, w.matchIdx, matches)
	}
	return st
}

// remember records a painted pass, including one with no matches.
func (w *watcher) remember(matches []annot.SearchMatch, idx int) {
	w.painted, w.matches, w.matchIdx = true, matches, idx
}

func (w *watcher) repaint(ctx context.Context, s *session) error {
	doc, ok := s.store.Document(w.docID)
	if !ok {
		return fmt.Errorf("document %s no longer in project", w.docID)
	}
	if err := w.win.CheckBody(doc); err != nil {
		return err
	}
	matches := compose.Search(doc, query)
	st := w.state(s, matches)
	p := composePass(s, doc, st, matches)
	wrote, err := w.painter.Paint(p.palette, p.runs)
	if err != nil {
		return err
	}
	w.remember(matches, st.CurrentMatchIndex)
	logger.L(ctx).Debug("repainted",
		zap.Bool("wrote", wrote),
		zap.Int("runs", len(p.runs)),
		zap.Int("match", st.CurrentMatchIndex))
	return nil
}
