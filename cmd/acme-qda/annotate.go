package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cptaffe/acme-qda/annot"
	"github.com/cptaffe/acme-qda/internal/acmehost"
	"github.com/cptaffe/acme-qda/internal/compose"
	"github.com/cptaffe/acme-qda/internal/logger"
	"github.com/cptaffe/acme-qda/internal/selection"
)

var (
	codeColor       string
	codeDescription string
	memoUnanchored  bool
	memoEdit        string
	noSnap          bool
)

var codeCmd = &cobra.Command{
	Use:   "code NAME",
	Short: "Code the selection in $winid, creating the code if needed",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCode,
}

var highlightCmd = &cobra.Command{
	Use:   "highlight [COLOR]",
	Short: "Highlight the selection in $winid (default yellow)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHighlight,
}

var memoCmd = &cobra.Command{
	Use:   "memo TITLE [CONTENT...]",
	Short: "Attach a memo to the selection in $winid",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMemo,
}

var eraseCmd = &cobra.Command{
	Use:   "erase",
	Short: "Remove every highlight touching the selection in $winid",
	Args:  cobra.NoArgs,
	RunE:  runErase,
}

var rmCmd = &cobra.Command{
	Use:   "rm ID...",
	Short: "Remove annotations by id",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRm,
}

var reassignCmd = &cobra.Command{
	Use:   "reassign SEGMENT CODE",
	Short: "Point a code segment at another code",
	Args:  cobra.ExactArgs(2),
	RunE:  runReassign,
}

var renameCodeCmd = &cobra.Command{
	Use:   "rename-code OLD NEW",
	Short: "Rename a code",
	Args:  cobra.ExactArgs(2),
	RunE:  runRenameCode,
}

var rmCodeCmd = &cobra.Command{
	Use:   "rm-code NAME",
	Short: "Delete a code and all of its segments",
	Args:  cobra.ExactArgs(1),
	RunE:  runRmCode,
}

func init() {
	for _, c := range []*cobra.Command{codeCmd, highlightCmd, memoCmd, eraseCmd} {
		c.Flags().BoolVar(&noSnap, "nosnap", false, "do not widen the selection to whole words")
	}
	codeCmd.Flags().StringVar(&codeColor, "color", "", "color of a new code")
	codeCmd.Flags().StringVar(&codeDescription, "description", "", "description of a new code")
	memoCmd.Flags().BoolVar(&memoUnanchored, "doc-level", false, "attach the memo to the whole document")
	memoCmd.Flags().StringVar(&memoEdit, "edit", "", "replace the title and content of memo `ID`")
}

// dot is a validated selection in a project document.
type dot struct {
	doc *annot.Document
	sel selection.Range
}

// readDot loads the project strictly, resolves the document shown in
// $winid and returns its selection.
func readDot(cmd *cobra.Command) (*session, dot, error) {
	s, err := loadSession(cmd.Context(), true)
	if err != nil {
		return nil, dot{}, err
	}
	id, err := acmehost.WinID()
	if err != nil {
		return nil, dot{}, err
	}
	win, err := acmehost.Open(id)
	if err != nil {
		return nil, dot{}, err
	}
	defer win.Close()

	doc, err := s.document(win)
	if err != nil {
		return nil, dot{}, err
	}
	if err := win.CheckBody(doc); err != nil {
		return nil, dot{}, err
	}
	q0, q1, err := win.Dot()
	if err != nil {
		return nil, dot{}, err
	}
	d, err := s.selectDot(doc, q0, q1)
	return s, d, err
}

// selectDot validates the selection #q0,#q1 of doc, snapped to words
// unless disabled.
func (s *session) selectDot(doc *annot.Document, q0, q1 int) (dot, error) {
	r, ok := selection.DotSelection(doc, q0, q1)
	if !ok {
		return dot{}, fmt.Errorf("no usable selection at #%d,#%d", q0, q1)
	}
	if s.cfg.Snap && !noSnap {
		r = selection.SnapToWordBoundary(doc, r)
	}
	return dot{doc: doc, sel: r}, nil
}

// addCode codes d with the named code, defining the code first if the
// project has none by that name.
func (s *session) addCode(ctx context.Context, d dot, name string) (annot.CodeSegment, error) {
	c, ok := s.store.CodeByName(name)
	if !ok {
		var err error
		if c, err = s.store.AddCode(annot.CodeDefinition{Name: name, Color: codeColor, Description: codeDescription}); err != nil {
			return annot.CodeSegment{}, err
		}
		logger.L(ctx).Info("new code", zap.String("id", c.ID), zap.String("name", c.Name))
	}
	return s.store.AddCodeSegment(annot.CodeSegment{
		DocumentID: d.doc.ID,
		Start:      d.sel.Start,
		End:        d.sel.End,
		CodeID:     c.ID,
	})
}

func (s *session) addHighlight(d dot, color string) (annot.Highlight, error) {
	return s.store.AddHighlight(annot.Highlight{
		DocumentID: d.doc.ID,
		Start:      d.sel.Start,
		End:        d.sel.End,
		Color:      color,
	})
}

func (s *session) addMemo(d dot, title, content string) (annot.Memo, error) {
	return s.store.AddMemo(annot.Memo{
		DocumentID: d.doc.ID,
		Start:      d.sel.Start,
		End:        d.sel.End,
		Title:      title,
		Content:    content,
	})
}

func (s *session) erase(d dot) ([]annot.Highlight, error) {
	return s.store.EraseHighlights(d.doc.ID, d.sel.Start, d.sel.End)
}

func runCode(cmd *cobra.Command, args []string) error {
	s, d, err := readDot(cmd)
	if err != nil {
		return err
	}
	seg, err := s.addCode(cmd.Context(), d, strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), seg.ID)
	return s.save()
}

func runHighlight(cmd *cobra.Command, args []string) error {
	color := compose.DefaultHighlightColor
	if len(args) > 0 {
		color = args[0]
	}
	s, d, err := readDot(cmd)
	if err != nil {
		return err
	}
	h, err := s.addHighlight(d, color)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), h.ID)
	return s.save()
}

func runMemo(cmd *cobra.Command, args []string) error {
	title, content := args[0], strings.Join(args[1:], " ")
	if memoEdit != "" {
		s, err := loadSession(cmd.Context(), true)
		if err != nil {
			return err
		}
		if err := s.store.UpdateMemo(memoEdit, title, content); err != nil {
			return err
		}
		return s.save()
	}

	var (
		s   *session
		m   annot.Memo
		err error
	)
	if memoUnanchored {
		if s, err = loadSession(cmd.Context(), true); err != nil {
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
		m, err = s.store.AddMemo(annot.Memo{
			DocumentID: doc.ID,
			Start:      annot.Unanchored,
			End:        annot.Unanchored,
			Title:      title,
			Content:    content,
		})
		if err != nil {
			return err
		}
	} else {
		var d dot
		if s, d, err = readDot(cmd); err != nil {
			return err
		}
		if m, err = s.addMemo(d, title, content); err != nil {
			return err
		}
	}
	fmt.Fprintln(cmd.OutOrStdout(), m.ID)
	return s.save()
}

func runErase(cmd *cobra.Command, _ []string) error {
	s, d, err := readDot(cmd)
	if err != nil {
		return err
	}
	erased, err := s.erase(d)
	if err != nil {
		return err
	}
	for _, h := range erased {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\t%d\t%q\n", h.ID, h.Start, h.End, h.Text)
	}
	if len(erased) == 0 {
		return nil
	}
	return s.save()
}

func runRm(cmd *cobra.Command, args []string) error {
	s, err := loadSession(cmd.Context(), true)
	if err != nil {
		return err
	}
	for _, id := range args {
		if err := s.store.RemoveAnnotation(id); err != nil {
			return err
		}
	}
	return s.save()
}

func runReassign(cmd *cobra.Command, args []string) error {
	s, err := loadSession(cmd.Context(), true)
	if err != nil {
		return err
	}
	c, ok := s.store.CodeByName(args[1])
	if !ok {
		c, ok = s.store.Code(args[1])
	}
	if !ok {
		return fmt.Errorf("no code %q", args[1])
	}
	if err := s.store.ReassignCode(args[0], c.ID); err != nil {
		return err
	}
	return s.save()
}

func runRenameCode(cmd *cobra.Command, args []string) error {
	s, err := loadSession(cmd.Context(), true)
	if err != nil {
		return err
	}
	c, ok := s.store.CodeByName(args[0])
	if !ok {
		return fmt.Errorf("no code %q", args[0])
	}
	c.Name = args[1]
	if err := s.store.UpdateCode(c); err != nil {
		return err
	}
	return s.save()
}

func runRmCode(cmd *cobra.Command, args []string) error {
	s, err := loadSession(cmd.Context(), true)
	if err != nil {
		return err
	}
	c, ok := s.store.CodeByName(args[0])
	if !ok {
		return fmt.Errorf("no code %q", args[0])
	}
	n, err := s.store.RemoveCode(c.ID)
	if err != nil {
		return err
	}
	logger.L(cmd.Context()).Info("removed code", zap.String("name", c.Name), zap.Int("segments", n))
	return s.save()
}
