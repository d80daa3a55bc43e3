package layer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cptaffe/acme-qda/style"
)

type write struct {
	q0, q1 int
	full   bool
	text   string
}

type recorder struct {
	writes []write
	err    error
}

func (r *recorder) Write(text string) error {
	if r.err != nil {
		return r.err
	}
	r.writes = append(r.writes, write{full: true, text: text})
	return nil
}

func (r *recorder) WriteAt(q0, q1 int, text string) error {
	if r.err != nil {
		return r.err
	}
	r.writes = append(r.writes, write{q0: q0, q1: q1, text: text})
	return nil
}

func TestParseIndex(t *testing.T) {
	index := "1 syntax\n3 qda\n7 other\n"

	id, ok := parseIndex(index, "qda")
	assert.True(t, ok)
	assert.Equal(t, 3, id)

	_, ok = parseIndex(index, "missing")
	assert.False(t, ok)
	_, ok = parseIndex("x qda\n", "qda")
	assert.False(t, ok)
}

func TestPainter(t *testing.T) {
	pal := style.Palette{{Name: "code", BG: "#e8e8ff"}, {Name: "match", BG: "#fff3a0"}}
	runs := []style.StyleRun{{Name: "code", Start: 0, End: 4}, {Name: "match", Start: 10, End: 12}}

	rec := &recorder{}
	p := NewPainter(rec)

	wrote, err := p.Paint(pal, runs)
	require.NoError(t, err)
	assert.True(t, wrote)
	require.Len(t, rec.writes, 1)
	assert.True(t, rec.writes[0].full, "first paint rewrites the layer")
	assert.Equal(t, style.Format(pal, runs), rec.writes[0].text)

	wrote, err = p.Paint(pal, runs)
	require.NoError(t, err)
	assert.False(t, wrote)
	assert.Len(t, rec.writes, 1, "unchanged runs are not written")

	moved := []style.StyleRun{{Name: "code", Start: 0, End: 4}, {Name: "match", Start: 14, End: 16}}
	wrote, err = p.Paint(pal, moved)
	require.NoError(t, err)
	assert.True(t, wrote)
	require.Len(t, rec.writes, 2)
	got := rec.writes[1]
	assert.False(t, got.full)
	assert.Equal(t, 10, got.q0)
	assert.Equal(t, 16, got.q1)
	assert.Equal(t, style.FormatAt(pal, moved, 10, 16), got.text)

	recolored := style.Palette{{Name: "code", BG: "#ffd0d0"}, {Name: "match", BG: "#fff3a0"}}
	_, err = p.Paint(recolored, moved)
	require.NoError(t, err)
	require.Len(t, rec.writes, 3)
	assert.True(t, rec.writes[2].full, "a palette change rewrites the layer")
}

func TestPainterKeepsStateOnError(t *testing.T) {
	pal := style.Palette{{Name: "code", BG: "#e8e8ff"}}
	rec := &recorder{err: errors.New("hangup")}
	p := NewPainter(rec)

	_, err := p.Paint(pal, []style.StyleRun{{Name: "code", Start: 0, End: 1}})
	require.Error(t, err)

	rec.err = nil
	_, err = p.Paint(pal, []style.StyleRun{{Name: "code", Start: 0, End: 1}})
	require.NoError(t, err)
	require.Len(t, rec.writes, 1)
	assert.True(t, rec.writes[0].full, "a failed first paint is retried in full")
}
