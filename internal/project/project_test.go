package project

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/cptaffe/acme-qda/annot"
	"github.com/cptaffe/acme-qda/internal/store"
)

const sample = `
[[document]]
id = "i1"
title = "Interview 1"
text = "The cat sat on the mat."

[[document]]
id = "i2"
file = "i2.txt"

[[code]]
id = "animals"
name = "Animals"
color = "#ffd0d0"

[[code]]
id = "places"
name = "Places"

[[segment]]
id = "s1"
document = "i1"
start = 4
end = 7
code = "animals"

[[segment]]
id = "s2"
document = "i1"
start = 0
end = 11
code = "places"

[[highlight]]
id = "h1"
document = "i2"
start = 0
end = 5
color = "yellow"

[[memo]]
id = "m1"
document = "i1"
title = "Overall"
content = "short"

[[memo]]
id = "m2"
document = "i1"
start = 15
end = 22
title = "mat"
`

func writeSample(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "i2.txt"), []byte("Hello there."), 0o644))
	path := filepath.Join(dir, "project.toml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	s, err := Load(writeSample(t))
	require.NoError(t, err)

	require.Len(t, s.Documents(), 2)
	d2, ok := s.Document("i2")
	require.True(t, ok)
	assert.Equal(t, "Hello there.", d2.Text)

	segs := s.CodeSegments("i1")
	require.Len(t, segs, 2)
	assert.Equal(t, "s2", segs[0].ID, "views are sorted by start")
	assert.Equal(t, "cat", segs[1].Text)

	memos := s.Memos("i1")
	require.Len(t, memos, 2)
	assert.False(t, memos[0].Anchored())
	assert.Equal(t, 15, memos[1].Start)
	assert.Equal(t, "mat", memos[1].Title)

	assert.Equal(t, "Hello", s.Highlights("i2")[0].Text)
}

func TestLoadReportsEveryBadRecord(t *testing.T) {
	s, err := Decode([]byte(`
[[document]]
id = "d"
text = "short"

[[code]]
name = "A"

[[code]]
name = "A"

[[segment]]
document = "d"
start = 2
end = 50
code = "nope"

[[memo]]
document = "d"
start = 1
`), t.TempDir())
	require.Error(t, err)
	errs := multierr.Errors(err)
	assert.Len(t, errs, 3)
	assert.ErrorIs(t, errs[0], store.ErrDuplicateCode)
	assert.ErrorIs(t, errs[1], store.ErrUnknownCode)
	assert.ErrorIs(t, errs[2], store.ErrInvalidInterval)

	require.NotNil(t, s)
	assert.Len(t, s.Codes(), 1)
}

func TestLoadMissingDocumentFile(t *testing.T) {
	_, err := Decode([]byte("[[document]]\nid = \"d\"\nfile = \"gone.txt\"\n"), t.TempDir())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSaveRoundTrip(t *testing.T) {
	path := writeSample(t)
	s, err := Load(path)
	require.NoError(t, err)

	files, err := Files(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"i2": "i2.txt"}, files)

	_, err = s.AddHighlight(annot.Highlight{ID: "h2", DocumentID: "i1", Start: 8, End: 11, Color: "green"})
	require.NoError(t, err)
	require.NoError(t, Save(path, s, files))

	again, err := Load(path)
	require.NoError(t, err)
	for _, d := range s.Documents() {
		assert.Equal(t, s.Layers(d.ID), again.Layers(d.ID), d.ID)
	}
	assert.Equal(t, s.Codes(), again.Codes())

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, again, files))
	assert.Contains(t, buf.String(), `file = "i2.txt"`)
	assert.NotContains(t, buf.String(), "Hello there.")
}
