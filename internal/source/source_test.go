package source

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZIP(t *testing.T, path string, members map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	w := zip.NewWriter(f)
	for name, content := range members {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
}

func TestSafeName(t *testing.T) {
	tests := map[string]string{
		"results/run 1.json": "results_run_1.json",
		"a-b_c.d":            "a-b_c.d",
		"ü.json":             "_.json",
		"../x":               ".._x",
	}
	for in, want := range tests {
		assert.Equal(t, want, SafeName(in), in)
	}
}

func TestMemberName(t *testing.T) {
	assert.Equal(t, "run_1__results_a.json", MemberName("/in/run 1.zip", "results/a.json"))
	assert.Equal(t, "art__data.JSON", MemberName("art.zip", "data.JSON"))
	assert.Equal(t, "art__data.txt.json", MemberName("art.zip", "data.txt"))
}

func TestCollect(t *testing.T) {
	dir := t.TempDir()
	writeZIP(t, filepath.Join(dir, "b.zip"), map[string]string{
		"results/x.json": `[{"a":1}]`,
		"readme.md":      "skip",
	})
	writeZIP(t, filepath.Join(dir, "a.zip"), map[string]string{
		"y.json": `{"b":2}`,
	})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.zip"), []byte("nope"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "loose.json"), []byte(`[]`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte(`x`), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.json"), 0o755))

	inputs, inv, err := Collect(dir)
	require.NoError(t, err)

	var names []string
	for _, in := range inputs {
		names = append(names, in.Name)
	}
	assert.Equal(t, []string{"a__y.json", "b__results_x.json", "loose.json"}, names)
	assert.Equal(t, `[{"a":1}]`, string(inputs[1].Data))
	assert.Equal(t, "b.zip!results/x.json", inputs[1].Origin)

	assert.Equal(t, []string{"a.zip", "b.zip", "bad.zip"}, inv.Archives)
	assert.Equal(t, []string{"bad.zip"}, inv.BadArchives)
	assert.Equal(t, []string{"loose.json"}, inv.LooseFiles)
}

func TestCollect_DuplicateNamesKeepFirst(t *testing.T) {
	dir := t.TempDir()
	writeZIP(t, filepath.Join(dir, "a.zip"), map[string]string{"x.json": `[1]`})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a__x.json"), []byte(`[2]`), 0o644))

	inputs, inv, err := Collect(dir)
	require.NoError(t, err)
	require.Len(t, inputs, 1)
	assert.Equal(t, `[1]`, string(inputs[0].Data))
	assert.Len(t, inv.Duplicates, 1)
}

func TestCollect_MissingDir(t *testing.T) {
	_, _, err := Collect(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
