package segment

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/npleval/internal/indexer/index"
)

func TestWriteAndRead(t *testing.T) {
	dir := t.TempDir()
	entries := []index.TermEntry{
		{Term: "alpha", Postings: index.PostingList{{DocID: "1", Frequency: 2, Positions: []int{0, 3}}}},
		{Term: "beta", Postings: index.PostingList{{DocID: "1", Frequency: 1}, {DocID: "2", Frequency: 4}}},
	}
	docs := []index.DocEntry{{DocID: "1", Length: 4}, {DocID: "2", Length: 9}}

	name, err := NewWriter(dir).Write(entries, docs)
	require.NoError(t, err)
	assert.Equal(t, Extension, filepath.Ext(name))
	_, err = os.Stat(filepath.Join(dir, name+".tmp"))
	assert.True(t, os.IsNotExist(err))

	r, err := OpenReader(filepath.Join(dir, name))
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, 2, r.Terms())
	assert.Equal(t, uint32(2), r.DocCount())
	assert.Equal(t, docs, r.Docs())

	beta, err := r.Search("beta")
	require.NoError(t, err)
	require.Len(t, beta, 2)
	assert.Equal(t, 4, beta[1].Frequency)

	alpha, err := r.Search("alpha")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 3}, alpha[0].Positions)

	missing, err := r.Search("gamma")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestWriteRejectsEmpty(t *testing.T) {
	_, err := NewWriter(t.TempDir()).Write(nil, nil)
	require.Error(t, err)
}

func TestOpenReaderRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.spdx")
	require.NoError(t, os.WriteFile(path, make([]byte, HeaderSize), 0o644))

	_, err := OpenReader(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad magic bytes")
}
