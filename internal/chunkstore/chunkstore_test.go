package chunkstore

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleChunks() []*Chunk {
	return []*Chunk{
		{ChunkID: FormatChunkID("FIPS.203", 1, 0), DocID: "FIPS.203", StartPage: 1, EndPage: 1, Text: "intro", VectorID: 0},
		{ChunkID: FormatChunkID("FIPS.203", 2, 0), DocID: "FIPS.203", StartPage: 2, EndPage: 2, Text: "keygen", VectorID: 1},
		{ChunkID: FormatChunkID("FIPS.203", 3, 0), DocID: "FIPS.203", StartPage: 3, EndPage: 3, Text: "encaps", VectorID: 2},
		{ChunkID: FormatChunkID("FIPS.204", 1, 0), DocID: "FIPS.204", StartPage: 1, EndPage: 1, Text: "sign", VectorID: 3},
	}
}

func TestFormatChunkID(t *testing.T) {
	assert.Equal(t, "FIPS.203::p0002::c000", FormatChunkID("FIPS.203", 2, 0))
}

func TestNewValidatesInvariants(t *testing.T) {
	store, err := New(sampleChunks())
	require.NoError(t, err)
	assert.Equal(t, 4, store.Len())
}

func TestNewRejectsDuplicateChunkID(t *testing.T) {
	chunks := sampleChunks()
	chunks[1].ChunkID = chunks[0].ChunkID
	_, err := New(chunks)
	require.Error(t, err)
}

func TestNewRejectsNonContiguousVectorIDs(t *testing.T) {
	chunks := sampleChunks()
	chunks[3].VectorID = 9
	_, err := New(chunks)
	require.Error(t, err)
}

func TestNewRejectsEmptyText(t *testing.T) {
	chunks := sampleChunks()
	chunks[0].Text = ""
	_, err := New(chunks)
	require.Error(t, err)
}

func TestNewRejectsBadPageSpan(t *testing.T) {
	chunks := sampleChunks()
	chunks[0].EndPage = 0
	_, err := New(chunks)
	require.Error(t, err)
}

func TestGetByChunkIDAndVectorID(t *testing.T) {
	store, err := New(sampleChunks())
	require.NoError(t, err)

	c, ok := store.GetByChunkID("FIPS.203::p0002::c000")
	require.True(t, ok)
	assert.Equal(t, 1, c.VectorID)

	c2, ok := store.GetByVectorID(2)
	require.True(t, ok)
	assert.Equal(t, "encaps", c2.Text)

	_, ok = store.GetByVectorID(99)
	assert.False(t, ok)
}

func TestAllIsAscendingVectorIDOrder(t *testing.T) {
	store, err := New(sampleChunks())
	require.NoError(t, err)
	all := store.All()
	for i, c := range all {
		assert.Equal(t, i, c.VectorID)
	}
}

func TestNeighborsStaysWithinDoc(t *testing.T) {
	store, err := New(sampleChunks())
	require.NoError(t, err)

	neighbors := store.Neighbors("FIPS.203::p0002::c000", 1)
	require.Len(t, neighbors, 2)
	assert.Equal(t, "intro", neighbors[0].Text)
	assert.Equal(t, "encaps", neighbors[1].Text)

	// Last chunk of FIPS.203 has no same-doc neighbor after it.
	neighbors = store.Neighbors("FIPS.203::p0003::c000", 1)
	require.Len(t, neighbors, 1)
	assert.Equal(t, "keygen", neighbors[0].Text)
}

func TestLoadFromLineJSON(t *testing.T) {
	data := `{"vector_id":0,"chunk_id":"A::p0001::c000","doc_id":"A","start_page":1,"end_page":1,"text":"hello"}
{"vector_id":1,"chunk_id":"A::p0002::c000","doc_id":"A","start_page":2,"end_page":2,"text":"world"}
`
	store, err := LoadFrom(strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 2, store.Len())
}
