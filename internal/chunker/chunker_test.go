package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docchat/backend/internal/rag"
)

func TestNew_RejectsBadParameters(t *testing.T) {
	_, err := New(100, 150)
	require.Error(t, err)
	assert.ErrorIs(t, err, rag.ErrInvalidConfiguration)

	_, err = New(100, 100)
	assert.ErrorIs(t, err, rag.ErrInvalidConfiguration)

	_, err = New(100, -1)
	assert.ErrorIs(t, err, rag.ErrInvalidConfiguration)
}

func TestSplit_WindowSizesAndOverlap(t *testing.T) {
	c, err := New(1200, 200)
	require.NoError(t, err)

	chunks := c.Split(strings.Repeat("A", 1500), "doc-1")
	require.Len(t, chunks, 2)

	assert.Len(t, chunks[0].Text, 1200)
	assert.Len(t, chunks[1].Text, 500)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, 1, chunks[1].Index)
	assert.Equal(t, "doc-1", chunks[0].DocumentID)

	// The second chunk starts 200 characters inside the first.
	assert.Equal(t, chunks[0].Text[1000:], chunks[1].Text[:200])
}

func TestSplit_EmptyAndWhitespaceInput(t *testing.T) {
	c, err := New(1200, 200)
	require.NoError(t, err)

	assert.Empty(t, c.Split("", "doc-1"))
	assert.Empty(t, c.Split("   ", "doc-1"))
	assert.Empty(t, c.Split("\n\n\t \r\n", "doc-1"))
}

func TestSplit_Deterministic(t *testing.T) {
	c, err := New(50, 10)
	require.NoError(t, err)

	text := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 20)
	first := c.Split(text, "doc-1")
	second := c.Split(text, "doc-1")

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i], second[i])
	}
}

func TestSplit_NoEmptyChunks(t *testing.T) {
	c, err := New(10, 2)
	require.NoError(t, err)

	for _, chunk := range c.Split("hello world this is a test of chunking", "doc-1") {
		assert.NotEmpty(t, strings.TrimSpace(chunk.Text))
	}
}

func TestSplit_PreservesCharacterOrder(t *testing.T) {
	c, err := New(20, 5)
	require.NoError(t, err)

	text := "abcdefghijklmnopqrstuvwxyz0123456789"
	chunks := c.Split(text, "doc-1")
	require.NotEmpty(t, chunks)

	for _, chunk := range chunks {
		assert.Contains(t, text, chunk.Text)
	}
	assert.Equal(t, text[:20], chunks[0].Text)
}

func TestSplit_MultiByteRunesNotSplit(t *testing.T) {
	c, err := New(10, 2)
	require.NoError(t, err)

	text := strings.Repeat("héllo wörld ", 10)
	for _, chunk := range c.Split(text, "doc-1") {
		assert.True(t, strings.ToValidUTF8(chunk.Text, "") == chunk.Text)
	}
}

func TestNormalize(t *testing.T) {
	in := "line one  \r\nline two\t\n\n\n\n\nline three\n"
	out := Normalize(in)

	assert.Equal(t, "line one\nline two\n\nline three", out)
}
