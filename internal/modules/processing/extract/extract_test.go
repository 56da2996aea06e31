package extract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractMissingFile(t *testing.T) {
	svc := NewService()
	assert.Equal(t, "", svc.Extract(filepath.Join(t.TempDir(), "nope.pdf"), 1000))
}

func TestExtractGarbageFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("this is not a pdf at all"), 0o644))

	svc := NewService()
	assert.Equal(t, "", svc.Extract(path, 1000))
}

func TestExtractEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.pdf")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	svc := NewService()
	assert.Equal(t, "", svc.Extract(path, 1000))
}

func TestExtractZeroBudget(t *testing.T) {
	svc := NewService()
	assert.Equal(t, "", svc.Extract("anything.pdf", 0))
}

func TestBoundedTextJoinsPages(t *testing.T) {
	acc := newBoundedText(100)
	assert.True(t, acc.add("page one"))
	assert.True(t, acc.add("   \n\t  "))
	assert.True(t, acc.add("page two"))

	assert.Equal(t, "page one\n\npage two", acc.text())
}

func TestBoundedTextStopsAtBudget(t *testing.T) {
	acc := newBoundedText(10)
	assert.True(t, acc.add("12345"))
	// This page pushes the total past the budget, so no more pages fit.
	assert.False(t, acc.add("678901"))

	got := acc.text()
	assert.Equal(t, "12345\n\n678", got)
	assert.Len(t, []rune(got), 10)
}

func TestBoundedTextBudgetCountsRunes(t *testing.T) {
	acc := newBoundedText(4)
	assert.False(t, acc.add("héllo"))
	assert.Equal(t, "héll", acc.text())
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "", truncateRunes("anything", 0))
	assert.Equal(t, "abc", truncateRunes("abc", 10))
	assert.Equal(t, "ab", truncateRunes("abc", 2))
	assert.Equal(t, "日本", truncateRunes("日本語テキスト", 2))
	assert.Equal(t, strings.Repeat("x", 5), truncateRunes(strings.Repeat("x", 50), 5))
}
