package fileio

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatchReaderMatchesExpectedBytes(t *testing.T) {
	data := []byte("hello world")
	require.True(t, MatchReader(data).Matches(bytes.NewReader(data)))
	require.False(t, MatchReader(data).Matches(bytes.NewReader([]byte("mismatch"))))
	require.False(t, MatchReader(data).Matches("not a reader"))
}

func TestMatchWriterWritesGivenBytes(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "fileio")
	require.NoError(t, err)
	defer f.Close()

	data := []byte("written bytes")
	require.True(t, MatchWriter(data).Matches(f))

	got := make([]byte, len(data))
	_, err = f.ReadAt(got, 0)
	require.NoError(t, err)
	require.Equal(t, data, got)
}
