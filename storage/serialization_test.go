package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/answerit/core"
)

func TestMarshalUnmarshalSnippet(t *testing.T) {
	snippet := &core.Snippet{
		Id:        core.IDFromContent("test"),
		Text:      "A snippet with a vector",
		Dataset:   "subject-9-chat",
		Kind:      core.KindMessage,
		Vector:    []float32{0.1, 0.2, 0.3},
		Indexed:   true,
		Timestamp: time.Now().Add(-time.Hour),
		Metadata:  map[string]string{"speaker": "human"},
	}

	data := MarshalSnippet(snippet)
	require.NotEmpty(t, data)

	decoded, err := UnmarshalSnippet(data)
	require.NoError(t, err)

	assert.Equal(t, snippet.Id, decoded.Id)
	assert.Equal(t, snippet.Text, decoded.Text)
	assert.Equal(t, snippet.Dataset, decoded.Dataset)
	assert.Equal(t, snippet.Kind, decoded.Kind)
	assert.Equal(t, snippet.Vector, decoded.Vector)
	assert.True(t, decoded.Indexed)
	assert.True(t, snippet.Timestamp.Equal(decoded.Timestamp))
	assert.Equal(t, snippet.Metadata, decoded.Metadata)
}

func TestMarshalSnippetNormalizesTimes(t *testing.T) {
	snippet := &core.Snippet{
		Text:      "precision clipped",
		Dataset:   "global",
		Kind:      core.KindDocument,
		Timestamp: time.Now().Add(-time.Minute),
	}

	MarshalSnippet(snippet)

	// The input itself is normalized so later comparisons against a read
	// back row hold.
	assert.Equal(t, snippet.Timestamp, snippet.Timestamp.Truncate(time.Microsecond).UTC())
}

func TestUnmarshalSnippetCorrupted(t *testing.T) {
	_, err := UnmarshalSnippet([]byte{0xff})
	assert.Error(t, err)
}

func TestMarshalUnmarshalID(t *testing.T) {
	id := core.IDFromContent("stable id")
	data := MarshalID(id)

	decoded, err := UnmarshalID(data)
	require.NoError(t, err)
	assert.Equal(t, id, decoded)
}
