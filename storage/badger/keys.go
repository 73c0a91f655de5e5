package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/poiesic/answerit/core"
)

// Key prefixes for different data types
const (
	snippetPrefix        = "snp"
	snippetDatePrefix    = "snpd"
	snippetIndexedPrefix = "snpi"
)

// makeSnippetKey generates a key for a snippet by dataset and ID.
func makeSnippetKey(dataset string, id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%s:%d", snippetPrefix, dataset, id))
}

// makeSnippetPrefix generates the key prefix covering all rows of a dataset.
func makeSnippetPrefix(dataset string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", snippetPrefix, dataset))
}

// makeSnippetDateKey generates a composite key for the recency index.
// Format: prefix:dataset:timestamp:id
func makeSnippetDateKey(dataset string, timestamp time.Time, id core.ID) []byte {
	prefix := []byte(fmt.Sprintf("%s:%s:", snippetDatePrefix, dataset))
	buf := make([]byte, len(prefix)+16) // 8 bytes timestamp + 8 bytes ID
	offset := copy(buf, prefix)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialSnippetDateKey generates a partial key for recency scans.
// Format: prefix:dataset:timestamp
func makePartialSnippetDateKey(dataset string, timestamp time.Time) []byte {
	prefix := []byte(fmt.Sprintf("%s:%s:", snippetDatePrefix, dataset))
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	return buf
}

// makeSnippetDatePrefix generates the key prefix covering a dataset's
// recency index.
func makeSnippetDatePrefix(dataset string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", snippetDatePrefix, dataset))
}

// makeSnippetIndexedKey generates a key marking a row as visible to
// semantic search. Counting keys under the dataset's indexed prefix is the
// projection probe.
func makeSnippetIndexedKey(dataset string, id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%s:%d", snippetIndexedPrefix, dataset, id))
}

// makeSnippetIndexedPrefix generates the key prefix covering a dataset's
// indexed markers.
func makeSnippetIndexedPrefix(dataset string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", snippetIndexedPrefix, dataset))
}
