package dedupe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/answerit/core"
)

func TestFingerprintStability(t *testing.T) {
	a := Fingerprint(1, core.ModeKnowledge, "what is the plan?", "")
	b := Fingerprint(1, core.ModeKnowledge, "what is the plan?", "")
	assert.Equal(t, a, b, "identical requests must fingerprint identically")
}

func TestFingerprintDiscriminates(t *testing.T) {
	base := Fingerprint(1, core.ModeKnowledge, "what is the plan?", "")

	assert.NotEqual(t, base, Fingerprint(2, core.ModeKnowledge, "what is the plan?", ""),
		"different subject")
	assert.NotEqual(t, base, Fingerprint(1, core.ModeGeneral, "what is the plan?", ""),
		"different mode")
	assert.NotEqual(t, base, Fingerprint(1, core.ModeKnowledge, "what is the plan??", ""),
		"different prompt")
	assert.NotEqual(t, base, Fingerprint(1, core.ModeKnowledge, "what is the plan?", "digest"),
		"different attachments")
}

func TestFingerprintTrimsPrompt(t *testing.T) {
	a := Fingerprint(1, core.ModeKnowledge, "hello", "")
	b := Fingerprint(1, core.ModeKnowledge, "  hello \n", "")
	assert.Equal(t, a, b, "surrounding whitespace must not change the fingerprint")
}

func TestFingerprintNoConcatenationAmbiguity(t *testing.T) {
	// Length-prefixed parts: moving a boundary between prompt and digest
	// must change the fingerprint.
	a := Fingerprint(1, core.ModeKnowledge, "ab", "c")
	b := Fingerprint(1, core.ModeKnowledge, "a", "bc")
	assert.NotEqual(t, a, b)
}

func TestCacheLookupStore(t *testing.T) {
	cache, err := NewCache(time.Minute)
	require.NoError(t, err)
	defer cache.Close()

	fp := Fingerprint(1, core.ModeKnowledge, "cached?", "")

	_, ok := cache.Lookup(fp)
	assert.False(t, ok, "miss before store")

	result := &core.QAResult{
		Answer:  "yes",
		Sources: []string{"subject-1"},
		Origin:  core.OriginPrimary,
	}
	cache.Store(fp, result)
	cache.Wait()

	got, ok := cache.Lookup(fp)
	require.True(t, ok, "hit after store")
	assert.Equal(t, "yes", got.Answer)
	assert.Equal(t, []string{"subject-1"}, got.Sources)
}

func TestCacheExpiry(t *testing.T) {
	cache, err := NewCache(20 * time.Millisecond)
	require.NoError(t, err)
	defer cache.Close()

	fp := Fingerprint(1, core.ModeKnowledge, "short lived", "")
	cache.Store(fp, &core.QAResult{Answer: "x", Sources: []string{"s"}})
	cache.Wait()

	time.Sleep(60 * time.Millisecond)

	_, ok := cache.Lookup(fp)
	assert.False(t, ok, "entry must expire after the TTL")
}

func TestCacheDefaultTTL(t *testing.T) {
	cache, err := NewCache(0)
	require.NoError(t, err)
	defer cache.Close()
	// Zero falls back to the default; storing and reading still works.
	fp := Fingerprint(1, core.ModeKnowledge, "default ttl", "")
	cache.Store(fp, &core.QAResult{Answer: "y", Sources: []string{"s"}})
	cache.Wait()

	_, ok := cache.Lookup(fp)
	assert.True(t, ok)
}
