package dedupe

import (
	"encoding/binary"
	"encoding/hex"
	"strings"

	"github.com/go-crypt/x/blake2b"
	"github.com/poiesic/answerit/core"
)

// Fingerprint computes the stable request-collapsing key from the fields
// that define "the same request": subject, mode, whitespace-trimmed
// prompt, and the digest of the first attachment (empty when there is
// none). Identical inputs always produce identical fingerprints.
func Fingerprint(subjectID int64, mode core.Mode, prompt, attachmentDigest string) string {
	h, _ := blake2b.New(32, nil)

	writePart := func(part string) {
		var lenBuf [8]byte
		binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(part)))
		h.Write(lenBuf[:])
		h.Write([]byte(part))
	}

	var subjBuf [8]byte
	binary.LittleEndian.PutUint64(subjBuf[:], uint64(subjectID))
	h.Write(subjBuf[:])

	writePart(mode.String())
	writePart(strings.TrimSpace(prompt))
	writePart(attachmentDigest)

	return hex.EncodeToString(h.Sum(nil))
}
