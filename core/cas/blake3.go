// Package cas computes content keys for original source texts and
// fingerprints for taxonomy nodes. Both are BLAKE3 digests in lowercase hex.
package cas

import (
	"encoding/hex"
	"errors"
	"regexp"
	"strconv"

	"github.com/zeebo/blake3"

	"github.com/FocuswithJustin/taxonomist/core/taxonomy"
)

// ErrInvalidKey is returned when a key string is not a 64-character hex digest.
var ErrInvalidKey = errors.New("invalid content key")

var keyPattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

// Key returns the content key of data.
func Key(data []byte) string {
	h := blake3.Sum256(data)
	return hex.EncodeToString(h[:])
}

// KeyString returns the content key of s.
func KeyString(s string) string {
	return Key([]byte(s))
}

// ValidateKey checks the shape of a content key.
func ValidateKey(key string) error {
	if !keyPattern.MatchString(key) {
		return ErrInvalidKey
	}
	return nil
}

// Verify reports whether data has the given content key.
func Verify(data []byte, key string) bool {
	return Key(data) == key
}

// Fingerprint digests the rendered content of a node: its type, language,
// preceding lines, parent refs, tags and properties. Source positions and the
// live status are left out, so a fingerprint only changes when the text the
// node renders to would change.
func Fingerprint(n *taxonomy.Node) string {
	h := blake3.New()
	field := func(s string) {
		// length-prefixed so adjacent fields cannot run together
		h.Write([]byte(strconv.Itoa(len(s))))
		h.Write([]byte{':'})
		h.Write([]byte(s))
	}
	list := func(tag string, items []string) {
		field(tag)
		field(strconv.Itoa(len(items)))
		for _, s := range items {
			field(s)
		}
	}

	field(n.ID)
	field(string(n.Type))
	field(n.MainLanguage)
	list("preceding", n.PrecedingLines)
	list("parents", n.ParentTags)
	for _, ts := range n.Tags {
		field(ts.Lang)
		field(ts.Code)
		list("raw", ts.Raw)
		list("normalized", ts.Normalized)
	}
	for _, p := range n.SortedProperties() {
		field("prop")
		field(p.Name)
		field(p.Lang)
		field(p.Value)
	}
	return hex.EncodeToString(h.Sum(nil))
}
