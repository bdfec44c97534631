package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// GroupIDPrefix prefixes every duplicate group id
const GroupIDPrefix = "dup_"

const groupIDLength = 16

// Generate creates a deterministic SHA256 fingerprint of the given parts.
// The parts are hashed in the order given.
func Generate(parts ...string) string {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// GroupID derives a duplicate group id from its member ids.
// Member order does not matter; any change in membership changes the id.
func GroupID(memberIDs []string) string {
	sorted := make([]string, len(memberIDs))
	copy(sorted, memberIDs)
	sort.Strings(sorted)
	return GroupIDPrefix + Generate(sorted...)[:groupIDLength]
}

// IsGroupID reports whether id has the shape of a duplicate group id
func IsGroupID(id string) bool {
	if !strings.HasPrefix(id, GroupIDPrefix) || len(id) != len(GroupIDPrefix)+groupIDLength {
		return false
	}
	_, err := hex.DecodeString(id[len(GroupIDPrefix):])
	return err == nil
}
