package model

import (
	"crypto/sha256"
	"strings"

	"github.com/google/uuid"
)

// normalizeKey lowercases and trims a key component used in id hashing, so
// that "Acme", "acme", and " Acme " all resolve to the same deterministic id.
func normalizeKey(s string) string {
	return strings.TrimSpace(strings.ToLower(s))
}

// NodeID computes the deterministic Entity id: hash(series, name_norm,
// type_norm). Two mentions that normalize to the same (series, name, type)
// always produce the same id, which is what makes GraphStore.UpsertEntities
// a true merge rather than a duplicate insert.
func NodeID(series, name, entityType string) uuid.UUID {
	return hashID(series, normalizeKey(name), normalizeKey(entityType))
}

// StableID computes the deterministic Relation id: hash(series, src_id,
// pred, dst_id). The predicate participates in identity unchanged; it is
// not normalized, so "acquired" and "Acquired" are distinct relations.
func StableID(series string, srcID, dstID uuid.UUID, pred string) uuid.UUID {
	return hashID(series, srcID.String(), pred, dstID.String())
}

// hashID derives a stable, name-based UUID (v5-style, SHA-256 truncated to
// 16 bytes) from an arbitrary number of string parts joined by a separator
// that cannot itself appear in a single part (a null byte).
func hashID(parts ...string) uuid.UUID {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(p))
	}
	sum := h.Sum(nil)

	var id uuid.UUID
	copy(id[:], sum[:16])
	// Mark as a name-based (version 5) UUID so tooling that inspects the
	// version nibble doesn't flag it as garbage, even though the bytes
	// come from SHA-256 rather than the RFC 4122 v5 algorithm verbatim.
	id[6] = (id[6] & 0x0f) | 0x50
	id[8] = (id[8] & 0x3f) | 0x80
	return id
}
