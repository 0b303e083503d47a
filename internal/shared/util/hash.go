package util

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
)

// OwnerKey returns a filesystem-safe, stable prefix for a user ID.
func OwnerKey(userID string) string {
	sum := sha256.Sum256([]byte(userID))
	return hex.EncodeToString(sum[:16])
}

// DocumentKey builds the object-store key for an uploaded document.
func DocumentKey(userID, documentID, fileName string) string {
	return path.Join("documents", OwnerKey(userID), documentID, fileName)
}
