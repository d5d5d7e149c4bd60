package agent

import (
	"crypto/md5"
	"encoding/hex"
)

// UserIDLength is the number of hex characters kept from the digest.
const UserIDLength = 10

// DeriveUserID maps a caller-supplied identifier to a stable user id: the
// first 10 hex characters of its MD5 digest.
//
// 10 hex characters are 40 bits; collisions become likely around a million
// identifiers.
func DeriveUserID(identifier string) string {
	sum := md5.Sum([]byte(identifier))
	return hex.EncodeToString(sum[:])[:UserIDLength]
}
