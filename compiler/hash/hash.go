package hash

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/chazu/rpal/compiler"
)

// HashTree computes the SHA-256 content hash of a syntax tree.
//
// The hash covers node kinds, payloads and shape only. Two sources that
// differ in whitespace, comments or integer spelling parse to trees with
// the same hash, and so share cached results.
func HashTree(root *compiler.Node) ([32]byte, error) {
	data, err := Serialize(root)
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(data), nil
}

// HashTreeHex is HashTree rendered as lowercase hex.
func HashTreeHex(root *compiler.Node) (string, error) {
	sum, err := HashTree(root)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(sum[:]), nil
}
