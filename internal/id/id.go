// Package id generates short prefixed identifiers for selections and stream clients.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// alphabet avoids look-alike characters so IDs can be read back from chat logs.
const alphabet = "23456789abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ"

// size gives ~93 bits of entropy with the alphabet above.
const size = 16

// Generate creates an ID of the form "<prefix>_<nanoid>", e.g. "sel_h7Kp2mQxRt9sVb3N".
func Generate(prefix string) (string, error) {
	raw, err := gonanoid.Generate(alphabet, size)
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "_" + raw, nil
}

// MustGenerate is like Generate but panics when the system has no entropy.
func MustGenerate(prefix string) string {
	v, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return v
}
