// Package chunkstore holds what the chunk store backends share.
package chunkstore

import (
	"errors"
	"strings"

	"chapterqa/internal/domain"
)

// ValidateSet checks that a set can be stored under its identity.
func ValidateSet(set *domain.ChunkSet) error {
	if set == nil {
		return errors.New("nil chunk set")
	}
	return ValidateIdentity(set.Identity)
}

// ValidateIdentity rejects identities that are empty or would escape a
// file-per-identity layout.
func ValidateIdentity(id domain.DocumentIdentity) error {
	s := string(id)
	if s == "" {
		return errors.New("empty document identity")
	}
	if s == "." || s == ".." || strings.ContainsAny(s, `/\`+"\x00") {
		return errors.New("document identity is not filesystem safe: " + s)
	}
	return nil
}
