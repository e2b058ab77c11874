// Package id generates short unique identifiers for pipeline records.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Unit IDs only need to be unique within one run and appear on every log
// line for that unit, so they are shorter than the default 21-char NanoID.
const idLength = 10

// Generate creates a prefixed unique ID using NanoID.
// Format: prefix-nanoid (e.g., "unit-V1StGXR8_Z").
//
// Returns an error if the system has insufficient entropy for secure
// random generation.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New(idLength)
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
// Use this only when failure should crash the program.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}
