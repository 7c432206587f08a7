// Package cachekey derives deterministic content-hash keys for artifacts.
//
// A key is a pure function of an artifact's declared inputs plus the content
// hash of its build context, supplied by the caller as opaque bytes. Identical
// inputs always yield the identical key: no time, machine or ordering
// dependence. The engine performs no I/O beyond hashing; how cached artifacts
// are stored is an external concern.
package cachekey

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"os"
	"sort"

	"github.com/convoy-build/convoy/internal/config"
)

// Key is a deterministic fingerprint of an artifact's build inputs.
type Key string

// Source supplies the opaque build-context bytes for an artifact. It is an
// external collaborator; the key engine only hashes what it returns.
type Source func(ctx context.Context, a *config.Artifact) ([]byte, error)

// EmptySource is a Source for artifacts with no build context.
func EmptySource(context.Context, *config.Artifact) ([]byte, error) {
	return nil, nil
}

// FileSource reads the artifact's context_path as the context bytes. An
// artifact without a context path has an empty context; a path that cannot be
// read is an error, not an empty context.
func FileSource(_ context.Context, a *config.Artifact) ([]byte, error) {
	if a.ContextPath == "" {
		return nil, nil
	}
	return os.ReadFile(a.ContextPath)
}

// Compute derives the artifact's key from its identity fields, its inputs in
// canonical (sorted, length-delimited) order, and the context bytes.
func Compute(a *config.Artifact, contextBytes []byte) Key {
	h := sha256.New()

	writeField := func(s string) {
		var n [8]byte
		binary.BigEndian.PutUint64(n[:], uint64(len(s)))
		h.Write(n[:])
		h.Write([]byte(s))
	}

	writeField(a.SourceRef)
	writeField(a.TargetName)

	platforms := append([]string(nil), a.Platforms...)
	sort.Strings(platforms)
	for _, p := range platforms {
		writeField(p)
	}

	inputKeys := make([]string, 0, len(a.Inputs))
	for k := range a.Inputs {
		inputKeys = append(inputKeys, k)
	}
	sort.Strings(inputKeys)
	for _, k := range inputKeys {
		writeField(k)
		writeField(a.Inputs[k])
	}

	contextSum := sha256.Sum256(contextBytes)
	h.Write(contextSum[:])

	return Key(hex.EncodeToString(h.Sum(nil)))
}

// ShouldSkip reports whether key is among the caller-supplied set of
// previously-successful keys for this target.
func ShouldSkip(key Key, known map[Key]struct{}) bool {
	if len(known) == 0 {
		return false
	}
	_, ok := known[key]
	return ok
}
