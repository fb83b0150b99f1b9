package cache

import (
	"encoding/binary"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Key is a request fingerprint. Equal parameter sequences always produce
// equal keys; the order of parts is significant.
type Key uint64

// String renders the key in hex for logging.
func (k Key) String() string {
	return strconv.FormatUint(uint64(k), 16)
}

// Fingerprint hashes an ordered sequence of string parts. Each part is
// length-prefixed so that ("ab", "c") and ("a", "bc") differ.
func Fingerprint(parts ...string) Key {
	d := xxhash.New()
	var lenBuf [binary.MaxVarintLen64]byte
	for _, p := range parts {
		n := binary.PutUvarint(lenBuf[:], uint64(len(p)))
		_, _ = d.Write(lenBuf[:n])
		_, _ = d.WriteString(p)
	}
	return Key(d.Sum64())
}

// Builder accumulates parts for a fingerprint without building an
// intermediate slice, which matters for long identifier lists.
type Builder struct {
	d      *xxhash.Digest
	lenBuf [binary.MaxVarintLen64]byte
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{d: xxhash.New()}
}

// Add appends one part.
func (b *Builder) Add(part string) *Builder {
	n := binary.PutUvarint(b.lenBuf[:], uint64(len(part)))
	_, _ = b.d.Write(b.lenBuf[:n])
	_, _ = b.d.WriteString(part)
	return b
}

// AddAll appends every part in order, followed by a separator that records
// the count so a list and the scalar after it cannot blur together.
func (b *Builder) AddAll(parts []string) *Builder {
	for _, p := range parts {
		b.Add(p)
	}
	return b.Add("#" + strconv.Itoa(len(parts)))
}

// Key returns the fingerprint of everything added so far.
func (b *Builder) Key() Key {
	return Key(b.d.Sum64())
}
