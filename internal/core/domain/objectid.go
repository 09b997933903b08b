package domain

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"regexp"
	"sync/atomic"
	"time"
)

// Entity ids are 24 lowercase hex characters, assigned by the persistence
// layer on create and immutable afterwards.
var objectIDPattern = regexp.MustCompile(`^[0-9a-f]{24}$`)

var objectIDCounter = func() *uint32 {
	var b [4]byte
	_, _ = rand.Read(b[:])
	c := binary.BigEndian.Uint32(b[:])
	return &c
}()

var objectIDMachine = func() [5]byte {
	var b [5]byte
	_, _ = rand.Read(b[:])
	return b
}()

// NewObjectID generates a new 24-hex-char identifier: a 4-byte UTC timestamp,
// a 5-byte per-process random value and a 3-byte incrementing counter.
func NewObjectID() string {
	var b [12]byte
	binary.BigEndian.PutUint32(b[0:4], uint32(time.Now().UTC().Unix()))
	copy(b[4:9], objectIDMachine[:])
	n := atomic.AddUint32(objectIDCounter, 1)
	b[9] = byte(n >> 16)
	b[10] = byte(n >> 8)
	b[11] = byte(n)
	return hex.EncodeToString(b[:])
}

// IsValidObjectID reports whether id is a well-formed 24-lowercase-hex id.
func IsValidObjectID(id string) bool {
	return objectIDPattern.MatchString(id)
}
