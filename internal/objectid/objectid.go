// Package objectid mints 24-character hex identifiers in the MongoDB
// ObjectId layout:
//
//	bytes 0-3   Unix seconds, big-endian
//	bytes 4-6   machine identifier
//	bytes 7-8   process identifier, big-endian
//	bytes 9-11  counter, big-endian, wrapping mod 2^24
//
// Documents inserted without an id get one of these, so locally created
// records sort roughly by creation time and stay unique across devices.
package objectid

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"os"
	"sync/atomic"
	"time"
)

// Len is the length of an encoded id.
const Len = 24

const counterMask = 1<<24 - 1

// Clock supplies the timestamp portion of an id.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// Generator mints ids. It is safe for concurrent use.
type Generator struct {
	clock   Clock
	machine [3]byte
	pid     uint16
	counter atomic.Uint32
}

// NewGenerator returns a generator identified by this host and process,
// with a counter seeded from crypto/rand.
func NewGenerator(clock Clock) *Generator {
	if clock == nil {
		clock = SystemClock{}
	}
	g := &Generator{
		clock:   clock,
		machine: machineID(),
		pid:     uint16(os.Getpid()),
	}
	var seed [4]byte
	if _, err := rand.Read(seed[:]); err == nil {
		g.counter.Store(binary.BigEndian.Uint32(seed[:]) & counterMask)
	}
	return g
}

// NewGeneratorWithIdentity returns a generator with a fixed machine id,
// process id and counter start. Tests use it to get reproducible ids.
func NewGeneratorWithIdentity(clock Clock, machine [3]byte, pid uint16, counter uint32) *Generator {
	if clock == nil {
		clock = SystemClock{}
	}
	g := &Generator{clock: clock, machine: machine, pid: pid}
	g.counter.Store(counter & counterMask)
	return g
}

// Next returns a new id.
func (g *Generator) Next() string {
	var b [12]byte

	binary.BigEndian.PutUint32(b[0:4], uint32(g.clock.Now().Unix()))
	copy(b[4:7], g.machine[:])
	binary.BigEndian.PutUint16(b[7:9], g.pid)

	// Add returns the post-increment value; the id uses the value before it.
	c := (g.counter.Add(1) - 1) & counterMask
	b[9] = byte(c >> 16)
	b[10] = byte(c >> 8)
	b[11] = byte(c)

	return hex.EncodeToString(b[:])
}

// Timestamp extracts the creation second from an id.
func Timestamp(id string) (time.Time, bool) {
	if !Valid(id) {
		return time.Time{}, false
	}
	raw, _ := hex.DecodeString(id[:8])
	return time.Unix(int64(binary.BigEndian.Uint32(raw)), 0).UTC(), true
}

// Valid reports whether id has the ObjectId shape: 24 lowercase or
// uppercase hex characters.
func Valid(id string) bool {
	if len(id) != Len {
		return false
	}
	_, err := hex.DecodeString(id)
	return err == nil
}

var defaultGenerator = NewGenerator(SystemClock{})

// New mints an id from the process-wide generator.
func New() string {
	return defaultGenerator.Next()
}

func machineID() [3]byte {
	var id [3]byte
	host, err := os.Hostname()
	if err != nil || host == "" {
		_, _ = rand.Read(id[:])
		return id
	}
	sum := sha256.Sum256([]byte(host))
	copy(id[:], sum[:3])
	return id
}
