package pattern

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// mixSeed derives a two-word PCG seed from a worker id and a caller-supplied
// timestamp, so that sequential worker ids started in the same nanosecond
// diverge rather than producing identical random streams.
func mixSeed(workerID int, seedTime int64) (uint64, uint64) {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:8], uint64(int64(workerID)))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(seedTime))

	h := xxhash.New()
	_, _ = h.Write(buf[:])
	seed1 := h.Sum64()

	_, _ = h.Write([]byte{0xa5})
	seed2 := h.Sum64()

	return seed1, seed2
}
