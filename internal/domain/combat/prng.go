package combat

import (
	"encoding/binary"
	"hash/fnv"
	"math/rand"
)

// RoundRNG derives the deterministic generator for one participant in one
// round. The split is hash(base_seed, round, participant_id), so replaying a
// round with identical inputs produces bit-identical results regardless of
// participant iteration order. Never use a shared or thread-local RNG inside
// the resolver.
func RoundRNG(baseSeed uint32, round int, participantID CombatantID) *rand.Rand {
	h := fnv.New64a()
	h.Write(seedBytes(baseSeed))
	var roundBuf [8]byte
	binary.BigEndian.PutUint64(roundBuf[:], uint64(round))
	h.Write(roundBuf[:])
	h.Write([]byte(participantID))
	return rand.New(rand.NewSource(int64(h.Sum64())))
}
