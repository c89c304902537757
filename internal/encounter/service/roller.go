package service

import (
	"crypto/rand"
	"encoding/binary"
	"time"

	"github.com/louisbranch/initiative/internal/server/dice"
)

// SeededRoller resolves notation with a fresh seed per roll.
type SeededRoller struct {
	seed func() int64
}

// NewSeededRoller creates a roller seeded from crypto/rand, falling back to
// the wall clock when the entropy source fails.
func NewSeededRoller() *SeededRoller {
	return &SeededRoller{seed: func() int64 {
		var buf [8]byte
		if _, err := rand.Read(buf[:]); err != nil {
			return time.Now().UnixNano()
		}
		return int64(binary.LittleEndian.Uint64(buf[:]))
	}}
}

// Roll parses the notation and returns the rolled total.
func (r *SeededRoller) Roll(notation string) (int, error) {
	result, err := dice.RollNotation(notation, r.seed())
	if err != nil {
		return 0, err
	}
	return result.Total, nil
}

var _ Roller = (*SeededRoller)(nil)
