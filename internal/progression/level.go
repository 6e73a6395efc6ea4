package progression

import (
	"fmt"
	"math"

	"github.com/starford/rpgify/internal/apperr"
)

// LevelState is the level reached by an experience total.
type LevelState struct {
	Level int `json:"level"`
	// Progress is the experience accumulated toward the next level.
	Progress float64 `json:"progress"`
	// NextThreshold is the experience the next level costs.
	NextThreshold float64 `json:"next_threshold"`
}

// Percent returns Progress as a fraction of NextThreshold, clamped to [0, 1].
func (s LevelState) Percent() float64 {
	if s.NextThreshold <= 0 {
		return 0
	}
	return math.Min(1, math.Max(0, s.Progress/s.NextThreshold))
}

// ExpForLevel returns the experience needed to go from level-1 to level:
// 100 * level, doubled every ten levels. Levels below 1 cost nothing.
func ExpForLevel(level int) float64 {
	if level <= 0 {
		return 0
	}
	return math.Ldexp(100*float64(level), (level-1)/10)
}

// LevelFor spends total on successive levels while the remainder strictly
// exceeds the next level's cost. A remainder equal to the cost does not level up.
func LevelFor(total float64) (LevelState, error) {
	if math.IsNaN(total) || math.IsInf(total, 0) || total < 0 {
		return LevelState{}, fmt.Errorf("%w: experience total %v", apperr.ErrInvalidInput, total)
	}
	level, remainder := 0, total
	for remainder > ExpForLevel(level+1) {
		remainder -= ExpForLevel(level + 1)
		level++
	}
	return LevelState{
		Level:         level,
		Progress:      remainder,
		NextThreshold: ExpForLevel(level + 1),
	}, nil
}
