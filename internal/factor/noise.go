package factor

import (
	"hash/fnv"
	"math/rand"
	"strings"
)

// noise returns a value in [-1, 1) that depends only on the factor, player
// and game. Placeholder heuristics use it so that repeated backtests agree.
func noise(factor string, ctx Context) float64 {
	h := fnv.New64a()
	h.Write([]byte(factor))
	h.Write([]byte{0})
	h.Write([]byte(strings.ToLower(strings.TrimSpace(ctx.Player))))
	h.Write([]byte{0})
	h.Write([]byte(ctx.Game.Key()))
	r := rand.New(rand.NewSource(int64(h.Sum64())))
	return r.Float64()*2 - 1
}
