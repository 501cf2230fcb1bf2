// rand/rand.go
// Copyright(c) 2024-2026 airside contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package rand

import (
	"github.com/MichaelTJones/pcg"
)

///////////////////////////////////////////////////////////////////////////
// Random numbers.

type Rand struct {
	r *pcg.PCG32
}

func New() Rand {
	return Rand{r: pcg.NewPCG32()}
}

func (r *Rand) Seed(s int64) {
	r.r.Seed(uint64(s), 0xda3e39cb94b95bdb)
}

func (r *Rand) Intn(n int) int {
	return int(r.r.Bounded(uint32(n)))
}

func (r *Rand) Float32() float32 {
	return float32(r.r.Random()) / (1<<32 - 1)
}

// SignedFloat32 returns a uniformly distributed value in [-1, 1); it is
// what the hover and vertical-lift jitter paths want.
func (r *Rand) SignedFloat32() float32 {
	return 2*r.Float32() - 1
}

func (r *Rand) Uint32() uint32 {
	return r.r.Random()
}

// Drop-in replacement for the subset of math/rand that we use...
var r Rand

func init() {
	r = New()
}

func Seed(s int64) {
	r.Seed(s)
}

func Intn(n int) int {
	return r.Intn(n)
}

func Float32() float32 {
	return r.Float32()
}

func SignedFloat32() float32 {
	return r.SignedFloat32()
}

func Uint32() uint32 {
	return r.Uint32()
}
