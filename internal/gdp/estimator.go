package gdp

import (
	crand "crypto/rand"
	"encoding/binary"
	"math"
	"math/rand/v2"
	"sync"
)

const (
	MinMultiplier = 1000.0
	MaxMultiplier = 2000.0
)

// RandSource yields uniform values in [0, 1). *rand.Rand satisfies it.
type RandSource interface {
	Float64() float64
}

// Estimator computes the estimated GDP of a country from its population and
// USD exchange rate. It is safe for concurrent use.
type Estimator struct {
	mu  sync.Mutex
	src RandSource
}

func New(src RandSource) *Estimator {
	return &Estimator{src: src}
}

// NewFromEntropy seeds a PCG source from the operating system.
func NewFromEntropy() *Estimator {
	var seed [16]byte
	if _, err := crand.Read(seed[:]); err != nil {
		return New(rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
	}
	return New(rand.New(rand.NewPCG(
		binary.LittleEndian.Uint64(seed[:8]),
		binary.LittleEndian.Uint64(seed[8:]),
	)))
}

// Estimate returns population * m / rate rounded to 2 decimals, where m is drawn
// uniformly from [MinMultiplier, MaxMultiplier). A nil or zero rate yields 0.
func (e *Estimator) Estimate(population int64, exchangeRate *float64) float64 {
	if exchangeRate == nil || *exchangeRate == 0 {
		return 0
	}

	e.mu.Lock()
	u := e.src.Float64()
	e.mu.Unlock()

	multiplier := MinMultiplier + u*(MaxMultiplier-MinMultiplier)
	return Round2(float64(population) * multiplier / *exchangeRate)
}

// Round2 rounds half away from zero to 2 decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
