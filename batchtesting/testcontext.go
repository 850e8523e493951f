// Package batchtesting carries the shared setup for batched tree tests: a
// service named logger and deterministic value generation.
package batchtesting

import (
	"testing"

	"github.com/datatrails/go-datatrails-common/logger"
	fuzz "github.com/google/gofuzz"
)

const ValueBytes = 32

type TestConfig struct {
	// The value generator is seeded from Seed. It is normal to force it to
	// some fixed value so that the generated data is the same from run to run.
	Seed            int64
	TestLabelPrefix string
	// LogLevel defaults to INFO.
	LogLevel string
}

type TestContext struct {
	Log   logger.Logger
	T     *testing.T
	Calls TestCallCounter
	f     *fuzz.Fuzzer
}

func NewTestContext(t *testing.T, cfg TestConfig) TestContext {
	c := TestContext{
		T: t,
		f: fuzz.NewWithSeed(cfg.Seed).NilChance(0),
	}
	level := cfg.LogLevel
	if level == "" {
		level = "INFO"
	}
	logger.New(level)
	c.Log = logger.Sugar.WithServiceName(cfg.TestLabelPrefix)
	return c
}

func (c *TestContext) GetLog() logger.Logger { return c.Log }

// Value returns the next generated value. The first byte is cleared so every
// value is a canonical BN254 scalar and sorts below the address tree bound.
func (c *TestContext) Value() [ValueBytes]byte {
	var v [ValueBytes]byte
	c.f.Fuzz(&v)
	v[0] = 0
	return v
}

// Values returns n distinct generated values.
func (c *TestContext) Values(n int) [][ValueBytes]byte {
	seen := make(map[[ValueBytes]byte]bool, n)
	out := make([][ValueBytes]byte, 0, n)
	for len(out) < n {
		v := c.Value()
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
