package batchtesting

import (
	"testing"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/stretchr/testify/assert"
)

func TestValuesAreDeterministic(t *testing.T) {
	a := NewTestContext(t, TestConfig{Seed: 42, TestLabelPrefix: "TestValuesAreDeterministic"})
	defer logger.OnExit()
	b := NewTestContext(t, TestConfig{Seed: 42, TestLabelPrefix: "TestValuesAreDeterministic"})

	va := a.Values(16)
	assert.Equal(t, va, b.Values(16))
	seen := map[[ValueBytes]byte]bool{}
	for _, v := range va {
		assert.Zero(t, v[0])
		assert.False(t, seen[v])
		seen[v] = true
	}
}

func TestCallCounterCounts(t *testing.T) {
	var c TestCallCounter
	assert.Equal(t, 0, c.MethodCallCount("Verify"))
	assert.Equal(t, 1, c.IncMethodCall("Verify"))
	assert.Equal(t, 2, c.IncMethodCall("Verify"))
	assert.Equal(t, 2, c.MethodCallCount("Verify"))
	c.IncMethodCall("Apply")
	assert.Equal(t, map[string]int{"Verify": 2, "Apply": 1}, c.Counts())
	c.Reset()
	assert.Empty(t, c.Counts())
	assert.Equal(t, 0, c.MethodCallCount("Verify"))
}
