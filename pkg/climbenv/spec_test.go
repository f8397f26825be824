// File: pkg/climbenv/spec_test.go
package climbenv

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActionSpec(t *testing.T) {
	spec := ActionSpec()

	assert.Equal(t, []int{ActionSize}, spec.Shape)
	assert.Equal(t, Continuous, spec.Cardinality)
	for i := 0; i < ActionSize; i++ {
		assert.Equal(t, -1.0, spec.LowerBound.AtVec(i))
		assert.Equal(t, 1.0, spec.UpperBound.AtVec(i))
	}
}

func TestObservationSpec(t *testing.T) {
	spec := NewObservationSpec()

	assert.Equal(t, []int{NumericSize}, spec.Numeric.Shape)
	assert.True(t, math.IsInf(spec.Numeric.LowerBound.AtVec(0), -1))
	assert.True(t, math.IsInf(spec.Numeric.UpperBound.AtVec(NumericSize-1), 1))

	assert.Equal(t, []int{GridRows, GridCols}, spec.Grid.Shape)
	assert.Equal(t, 0.0, spec.Grid.LowerBound.AtVec(0))
	assert.Equal(t, 1.0, spec.Grid.UpperBound.AtVec(GridRows*GridCols-1))
}
