// File: pkg/climbenv/spec.go
package climbenv

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Cardinality indicates whether the values a Spec describes are continuous
// or discrete.
type Cardinality string

const (
	Continuous Cardinality = "Continuous"
	Discrete   Cardinality = "Discrete"
)

// Spec describes the shape and bounds of one part of the agent interface so
// that agents can size their inputs and outputs without touching the game.
type Spec struct {
	Shape       []int
	LowerBound  *mat.VecDense
	UpperBound  *mat.VecDense
	Cardinality Cardinality
}

// ObservationSpec describes both parts of the observation record.
type ObservationSpec struct {
	Numeric Spec
	Grid    Spec
}

// ActionSpec returns the specification of the 6-element control vector.
func ActionSpec() Spec {
	low := make([]float64, ActionSize)
	high := make([]float64, ActionSize)
	for i := 0; i < ActionSize; i++ {
		low[i] = -1.0
		high[i] = 1.0
	}
	return Spec{
		Shape:       []int{ActionSize},
		LowerBound:  mat.NewVecDense(ActionSize, low),
		UpperBound:  mat.NewVecDense(ActionSize, high),
		Cardinality: Continuous,
	}
}

// NewObservationSpec returns the specification of the observation record:
// an unbounded 17-vector of player and limb state, and a 50x50 occupancy
// grid in [0, 1].
func NewObservationSpec() ObservationSpec {
	numLow := make([]float64, NumericSize)
	numHigh := make([]float64, NumericSize)
	for i := 0; i < NumericSize; i++ {
		numLow[i] = math.Inf(-1)
		numHigh[i] = math.Inf(1)
	}

	cells := GridRows * GridCols
	gridLow := make([]float64, cells)
	gridHigh := make([]float64, cells)
	for i := 0; i < cells; i++ {
		gridHigh[i] = 1.0
	}

	return ObservationSpec{
		Numeric: Spec{
			Shape:       []int{NumericSize},
			LowerBound:  mat.NewVecDense(NumericSize, numLow),
			UpperBound:  mat.NewVecDense(NumericSize, numHigh),
			Cardinality: Continuous,
		},
		Grid: Spec{
			Shape:       []int{GridRows, GridCols},
			LowerBound:  mat.NewVecDense(cells, gridLow),
			UpperBound:  mat.NewVecDense(cells, gridHigh),
			Cardinality: Continuous,
		},
	}
}
