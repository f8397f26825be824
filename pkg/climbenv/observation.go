// File: pkg/climbenv/observation.go
package climbenv

import (
	"encoding/json"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Observation shapes. These hold for every reset and step result, including
// after an internal recovery reload.
const (
	NumericSize = 17
	GridRows    = 50
	GridCols    = 50
)

// Indices into the numeric observation vector. The first five entries are
// player state; the remaining twelve are 4 limbs x {x, y, state}.
const (
	NumericRelX = iota
	NumericWorldX
	NumericWorldY
	NumericVertVelocity
	NumericStamina
	numericLimbBase // limb i field j lives at numericLimbBase + 3*i + j
)

// Observation is the state snapshot the game returns after reset and step:
// a 17-element numeric vector and a 50x50 local wall-occupancy grid with
// values in [0, 1]. A fresh value is produced on every call.
type Observation struct {
	Numeric *mat.VecDense
	Grid    *mat.Dense
}

// observationPayload is the wire form produced by the game's entry points.
// The grid arrives either flattened (2500 numbers) or nested (50 rows of 50).
type observationPayload struct {
	Numeric []float64       `json:"numeric"`
	Grid    json.RawMessage `json:"grid"`
}

// toObservation reshapes the wire payload into the fixed observation shapes.
// A payload that cannot be reshaped is reported as a conversion error; no
// deeper validation of the values happens here.
func (p observationPayload) toObservation() (Observation, error) {
	if len(p.Numeric) != NumericSize {
		return Observation{}, fmt.Errorf("numeric observation has %d elements, want %d", len(p.Numeric), NumericSize)
	}

	grid, err := decodeGrid(p.Grid)
	if err != nil {
		return Observation{}, err
	}

	numeric := make([]float64, NumericSize)
	copy(numeric, p.Numeric)

	return Observation{
		Numeric: mat.NewVecDense(NumericSize, numeric),
		Grid:    grid,
	}, nil
}

// decodeGrid accepts both grid wire forms and reshapes to 50x50.
func decodeGrid(raw json.RawMessage) (*mat.Dense, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("observation payload has no grid")
	}

	var nested [][]float64
	if err := json.Unmarshal(raw, &nested); err == nil {
		if len(nested) != GridRows {
			return nil, fmt.Errorf("grid has %d rows, want %d", len(nested), GridRows)
		}
		flat := make([]float64, 0, GridRows*GridCols)
		for i, row := range nested {
			if len(row) != GridCols {
				return nil, fmt.Errorf("grid row %d has %d columns, want %d", i, len(row), GridCols)
			}
			flat = append(flat, row...)
		}
		return mat.NewDense(GridRows, GridCols, flat), nil
	}

	var flat []float64
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("grid is neither a flat nor a nested number array: %w", err)
	}
	if len(flat) != GridRows*GridCols {
		return nil, fmt.Errorf("flat grid has %d elements, want %d", len(flat), GridRows*GridCols)
	}
	return mat.NewDense(GridRows, GridCols, flat), nil
}
