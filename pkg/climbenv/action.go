// File: pkg/climbenv/action.go
package climbenv

import "math/rand"

// ActionSize is the fixed length of the control vector sent to the game.
const ActionSize = 6

// Action component indices. Every component is a real number in [-1, 1];
// how each is interpreted (limb mapping, reach scaling, trigger thresholds)
// is entirely the game's business.
const (
	ActionLimb     = iota // limb selector
	ActionTargetDX        // target delta-x
	ActionTargetDY        // target delta-y
	ActionGrab            // grab trigger
	ActionPiton           // piton trigger
	ActionMoveX           // ground movement
)

// Action is the control vector sent to the game each step. It marshals to a
// JSON array of 6 numbers, which is exactly the wire form window.step expects.
type Action [ActionSize]float64

// SampleAction draws a uniformly random action from [-1, 1]^6.
func SampleAction(rng *rand.Rand) Action {
	var a Action
	for i := range a {
		a[i] = rng.Float64()*2 - 1
	}
	return a
}
