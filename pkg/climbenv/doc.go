// Package climbenv exposes the browser-hosted climbing game as a
// reinforcement-learning environment with a reset/step/close contract.
//
// The game simulation lives entirely inside the page loaded by the browser
// session and is reached through two JSON-producing entry points,
// window.resetGame() and window.step(action). The adapter launches Chrome,
// marshals JSON across that script-evaluation channel, and reshapes the
// results into fixed-size gonum vectors and matrices. It interprets none of
// the game's values beyond shape coercion.
package climbenv
