// Package domain holds the pure encounter rules: the resource ledger for
// hit-point transitions, the initiative sequencer, the turn clock, and the
// encounter aggregate that ties them together. Every operation is a function
// over an immutable snapshot; persistence and dice rolling live behind
// interfaces in the service layer.
package domain
