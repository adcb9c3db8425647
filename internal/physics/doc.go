// Package physics holds the per-particle integration step and the placement
// of the attracting masses.
//
//   - [Particle]: one massless body, advanced with [Particle.Advance]
//   - [Derive]: triangle, line and random three-mass layouts
//   - [MassConfig]: the full layout description, including rings and
//     explicit positions
//
// The force law is a softened inverse square chosen for the picture it
// produces:
//
//	a = Σ (m - p) * G / (|m - p|² + softening)
package physics
