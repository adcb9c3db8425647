// Package dynamo provides the primitives shared by every part of the field
// simulation.
//
//   - [Mass]: a fixed attractor position
//   - [Params]: gravity, softening and integration step
//   - [ParallelFor]: chunked worker pool used by the frame renderer
//   - domain errors such as [ErrSinkClosed] and [FrameError]
//
// # Example
//
//	masses, _ := physics.Derive(physics.Triangle, 500, 500, 200, nil)
//	grid, _ := field.NewGrid(500, 500)
//	r := field.NewRenderer(dynamo.DefaultParams(), masses, classify.NewWeighted(), 0)
//	err := r.RenderFrame(ctx, grid, 100, img)
//
// # Thread Safety
//
// Mass and Params are values and safe to share. Particle grids are not: a
// grid belongs to exactly one render pass at a time.
package dynamo
