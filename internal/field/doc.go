// Package field owns the particle grid and the frame renderer.
//
// A [Grid] stores one particle per pixel. A [Renderer] advances every
// particle by a number of steps, classifies the result and writes one
// frame. Rows are rendered concurrently; particles never share state, so
// the output does not depend on the worker count.
package field
