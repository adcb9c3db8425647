// Package viz renders gravity snapshot runs in the terminal.
//
//   - [Preview]: a frame sink showing each finished frame as half blocks
//     beside a chart of basin shares; quitting it stops the run
//   - [ProbeModel]: an interactive single particle explorer driven by the
//     mouse, drawn on a Braille [Canvas]
//
// # Key Bindings
//
//	Q     - Quit (preview and probe)
//	Space - Pause/Resume the probe particle
//	+/-   - Probe steps per tick
//	C     - Clear the probe trail
package viz
