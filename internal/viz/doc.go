// Package viz is the terminal monitor for a running bridge.
//
// The scene is drawn on a Braille canvas through a rotatable camera; the
// side panel shows the cursor force, contacts and an asciigraph history of
// force or energy.
//
// # Key Bindings
//
//	Space       - Pause/Resume
//	Arrows      - Move the probe in x/z
//	PgUp/PgDn   - Move the probe in y
//	G           - Grab the nearest object, or release
//	E           - Push the cursor up for a few ticks
//	P           - Plot force or energy
//	T           - Cycle color themes
//	x/y/z, +/-  - Rotate and zoom the camera
//	?           - Show help overlay
package viz
