// Package haptics binds scene objects to the force-render world in [render]
// and runs the haptic loop.
//
// Every tick the [Cursor] reads the device probe, integrates a virtual mass
// coupled to it, adds grasp, contact and scripted forces, clamps the sum and
// sends it to the device. A held object is integrated here at the haptic
// rate and written back to the scene; its dynamics body is disconnected for
// the duration of the grasp.
package haptics
