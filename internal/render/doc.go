// Package render is the force-render side of the bridge: a [World] of
// touchable [Shape] values, the haptic [Pointer] and the [Device] that
// supplies probe positions and receives forces.
//
// World and Shape are not safe for concurrent use; the haptics loop owns
// them. Devices are safe for concurrent use.
package render
