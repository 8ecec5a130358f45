package bridge

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/hapsim/internal/physics"
)

type ObjectState struct {
	Name     string     `json:"name"`
	Kind     string     `json:"kind"`
	Position mgl64.Vec3 `json:"position"`
	Velocity mgl64.Vec3 `json:"velocity"`
	Grab     bool       `json:"grab,omitempty"`
}

type Snapshot struct {
	Time        float64             `json:"time"`
	Objects     []ObjectState       `json:"objects"`
	Cursor      mgl64.Vec3          `json:"cursor"`
	CursorForce mgl64.Vec3          `json:"cursor_force"`
	Held        string              `json:"held,omitempty"`
	Contacts    int                 `json:"contacts"`
	Collisions  []physics.Collision `json:"collisions,omitempty"`
}

// Snapshot reads the current state of every object, sorted by name.
func (b *Bridge) Snapshot() Snapshot {
	snap := Snapshot{
		Time:       b.Time(),
		Contacts:   b.physics.LastStepContacts(),
		Collisions: b.physics.Collisions(),
	}
	for _, o := range b.graph.List() {
		if o.Kind().IsJoint() {
			continue
		}
		snap.Objects = append(snap.Objects, ObjectState{
			Name:     o.Name(),
			Kind:     o.Kind().String(),
			Position: o.Position(),
			Velocity: o.Velocity(),
			Grab:     o.Grab(),
		})
	}
	if c := b.haptics.Cursor(); c != nil {
		snap.Cursor = c.MassPosition()
		snap.CursorForce = c.Force()
		if h := c.Grabbed(); h != nil {
			snap.Held = h.Name()
		}
	}
	return snap
}

// Find returns the state of the named object.
func (s Snapshot) Find(name string) (ObjectState, bool) {
	for _, o := range s.Objects {
		if o.Name == name {
			return o, true
		}
	}
	return ObjectState{}, false
}
