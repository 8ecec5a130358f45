package bridge

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/hapsim/internal/scene"
)

const (
	OpCreate  = "create"
	OpJoin    = "join"
	OpSet     = "set"
	OpDelete  = "delete"
	OpGrab    = "grab"
	OpRelease = "release"
	OpGravity = "gravity"
	OpProbe   = "probe"
)

// Command is one control message. Each resolves to one factory call or one
// attribute write.
type Command struct {
	Op      string               `yaml:"op"`
	Name    string               `yaml:"name,omitempty"`
	Kind    string               `yaml:"kind,omitempty"`
	Attr    string               `yaml:"attr,omitempty"`
	Value   []float64            `yaml:"value,omitempty"`
	Init    map[string][]float64 `yaml:"init,omitempty"`
	Mesh    string               `yaml:"mesh,omitempty"`
	OpenTop bool                 `yaml:"open_top,omitempty"`
	A       string               `yaml:"a,omitempty"`
	B       string               `yaml:"b,omitempty"`
	Anchor  []float64            `yaml:"anchor,omitempty"`
	Axis    []float64            `yaml:"axis,omitempty"`
}

func (c Command) String() string {
	if c.Name == "" {
		return c.Op
	}
	return c.Op + " " + c.Name
}

// Apply dispatches one command.
func (b *Bridge) Apply(c Command) error {
	switch c.Op {
	case OpCreate:
		sp, err := c.spec()
		if err != nil {
			return err
		}
		_, err = b.Create(sp)
		return err
	case OpJoin:
		kind, err := scene.ParseKind(c.Kind)
		if err != nil {
			return err
		}
		anchor, err := optVec("anchor", c.Anchor)
		if err != nil {
			return err
		}
		axis, err := optVec("axis", c.Axis)
		if err != nil {
			return err
		}
		_, err = b.Join(c.Name, kind, c.A, c.B, anchor, axis)
		return err
	case OpSet:
		a, err := scene.ParseAttr(c.Attr)
		if err != nil {
			return err
		}
		v, err := scene.FromFloats(a, c.Value)
		if err != nil {
			return err
		}
		return b.Set(c.Name, a, v)
	case OpDelete:
		b.Delete(c.Name)
		return nil
	case OpGrab:
		return b.Grab(c.Name)
	case OpRelease:
		return b.Release(c.Name)
	case OpGravity:
		g, err := vec("gravity", c.Value)
		if err != nil {
			return err
		}
		b.SetGravity(g)
		return nil
	case OpProbe:
		p, err := vec("probe", c.Value)
		if err != nil {
			return err
		}
		return b.MoveProbe(p)
	}
	return fmt.Errorf("%w: unknown op %q", ErrBadArgument, c.Op)
}

func (c Command) spec() (Spec, error) {
	kind, err := scene.ParseKind(c.Kind)
	if err != nil {
		return Spec{}, err
	}
	sp := Spec{Name: c.Name, Kind: kind, Mesh: c.Mesh, OpenTop: c.OpenTop}
	if len(c.Init) == 0 {
		return sp, nil
	}

	names := make([]string, 0, len(c.Init))
	for n := range c.Init {
		names = append(names, n)
	}
	sort.Strings(names)
	sp.Init = make(map[scene.Attr]scene.Value, len(names))
	for _, n := range names {
		a, err := scene.ParseAttr(n)
		if err != nil {
			return Spec{}, err
		}
		v, err := scene.FromFloats(a, c.Init[n])
		if err != nil {
			return Spec{}, err
		}
		sp.Init[a] = v
	}
	return sp, nil
}

func vec(field string, v []float64) (mgl64.Vec3, error) {
	if len(v) != 3 {
		return mgl64.Vec3{}, fmt.Errorf("%w: %s takes 3 values, got %d", ErrBadArgument, field, len(v))
	}
	return mgl64.Vec3{v[0], v[1], v[2]}, nil
}

func optVec(field string, v []float64) (mgl64.Vec3, error) {
	if len(v) == 0 {
		return mgl64.Vec3{}, nil
	}
	return vec(field, v)
}
