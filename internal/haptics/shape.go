package haptics

import (
	"sync/atomic"

	"github.com/san-kum/hapsim/internal/render"
	"github.com/san-kum/hapsim/internal/scene"
)

const shapeAttrs = 1<<scene.AttrPosition | 1<<scene.AttrRotation | 1<<scene.AttrRadius |
	1<<scene.AttrSize | 1<<scene.AttrColor | 1<<scene.AttrVisible |
	1<<scene.AttrFrictionStatic | 1<<scene.AttrFrictionDynamic | 1<<scene.AttrGrab

// Shape is the render binding of a sphere, prism or mesh. Fields are guarded
// by the owning Sim's mutex.
type Shape struct {
	sim   *Sim
	obj   *scene.Object
	shape *render.Shape
	base  *render.Mesh

	dirty atomic.Uint32

	openTop   bool
	revision  uint64
	destroyed bool
}

func (s *Sim) newSphere(o *scene.Object, _ ShapeOptions) (binding, error) {
	return s.addShape(o, render.NewSphere(o.Radius()), nil, false), nil
}

func (s *Sim) newPrism(o *scene.Object, opts ShapeOptions) (binding, error) {
	m := render.BoxMesh(o.Size(), opts.OpenTop)
	return s.addShape(o, render.NewMeshShape(m), nil, opts.OpenTop), nil
}

func (s *Sim) newMesh(o *scene.Object, opts ShapeOptions) (binding, error) {
	if opts.MeshPath == "" {
		return nil, ErrNoMeshFile
	}
	base, err := render.LoadOBJFile(opts.MeshPath)
	if err != nil {
		return nil, err
	}
	return s.addShape(o, render.NewMeshShape(base.ScaleToSize(o.Size())), base, false), nil
}

func (s *Sim) addShape(o *scene.Object, rs *render.Shape, base *render.Mesh, openTop bool) *Shape {
	sh := &Shape{sim: s, obj: o, shape: rs, base: base, openTop: openTop}
	rs.Data = sh
	sh.applyMaterial()
	rs.SetVisible(o.Visible())
	pos, rot := o.Pose()
	rs.SetPose(pos, rot)
	sh.revision = o.Revision()

	s.world.AddShape(rs)
	s.shapes = append(s.shapes, sh)
	s.structural = true
	return sh
}

func (sh *Shape) applyMaterial() {
	o := sh.obj
	sh.shape.Material.Diffuse = o.Color()
	sh.shape.Material.StaticFriction = o.FrictionStatic()
	sh.shape.Material.DynamicFriction = o.FrictionDynamic()
}

func (sh *Shape) AttributeChanged(_ *scene.Object, a scene.Attr) {
	if a.Bit()&shapeAttrs == 0 {
		return
	}
	if sh.dirty.Or(a.Bit()) == 0 {
		sh.sim.loop.Post(sh.flush)
	}
}

func (sh *Shape) flush() {
	mask := sh.dirty.Swap(0)
	s := sh.sim
	s.mu.Lock()
	defer s.mu.Unlock()
	if sh.destroyed {
		return
	}

	o, rs := sh.obj, sh.shape
	for _, a := range scene.Attrs(mask) {
		switch a {
		case scene.AttrPosition, scene.AttrRotation:
			pos, rot := o.Pose()
			rs.SetPose(pos, rot)
			s.structural = true
		case scene.AttrRadius:
			rs.SetRadius(o.Radius())
		case scene.AttrSize:
			if rs.Kind() != render.ShapeMesh {
				break
			}
			if sh.base != nil {
				rs.SetMesh(sh.base.ScaleToSize(o.Size()))
			} else {
				rs.SetMesh(render.BoxMesh(o.Size(), sh.openTop))
			}
			s.structural = true
		case scene.AttrColor, scene.AttrFrictionStatic, scene.AttrFrictionDynamic:
			sh.applyMaterial()
		case scene.AttrVisible:
			rs.SetVisible(o.Visible())
		case scene.AttrGrab:
			sh.grabChanged()
		}
	}
	sh.revision = o.Revision()
}

func (sh *Shape) grabChanged() {
	c := sh.sim.cursor
	if c == nil {
		sh.sim.logger.Printf("haptics: %s: %v", sh.obj.Name(), ErrNoCursor)
		_ = sh.obj.SetFromSimulation(scene.AttrGrab, scene.Flag(false))
		return
	}
	if !sh.obj.Grab() {
		if c.grabbedObject() == sh.obj {
			c.release()
		}
		return
	}
	if err := c.grasp(sh.obj); err != nil {
		sh.sim.logger.Printf("haptics: %v", err)
		_ = sh.obj.SetFromSimulation(scene.AttrGrab, scene.Flag(false))
	}
}

// resync picks up pose changes published without notification.
func (sh *Shape) resync() {
	if sh.destroyed {
		return
	}
	if rev := sh.obj.Revision(); rev != sh.revision {
		pos, rot := sh.obj.Pose()
		sh.shape.SetPose(pos, rot)
		sh.revision = rev
	}
}

// Render exposes the shape for inspection on the haptics loop.
func (sh *Shape) Render() *render.Shape { return sh.shape }

func (sh *Shape) Destroy() bool {
	s := sh.sim
	s.mu.Lock()
	defer s.mu.Unlock()
	if sh.destroyed {
		return false
	}
	sh.destroyed = true
	if c := s.cursor; c != nil && c.grabbedObject() == sh.obj {
		c.release()
	}
	s.world.RemoveShape(sh.shape)
	for i, o := range s.shapes {
		if o == sh {
			s.shapes = append(s.shapes[:i], s.shapes[i+1:]...)
			break
		}
	}
	s.structural = true
	return true
}
