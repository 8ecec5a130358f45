package physics

import (
	"io"
	"log"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/hapsim/internal/config"
	"github.com/san-kum/hapsim/internal/scene"
)

var _ = Describe("Sim", func() {
	var (
		s     *Sim
		graph *scene.Graph
	)

	create := func(name string, kind scene.Kind, pos mgl64.Vec3, js JointSpec) (*scene.Object, any) {
		o := scene.New(name, kind)
		Expect(o.SetFromRequest(scene.AttrPosition, scene.VecOf(pos))).To(Succeed())
		Expect(graph.Add(o)).To(Succeed())
		b, err := s.Create(o, js)
		Expect(err).NotTo(HaveOccurred())
		return o, b
	}

	steps := func(n int) {
		for i := 0; i < n; i++ {
			Expect(s.Loop().Tick()).To(Succeed())
		}
	}

	BeforeEach(func() {
		cfg := config.DefaultConfig().Physics
		cfg.Gravity = []float64{0, 0, -9.81}
		s = New(cfg, log.New(io.Discard, "", 0))
		Expect(s.Initialize()).To(Succeed())
		graph = scene.NewGraph()
	})

	AfterEach(func() {
		s.Shutdown()
	})

	Describe("dropping a sphere onto an anchored sphere", func() {
		var s1, s2 *scene.Object

		BeforeEach(func() {
			s1, _ = create("s1", scene.KindSphere, mgl64.Vec3{}, JointSpec{})
			s2, _ = create("s2", scene.KindSphere, mgl64.Vec3{0, 0, 2}, JointSpec{})
			create("anchor", scene.KindFixed, mgl64.Vec3{}, JointSpec{A: s1})
		})

		It("comes to rest on top", func() {
			steps(300)
			Expect(s2.Position().Z()).To(BeNumerically("~", 1.0, 0.05))
			Expect(s2.Velocity().Len()).To(BeNumerically("<", 0.1))
			Expect(s1.Position().Len()).To(BeNumerically("<", 0.02))
		})

		It("releases every contact at the end of the step", func() {
			touched := false
			for i := 0; i < 300; i++ {
				steps(1)
				if s.LastStepContacts() > 0 {
					touched = true
				}
				Expect(s.ActiveContacts()).To(BeZero())
			}
			Expect(touched).To(BeTrue())
		})

		It("lets the top sphere fall freely once the base is deleted", func() {
			s.Destroy(s1)
			graph.Remove("s1")
			steps(100)
			Expect(s2.Position().Z()).To(BeNumerically("<", 0))
			Expect(s.ConstraintCount()).To(BeZero())
		})
	})

	Describe("a pendulum on a world hinge", func() {
		var (
			bob   *scene.Object
			hinge *Constraint
		)

		BeforeEach(func() {
			bob, _ = create("bob", scene.KindSphere, mgl64.Vec3{1, 0, 0}, JointSpec{})
			_, b := create("pivot", scene.KindHinge, mgl64.Vec3{}, JointSpec{A: bob, Axis: mgl64.Vec3{0, 1, 0}})
			hinge = b.(*Constraint)
		})

		It("swings below the pivot at constant radius", func() {
			lowest := 0.0
			for i := 0; i < 100; i++ {
				steps(1)
				Expect(bob.Position().Len()).To(BeNumerically("~", 1.0, 0.05))
				lowest = min(lowest, bob.Position().Z())
			}
			Expect(lowest).To(BeNumerically("<", -0.5))
			Expect(hinge.Rate()).NotTo(BeZero())
		})

		It("is released exactly once", func() {
			s.Destroy(bob)
			Expect(hinge.Destroy()).To(BeFalse())
		})
	})

	Describe("prisms", func() {
		It("stack on a static floor", func() {
			floor, floorBody := create("floor", scene.KindPrism, mgl64.Vec3{0, 0, -0.5}, JointSpec{})
			floor.SetFromRequest(scene.AttrSize, scene.Vec(10, 10, 1))
			create("pin", scene.KindFixed, mgl64.Vec3{}, JointSpec{A: floor})
			box, _ := create("box", scene.KindPrism, mgl64.Vec3{0, 0, 1}, JointSpec{})

			steps(300)
			Expect(floorBody.(*Body).Position().Len()).To(BeNumerically("~", 0.5, 0.02))
			Expect(box.Position().Z()).To(BeNumerically("~", 0.5, 0.05))
		})
	})
})
