package scene

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Attr identifies one mutable attribute of an Object.
type Attr int

const (
	AttrPosition Attr = iota
	AttrVelocity
	AttrRotation
	AttrRadius
	AttrSize
	AttrColor
	AttrVisible
	AttrFrictionStatic
	AttrFrictionDynamic
	AttrMass
	AttrForce
	AttrTorque
	AttrGrab

	numAttrs
)

var attrNames = [numAttrs]string{
	AttrPosition:        "position",
	AttrVelocity:        "velocity",
	AttrRotation:        "rotation",
	AttrRadius:          "radius",
	AttrSize:            "size",
	AttrColor:           "color",
	AttrVisible:         "visible",
	AttrFrictionStatic:  "friction_static",
	AttrFrictionDynamic: "friction_dynamic",
	AttrMass:            "mass",
	AttrForce:           "force",
	AttrTorque:          "torque",
	AttrGrab:            "grab",
}

func (a Attr) String() string {
	if a < 0 || a >= numAttrs {
		return fmt.Sprintf("attr(%d)", int(a))
	}
	return attrNames[a]
}

// Bit is the attribute's position in a dirty mask.
func (a Attr) Bit() uint32 { return 1 << uint(a) }

// Attrs lists the attributes set in a dirty mask, in declaration order.
func Attrs(mask uint32) []Attr {
	var out []Attr
	for a := Attr(0); a < numAttrs; a++ {
		if mask&a.Bit() != 0 {
			out = append(out, a)
		}
	}
	return out
}

func ParseAttr(name string) (Attr, error) {
	for a, n := range attrNames {
		if n == name {
			return Attr(a), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAttr, name)
}

type valueKind int

const (
	kindNone valueKind = iota
	kindVec
	kindMat
	kindNum
	kindFlag
)

func (a Attr) valueKind() valueKind {
	switch a {
	case AttrPosition, AttrVelocity, AttrSize, AttrColor, AttrForce:
		return kindVec
	case AttrRotation:
		return kindMat
	case AttrVisible, AttrGrab:
		return kindFlag
	default:
		return kindNum
	}
}

// Value carries one attribute value of any shape.
type Value struct {
	kind valueKind
	vec  mgl64.Vec3
	mat  mgl64.Mat3
	num  float64
}

func Vec(x, y, z float64) Value { return Value{kind: kindVec, vec: mgl64.Vec3{x, y, z}} }
func VecOf(v mgl64.Vec3) Value  { return Value{kind: kindVec, vec: v} }
func Rot(m mgl64.Mat3) Value    { return Value{kind: kindMat, mat: m} }
func Num(f float64) Value       { return Value{kind: kindNum, num: f} }

func Flag(b bool) Value {
	if b {
		return Value{kind: kindFlag, num: 1}
	}
	return Value{kind: kindFlag}
}

func (v Value) Vec3() mgl64.Vec3 { return v.vec }
func (v Value) Mat3() mgl64.Mat3 { return v.mat }
func (v Value) Float() float64   { return v.num }
func (v Value) Bool() bool       { return v.num != 0 }

// FromFloats builds the value for an attribute from a flat argument list,
// the shape control messages arrive in.
func FromFloats(a Attr, args []float64) (Value, error) {
	switch a.valueKind() {
	case kindVec:
		if len(args) != 3 {
			return Value{}, fmt.Errorf("%w: %s takes 3 values, got %d", ErrTypeMismatch, a, len(args))
		}
		return Vec(args[0], args[1], args[2]), nil
	case kindMat:
		if len(args) != 9 {
			return Value{}, fmt.Errorf("%w: %s takes 9 values, got %d", ErrTypeMismatch, a, len(args))
		}
		// row-major on the wire, mgl64 is column-major
		m := mgl64.Mat3FromRows(
			mgl64.Vec3{args[0], args[1], args[2]},
			mgl64.Vec3{args[3], args[4], args[5]},
			mgl64.Vec3{args[6], args[7], args[8]},
		)
		return Rot(m), nil
	case kindFlag:
		if len(args) != 1 {
			return Value{}, fmt.Errorf("%w: %s takes 1 value, got %d", ErrTypeMismatch, a, len(args))
		}
		return Flag(args[0] != 0), nil
	default:
		if len(args) != 1 {
			return Value{}, fmt.Errorf("%w: %s takes 1 value, got %d", ErrTypeMismatch, a, len(args))
		}
		return Num(args[0]), nil
	}
}
