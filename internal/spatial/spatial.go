// Package spatial converts application screen-space motion into the audio
// engine's 3D coordinate system.
//
// Application space is pixel based: +X points right and +Y points down
// (gravity pulls toward +Y). The engine receives meters with X mirrored and
// "up" fixed to -Y:
//
//	engine_position = (-px/10, py/10, 0)
//	engine_velocity = (-vx/10, vy/10, 0)
//
// Orientation never varies: forward is (0,0,1) and up is (0,-1,0) for every
// instance and listener.
package spatial

import (
	"fmt"
	"math"
)

// PixelsPerMeter is the application-to-engine distance scale.
const PixelsPerMeter = 10.0

// Vector2 is a position or velocity in application pixel space.
type Vector2 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Vector3 is a position, velocity, or direction in engine space.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Attributes3D is the full spatial state pushed to the engine for an
// instance or listener.
type Attributes3D struct {
	Position Vector3 `json:"position"`
	Velocity Vector3 `json:"velocity"`
	Forward  Vector3 `json:"forward"`
	Up       Vector3 `json:"up"`
}

var (
	// Forward is the fixed forward orientation.
	Forward = Vector3{X: 0, Y: 0, Z: 1}

	// Up is the fixed up orientation.
	Up = Vector3{X: 0, Y: -1, Z: 0}
)

// Transform validates position and velocity and converts them to engine
// attributes. Nothing is returned when validation fails.
func Transform(position, velocity Vector2) (Attributes3D, error) {
	if err := Validate(position, velocity); err != nil {
		return Attributes3D{}, err
	}
	return Attributes3D{
		Position: convert(position),
		Velocity: convert(velocity),
		Forward:  Forward,
		Up:       Up,
	}, nil
}

func convert(v Vector2) Vector3 {
	return Vector3{
		X: -v.X / PixelsPerMeter,
		Y: v.Y / PixelsPerMeter,
		Z: 0,
	}
}

// Validate checks that both vectors are finite. Position is checked first,
// then velocity, X before Y.
func Validate(position, velocity Vector2) error {
	if err := checkFinite("position", position); err != nil {
		return err
	}
	return checkFinite("velocity", velocity)
}

func checkFinite(name string, v Vector2) error {
	for _, c := range []struct {
		axis  string
		value float64
	}{{"x", v.X}, {"y", v.Y}} {
		switch {
		case math.IsNaN(c.value):
			return &ValidationError{Vector: name, Axis: c.axis, Class: ClassNaN}
		case math.IsInf(c.value, 0):
			return &ValidationError{Vector: name, Axis: c.axis, Class: ClassInfinite}
		}
	}
	return nil
}

// NonFiniteClass distinguishes the two ways a component can be non-finite.
type NonFiniteClass string

const (
	// ClassNaN marks a NaN component.
	ClassNaN NonFiniteClass = "NaN"

	// ClassInfinite marks a +Inf or -Inf component.
	ClassInfinite NonFiniteClass = "infinite"
)

// ValidationError reports a non-finite vector component.
type ValidationError struct {
	// Vector is "position" or "velocity".
	Vector string

	// Axis is "x" or "y".
	Axis string

	// Class says whether the component was NaN or infinite.
	Class NonFiniteClass
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s.%s is %s", e.Vector, e.Axis, e.Class)
}
