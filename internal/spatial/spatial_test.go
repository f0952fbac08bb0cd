package spatial

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransform_Formula(t *testing.T) {
	cases := []struct {
		name     string
		position Vector2
		velocity Vector2
	}{
		{"origin", Vector2{}, Vector2{}},
		{"positive", Vector2{X: 120, Y: 40}, Vector2{X: 5, Y: -3}},
		{"negative", Vector2{X: -250, Y: -10}, Vector2{X: -1, Y: 7.5}},
		{"fractional", Vector2{X: 0.25, Y: 1e-6}, Vector2{X: 1e6, Y: -1e6}},
		{"large", Vector2{X: math.MaxFloat64 / 2, Y: -math.MaxFloat64 / 2}, Vector2{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			attrs, err := Transform(tc.position, tc.velocity)
			require.NoError(t, err)

			assert.Equal(t, -tc.position.X/10, attrs.Position.X)
			assert.Equal(t, tc.position.Y/10, attrs.Position.Y)
			assert.Equal(t, 0.0, attrs.Position.Z)
			assert.Equal(t, -tc.velocity.X/10, attrs.Velocity.X)
			assert.Equal(t, tc.velocity.Y/10, attrs.Velocity.Y)
			assert.Equal(t, 0.0, attrs.Velocity.Z)
		})
	}
}

func TestTransform_FixedOrientation(t *testing.T) {
	attrs, err := Transform(Vector2{X: 3, Y: 4}, Vector2{X: 1, Y: 1})
	require.NoError(t, err)

	assert.Equal(t, Vector3{X: 0, Y: 0, Z: 1}, attrs.Forward)
	assert.Equal(t, Vector3{X: 0, Y: -1, Z: 0}, attrs.Up)
}

func TestTransform_Deterministic(t *testing.T) {
	p := Vector2{X: 33.3, Y: -71.1}
	v := Vector2{X: 0.1, Y: 0.2}

	first, err := Transform(p, v)
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		again, err := Transform(p, v)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestTransform_RejectsNonFinite(t *testing.T) {
	nan := math.NaN()
	inf := math.Inf(1)
	ninf := math.Inf(-1)

	cases := []struct {
		name     string
		position Vector2
		velocity Vector2
		vector   string
		axis     string
		class    NonFiniteClass
	}{
		{"position x NaN", Vector2{X: nan}, Vector2{}, "position", "x", ClassNaN},
		{"position y NaN", Vector2{Y: nan}, Vector2{}, "position", "y", ClassNaN},
		{"position x +Inf", Vector2{X: inf}, Vector2{}, "position", "x", ClassInfinite},
		{"position y -Inf", Vector2{Y: ninf}, Vector2{}, "position", "y", ClassInfinite},
		{"velocity x NaN", Vector2{}, Vector2{X: nan}, "velocity", "x", ClassNaN},
		{"velocity y +Inf", Vector2{}, Vector2{Y: inf}, "velocity", "y", ClassInfinite},
		{"position reported before velocity", Vector2{Y: inf}, Vector2{X: nan}, "position", "y", ClassInfinite},
		{"x reported before y", Vector2{X: ninf, Y: nan}, Vector2{}, "position", "x", ClassInfinite},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			attrs, err := Transform(tc.position, tc.velocity)
			require.Error(t, err)
			assert.Equal(t, Attributes3D{}, attrs, "no partial conversion on failure")

			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tc.vector, ve.Vector)
			assert.Equal(t, tc.axis, ve.Axis)
			assert.Equal(t, tc.class, ve.Class)
		})
	}
}

func TestValidationError_Message(t *testing.T) {
	err := Validate(Vector2{X: math.NaN()}, Vector2{})
	require.Error(t, err)
	assert.Equal(t, "position.x is NaN", err.Error())

	err = Validate(Vector2{}, Vector2{Y: math.Inf(-1)})
	require.Error(t, err)
	assert.Equal(t, "velocity.y is infinite", err.Error())
}
