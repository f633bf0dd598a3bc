package geometry

import (
	"math"
	"testing"
)

func TestVec3_Basics(t *testing.T) {
	a := Vec3{1, 2, 3}
	b := Vec3{4, 5, 6}

	if got := a.Add(b); got != (Vec3{5, 7, 9}) {
		t.Errorf("Add: got %+v", got)
	}
	if got := b.Sub(a); got != (Vec3{3, 3, 3}) {
		t.Errorf("Sub: got %+v", got)
	}
	if got := a.Scale(2); got != (Vec3{2, 4, 6}) {
		t.Errorf("Scale: got %+v", got)
	}
	if got := a.Dot(b); got != 32 {
		t.Errorf("Dot: expected 32, got %v", got)
	}
}

func TestVec3_Cross(t *testing.T) {
	x := Vec3{1, 0, 0}
	y := Vec3{0, 1, 0}

	got := x.Cross(y)
	if got != (Vec3{0, 0, 1}) {
		t.Errorf("expected unit Z, got %+v", got)
	}

	// Anti-commutative
	if got := y.Cross(x); got != (Vec3{0, 0, -1}) {
		t.Errorf("expected negative unit Z, got %+v", got)
	}
}

func TestVec3_Magnitude(t *testing.T) {
	v := Vec3{3, 4, 0}
	if got := v.Magnitude(); got != 5 {
		t.Errorf("expected 5, got %v", got)
	}
	if got := (Vec3{}).Magnitude(); got != 0 {
		t.Errorf("expected 0, got %v", got)
	}
}

func TestVec3_Normalize(t *testing.T) {
	v := Vec3{0, 10, 0}.Normalize()
	if v != (Vec3{0, 1, 0}) {
		t.Errorf("expected unit Y, got %+v", v)
	}

	// Zero vector must not produce NaNs.
	z := Vec3{}.Normalize()
	if z != (Vec3{}) {
		t.Errorf("expected zero vector unchanged, got %+v", z)
	}
}

func TestDistance(t *testing.T) {
	a := Vec3{0, 0, 0}
	b := Vec3{1, 2, 2}
	if got := Distance(a, b); got != 3 {
		t.Errorf("expected 3, got %v", got)
	}
	if got := Distance(a, a); got != 0 {
		t.Errorf("expected 0, got %v", got)
	}
}

func TestDistance2D_IgnoresDepth(t *testing.T) {
	a := Vec3{0, 0, 5}
	b := Vec3{3, 4, -7}
	if got := Distance2D(a, b); got != 5 {
		t.Errorf("expected 5, got %v", got)
	}
}

func TestMidpoint(t *testing.T) {
	got := Midpoint(Vec3{0, 0, 0}, Vec3{2, 4, 6})
	if got != (Vec3{1, 2, 3}) {
		t.Errorf("expected {1 2 3}, got %+v", got)
	}
}

func TestAngle_RightAngle(t *testing.T) {
	// Knee-like configuration: vertex at origin, limbs along X and Y.
	angle, ok := Angle(Vec3{1, 0, 0}, Vec3{}, Vec3{0, 1, 0})
	if !ok {
		t.Fatal("expected defined angle")
	}
	if math.Abs(angle-90) > 1 {
		t.Errorf("expected 90±1, got %v", angle)
	}
}

func TestAngle_Collinear(t *testing.T) {
	// Fully extended joint: points on opposite sides of the vertex.
	angle, ok := Angle(Vec3{-1, 0, 0}, Vec3{}, Vec3{1, 0, 0})
	if !ok {
		t.Fatal("expected defined angle")
	}
	if math.Abs(angle-180) > 1e-9 {
		t.Errorf("expected 180, got %v", angle)
	}
}

func TestAngle_ZeroSeparation(t *testing.T) {
	// Coincident points on the same side collapse to 0 degrees.
	angle, ok := Angle(Vec3{1, 1, 0}, Vec3{}, Vec3{2, 2, 0})
	if !ok {
		t.Fatal("expected defined angle")
	}
	if math.Abs(angle) > 1e-6 {
		t.Errorf("expected 0, got %v", angle)
	}
}

func TestAngle_DegenerateLimb(t *testing.T) {
	// A limb of zero length makes the angle undefined, not zero.
	if _, ok := Angle(Vec3{}, Vec3{}, Vec3{1, 0, 0}); ok {
		t.Error("expected undefined angle for degenerate limb")
	}
}

func TestAngle_Range(t *testing.T) {
	// Sweep of configurations must always land inside [0, 180].
	for deg := 0; deg <= 360; deg += 15 {
		rad := float64(deg) * math.Pi / 180
		a := Vec3{math.Cos(rad), math.Sin(rad), 0}
		angle, ok := Angle(a, Vec3{}, Vec3{1, 0, 0})
		if !ok {
			t.Fatalf("deg=%d: expected defined angle", deg)
		}
		if angle < 0 || angle > 180 {
			t.Errorf("deg=%d: angle %v outside [0,180]", deg, angle)
		}
	}
}

func TestAngle2D_ProjectsDepth(t *testing.T) {
	// Same configuration as the right-angle test but with wild depth
	// values; the 2D projection must still read 90 degrees.
	angle, ok := Angle2D(Vec3{1, 0, 3}, Vec3{0, 0, -2}, Vec3{0, 1, 7})
	if !ok {
		t.Fatal("expected defined angle")
	}
	if math.Abs(angle-90) > 1 {
		t.Errorf("expected 90±1, got %v", angle)
	}
}
