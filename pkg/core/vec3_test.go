package core

import (
	"math"
	"testing"
)

func TestVec3_Reflect(t *testing.T) {
	tests := []struct {
		name   string
		v      Vec3
		normal Vec3
	}{
		{"Straight down onto floor", NewVec3(0, -1, 0), NewVec3(0, 1, 0)},
		{"45 degrees onto floor", NewVec3(1, -1, 0), NewVec3(0, 1, 0)},
		{"Grazing", NewVec3(3, -0.01, 2), NewVec3(0, 1, 0)},
		{"Tilted normal", NewVec3(0.2, -0.7, -0.4), NewVec3(1, 2, 0.5).Normalize()},
	}

	const tolerance = 1e-12
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.v.Dot(tt.normal) >= 0 {
				t.Fatalf("test vector must point against the normal")
			}
			reflected := tt.v.Reflect(tt.normal)

			// Normal component flips sign
			if math.Abs(reflected.Dot(tt.normal)+tt.v.Dot(tt.normal)) > tolerance {
				t.Errorf("Expected dot(r,n)=%f, got %f", -tt.v.Dot(tt.normal), reflected.Dot(tt.normal))
			}

			// Tangential component is preserved
			tangentIn := tt.v.Subtract(tt.normal.Multiply(tt.v.Dot(tt.normal)))
			tangentOut := reflected.Subtract(tt.normal.Multiply(reflected.Dot(tt.normal)))
			if tangentIn.Subtract(tangentOut).Length() > tolerance {
				t.Errorf("Tangential component changed: %v -> %v", tangentIn, tangentOut)
			}
		})
	}
}

func TestVec3_NearZero(t *testing.T) {
	tests := []struct {
		name     string
		v        Vec3
		expected bool
	}{
		{"Zero", NewVec3(0, 0, 0), true},
		{"Tiny", NewVec3(1e-9, -1e-9, 5e-9), true},
		{"One component at epsilon", NewVec3(1e-8, 0, 0), false},
		{"Unit", NewVec3(0, 1, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.NearZero(); got != tt.expected {
				t.Errorf("NearZero(%v) = %t, want %t", tt.v, got, tt.expected)
			}
		})
	}
}

func TestVec3_CrossAndNormalize(t *testing.T) {
	x := NewVec3(1, 0, 0)
	y := NewVec3(0, 1, 0)
	if z := x.Cross(y); !z.Equals(NewVec3(0, 0, 1)) {
		t.Errorf("Expected x cross y = (0,0,1), got %v", z)
	}

	n := NewVec3(3, 4, 0).Normalize()
	if math.Abs(n.Length()-1) > 1e-12 {
		t.Errorf("Expected unit length, got %f", n.Length())
	}
	if math.Abs(n.X-0.6) > 1e-12 || math.Abs(n.Y-0.8) > 1e-12 {
		t.Errorf("Expected (0.6,0.8,0), got %v", n)
	}

	if zero := NewVec3(0, 0, 0).Normalize(); !zero.Equals(NewVec3(0, 0, 0)) {
		t.Errorf("Expected zero vector to stay zero, got %v", zero)
	}
}

func TestVec3_Arithmetic(t *testing.T) {
	a := NewVec3(1, 2, 3)
	b := NewVec3(4, 5, 6)

	if got := a.Add(b); !got.Equals(NewVec3(5, 7, 9)) {
		t.Errorf("Add: got %v", got)
	}
	if got := b.Subtract(a); !got.Equals(NewVec3(3, 3, 3)) {
		t.Errorf("Subtract: got %v", got)
	}
	if got := a.MultiplyVec(b); !got.Equals(NewVec3(4, 10, 18)) {
		t.Errorf("MultiplyVec: got %v", got)
	}
	if got := b.Divide(2); !got.Equals(NewVec3(2, 2.5, 3)) {
		t.Errorf("Divide: got %v", got)
	}
	if got := a.Dot(b); got != 32 {
		t.Errorf("Dot: got %f", got)
	}
	if got := a.LengthSquared(); got != 14 {
		t.Errorf("LengthSquared: got %f", got)
	}
}

func TestRay_At(t *testing.T) {
	ray := NewRay(NewVec3(1, 1, 1), NewVec3(0, 0, -2))
	if got := ray.At(0.25); !got.Equals(NewVec3(1, 1, 0.5)) {
		t.Errorf("Expected (1,1,0.5), got %v", got)
	}
}
