package geometry

import (
	"math"
	"testing"

	"github.com/abdo544445/parallel-raytracer/pkg/core"
	"github.com/abdo544445/parallel-raytracer/pkg/material"
)

func TestShapeList_NearestHitIndependentOfOrder(t *testing.T) {
	nearMat := material.NewLambertian(core.NewVec3(1, 0, 0))
	farMat := material.NewLambertian(core.NewVec3(0, 0, 1))
	near := NewSphere(core.NewVec3(0, 0, -2), 0.5, nearMat)
	far := NewSphere(core.NewVec3(0, 0, -5), 0.5, farMat)
	ray := core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, -1))

	tests := []struct {
		name   string
		shapes []Shape
	}{
		{"near first", []Shape{near, far}},
		{"far first", []Shape{far, near}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list := NewShapeList(tt.shapes...)
			hit, isHit := list.Hit(ray, 0.001, math.Inf(1))
			if !isHit {
				t.Fatal("Expected hit")
			}
			if math.Abs(hit.T-1.5) > 1e-12 {
				t.Errorf("Expected nearest t=1.5, got %f", hit.T)
			}
			if hit.Material != nearMat {
				t.Error("Expected the near sphere's material")
			}
		})
	}
}

func TestShapeList_RespectsBounds(t *testing.T) {
	list := NewShapeList(
		NewSphere(core.NewVec3(0, 0, -2), 0.5, nil),
		NewSphere(core.NewVec3(0, 0, -5), 0.5, nil),
	)
	ray := core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, -1))

	if _, isHit := list.Hit(ray, 0.001, 1.0); isHit {
		t.Error("Expected miss when tMax is before every sphere")
	}

	hit, isHit := list.Hit(ray, 3.0, math.Inf(1))
	if !isHit {
		t.Fatal("Expected the far sphere when tMin skips the near one")
	}
	if math.Abs(hit.T-4.5) > 1e-12 {
		t.Errorf("Expected t=4.5, got %f", hit.T)
	}
}

func TestShapeList_Empty(t *testing.T) {
	list := NewShapeList()
	ray := core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, -1))
	if hit, isHit := list.Hit(ray, 0.001, math.Inf(1)); isHit || hit != nil {
		t.Errorf("Expected no hit from empty list, got %v", hit)
	}
}

func TestShapeList_AddAndClear(t *testing.T) {
	list := NewShapeList()
	list.Add(NewSphere(core.NewVec3(0, 0, -1), 0.5, nil), NewSphere(core.NewVec3(0, 0, -3), 0.5, nil))
	if list.Len() != 2 {
		t.Fatalf("Expected 2 shapes, got %d", list.Len())
	}
	list.Clear()
	if list.Len() != 0 {
		t.Errorf("Expected empty list after Clear, got %d", list.Len())
	}
}
