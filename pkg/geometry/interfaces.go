package geometry

import (
	"github.com/abdo544445/parallel-raytracer/pkg/core"
	"github.com/abdo544445/parallel-raytracer/pkg/material"
)

// Shape interface for objects that can be hit by rays
type Shape interface {
	// Hit returns the nearest intersection with t in [tMin, tMax]
	Hit(ray core.Ray, tMin, tMax float64) (*material.HitRecord, bool)
}
