package geometry

import (
	"github.com/abdo544445/parallel-raytracer/pkg/core"
	"github.com/abdo544445/parallel-raytracer/pkg/material"
)

// ShapeList is an unordered collection of shapes that reports the nearest hit
type ShapeList struct {
	shapes []Shape
}

// NewShapeList creates a list holding the given shapes
func NewShapeList(shapes ...Shape) *ShapeList {
	list := &ShapeList{}
	list.Add(shapes...)
	return list
}

// Add appends shapes to the list
func (l *ShapeList) Add(shapes ...Shape) {
	l.shapes = append(l.shapes, shapes...)
}

// Clear removes every shape
func (l *ShapeList) Clear() {
	l.shapes = nil
}

// Len returns the number of shapes
func (l *ShapeList) Len() int {
	return len(l.shapes)
}

// Shapes returns the shapes in insertion order
func (l *ShapeList) Shapes() []Shape {
	return l.shapes
}

// Hit tests every member and returns the nearest intersection.
// The upper bound shrinks after each hit so later members only win when closer.
func (l *ShapeList) Hit(ray core.Ray, tMin, tMax float64) (*material.HitRecord, bool) {
	var closestHit *material.HitRecord
	closestSoFar := tMax

	for _, shape := range l.shapes {
		if hit, isHit := shape.Hit(ray, tMin, closestSoFar); isHit {
			closestSoFar = hit.T
			closestHit = hit
		}
	}

	return closestHit, closestHit != nil
}
