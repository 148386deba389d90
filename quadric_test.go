package meshtool

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuadricAddIsComponentwise(t *testing.T) {
	a := Quadric{a11: 1, a22: 2, a33: 3, b: Vec3{1, 2, 3}, c: 4}
	b := Quadric{a11: 10, a22: 20, a33: 30, b: Vec3{1, 1, 1}, c: 1}
	sum := a.Add(b)
	assert.Equal(t, 11.0, sum.a11)
	assert.Equal(t, 22.0, sum.a22)
	assert.Equal(t, 33.0, sum.a33)
	assert.Equal(t, Vec3{2, 3, 4}, sum.b)
	assert.Equal(t, 5.0, sum.c)
}

func TestQuadricScaleThirdWeighting(t *testing.T) {
	q := Quadric{a11: 3, a22: 3, a33: 3, b: Vec3{3, 3, 3}, c: 3}
	scaled := q.Scale(1.0 / 3.0)
	assert.InDelta(t, 1.0, scaled.a11, 1e-12)
	assert.InDelta(t, 1.0, scaled.c, 1e-12)
	assert.Equal(t, Vec3{1, 1, 1}, scaled.b)
}

func TestPlaneQuadricEvalZeroOnThePlane(t *testing.T) {
	n := Vec3{0, 0, 1}
	d := -5.0 // plane z = 5
	q := planeQuadric(n, d, 1)
	assert.InDelta(t, 0, q.Eval(Vec3{1, 2, 5}), 1e-9)
	assert.InDelta(t, 0, q.Eval(Vec3{-3, 7, 5}), 1e-9)
	assert.Greater(t, q.Eval(Vec3{0, 0, 6}), 0.0)
}

func TestTriangleQuadricDegenerateYieldsZeroWeight(t *testing.T) {
	a := Vec3{0, 0, 0}
	b := Vec3{1, 0, 0}
	c := Vec3{2, 0, 0} // colinear with a,b
	q, area, normal := triangleQuadric(a, b, c)
	require.Equal(t, 0.0, area)
	assert.Equal(t, Vec3{}, normal)
	assert.Equal(t, Quadric{}, q)
	assert.False(t, math.IsNaN(q.Eval(Vec3{5, 5, 5})))
}

func TestTriangleQuadricNormalAreaForRightTriangle(t *testing.T) {
	a := Vec3{0, 0, 0}
	b := Vec3{1, 0, 0}
	c := Vec3{0, 1, 0}
	q, area, normal := triangleQuadric(a, b, c)
	assert.InDelta(t, 0.5, area, 1e-9)
	assert.InDelta(t, 1.0, math.Abs(normal.Z), 1e-9)
	assert.InDelta(t, 0, q.Eval(a), 1e-9)
	assert.InDelta(t, 0, q.Eval(b), 1e-9)
	assert.InDelta(t, 0, q.Eval(c), 1e-9)
	assert.Greater(t, q.Eval(Vec3{0, 0, 1}), 0.0)
}

func TestBoundaryQuadricZeroAlongTheEdge(t *testing.T) {
	edgeVertex := Vec3{1, 0, 0}
	otherVertex := Vec3{0, 0, 0}
	triangleNormal := Vec3{0, 0, 1}
	q := boundaryQuadric(edgeVertex, otherVertex, triangleNormal, 2.0)
	assert.InDelta(t, 0, q.Eval(edgeVertex), 1e-9)
	assert.Greater(t, q.Eval(Vec3{1, 5, 0}), 0.0)
}
