package meshtool

import "math"

// degenerateEps is the length/area threshold below which a normal or
// triangle is treated as degenerate and contributes a zero quadric,
// matching the teacher's normalizeVector guard (math.go) and
// original_source's area2<=0 guard.
const degenerateEps = 1e-10

// Quadric is the triple (A, b, c) from spec section 3: evaluation at a
// point p is p^T*A*p + 2*b^T*p + c. A is stored packed-symmetric
// (a11,a12,a13,a22,a23,a33), the same idiom the teacher's Quadric used for
// the 4x4 plane quadric, generalized here to the spec's split A/b/c form.
type Quadric struct {
	a11, a12, a13, a22, a23, a33 float64
	b                            Vec3
	c                            float64
}

// Add returns the sum of two quadrics; quadrics form a vector space under
// per-triangle/per-edge accumulation.
func (q Quadric) Add(o Quadric) Quadric {
	return Quadric{
		a11: q.a11 + o.a11, a12: q.a12 + o.a12, a13: q.a13 + o.a13,
		a22: q.a22 + o.a22, a23: q.a23 + o.a23, a33: q.a33 + o.a33,
		b: q.b.Add(o.b),
		c: q.c + o.c,
	}
}

// Scale returns the quadric scaled by s, used to weight a triangle
// quadric's contribution to each of its three vertices by 1/3 (spec
// section 3).
func (q Quadric) Scale(s float64) Quadric {
	return Quadric{
		a11: q.a11 * s, a12: q.a12 * s, a13: q.a13 * s,
		a22: q.a22 * s, a23: q.a23 * s, a33: q.a33 * s,
		b: q.b.Scale(s),
		c: q.c * s,
	}
}

// Eval is pᵀAp + 2bᵀp + c.
func (q Quadric) Eval(p Vec3) float64 {
	Ap := Vec3{
		q.a11*p.X + q.a12*p.Y + q.a13*p.Z,
		q.a12*p.X + q.a22*p.Y + q.a23*p.Z,
		q.a13*p.X + q.a23*p.Y + q.a33*p.Z,
	}
	return p.Dot(Ap) + 2*q.b.Dot(p) + q.c
}

// planeQuadric builds A=w*n*n^T, b=w*d*n, c=w*d*d for a plane with unit
// normal n through a point with d=-n.p, weighted by w.
func planeQuadric(n Vec3, d, w float64) Quadric {
	return Quadric{
		a11: w * n.X * n.X, a12: w * n.X * n.Y, a13: w * n.X * n.Z,
		a22: w * n.Y * n.Y, a23: w * n.Y * n.Z,
		a33: w * n.Z * n.Z,
		b:   n.Scale(w * d),
		c:   w * d * d,
	}
}

// triangleQuadric derives the plane quadric through triangle (a,b,c),
// weighted by triangle area via Heron's formula computed in the stated
// order for floating-point determinism (spec section 9). Collinear or
// zero-area triangles silently yield a zero-weight quadric instead of
// failing; numeric degeneracy is never surfaced as an error (spec 4.1, 7).
func triangleQuadric(a, b, c Vec3) (q Quadric, area float64, normal Vec3) {
	e1 := b.Sub(a)
	e2 := c.Sub(a)
	cross := e1.Cross(e2)
	length := math.Sqrt(cross.Dot(cross))
	if length < degenerateEps {
		return Quadric{}, 0, Vec3{}
	}
	normal = cross.Scale(1 / length)

	s1 := math.Sqrt(e1.Dot(e1))
	s2 := math.Sqrt(e2.Dot(e2))
	e3 := c.Sub(b)
	s3 := math.Sqrt(e3.Dot(e3))
	sp := (s1 + s2 + s3) / 2.0
	area2 := sp * (sp - s1) * (sp - s2) * (sp - s3)
	if area2 <= 0 {
		area = 0
	} else {
		area = math.Sqrt(area2)
	}

	d := -normal.Dot(a)
	return planeQuadric(normal, d, area), area, normal
}

// boundaryQuadric builds the penalty plane for a boundary edge. edgeVertex
// and otherVertex are the edge's endpoints, triangleNormal the owning
// triangle's unit normal, and avgArea the mean triangle area over the
// whole mesh; the plane's normal is perpendicular to both the edge and the
// triangle normal, weighted 3*avgArea so boundaries resist contraction
// (spec section 3, 4.1). The plane offset is taken against the triangle's
// own normal and edgeVertex rather than against the rotated boundary
// normal — that is what original_source's vertexQuadric actually computes,
// and this is pinned to that convention rather than "fixed" (spec section
// 9: tests pin the source convention, not a textbook-correct one).
func boundaryQuadric(edgeVertex, otherVertex, triangleNormal Vec3, avgArea float64) Quadric {
	edgeVec := edgeVertex.Sub(otherVertex)
	cross := edgeVec.Cross(triangleNormal)
	length := math.Sqrt(cross.Dot(cross))
	if length < degenerateEps {
		return Quadric{}
	}
	n := cross.Scale(1 / length)
	d := -triangleNormal.Dot(edgeVertex)
	return planeQuadric(n, d, 3*avgArea)
}
