package meshtool

// deletedTriangleRecord captures one triangle deleted by a contraction:
// its original index, the original index of its opposite-corner vertex,
// and the permutation of (source-corner, target-corner, opposite-corner)
// telling which corner of the triangle held which role (spec section 3;
// original_source ContractionRecord).
type deletedTriangleRecord struct {
	originalTriangle uint32
	originalOpposite uint32
	perm             [3]uint8 // (sourceCorner, targetCorner, oppositeCorner)

	// attrOriginal holds, per channel, this triangle's attribute-source
	// triple in original-source-id space at the moment of deletion. Once a
	// triangle is popped, channelState discards its live triple entirely,
	// so PM reconstruction has no other way to recover it later.
	attrOriginal [][3]uint32
}

// contractionRecord is one entry of the reversible history: the original-
// index pair of the contracted endpoints, the triangles it deleted, and
// the surviving triangles it rewrote (spec section 3).
type contractionRecord struct {
	sourceOriginal  uint32 // dropped vertex, original index
	targetOriginal  uint32 // kept vertex, original index
	deleted         []deletedTriangleRecord
	changedOriginal []uint32 // surviving rewritten triangles, original index
}
