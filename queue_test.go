package meshtool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestQueuePopOrderIsMonotonicNonDecreasing pins property 8: repeated pops
// never decrease the reported error, since the heap always surfaces its
// current minimum.
func TestQueuePopOrderIsMonotonicNonDecreasing(t *testing.T) {
	q := newContractionQueue(6)
	// Six vertices on a line; each quadric is the plane x = position, so a
	// pair's cost is the squared distance between its endpoints (some
	// pairs tie, e.g. (0,1) and (1,2)).
	positions := []Vec3{{0, 0, 0}, {1, 0, 0}, {2, 0, 0}, {10, 0, 0}, {20, 0, 0}, {30, 0, 0}}
	quadrics := make([]Quadric, 6)
	for i, p := range positions {
		quadrics[i] = planeQuadric(Vec3{1, 0, 0}, -p.X, 1)
	}
	for u := 0; u < 6; u++ {
		for v := u + 1; v < 6; v++ {
			q.genContraction(uint32(u), uint32(v), quadrics[u], quadrics[v], positions[u], positions[v])
		}
	}

	var last float64 = -1
	count := 0
	for {
		c := q.nextValid()
		if c == nil {
			break
		}
		require.GreaterOrEqual(t, c.err, last)
		last = c.err
		count++
	}
	assert.Equal(t, 15, count) // C(6,2) distinct pairs, none invalidated
}

// TestQueueInvalidateEndpointDropsCandidatesAtVertex exercises the lazy
// invalidation path: invalidated candidates never surface from nextValid,
// and a vertex's invalidation empties its own back-index and removes the
// dedup-map entries of every pair it belonged to.
func TestQueueInvalidateEndpointDropsCandidatesAtVertex(t *testing.T) {
	q := newContractionQueue(3)
	flat := Quadric{}
	q.genContraction(0, 1, flat, flat, Vec3{0, 0, 0}, Vec3{1, 0, 0})
	q.genContraction(0, 2, flat, flat, Vec3{0, 0, 0}, Vec3{0, 1, 0})
	q.genContraction(1, 2, flat, flat, Vec3{1, 0, 0}, Vec3{0, 1, 0})

	q.invalidateEndpoint(1)

	assert.Empty(t, q.byVertex[1])
	_, stillQueued := q.byEndpoint[endpointKey(0, 1)]
	assert.False(t, stillQueued)
	_, stillQueued = q.byEndpoint[endpointKey(1, 2)]
	assert.False(t, stillQueued)

	c := q.nextValid()
	require.NotNil(t, c)
	assert.Equal(t, endpointKey(0, 2), endpointKey(c.keep, c.drop))
	assert.Nil(t, q.nextValid())
}

// TestQueueGenContractionDedupsByEndpointPair ensures a second request for
// the same unordered pair is a no-op, matching spec section 4.3.
func TestQueueGenContractionDedupsByEndpointPair(t *testing.T) {
	q := newContractionQueue(2)
	flat := Quadric{}
	q.genContraction(0, 1, flat, flat, Vec3{0, 0, 0}, Vec3{1, 0, 0})
	q.genContraction(1, 0, flat, flat, Vec3{1, 0, 0}, Vec3{0, 0, 0})
	assert.Equal(t, 1, q.heap.Len())
}
