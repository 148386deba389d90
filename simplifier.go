package meshtool

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
)

// Simplifier holds the live, mutable mesh state plus the contraction
// queue and reversible history (spec section 2, "Simplifier state").
// Every exported operation mutates this state in place; CurrentMesh
// returns a detached snapshot.
type Simplifier struct {
	verts    vertexState
	tris     triangleState
	channels []channelState
	adj      *adjacency
	queue    *contractionQueue
	history  []contractionRecord
	progress Progress

	originalPositions []Vec3
	originalChannels  []originalChannelData
}

type originalChannelData struct {
	tris    [][3]uint32 // per original triangle index: this channel's triple, in original source indices
	sources []Vec3      // per original source index: the source value
}

// New ingests a mesh plus zero or more independent attribute channels and
// builds the adjacency index, triangle and vertex quadrics, and the
// initial contraction queue (spec section 2 "Control flow", section 6
// "new"). progress may be nil, in which case ticks are discarded.
func New(vertices []Vec3, triangles [][3]uint32, channels []ChannelInput, progress Progress) (*Simplifier, error) {
	if progress == nil {
		progress = NoProgress{}
	}

	nV := len(vertices)
	nT := len(triangles)

	for t, tri := range triangles {
		for c := 0; c < 3; c++ {
			if int(tri[c]) >= nV {
				return nil, errors.Wrapf(ErrOutOfRangeVertex, "triangle %d corner %d references vertex %d (have %d vertices)", t, c, tri[c], nV)
			}
		}
	}
	for k, ch := range channels {
		if len(ch.Triangles) != nT {
			return nil, errors.Wrapf(ErrChannelTriangleCount, "channel %d has %d triangle triples, mesh has %d triangles", k, len(ch.Triangles), nT)
		}
		for t, triple := range ch.Triangles {
			for c := 0; c < 3; c++ {
				if int(triple[c]) >= len(ch.Sources) {
					return nil, errors.Wrapf(ErrChannelOutOfRangeSource, "channel %d triangle %d corner %d references source %d (have %d sources)", k, t, c, triple[c], len(ch.Sources))
				}
			}
		}
	}

	s := &Simplifier{
		verts: vertexState{
			positions: append([]Vec3(nil), vertices...),
			original:  make([]uint32, nV),
			quadric:   make([]Quadric, nV),
		},
		tris: triangleState{
			tris:     append([][3]uint32(nil), triangles...),
			original: make([]uint32, nT),
		},
		channels:          make([]channelState, len(channels)),
		adj:               newAdjacency(nV),
		queue:             newContractionQueue(nV),
		progress:          progress,
		originalPositions: append([]Vec3(nil), vertices...),
		originalChannels:  make([]originalChannelData, len(channels)),
	}
	for i := 0; i < nV; i++ {
		s.verts.original[i] = uint32(i)
	}
	for t := 0; t < nT; t++ {
		s.tris.original[t] = uint32(t)
	}
	for k, ch := range channels {
		s.channels[k] = channelState{
			tris:           append([][3]uint32(nil), ch.Triangles...),
			sources:        append([]Vec3(nil), ch.Sources...),
			sourceOriginal: make([]uint32, len(ch.Sources)),
			sourceIncident: make([]map[uint32]struct{}, len(ch.Sources)),
		}
		for a := range ch.Sources {
			s.channels[k].sourceOriginal[a] = uint32(a)
		}
		s.originalChannels[k] = originalChannelData{
			tris:    append([][3]uint32(nil), ch.Triangles...),
			sources: append([]Vec3(nil), ch.Sources...),
		}
	}

	// Build adjacency and the boundary-edge index. No progress tick here:
	// the teacher's reference resolution doesn't tick during this pass
	// either (only the three passes below do).
	eo := newEdgeOpp()
	for t := 0; t < nT; t++ {
		tri := s.tris.tris[t]
		s.adj.addTriangle(uint32(t), tri)
		for k := range s.channels {
			s.channels[k].addTriangleAttrs(uint32(t), s.channels[k].tris[t])
		}
		rotations := [3][3]uint32{{tri[0], tri[1], tri[2]}, {tri[0], tri[2], tri[1]}, {tri[1], tri[2], tri[0]}}
		for _, r := range rotations {
			eo.add(r[0], r[1], r[2])
		}
	}

	// Pass 1: per-triangle quadrics.
	type triQuad struct {
		q      Quadric
		area   float64
		normal Vec3
	}
	triQuadrics := make([]triQuad, nT)
	var totalArea float64
	for t := 0; t < nT; t++ {
		tri := s.tris.tris[t]
		q, area, normal := triangleQuadric(vertices[tri[0]], vertices[tri[1]], vertices[tri[2]])
		triQuadrics[t] = triQuad{q: q, area: area, normal: normal}
		totalArea += area
		progress.Step()
	}
	var avgArea float64
	if nT > 0 {
		avgArea = totalArea / float64(nT)
	}

	// Pass 2: per-vertex quadrics, summing 1/3 of each incident triangle
	// quadric plus a boundary-penalty term per incident boundary edge
	// (spec section 3; original_source vertexQuadric).
	for v := 0; v < nV; v++ {
		var vq Quadric
		for _, t := range s.adj.sortedIncident(uint32(v)) {
			tq := triQuadrics[t]
			tri := s.tris.tris[t]
			for c := 0; c < 3; c++ {
				other := tri[c]
				if other == uint32(v) {
					continue
				}
				if len(eo.get(uint32(v), other)) == 1 {
					vq = vq.Add(boundaryQuadric(vertices[v], vertices[other], tq.normal, avgArea))
				}
			}
			vq = vq.Add(tq.q.Scale(1.0 / 3.0))
		}
		s.verts.quadric[v] = vq
		progress.Step()
	}

	// Pass 3: seed one candidate per edge, scanning triangles in index
	// order so the tiebreak seq is deterministic (spec section 4.3).
	for t := 0; t < nT; t++ {
		tri := s.tris.tris[t]
		pairs := [3][2]uint32{{tri[0], tri[1]}, {tri[0], tri[2]}, {tri[1], tri[2]}}
		for _, p := range pairs {
			s.queue.genContraction(p[0], p[1], s.verts.quadric[p[0]], s.verts.quadric[p[1]], s.verts.positions[p[0]], s.verts.positions[p[1]])
		}
		progress.Step()
	}

	return s, nil
}

// ContractOnce pops the best valid candidate and applies it, reporting
// false when the queue has drained (spec section 6).
func (s *Simplifier) ContractOnce() bool {
	c := s.queue.nextValid()
	if c == nil {
		return false
	}
	s.doContraction(c)
	return true
}

// ContractTo repeats ContractOnce until the live triangle count is at or
// below target or the queue drains (spec section 6).
func (s *Simplifier) ContractTo(targetTriangleCount int) {
	for s.tris.len() > targetTriangleCount {
		if !s.ContractOnce() {
			return
		}
	}
}

// ContractUntilError repeats ContractOnce while the next candidate's
// error stays at or below maxError (spec section 6 "[NEW]").
func (s *Simplifier) ContractUntilError(maxError float64) {
	for {
		c := s.queue.peekValid()
		if c == nil || c.err > maxError {
			return
		}
		s.queue.popTop()
		s.doContraction(c)
	}
}

// doContraction merges drop into keep: accumulates the quadric, invalidates
// every candidate at drop, deletes triangles shared by both endpoints,
// rewrites surviving triangles, appends the history record, and compacts
// the vertex array (spec section 4.4).
func (s *Simplifier) doContraction(c *candidate) {
	i1, i2 := c.keep, c.drop

	s.verts.quadric[i1] = s.verts.quadric[i1].Add(s.verts.quadric[i2])
	s.queue.invalidateEndpoint(i2)

	rec := contractionRecord{
		sourceOriginal: s.verts.original[i2],
		targetOriginal: s.verts.original[i1],
	}

	var toDelete []uint32
	for _, t := range s.adj.sortedIncident(i2) {
		tri := s.tris.tris[t]
		if _, shared := s.adj.vtri[i1][t]; shared {
			var source, target, opposite uint8
			for c2 := uint8(0); c2 < 3; c2++ {
				switch tri[c2] {
				case i1:
					target = c2
				case i2:
					source = c2
				default:
					opposite = c2
				}
			}
			toDelete = append(toDelete, t)
			attrOriginal := make([][3]uint32, len(s.channels))
			for k := range s.channels {
				triple := s.channels[k].tris[t]
				for c2 := 0; c2 < 3; c2++ {
					attrOriginal[k][c2] = s.channels[k].sourceOriginal[triple[c2]]
				}
			}
			rec.deleted = append(rec.deleted, deletedTriangleRecord{
				originalTriangle: s.tris.original[t],
				originalOpposite: s.verts.original[tri[opposite]],
				perm:             [3]uint8{source, target, opposite},
				attrOriginal:     attrOriginal,
			})
		} else {
			corner := s.adj.vtri[i2][t]
			rec.changedOriginal = append(rec.changedOriginal, s.tris.original[t])
			s.adj.rewriteCorner(t, i2, i1, corner)
			tri[corner] = i1
			s.tris.tris[t] = tri
			pairs := [3][2]uint32{{tri[0], tri[1]}, {tri[0], tri[2]}, {tri[1], tri[2]}}
			for _, p := range pairs {
				s.queue.genContraction(p[0], p[1], s.verts.quadric[p[0]], s.verts.quadric[p[1]], s.verts.positions[p[0]], s.verts.positions[p[1]])
			}
		}
	}

	s.history = append(s.history, rec)

	sort.Slice(toDelete, func(a, b int) bool { return toDelete[a] > toDelete[b] })
	n := s.tris.len()
	for i, t := range toDelete {
		s.swapTriangles(t, uint32(n-1-i))
	}
	for range toDelete {
		last := uint32(s.tris.len() - 1)
		if _, ok := s.adj.vtri[i1][last]; !ok {
			invariantViolation("popped degenerate triangle %d not incident to survivor %d", last, i1)
		}
		s.popLastTriangle()
	}

	s.compactVertex(i2)
}

// swapTriangles exchanges the data (and adjacency) of two triangle slots.
func (s *Simplifier) swapTriangles(t1, t2 uint32) {
	if t1 == t2 {
		return
	}
	tri1, tri2 := s.tris.tris[t1], s.tris.tris[t2]
	s.adj.swapTriangles(t1, t2, tri1, tri2)
	for k := range s.channels {
		ct1, ct2 := s.channels[k].tris[t1], s.channels[k].tris[t2]
		s.channels[k].swapTriangleAttrs(t1, t2, ct1, ct2)
		s.channels[k].tris[t1], s.channels[k].tris[t2] = ct2, ct1
	}
	s.tris.tris[t1], s.tris.tris[t2] = tri2, tri1
	s.tris.original[t1], s.tris.original[t2] = s.tris.original[t2], s.tris.original[t1]
}

// popLastTriangle removes the current last triangle slot, then compacts
// any attribute source (in any channel) that just became orphaned (spec
// section 4.4 step 5).
func (s *Simplifier) popLastTriangle() {
	last := uint32(s.tris.len() - 1)
	lastTri := s.tris.tris[last]
	s.adj.removeTriangle(last, lastTri)
	s.tris.tris = s.tris.tris[:last]
	s.tris.original = s.tris.original[:last]

	for k := range s.channels {
		cs := &s.channels[k]
		x := cs.tris[len(cs.tris)-1]
		cs.tris = cs.tris[:len(cs.tris)-1]

		seen := make(map[uint32]struct{}, 3)
		var orphans []uint32
		for _, a := range x {
			if _, dup := seen[a]; dup {
				continue
			}
			seen[a] = struct{}{}
			if _, ok := cs.sourceIncident[a][last]; ok {
				delete(cs.sourceIncident[a], last)
				if len(cs.sourceIncident[a]) == 0 {
					orphans = append(orphans, a)
				}
			}
		}
		sort.Slice(orphans, func(i, j int) bool { return orphans[i] > orphans[j] })
		for i, a := range orphans {
			cs.swapSource(a, uint32(cs.sourceLen()-1-i))
		}
		for range orphans {
			cs.popSource()
		}
	}
}

// compactVertex replaces slot i2 with the current last vertex slot,
// rewriting every external reference to `last` before overwriting i2
// (spec section 4.4 step 6).
func (s *Simplifier) compactVertex(i2 uint32) {
	last := uint32(s.verts.len() - 1)
	if i2 == last {
		s.verts.positions = s.verts.positions[:last]
		s.verts.original = s.verts.original[:last]
		s.verts.quadric = s.verts.quadric[:last]
		s.adj.popVertex()
		s.queue.popVertex()
		return
	}
	s.adj.moveVertex(last, i2, s.tris.tris)
	s.queue.moveVertex(last, i2)
	s.verts.positions[i2] = s.verts.positions[last]
	s.verts.original[i2] = s.verts.original[last]
	s.verts.quadric[i2] = s.verts.quadric[last]
	s.verts.positions = s.verts.positions[:last]
	s.verts.original = s.verts.original[:last]
	s.verts.quadric = s.verts.quadric[:last]
}

// CurrentMesh returns a detached snapshot of the live mesh and its
// attribute channels (spec section 6).
func (s *Simplifier) CurrentMesh() Mesh {
	m := Mesh{
		Vertices:  append([]Vec3(nil), s.verts.positions...),
		Triangles: append([][3]uint32(nil), s.tris.tris...),
		Channels:  make([]Channel, len(s.channels)),
	}
	for k := range s.channels {
		m.Channels[k] = Channel{
			Triangles: append([][3]uint32(nil), s.channels[k].tris...),
			Sources:   append([]Vec3(nil), s.channels[k].sources...),
		}
	}
	return m
}

// IsValid checks the adjacency round-trip, repeated-vertex, and attribute-
// orphan invariants from spec section 8, returning the first violation
// found instead of panicking (unlike the internal assertions in
// doContraction, this is meant to be called freely by callers/tests).
func (s *Simplifier) IsValid() error {
	for v := 0; v < len(s.adj.vtri); v++ {
		for t, c := range s.adj.vtri[v] {
			if int(t) >= s.tris.len() || s.tris.tris[t][c] != uint32(v) {
				return &InvariantError{Msg: fmt.Sprintf("vtri[%d][%d]=%d does not round-trip to triangle corner", v, t, c)}
			}
		}
	}
	for t := 0; t < s.tris.len(); t++ {
		tri := s.tris.tris[t]
		if tri[0] == tri[1] || tri[1] == tri[2] || tri[0] == tri[2] {
			return &InvariantError{Msg: fmt.Sprintf("triangle %d has repeated vertex indices", t)}
		}
		for c := 0; c < 3; c++ {
			v := tri[c]
			corner, ok := s.adj.vtri[v][uint32(t)]
			if !ok || corner != uint8(c) {
				return &InvariantError{Msg: fmt.Sprintf("triangle %d corner %d references vertex %d but vtri has no matching back-reference", t, c, v)}
			}
		}
	}
	for k := range s.channels {
		cs := &s.channels[k]
		for a := 0; a < cs.sourceLen(); a++ {
			if len(cs.sourceIncident[a]) == 0 {
				return &InvariantError{Msg: fmt.Sprintf("channel %d source %d is orphaned", k, a)}
			}
		}
	}
	return nil
}
