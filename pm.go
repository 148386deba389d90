package meshtool

import "sort"

// AttrAddition is one attribute source newly introduced by replaying a PM
// entry. The wire layout's new_attr carries only live attribute indices,
// "interleaved with inline attribute-source additions where a source is
// newly live" — Go's static typing has no tagged-union list literal for
// that interleaving, so PMEntry carries the additions in a companion field
// a replay must apply, per channel, before trusting any NewAttr index.
type AttrAddition struct {
	Index uint32
	Value Vec3
}

// flipPerms is the set of (source-corner, target-corner, opposite-corner)
// permutations that are odd relative to natural corner order — exactly the
// ones for which a reintroduced triangle's winding must be flipped to match
// the original.
var flipPerms = map[[3]uint8]bool{
	{0, 2, 1}: true,
	{2, 1, 0}: true,
	{1, 0, 2}: true,
}

// PMEntry is one reversible vertex-split step of the progressive-mesh
// history, undoing one contraction. Its fields are bit-exact with the
// documented wire layout for interoperability with downstream streaming
// reconstructors. Replaying entries in order against the fully-simplified
// mesh reconstructs the original:
//  1. append RestoredPosition as a new live vertex (it gets the next free
//     vertex index).
//  2. for each triangle index in ChangedTriangles, find the corner
//     currently equal to SplitIndex and rewrite it to the new vertex's
//     live index.
//  3. for each channel k, apply NewAttrAdditions[k] in order, appending or
//     overwriting attribute source entries so every index NewAttr[k]
//     references is live.
//  4. for each i, append a reintroduced triangle built from (the new
//     vertex, SplitIndex, NewOpposite[i]), ordered by NewFlip[i], and, per
//     channel, append NewAttr[k][i].
type PMEntry struct {
	SplitIndex       uint32
	RestoredPosition Vec3
	ChangedTriangles []uint32
	NewOpposite      []uint32
	NewFlip          []bool
	NewAttr          [][][3]uint32   // per channel, aligned with NewOpposite/NewFlip
	NewAttrAdditions [][]AttrAddition // per channel
}

// GeneratePM walks the contraction history in reverse and returns the
// entries in that same order (most recent contraction first), so they can
// be replayed front to back. triangleOriginalCorners holds each live
// triangle's corners in original-vertex-id space; it is seeded once from
// the fully-simplified mesh and rolled back one substitution at a time as
// each record is undone: a
// "changed" entry always means one corner currently equals the
// contraction's target and must be set back to its source (the forward
// rewrite step is a pure corner substitution, so undoing it is too).
func (s *Simplifier) GeneratePM() []PMEntry {
	nV := len(s.originalPositions)
	newVIndices := make([]int32, nV)
	for i := range newVIndices {
		newVIndices[i] = -1
	}
	for i := 0; i < s.verts.len(); i++ {
		newVIndices[s.verts.original[i]] = int32(i)
	}
	curVCount := int32(s.verts.len())

	triangleOriginalCorners := make(map[uint32][3]uint32, s.tris.len())
	newTIndices := make(map[uint32]int32, s.tris.len())
	for t := 0; t < s.tris.len(); t++ {
		tri := s.tris.tris[t]
		origT := s.tris.original[t]
		triangleOriginalCorners[origT] = [3]uint32{
			s.verts.original[tri[0]], s.verts.original[tri[1]], s.verts.original[tri[2]],
		}
		newTIndices[origT] = int32(t)
	}
	curTCount := int32(s.tris.len())

	newAIndices := make([]map[uint32]int32, len(s.channels))
	curACount := make([]int32, len(s.channels))
	for k := range s.channels {
		newAIndices[k] = make(map[uint32]int32, s.channels[k].sourceLen())
		for a := 0; a < s.channels[k].sourceLen(); a++ {
			newAIndices[k][s.channels[k].sourceOriginal[a]] = int32(a)
		}
		curACount[k] = int32(s.channels[k].sourceLen())
	}

	resolveAttr := func(k int, additions *[]AttrAddition, origSource uint32) uint32 {
		if idx, ok := newAIndices[k][origSource]; ok {
			return uint32(idx)
		}
		idx := curACount[k]
		curACount[k]++
		newAIndices[k][origSource] = idx
		*additions = append(*additions, AttrAddition{Index: uint32(idx), Value: s.originalChannels[k].sources[origSource]})
		return uint32(idx)
	}

	entries := make([]PMEntry, len(s.history))

	for hi := len(s.history) - 1; hi >= 0; hi-- {
		rec := s.history[hi]

		splitIndex := newVIndices[rec.targetOriginal]

		vIdx := curVCount
		newVIndices[rec.sourceOriginal] = vIdx
		curVCount++

		entry := PMEntry{
			SplitIndex:       uint32(splitIndex),
			RestoredPosition: s.originalPositions[rec.sourceOriginal],
			NewAttrAdditions: make([][]AttrAddition, len(s.channels)),
			NewAttr:          make([][][3]uint32, len(s.channels)),
		}

		changed := append([]uint32(nil), rec.changedOriginal...)
		sort.Slice(changed, func(a, b int) bool { return changed[a] < changed[b] })
		for _, origT := range changed {
			corners := triangleOriginalCorners[origT]
			for i, v := range corners {
				if v == rec.targetOriginal {
					corners[i] = rec.sourceOriginal
					break
				}
			}
			triangleOriginalCorners[origT] = corners

			entry.ChangedTriangles = append(entry.ChangedTriangles, uint32(newTIndices[origT]))
		}

		deleted := append([]deletedTriangleRecord(nil), rec.deleted...)
		sort.Slice(deleted, func(a, b int) bool { return deleted[a].originalTriangle < deleted[b].originalTriangle })

		for _, d := range deleted {
			var corners [3]uint32
			corners[d.perm[0]] = rec.sourceOriginal
			corners[d.perm[1]] = rec.targetOriginal
			corners[d.perm[2]] = d.originalOpposite
			triangleOriginalCorners[d.originalTriangle] = corners
			newTIndices[d.originalTriangle] = curTCount
			curTCount++

			flip := flipPerms[d.perm]
			entry.NewOpposite = append(entry.NewOpposite, uint32(newVIndices[d.originalOpposite]))
			entry.NewFlip = append(entry.NewFlip, flip)

			for k := range s.channels {
				sourceAttr := d.attrOriginal[k][d.perm[0]]
				targetAttr := d.attrOriginal[k][d.perm[1]]
				oppAttr := d.attrOriginal[k][d.perm[2]]

				var triple [3]uint32
				if flip {
					triple[0] = resolveAttr(k, &entry.NewAttrAdditions[k], targetAttr)
					triple[1] = resolveAttr(k, &entry.NewAttrAdditions[k], sourceAttr)
				} else {
					triple[0] = resolveAttr(k, &entry.NewAttrAdditions[k], sourceAttr)
					triple[1] = resolveAttr(k, &entry.NewAttrAdditions[k], targetAttr)
				}
				triple[2] = resolveAttr(k, &entry.NewAttrAdditions[k], oppAttr)

				entry.NewAttr[k] = append(entry.NewAttr[k], triple)
			}
		}

		entries[len(s.history)-1-hi] = entry
	}

	return entries
}
