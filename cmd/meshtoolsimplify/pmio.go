package main

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/fiefdx/meshtool"
)

// writePMStream serializes a PM history to a simple length-prefixed binary
// format: entry count, then per entry the split index, restored position,
// changed-triangle list, reintroduced triangles' opposite/flip arrays, and
// per channel the new attribute triples and the source additions a reader
// must apply before trusting them. No compression or varint packing — this
// is a drop target for `cmd/meshtoolsimplify`, not a format other tools
// need to interoperate with.
func writePMStream(path string, entries []meshtool.PMEntry) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	if err := binary.Write(w, binary.LittleEndian, uint32(len(entries))); err != nil {
		return errors.Wrap(err, "write entry count")
	}
	for _, e := range entries {
		if err := writeUint32(w, e.SplitIndex); err != nil {
			return err
		}
		if err := writeVec3(w, e.RestoredPosition); err != nil {
			return err
		}

		if err := writeUint32(w, uint32(len(e.ChangedTriangles))); err != nil {
			return err
		}
		for _, idx := range e.ChangedTriangles {
			if err := writeUint32(w, idx); err != nil {
				return err
			}
		}

		if err := writeUint32(w, uint32(len(e.NewOpposite))); err != nil {
			return err
		}
		for i, opp := range e.NewOpposite {
			if err := writeUint32(w, opp); err != nil {
				return err
			}
			if err := binary.Write(w, binary.LittleEndian, e.NewFlip[i]); err != nil {
				return errors.Wrap(err, "write flip bit")
			}
		}

		if err := writeUint32(w, uint32(len(e.NewAttr))); err != nil {
			return err
		}
		for k, triples := range e.NewAttr {
			if err := writeUint32(w, uint32(len(e.NewAttrAdditions[k]))); err != nil {
				return err
			}
			for _, a := range e.NewAttrAdditions[k] {
				if err := writeUint32(w, a.Index); err != nil {
					return err
				}
				if err := writeVec3(w, a.Value); err != nil {
					return err
				}
			}
			if err := writeUint32(w, uint32(len(triples))); err != nil {
				return err
			}
			for _, triple := range triples {
				if err := writeCorners(w, triple); err != nil {
					return err
				}
			}
		}
	}
	return errors.Wrap(w.Flush(), "flush pm stream")
}

func writeUint32(w io.Writer, v uint32) error {
	return binary.Write(w, binary.LittleEndian, v)
}

func writeCorners(w io.Writer, c [3]uint32) error {
	return binary.Write(w, binary.LittleEndian, c)
}

func writeVec3(w io.Writer, v meshtool.Vec3) error {
	return binary.Write(w, binary.LittleEndian, [3]float64{v.X, v.Y, v.Z})
}
