package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/fiefdx/meshtool"
)

// objMesh is an OBJ file's geometry plus an optional uv channel, kept
// separate from meshtool.Mesh so the loader can report which OBJ line a
// malformed record came from before any Simplifier state exists.
type objMesh struct {
	vertices  []meshtool.Vec3
	triangles [][3]uint32
	uvs       []meshtool.Vec3
	uvTris    [][3]uint32
}

// loadOBJ reads a Wavefront OBJ file, triangulating n-gons by a fan from
// the first vertex, the same approach the teacher's LoadOBJ uses
// (obj_loader.go). Only "v", "vt", and "f" records are understood; normals
// and material directives are ignored since the core has no rendering use
// for them.
func loadOBJ(path string) (*objMesh, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer file.Close()

	m := &objMesh{}
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Fields(line)

		switch parts[0] {
		case "v":
			p, err := parseVec3(parts[1:])
			if err != nil {
				return nil, errors.Wrapf(err, "line %d: invalid vertex", lineNum)
			}
			m.vertices = append(m.vertices, p)

		case "vt":
			if len(parts) < 3 {
				return nil, errors.Errorf("line %d: invalid texture coordinate", lineNum)
			}
			u, err1 := strconv.ParseFloat(parts[1], 64)
			v, err2 := strconv.ParseFloat(parts[2], 64)
			if err1 != nil || err2 != nil {
				return nil, errors.Errorf("line %d: invalid uv coordinates", lineNum)
			}
			m.uvs = append(m.uvs, meshtool.Vec3{X: u, Y: v})

		case "f":
			if len(parts) < 4 {
				return nil, errors.Errorf("line %d: face must have at least 3 vertices", lineNum)
			}
			var vIdx, uvIdx []uint32
			haveUV := true
			for _, field := range parts[1:] {
				vi, ti, err := parseFaceVertex(field)
				if err != nil {
					return nil, errors.Wrapf(err, "line %d", lineNum)
				}
				if vi <= 0 || int(vi) > len(m.vertices) {
					return nil, errors.Errorf("line %d: vertex index out of range", lineNum)
				}
				vIdx = append(vIdx, uint32(vi-1))
				if ti <= 0 || int(ti) > len(m.uvs) {
					haveUV = false
				} else {
					uvIdx = append(uvIdx, uint32(ti-1))
				}
			}
			for i := 1; i < len(vIdx)-1; i++ {
				m.triangles = append(m.triangles, [3]uint32{vIdx[0], vIdx[i], vIdx[i+1]})
				if haveUV && len(uvIdx) == len(vIdx) {
					m.uvTris = append(m.uvTris, [3]uint32{uvIdx[0], uvIdx[i], uvIdx[i+1]})
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return m, nil
}

func parseVec3(fields []string) (meshtool.Vec3, error) {
	if len(fields) < 3 {
		return meshtool.Vec3{}, errors.New("expected 3 components")
	}
	x, err1 := strconv.ParseFloat(fields[0], 64)
	y, err2 := strconv.ParseFloat(fields[1], 64)
	z, err3 := strconv.ParseFloat(fields[2], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return meshtool.Vec3{}, errors.New("invalid float component")
	}
	return meshtool.Vec3{X: x, Y: y, Z: z}, nil
}

// parseFaceVertex parses one "f" record field in v, v/vt, v/vt/vn, or
// v//vn form, returning the 1-based vertex and texture-coordinate indices
// (0 when absent).
func parseFaceVertex(field string) (vertex, uv int64, err error) {
	parts := strings.Split(field, "/")
	vertex, err = strconv.ParseInt(parts[0], 10, 32)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "invalid face vertex index %q", field)
	}
	if len(parts) >= 2 && parts[1] != "" {
		uv, err = strconv.ParseInt(parts[1], 10, 32)
		if err != nil {
			return 0, 0, errors.Wrapf(err, "invalid face uv index %q", field)
		}
	}
	return vertex, uv, nil
}

// writeOBJ writes a simplified mesh back out in the same "v"/"vt"/"f"
// subset loadOBJ reads, with 1-based indices restored.
func writeOBJ(path string, mesh meshtool.Mesh) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	for _, v := range mesh.Vertices {
		fmt.Fprintf(w, "v %g %g %g\n", v.X, v.Y, v.Z)
	}
	hasUV := len(mesh.Channels) > 0
	if hasUV {
		for _, uv := range mesh.Channels[0].Sources {
			fmt.Fprintf(w, "vt %g %g\n", uv.X, uv.Y)
		}
	}
	for i, tri := range mesh.Triangles {
		if hasUV && i < len(mesh.Channels[0].Triangles) {
			uvTri := mesh.Channels[0].Triangles[i]
			fmt.Fprintf(w, "f %d/%d %d/%d %d/%d\n",
				tri[0]+1, uvTri[0]+1, tri[1]+1, uvTri[1]+1, tri[2]+1, uvTri[2]+1)
		} else {
			fmt.Fprintf(w, "f %d %d %d\n", tri[0]+1, tri[1]+1, tri[2]+1)
		}
	}
	return errors.Wrap(w.Flush(), "flush obj output")
}
