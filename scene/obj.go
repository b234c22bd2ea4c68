package scene

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/raytrace/graphics"
)

// objCorner is one face corner: 1-based position, UV and normal indices
// after resolving negatives, 0 when absent.
type objCorner struct{ p, t, n int }

// ParseOBJ reads Wavefront OBJ positions, UVs, normals and faces. Polygons
// are fan-triangulated. The data is converted to the left-handed convention:
// Z is negated for positions and normals, V is flipped and the triangle
// winding is reversed. Identical corners share one vertex. Tangents are
// computed from the UVs.
func ParseOBJ(r io.Reader) ([]Vertex, []uint32, error) {
	var (
		positions []mgl32.Vec3
		uvs       []mgl32.Vec2
		normals   []mgl32.Vec3
		vertices  []Vertex
		indices   []uint32
		seen      = make(map[objCorner]uint32)
	)

	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		switch fields[0] {
		case "v":
			v, err := parseFloats(fields[1:], 3)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: line %d: %w", ErrMalformedOBJ, line, err)
			}
			positions = append(positions, mgl32.Vec3{v[0], v[1], -v[2]})
		case "vt":
			v, err := parseFloats(fields[1:], 2)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: line %d: %w", ErrMalformedOBJ, line, err)
			}
			uvs = append(uvs, mgl32.Vec2{v[0], 1 - v[1]})
		case "vn":
			v, err := parseFloats(fields[1:], 3)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: line %d: %w", ErrMalformedOBJ, line, err)
			}
			normals = append(normals, mgl32.Vec3{v[0], v[1], -v[2]})
		case "f":
			if len(fields) < 4 {
				return nil, nil, fmt.Errorf("%w: line %d: face with %d corners", ErrMalformedOBJ, line, len(fields)-1)
			}
			corners := make([]uint32, 0, len(fields)-1)
			for _, f := range fields[1:] {
				c, err := parseCorner(f, len(positions), len(uvs), len(normals))
				if err != nil {
					return nil, nil, fmt.Errorf("%w: line %d: %w", ErrMalformedOBJ, line, err)
				}
				idx, ok := seen[c]
				if !ok {
					v := Vertex{Position: positions[c.p-1]}
					if c.t > 0 {
						v.UV = uvs[c.t-1]
					}
					if c.n > 0 {
						v.Normal = normals[c.n-1]
					}
					idx = uint32(len(vertices))
					vertices = append(vertices, v)
					seen[c] = idx
				}
				corners = append(corners, idx)
			}
			for i := 1; i+1 < len(corners); i++ {
				indices = append(indices, corners[0], corners[i+1], corners[i])
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, nil, fmt.Errorf("scene: read OBJ: %w", err)
	}
	if len(indices) == 0 {
		return nil, nil, ErrEmptyMesh
	}
	CalculateTangents(vertices, indices)
	return vertices, indices, nil
}

func parseFloats(fields []string, n int) ([]float32, error) {
	if len(fields) < n {
		return nil, fmt.Errorf("want %d values, got %d", n, len(fields))
	}
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return nil, err
		}
		out[i] = float32(f)
	}
	return out, nil
}

// parseCorner parses "p", "p/t", "p//n" or "p/t/n".
func parseCorner(s string, np, nt, nn int) (objCorner, error) {
	parts := strings.Split(s, "/")
	if len(parts) > 3 {
		return objCorner{}, fmt.Errorf("corner %q", s)
	}
	var out [3]int
	counts := [3]int{np, nt, nn}
	for i, p := range parts {
		if p == "" {
			if i == 0 {
				return objCorner{}, fmt.Errorf("corner %q has no position", s)
			}
			continue
		}
		v, err := strconv.Atoi(p)
		if err != nil {
			return objCorner{}, fmt.Errorf("corner %q: %w", s, err)
		}
		if v < 0 {
			v = counts[i] + v + 1
		}
		if v < 1 || v > counts[i] {
			return objCorner{}, fmt.Errorf("corner %q: index %d out of range", s, v)
		}
		out[i] = v
	}
	return objCorner{p: out[0], t: out[1], n: out[2]}, nil
}

// LoadOBJ parses the OBJ file at path and uploads it as a Mesh.
func LoadOBJ(ctx *graphics.Context, path string) (*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("scene: open mesh: %w", err)
	}
	defer f.Close()
	vertices, indices, err := ParseOBJ(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return NewMesh(ctx, path, vertices, indices)
}
