package reference

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

// extractedMesh is the compact result of an integration. Faces hold three
// or four vertex indices.
type extractedMesh struct {
	positions []r3.Vec
	colors    []r3.Vec
	faces     [][]uint32
}

// estimateNormals computes area-weighted vertex normals from the face
// cross products. Vertices touched by no face keep a zero normal.
func estimateNormals(positions []r3.Vec, faces [][3]uint32) []r3.Vec {
	normals := make([]r3.Vec, len(positions))
	for _, f := range faces {
		a, b, c := positions[f[0]], positions[f[1]], positions[f[2]]
		n := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
		for _, idx := range f {
			normals[idx] = r3.Add(normals[idx], n)
		}
	}
	for i := range normals {
		normals[i] = unit(normals[i])
	}
	return normals
}

type edge struct{ a, b uint32 }

func undirected(a, b uint32) edge {
	if a > b {
		a, b = b, a
	}
	return edge{a, b}
}

// smooth runs tangential Laplacian smoothing on interior vertices. Each
// pass moves a vertex toward its neighbour centroid by weight, minus the
// component along its normal. Vertices on a boundary edge stay fixed.
func smooth(positions, normals []r3.Vec, faces [][3]uint32, weight float64, iterations int) {
	if weight <= 0 || iterations <= 0 {
		return
	}

	edgeUse := make(map[edge]int, 3*len(faces))
	neighbours := make([][]uint32, len(positions))
	link := func(a, b uint32) {
		e := undirected(a, b)
		if edgeUse[e] == 0 {
			neighbours[a] = append(neighbours[a], b)
			neighbours[b] = append(neighbours[b], a)
		}
		edgeUse[e]++
	}
	for _, f := range faces {
		link(f[0], f[1])
		link(f[1], f[2])
		link(f[2], f[0])
	}

	fixed := make([]bool, len(positions))
	for e, uses := range edgeUse {
		if uses == 1 {
			fixed[e.a] = true
			fixed[e.b] = true
		}
	}

	next := make([]r3.Vec, len(positions))
	for it := 0; it < iterations; it++ {
		for i, p := range positions {
			next[i] = p
			if fixed[i] || len(neighbours[i]) == 0 {
				continue
			}
			var centroid r3.Vec
			for _, nb := range neighbours[i] {
				centroid = r3.Add(centroid, positions[nb])
			}
			centroid = r3.Scale(1/float64(len(neighbours[i])), centroid)

			delta := r3.Sub(centroid, p)
			n := normals[i]
			delta = r3.Sub(delta, r3.Scale(r3.Dot(delta, n), n))
			next[i] = r3.Add(p, r3.Scale(weight, delta))
		}
		copy(positions, next)
	}
}

type cellKey struct{ x, y, z int64 }

// cluster merges vertices that fall into the same grid cell of edge size
// and rewrites the faces onto the merged vertices. Degenerate faces and
// repeated faces are dropped. Unreferenced clusters are compacted away.
// Output order follows first occurrence in the input, so the result is
// deterministic.
func cluster(positions, colors []r3.Vec, faces [][3]uint32, size float64) *extractedMesh {
	xs := make([]float64, len(positions))
	ys := make([]float64, len(positions))
	zs := make([]float64, len(positions))
	for i, p := range positions {
		xs[i], ys[i], zs[i] = p.X, p.Y, p.Z
	}
	origin := r3.Vec{X: floats.Min(xs), Y: floats.Min(ys), Z: floats.Min(zs)}

	cells := make(map[cellKey]int)
	var (
		sums   []r3.Vec
		tints  []r3.Vec
		counts []float64
	)
	owner := make([]int, len(positions))
	for i, p := range positions {
		rel := r3.Sub(p, origin)
		key := cellKey{
			x: int64(math.Floor(rel.X / size)),
			y: int64(math.Floor(rel.Y / size)),
			z: int64(math.Floor(rel.Z / size)),
		}
		c, ok := cells[key]
		if !ok {
			c = len(sums)
			cells[key] = c
			sums = append(sums, r3.Vec{})
			tints = append(tints, r3.Vec{})
			counts = append(counts, 0)
		}
		owner[i] = c
		sums[c] = r3.Add(sums[c], p)
		if colors != nil {
			tints[c] = r3.Add(tints[c], colors[i])
		}
		counts[c]++
	}

	remap := make([]int, len(sums))
	for i := range remap {
		remap[i] = -1
	}
	out := &extractedMesh{}
	seen := make(map[[3]uint32]bool, len(faces))
	for _, f := range faces {
		a, b, c := owner[f[0]], owner[f[1]], owner[f[2]]
		if a == b || b == c || c == a {
			continue
		}
		key := sortedFace(uint32(a), uint32(b), uint32(c))
		if seen[key] {
			continue
		}
		seen[key] = true

		face := make([]uint32, 3)
		for k, cl := range [3]int{a, b, c} {
			if remap[cl] < 0 {
				remap[cl] = len(out.positions)
				out.positions = append(out.positions, r3.Scale(1/counts[cl], sums[cl]))
				out.colors = append(out.colors, r3.Scale(1/counts[cl], tints[cl]))
			}
			face[k] = uint32(remap[cl])
		}
		out.faces = append(out.faces, face)
	}
	return out
}

func sortedFace(a, b, c uint32) [3]uint32 {
	if a > b {
		a, b = b, a
	}
	if b > c {
		b, c = c, b
	}
	if a > b {
		a, b = b, a
	}
	return [3]uint32{a, b, c}
}

// pairQuads merges triangle pairs that share their longest edge with
// opposite winding into quads. Unpaired triangles are kept. A merged quad
// fan-triangulates back into the two original triangles.
func (m *extractedMesh) pairQuads() {
	type halfEdge struct{ from, to uint32 }
	owner := make(map[halfEdge]int, 3*len(m.faces))
	for i, f := range m.faces {
		for k := 0; k < 3; k++ {
			owner[halfEdge{f[k], f[(k+1)%3]}] = i
		}
	}

	// longest returns the rotation k such that f[k]->f[k+1] is the
	// longest edge of triangle f.
	longest := func(f []uint32) int {
		best, bestLen := 0, -1.0
		for k := 0; k < 3; k++ {
			l := r3.Norm2(r3.Sub(m.positions[f[(k+1)%3]], m.positions[f[k]]))
			if l > bestLen {
				best, bestLen = k, l
			}
		}
		return best
	}

	used := make([]bool, len(m.faces))
	merged := make([][]uint32, 0, len(m.faces))
	for i, f := range m.faces {
		if used[i] {
			continue
		}
		k := longest(f)
		p, q, r := f[k], f[(k+1)%3], f[(k+2)%3]
		j, ok := owner[halfEdge{q, p}]
		if !ok || used[j] || j == i {
			used[i] = true
			merged = append(merged, f)
			continue
		}
		g := m.faces[j]
		kg := longest(g)
		if g[kg] != q || g[(kg+1)%3] != p {
			used[i] = true
			merged = append(merged, f)
			continue
		}
		s := g[(kg+2)%3]
		used[i], used[j] = true, true
		merged = append(merged, []uint32{p, s, q, r})
	}
	m.faces = merged
}
