// Package meshing turns chunk blocks into greedy-merged face quads.
package meshing

import (
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"chunkvault/internal/profiling"
	"chunkvault/internal/voxel"
)

// VertexStride is number of float32 per vertex (pos.xyz + normal.xyz)
const VertexStride = 6

// floats per quad: two triangles of three vertices
const quadFloats = 6 * VertexStride

// Mesh is the triangle list of one chunk in world space.
type Mesh struct {
	Coord    voxel.ChunkCoord
	Vertices []float32
}

// Quads returns the number of merged faces in the mesh.
func (m Mesh) Quads() int { return len(m.Vertices) / quadFloats }

type face struct {
	dir    voxel.Direction
	axis   int // 0=x 1=y 2=z
	sign   int
	u, v   int // in-plane axes
	normal [3]float32
}

var faces = [voxel.NumDirections]face{
	{voxel.DirEast, 0, +1, 1, 2, [3]float32{1, 0, 0}},
	{voxel.DirWest, 0, -1, 1, 2, [3]float32{-1, 0, 0}},
	{voxel.DirUp, 1, +1, 0, 2, [3]float32{0, 1, 0}},
	{voxel.DirDown, 1, -1, 0, 2, [3]float32{0, -1, 0}},
	{voxel.DirSouth, 2, +1, 0, 1, [3]float32{0, 0, 1}},
	{voxel.DirNorth, 2, -1, 0, 1, [3]float32{0, 0, -1}},
}

func blockAt(c *voxel.Chunk, p [3]int) voxel.Block {
	return c.Block(p[0], p[1], p[2])
}

// neighborBlock reads the cell one step along f from p, crossing into the
// linked neighbor chunk at the border. An unlinked neighbor reads as air.
func neighborBlock(c *voxel.Chunk, p [3]int, f face) voxel.Block {
	p[f.axis] += f.sign
	if p[f.axis] >= 0 && p[f.axis] < voxel.ChunkSize {
		return blockAt(c, p)
	}
	n := c.Neighbor(f.dir)
	if n == nil {
		return voxel.Air
	}
	p[f.axis] = (p[f.axis] + voxel.ChunkSize) % voxel.ChunkSize
	return blockAt(n, p)
}

// Build meshes c. A face is emitted where a non-air block borders air;
// coplanar visible faces are merged into rectangles.
func Build(c *voxel.Chunk) Mesh {
	defer profiling.Track("meshing.Build")()
	m := Mesh{Coord: c.Coord, Vertices: make([]float32, 0, 1024)}
	o := c.Coord.Origin()
	origin := [3]float32{float32(o.X), float32(o.Y), float32(o.Z)}
	for _, f := range faces {
		m.Vertices = buildDirection(c, f, origin, m.Vertices)
	}
	return m
}

func buildDirection(c *voxel.Chunk, f face, origin [3]float32, out []float32) []float32 {
	const n = voxel.ChunkSize
	var mask [n * n]bool
	for layer := 0; layer < n; layer++ {
		for u := 0; u < n; u++ {
			for v := 0; v < n; v++ {
				var p [3]int
				p[f.axis], p[f.u], p[f.v] = layer, u, v
				mask[u*n+v] = !blockAt(c, p).IsAir() && neighborBlock(c, p, f).IsAir()
			}
		}

		for i := 0; i < n*n; i++ {
			if !mask[i] {
				continue
			}
			u0, v0 := i/n, i%n
			w := 1
			for v0+w < n && mask[u0*n+v0+w] {
				w++
			}
			h := 1
		grow:
			for u0+h < n {
				for v := v0; v < v0+w; v++ {
					if !mask[(u0+h)*n+v] {
						break grow
					}
				}
				h++
			}
			for du := 0; du < h; du++ {
				for dv := 0; dv < w; dv++ {
					mask[(u0+du)*n+v0+dv] = false
				}
			}
			out = emitQuad(out, f, origin, layer, u0, v0, h, w)
		}
	}
	return out
}

func emitQuad(out []float32, f face, origin [3]float32, layer, u0, v0, h, w int) []float32 {
	plane := float32(layer)
	if f.sign > 0 {
		plane++
	}
	corner := func(u, v int) [3]float32 {
		var p [3]float32
		p[f.axis] = plane
		p[f.u] = float32(u)
		p[f.v] = float32(v)
		return [3]float32{p[0] + origin[0], p[1] + origin[1], p[2] + origin[2]}
	}
	c0, c1, c2, c3 := corner(u0, v0), corner(u0+h, v0), corner(u0+h, v0+w), corner(u0, v0+w)
	if f.sign < 0 {
		c1, c3 = c3, c1
	}
	for _, p := range [...][3]float32{c0, c1, c2, c2, c3, c0} {
		out = append(out, p[0], p[1], p[2], f.normal[0], f.normal[1], f.normal[2])
	}
	return out
}

// Builder meshes chunks for the chunk manager and keeps running totals.
type Builder struct {
	log    logrus.FieldLogger
	meshes atomic.Int64
	quads  atomic.Int64
	// OnMesh, when set, receives every finished mesh.
	OnMesh func(Mesh)
}

func NewBuilder(log logrus.FieldLogger) *Builder {
	return &Builder{log: log}
}

// BuildMesh meshes c and records the result.
func (b *Builder) BuildMesh(c *voxel.Chunk) {
	m := Build(c)
	b.meshes.Inc()
	b.quads.Add(int64(m.Quads()))
	if b.log != nil {
		b.log.WithField("chunk", c.Coord.String()).WithField("quads", m.Quads()).Trace("chunk meshed")
	}
	if b.OnMesh != nil {
		b.OnMesh(m)
	}
}

// Totals returns the number of meshes built and the quads they contained.
func (b *Builder) Totals() (meshes, quads int64) {
	return b.meshes.Load(), b.quads.Load()
}
