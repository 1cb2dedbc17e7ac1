package math

// Vertex3D is a single vertex of a static or skinned mesh.
type Vertex3D struct {
	Position Vec3
	Normal   Vec3
	Texcoord Vec2
	Colour   Vec4
	Tangent  Vec3
}

// GeometryGenerateNormals writes flat face normals into every triangle's vertices.
func GeometryGenerateNormals(vertices []Vertex3D, indices []uint32) {
	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]

		edge1 := vertices[i1].Position.Sub(vertices[i0].Position)
		edge2 := vertices[i2].Position.Sub(vertices[i0].Position)
		normal := edge1.Cross(edge2).Normalized()

		// NOTE: This just generates a face normal. Smoothing out should be done in a separate pass if desired.
		vertices[i0].Normal = normal
		vertices[i1].Normal = normal
		vertices[i2].Normal = normal
	}
}

// GeometryGenerateTangents writes per-face tangents with handedness folded in.
func GeometryGenerateTangents(vertices []Vertex3D, indices []uint32) {
	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]

		edge1 := vertices[i1].Position.Sub(vertices[i0].Position)
		edge2 := vertices[i2].Position.Sub(vertices[i0].Position)

		deltaUV1 := vertices[i1].Texcoord.Sub(vertices[i0].Texcoord)
		deltaUV2 := vertices[i2].Texcoord.Sub(vertices[i0].Texcoord)

		dividend := deltaUV1.X*deltaUV2.Y - deltaUV2.X*deltaUV1.Y
		if dividend == 0 {
			continue
		}
		fc := 1.0 / dividend

		tangent := Vec3{
			fc * (deltaUV2.Y*edge1.X - deltaUV1.Y*edge2.X),
			fc * (deltaUV2.Y*edge1.Y - deltaUV1.Y*edge2.Y),
			fc * (deltaUV2.Y*edge1.Z - deltaUV1.Y*edge2.Z),
		}.Normalized()

		handedness := float32(1.0)
		if deltaUV1.Y*deltaUV2.X-deltaUV2.Y*deltaUV1.X < 0.0 {
			handedness = -1.0
		}
		t := tangent.MulScalar(handedness)
		vertices[i0].Tangent = t
		vertices[i1].Tangent = t
		vertices[i2].Tangent = t
	}
}

// GeometryExtents returns the bounding box of the positions.
func GeometryExtents(vertices []Vertex3D) Extents3D {
	e := EmptyExtents()
	for _, v := range vertices {
		e = e.Extend(v.Position)
	}
	return e
}
