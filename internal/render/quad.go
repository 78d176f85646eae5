package render

// QuadStride is the number of floats per vertex: x, y, z, u, v.
const QuadStride = 5

// QuadLayout binds position to attribute 0 and texture coordinates to 1.
var QuadLayout = []Attrib{
	{Index: 0, Size: 3, Offset: 0},
	{Index: 1, Size: 2, Offset: 3},
}

// FullScreenQuad covers clip space with two triangles. Texture coordinates
// put the screenshot's first row at the top of the screen.
//
//	3_____0
//	|\    |
//	|  \  |
//	2____\1
var FullScreenQuad = []float32{
	// x, y, z, u, v
	1, 1, 0, 1, 0, // 0 top right
	1, -1, 0, 1, 1, // 1 bottom right
	-1, 1, 0, 0, 0, // 3 top left

	1, -1, 0, 1, 1, // 1 bottom right
	-1, -1, 0, 0, 1, // 2 bottom left
	-1, 1, 0, 0, 0, // 3 top left
}
