package splat

// shTableWidth is the fixed table width in texels.
const shTableWidth = 1024

// texelsPerSlot is how many 4-scalar texels one vertex's 48 SH scalars
// occupy: 48 / 4 = 12.
const texelsPerSlot = 12

// SHTable is the packed spherical-harmonic side buffer: one 48-scalar slot
// per original vertex (not per corner), addressable by integer (x,y) texel
// coordinates in a fixed-width table, matching how a GPU would sample it
// from a 2D float texture.
type SHTable struct {
	Width  int
	Height int
	Texels [][4]float64 // length Width*Height, row-major
}

// NewSHTable allocates a table sized for vertexCount vertices.
func NewSHTable(vertexCount int) *SHTable {
	totalTexels := vertexCount * texelsPerSlot
	height := ceilDiv(totalTexels, shTableWidth)
	if height < 1 {
		height = 1
	}
	return &SHTable{
		Width:  shTableWidth,
		Height: height,
		Texels: make([][4]float64, shTableWidth*height),
	}
}

func ceilDiv(a, b int) int {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

// TexelCoord returns the (x,y) integer coordinate of texel k (in [0,12))
// of vertexIndex's slot.
func (t *SHTable) TexelCoord(vertexIndex, k int) (x, y int) {
	idx := vertexIndex*texelsPerSlot + k
	return idx % t.Width, idx / t.Width
}

// Set packs a vertex's DC triple and rest coefficients into its 12 texels.
// rest may be shorter than 45 scalars (lower SH degree); unused scalars are
// zero.
func (t *SHTable) Set(vertexIndex int, dc [3]float64, rest []float64) {
	var scalars [48]float64
	scalars[0], scalars[1], scalars[2] = dc[0], dc[1], dc[2]
	copy(scalars[3:], rest)

	for k := 0; k < texelsPerSlot; k++ {
		x, y := t.TexelCoord(vertexIndex, k)
		idx := y*t.Width + x
		var texel [4]float64
		for c := 0; c < 4; c++ {
			texel[c] = scalars[k*4+c]
		}
		t.Texels[idx] = texel
	}
}

// Get unpacks a vertex's 48 scalars back into a DC triple and a 45-scalar
// rest array (only the first RestCount(degree)*3 entries are meaningful;
// the tail is zero-padded).
func (t *SHTable) Get(vertexIndex int) (dc [3]float64, rest [45]float64) {
	var scalars [48]float64
	for k := 0; k < texelsPerSlot; k++ {
		x, y := t.TexelCoord(vertexIndex, k)
		idx := y*t.Width + x
		texel := t.Texels[idx]
		for c := 0; c < 4; c++ {
			scalars[k*4+c] = texel[c]
		}
	}
	dc[0], dc[1], dc[2] = scalars[0], scalars[1], scalars[2]
	copy(rest[:], scalars[3:])
	return dc, rest
}
