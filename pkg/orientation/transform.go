package orientation

// Dimensions describes a pixel buffer's geometry as the transform needs to
// read and, for the 90/270 cases, rewrite it.
type Dimensions struct {
	Width, Height, Stride int
	PixelSize             int
}

// Apply applies o to buf (height*stride bytes, row-major, row length
// dims.Stride, dims.PixelSize bytes per pixel) and returns the transformed
// buffer along with the new dimensions. Mirror and 180-degree rotation are
// done in place; 90/270 degree rotation allocate a new buffer since width
// and height are swapped and the stride must be recomputed.
//
// Ported verbatim (index arithmetic included) from change_orientation in
// original_source/glycin-utils/src/editing/orientation.rs.
func Apply(buf []byte, dims Dimensions, o Orientation) ([]byte, Dimensions) {
	width, height, stride, pixelSize := dims.Width, dims.Height, dims.Stride, dims.PixelSize

	if o.Mirror() {
		for x := 0; x < width/2; x++ {
			for y := 0; y < height; y++ {
				for i := 0; i < pixelSize; i++ {
					p0 := x*pixelSize + y*stride + i
					p1 := (width-1-x)*pixelSize + y*stride + i
					buf[p0], buf[p1] = buf[p1], buf[p0]
				}
			}
		}
	}

	switch o.Rotate() {
	case Rotation0:
		return buf, dims

	case Rotation270:
		nBytes := width * height * pixelSize
		v := make([]byte, nBytes)
		newStride := height * pixelSize
		for x := 0; x < width; x++ {
			for y := 0; y < height; y++ {
				for i := 0; i < pixelSize; i++ {
					p0 := x*pixelSize + y*stride + i
					p1 := x*height*pixelSize + (height-1-y)*pixelSize + i
					v[p1] = buf[p0]
				}
			}
		}
		return v, Dimensions{Width: height, Height: width, Stride: newStride, PixelSize: pixelSize}

	case Rotation90:
		nBytes := width * height * pixelSize
		v := make([]byte, nBytes)
		newStride := height * pixelSize
		for x := 0; x < width; x++ {
			for y := 0; y < height; y++ {
				for i := 0; i < pixelSize; i++ {
					p0 := x*pixelSize + y*stride + i
					p1 := (width-1-x)*height*pixelSize + y*pixelSize + i
					v[p1] = buf[p0]
				}
			}
		}
		return v, Dimensions{Width: height, Height: width, Stride: newStride, PixelSize: pixelSize}

	case Rotation180:
		midCol := width / 2
		unevenCols := width%2 == 1
		xCount := (width + 1) / 2
		for x := 0; x < xCount; x++ {
			yMax := height
			if unevenCols && midCol == x {
				yMax = height / 2
			}
			for y := 0; y < yMax; y++ {
				for i := 0; i < pixelSize; i++ {
					p0 := x*pixelSize + y*stride + i
					p1 := (width-1-x)*pixelSize + (height-1-y)*stride + i
					buf[p0], buf[p1] = buf[p1], buf[p0]
				}
			}
		}
		return buf, dims
	}

	return buf, dims
}
