package chromakey

import (
	"image"
	"image/png"
	"os"

	"golang.org/x/image/draw"
)

// Frame is a rectangular RGBA pixel buffer holding one video frame.
//
// The compositor owns at most one Frame copy of the live source at a time:
// the staging frame currently being keyed or uploaded. Layout is straight
// (non-premultiplied) RGBA, 4 bytes per pixel, row by row.
type Frame struct {
	width  int
	height int
	data   []uint8
}

// NewFrame creates a frame with the given dimensions.
func NewFrame(width, height int) *Frame {
	return &Frame{
		width:  width,
		height: height,
		data:   make([]uint8, width*height*4),
	}
}

// Width returns the width of the frame.
func (f *Frame) Width() int {
	return f.width
}

// Height returns the height of the frame.
func (f *Frame) Height() int {
	return f.height
}

// Data returns the raw pixel data (RGBA format).
func (f *Frame) Data() []uint8 {
	return f.data
}

// SetPixel sets the color of a single pixel, fully opaque.
func (f *Frame) SetPixel(x, y int, c RGB) {
	if x < 0 || x >= f.width || y < 0 || y >= f.height {
		return
	}
	i := (y*f.width + x) * 4
	f.data[i+0] = uint8(clamp255(c.R * 255))
	f.data[i+1] = uint8(clamp255(c.G * 255))
	f.data[i+2] = uint8(clamp255(c.B * 255))
	f.data[i+3] = 255
}

// Pixel returns the color of a single pixel, ignoring alpha.
func (f *Frame) Pixel(x, y int) RGB {
	if x < 0 || x >= f.width || y < 0 || y >= f.height {
		return RGB{}
	}
	i := (y*f.width + x) * 4
	return RGB{
		R: float64(f.data[i+0]) / 255,
		G: float64(f.data[i+1]) / 255,
		B: float64(f.data[i+2]) / 255,
	}
}

// Fill sets every pixel to the given opaque color.
func (f *Frame) Fill(c RGB) {
	r := uint8(clamp255(c.R * 255))
	g := uint8(clamp255(c.G * 255))
	b := uint8(clamp255(c.B * 255))
	for i := 0; i < len(f.data); i += 4 {
		f.data[i+0] = r
		f.data[i+1] = g
		f.data[i+2] = b
		f.data[i+3] = 255
	}
}

// ReadFrom copies the contents of img into the frame, converting from any
// image format. When img dimensions differ from the frame, the image is
// scaled with bilinear interpolation; otherwise the copy is direct. The
// frame never keeps a reference to img.
func (f *Frame) ReadFrom(img image.Image) {
	dst := &image.RGBA{
		Pix:    f.data,
		Stride: f.width * 4,
		Rect:   image.Rect(0, 0, f.width, f.height),
	}
	b := img.Bounds()
	if b.Dx() == f.width && b.Dy() == f.height {
		draw.Draw(dst, dst.Rect, img, b.Min, draw.Src)
		return
	}
	draw.BiLinear.Scale(dst, dst.Rect, img, b, draw.Src, nil)
}

// FrameFromImage creates a frame sized to img and copies its contents.
func FrameFromImage(img image.Image) *Frame {
	b := img.Bounds()
	f := NewFrame(b.Dx(), b.Dy())
	f.ReadFrom(img)
	return f
}

// ToImage converts the frame to an image.RGBA copy.
func (f *Frame) ToImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.width, f.height))
	copy(img.Pix, f.data)
	return img
}

// SavePNG saves the frame to a PNG file.
func (f *Frame) SavePNG(path string) error {
	file, err := os.Create(path) //nolint:gosec // path is user-provided intentionally
	if err != nil {
		return err
	}
	defer func() {
		_ = file.Close()
	}()
	return png.Encode(file, f.ToImage())
}
