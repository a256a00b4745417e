package texture

import (
	"image"

	"golang.org/x/image/draw"
)

// Image is tightly packed 8-bit RGB, top row first.
type Image struct {
	Width  int
	Height int
	Pix    []byte
}

// ToRGB converts any decoded image to packed RGB. Alpha is dropped without
// premultiplying, so translucent pixels keep their stored colour.
func ToRGB(src image.Image) *Image {
	b := src.Bounds()
	px, ok := src.(*image.NRGBA)
	if !ok || px.Rect.Min != (image.Point{}) {
		px = image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Copy(px, image.Point{}, src, b, draw.Src, nil)
	}

	w, h := b.Dx(), b.Dy()
	out := &Image{Width: w, Height: h, Pix: make([]byte, w*h*3)}
	for y := 0; y < h; y++ {
		row := px.Pix[y*px.Stride : y*px.Stride+w*4]
		dst := out.Pix[y*w*3 : (y+1)*w*3]
		for x := 0; x < w; x++ {
			dst[x*3+0] = row[x*4+0]
			dst[x*3+1] = row[x*4+1]
			dst[x*3+2] = row[x*4+2]
		}
	}
	return out
}
