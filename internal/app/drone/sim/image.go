package sim

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"math"
)

const (
	frameW = 320
	frameH = 240
	tileCm = 50
)

// renderView draws a downward-looking frame for the pose in st: a ground
// checkerboard shifted by the drone position and scaled by its height,
// with a heading needle from the centre.
func renderView(st State) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, frameW, frameH))

	// pixels per cm shrink as the drone climbs
	scale := 2.0 / (1 + st.Position.Z/100)
	light := color.RGBA{R: 118, G: 168, B: 82, A: 255}
	dark := color.RGBA{R: 74, G: 120, B: 52, A: 255}

	for py := 0; py < frameH; py++ {
		for px := 0; px < frameW; px++ {
			gx := st.Position.X + float64(frameH/2-py)/scale
			gy := st.Position.Y + float64(px-frameW/2)/scale
			tx := int(math.Floor(gx / tileCm))
			ty := int(math.Floor(gy / tileCm))
			c := light
			if (tx+ty)%2 != 0 {
				c = dark
			}
			img.SetRGBA(px, py, c)
		}
	}

	needle := color.RGBA{R: 230, G: 40, B: 40, A: 255}
	rad := st.Heading * math.Pi / 180
	for r := 0.0; r < 60; r++ {
		x := frameW/2 + int(math.Round(r*math.Sin(rad)))
		y := frameH/2 - int(math.Round(r*math.Cos(rad)))
		img.SetRGBA(x, y, needle)
		img.SetRGBA(x+1, y, needle)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
