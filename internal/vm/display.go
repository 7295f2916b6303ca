package vm

const (
	ScreenWidth  = 64
	ScreenHeight = 32

	ExtendedScreenWidth  = 128
	ExtendedScreenHeight = 64
)

// Screen is a copy of the display buffer. Pixels are stored row by row.
type Screen struct {
	Width  int
	Height int
	Pixels []bool
}

func (s Screen) At(x, y int) bool {
	return s.Pixels[y*s.Width+x]
}

type display struct {
	width    int
	height   int
	extended bool
	pixels   []bool
}

func newDisplay() display {
	return display{
		width:  ScreenWidth,
		height: ScreenHeight,
		pixels: make([]bool, ScreenWidth*ScreenHeight),
	}
}

func (d *display) clear() {
	for i := range d.pixels {
		d.pixels[i] = false
	}
}

// extend switches to 128x64. There is no way back short of a reset.
func (d *display) extend() {
	if d.extended {
		return
	}
	d.extended = true
	d.width = ExtendedScreenWidth
	d.height = ExtendedScreenHeight
	d.pixels = make([]bool, d.width*d.height)
}

// flip XORs the pixel at (x, y), wrapping both coordinates, and reports
// whether it was set before.
func (d *display) flip(x, y int) bool {
	x %= d.width
	y %= d.height

	i := y*d.width + x
	wasSet := d.pixels[i]
	d.pixels[i] = !wasSet
	return wasSet
}

func (d *display) scrollDown(n int) {
	if n >= d.height {
		d.clear()
		return
	}
	copy(d.pixels[n*d.width:], d.pixels[:(d.height-n)*d.width])
	for i := 0; i < n*d.width; i++ {
		d.pixels[i] = false
	}
}

func (d *display) scrollRight(n int) {
	for y := 0; y < d.height; y++ {
		row := d.pixels[y*d.width : (y+1)*d.width]
		copy(row[n:], row[:d.width-n])
		for x := 0; x < n; x++ {
			row[x] = false
		}
	}
}

func (d *display) scrollLeft(n int) {
	for y := 0; y < d.height; y++ {
		row := d.pixels[y*d.width : (y+1)*d.width]
		copy(row, row[n:])
		for x := d.width - n; x < d.width; x++ {
			row[x] = false
		}
	}
}

func (d *display) snapshot() Screen {
	pixels := make([]bool, len(d.pixels))
	copy(pixels, d.pixels)

	return Screen{
		Width:  d.width,
		Height: d.height,
		Pixels: pixels,
	}
}
