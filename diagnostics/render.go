package diagnostics

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// ConvergenceChart plots each iteration's angle and translation delta so an
// operator can see whether registration is converging smoothly or stalling.
type ConvergenceChart struct {
	Samples      []IterationSample
	Angles       []float64 // radians, same length/order as Samples
	Translations []float64 // millimetres
	Width        float64
	Height       float64
	Padding      float64
	Resolution   canvas.Resolution
}

// NewConvergenceChart builds a chart with a generous default page
// geometry: wide padding, 300 DPI PNG output.
func NewConvergenceChart(samples []IterationSample, angles, translations []float64) *ConvergenceChart {
	return &ConvergenceChart{
		Samples:      samples,
		Angles:       angles,
		Translations: translations,
		Width:        800,
		Height:       400,
		Padding:      40,
		Resolution:   canvas.DPI(300),
	}
}

type canvasRenderer interface {
	RenderPath(path *canvas.Path, style canvas.Style, m canvas.Matrix)
}

// RenderSVG writes the chart as SVG.
func (c *ConvergenceChart) RenderSVG(w io.Writer) error {
	renderer := svg.New(w, c.Width, c.Height, nil)
	c.renderToCanvas(renderer)
	return renderer.Close()
}

// RenderPNG writes the chart as PNG, with a small legend burned into the
// bitmap identifying the angle and translation traces by colour.
func (c *ConvergenceChart) RenderPNG(w io.Writer) error {
	rast := rasterizer.New(c.Width, c.Height, c.Resolution, canvas.DefaultColorSpace)
	c.renderToCanvas(rast)
	if dst, ok := any(rast).(draw.Image); ok {
		drawLabel(dst, int(c.Padding), 16, "angle (rad)", color.RGBA{0x1f, 0x77, 0xb4, 0xff})
		drawLabel(dst, int(c.Padding)+120, 16, "translation (mm)", color.RGBA{0xd6, 0x27, 0x28, 0xff})
	}
	return png.Encode(w, rast)
}

// drawLabel burns a short string onto dst at (x, y) using a fixed bitmap
// font, avoiding a dependency on the vector renderer's own text layout.
func drawLabel(dst draw.Image, x, y int, text string, c color.RGBA) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}

func (c *ConvergenceChart) renderToCanvas(renderer canvasRenderer) {
	bgStyle := canvas.DefaultStyle
	bgStyle.Fill = canvas.Paint{Color: canvas.White}
	renderer.RenderPath(canvas.Rectangle(c.Width, c.Height), bgStyle, canvas.Identity)

	if len(c.Angles) < 2 {
		return
	}

	plotW := c.Width - 2*c.Padding
	plotH := c.Height - 2*c.Padding
	n := len(c.Angles)

	maxAngle := maxOf(c.Angles)
	maxTrans := maxOf(c.Translations)

	toX := func(i int) float64 {
		return c.Padding + plotW*float64(i)/float64(n-1)
	}

	axisStyle := canvas.DefaultStyle
	axisStyle.Fill = canvas.Paint{Color: canvas.Transparent}
	axisStyle.Stroke = canvas.Paint{Color: canvas.Gray}
	axisStyle.StrokeWidth = 1.5
	axis := &canvas.Path{}
	axis.MoveTo(c.Padding, c.Padding)
	axis.LineTo(c.Padding, c.Height-c.Padding)
	axis.LineTo(c.Width-c.Padding, c.Height-c.Padding)
	renderer.RenderPath(axis, axisStyle, canvas.Identity)

	angleStyle := canvas.DefaultStyle
	angleStyle.Fill = canvas.Paint{Color: canvas.Transparent}
	angleStyle.Stroke = canvas.Paint{Color: color.RGBA{0x1f, 0x77, 0xb4, 0xff}}
	angleStyle.StrokeWidth = 2.0
	renderer.RenderPath(seriesPath(c.Angles, maxAngle, toX, c.Height, c.Padding, plotH), angleStyle, canvas.Identity)

	transStyle := canvas.DefaultStyle
	transStyle.Fill = canvas.Paint{Color: canvas.Transparent}
	transStyle.Stroke = canvas.Paint{Color: color.RGBA{0xd6, 0x27, 0x28, 0xff}}
	transStyle.StrokeWidth = 2.0
	renderer.RenderPath(seriesPath(c.Translations, maxTrans, toX, c.Height, c.Padding, plotH), transStyle, canvas.Identity)
}

func seriesPath(values []float64, max float64, toX func(int) float64, height, padding, plotH float64) *canvas.Path {
	p := &canvas.Path{}
	if max <= 0 {
		max = 1
	}
	for i, v := range values {
		x := toX(i)
		y := height - padding - plotH*(v/max)
		if i == 0 {
			p.MoveTo(x, y)
		} else {
			p.LineTo(x, y)
		}
	}
	return p
}

func maxOf(values []float64) float64 {
	m := 0.0
	for _, v := range values {
		if math.Abs(v) > m {
			m = math.Abs(v)
		}
	}
	return m
}

// ValidateSeriesLengths checks the chart's angle/translation series share
// the samples' length before rendering, surfacing a clear error instead of
// an index panic.
func (c *ConvergenceChart) ValidateSeriesLengths() error {
	if len(c.Angles) != len(c.Samples) || len(c.Translations) != len(c.Samples) {
		return fmt.Errorf("diagnostics: series length mismatch: samples=%d angles=%d translations=%d",
			len(c.Samples), len(c.Angles), len(c.Translations))
	}
	return nil
}
