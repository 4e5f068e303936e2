package integrations

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"math"

	// decoders for pages served as gif or webp
	_ "image/gif"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ImageSettings bounds and re-encodes chapter pages.
type ImageSettings struct {
	MaxWidth  int
	MaxHeight int
	Quality   int
	Grayscale bool
	Contrast  float64
	Gamma     float64
	// Format is "jpeg" or "png".
	Format string
}

// ImageProcessor prepares page images for an e-reader.
type ImageProcessor struct {
	settings ImageSettings
}

func NewImageProcessor(settings ImageSettings) *ImageProcessor {
	if settings.Quality <= 0 || settings.Quality > 100 {
		settings.Quality = 85
	}
	if settings.Format == "" {
		settings.Format = "jpeg"
	}
	if settings.Contrast == 0 {
		settings.Contrast = 1
	}
	if settings.Gamma == 0 {
		settings.Gamma = 1
	}
	return &ImageProcessor{settings: settings}
}

// Extension is the file extension of processed images.
func (p *ImageProcessor) Extension() string {
	if p.settings.Format == "png" {
		return ".png"
	}
	return ".jpg"
}

// Process decodes a page, fits it to the configured bounds and encodes it
// again in the configured format.
func (p *ImageProcessor) Process(input io.Reader) ([]byte, error) {
	img, _, err := image.Decode(input)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	width, height := p.calculateDimensions(bounds.Dx(), bounds.Dy())
	if width != bounds.Dx() || height != bounds.Dy() {
		img = p.resize(img, width, height)
	}

	if p.settings.Grayscale {
		img = toGrayscale(img)
	}
	if p.settings.Contrast != 1 || p.settings.Gamma != 1 {
		img = p.adjustTones(img)
	}

	return p.encode(img)
}

func (p *ImageProcessor) ProcessBytes(data []byte) ([]byte, error) {
	return p.Process(bytes.NewReader(data))
}

// calculateDimensions keeps the aspect ratio. A zero bound is unbounded.
func (p *ImageProcessor) calculateDimensions(width, height int) (int, int) {
	scale := 1.0
	if p.settings.MaxWidth > 0 && width > p.settings.MaxWidth {
		scale = float64(p.settings.MaxWidth) / float64(width)
	}
	if p.settings.MaxHeight > 0 && height > p.settings.MaxHeight {
		scale = math.Min(scale, float64(p.settings.MaxHeight)/float64(height))
	}
	if scale == 1 {
		return width, height
	}
	return max(1, int(float64(width)*scale)), max(1, int(float64(height)*scale))
}

func (p *ImageProcessor) resize(img image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}

func toGrayscale(img image.Image) image.Image {
	if gray, ok := img.(*image.Gray); ok {
		return gray
	}
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	draw.Draw(gray, bounds, img, bounds.Min, draw.Src)
	return gray
}

// adjustTones applies contrast around middle gray, then gamma, through a
// lookup table over 8-bit channel values.
func (p *ImageProcessor) adjustTones(img image.Image) image.Image {
	var table [256]uint8
	for i := range table {
		v := (float64(i)-128)*p.settings.Contrast + 128
		v = math.Max(0, math.Min(255, v))
		v = 255 * math.Pow(v/255, 1/p.settings.Gamma)
		table[i] = uint8(math.Round(math.Max(0, math.Min(255, v))))
	}

	bounds := img.Bounds()
	if gray, ok := img.(*image.Gray); ok && gray.Stride == bounds.Dx() {
		out := image.NewGray(bounds)
		for i, v := range gray.Pix {
			out.Pix[i] = table[v]
		}
		return out
	}

	out := image.NewRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
			out.SetRGBA(x, y, color.RGBA{table[c.R], table[c.G], table[c.B], c.A})
		}
	}
	return out
}

func (p *ImageProcessor) encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	switch p.settings.Format {
	case "jpeg", "jpg":
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.settings.Quality}); err != nil {
			return nil, fmt.Errorf("failed to encode JPEG: %w", err)
		}
	case "png":
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("failed to encode PNG: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format: %s", p.settings.Format)
	}
	return buf.Bytes(), nil
}
