package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/postflowhq/carousel-service/internal/config"
)

var (
	darkBackground  = color.RGBA{R: 22, G: 24, B: 33, A: 255}
	lightBackground = color.RGBA{R: 245, G: 243, B: 238, A: 255}
	lightText       = color.RGBA{R: 240, G: 240, B: 240, A: 255}
	darkText        = color.RGBA{R: 35, G: 35, B: 40, A: 255}
	mutedText       = color.RGBA{R: 140, G: 140, B: 150, A: 255}
)

// Renderer rasterises post content into fixed-size square slide images.
type Renderer struct {
	outputDir string
	size      int

	titleFace   font.Face
	bodyFace    font.Face
	counterFace font.Face
}

// NewRenderer prepares font faces scaled to the canvas and ensures the
// output directory exists.
func NewRenderer(cfg config.Render) (*Renderer, error) {
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create render output dir: %w", err)
	}

	size := cfg.CanvasSize
	if size <= 0 {
		size = 1080
	}

	boldFont, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bold font: %w", err)
	}
	regularFont, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse regular font: %w", err)
	}

	titleFace, err := opentype.NewFace(boldFont, &opentype.FaceOptions{
		Size: float64(size) / 14, DPI: 72, Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create title face: %w", err)
	}
	bodyFace, err := opentype.NewFace(regularFont, &opentype.FaceOptions{
		Size: float64(size) / 20, DPI: 72, Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create body face: %w", err)
	}
	counterFace, err := opentype.NewFace(regularFont, &opentype.FaceOptions{
		Size: float64(size) / 36, DPI: 72, Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create counter face: %w", err)
	}

	return &Renderer{
		outputDir:   cfg.OutputDir,
		size:        size,
		titleFace:   titleFace,
		bodyFace:    bodyFace,
		counterFace: counterFace,
	}, nil
}

// Render produces the full slide sequence for one post: a cover with the
// title, one slide per text, and a closing call-to-action slide. The returned
// paths are in display order; the publisher depends on exactly
// len(slides)+2 images coming back in that order.
func (r *Renderer) Render(title string, slides []string, cta string) ([]string, error) {
	paths := make([]string, 0, len(slides)+2)

	coverPath, err := r.renderSlide(title, r.titleFace, darkBackground, lightText, "")
	if err != nil {
		return nil, fmt.Errorf("failed to render cover: %w", err)
	}
	paths = append(paths, coverPath)

	for i, text := range slides {
		counter := fmt.Sprintf("%d/%d", i+2, len(slides)+2)
		slidePath, err := r.renderSlide(text, r.bodyFace, lightBackground, darkText, counter)
		if err != nil {
			return nil, fmt.Errorf("failed to render slide %d: %w", i+1, err)
		}
		paths = append(paths, slidePath)
	}

	ctaPath, err := r.renderSlide(cta, r.titleFace, darkBackground, lightText, "")
	if err != nil {
		return nil, fmt.Errorf("failed to render cta slide: %w", err)
	}
	paths = append(paths, ctaPath)

	return paths, nil
}

// renderSlide draws one square image with the text word-wrapped and
// vertically centered, plus an optional slide counter at the bottom.
func (r *Renderer) renderSlide(text string, face font.Face, bg, fg color.Color, counter string) (string, error) {
	img := image.NewRGBA(image.Rect(0, 0, r.size, r.size))
	draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	margin := r.size / 10
	lines := wrapText(face, text, r.size-2*margin)

	metrics := face.Metrics()
	lineHeight := (metrics.Ascent + metrics.Descent).Ceil() * 13 / 10
	blockHeight := lineHeight * len(lines)
	y := (r.size-blockHeight)/2 + metrics.Ascent.Ceil()

	for _, line := range lines {
		drawCenteredLine(img, face, fg, line, y, r.size)
		y += lineHeight
	}

	if counter != "" {
		drawCenteredLine(img, r.counterFace, mutedText, counter, r.size-margin/2, r.size)
	}

	path := filepath.Join(r.outputDir, uuid.New().String()+".png")
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create image file: %w", err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return "", fmt.Errorf("failed to encode png: %w", err)
	}

	return path, nil
}

// drawCenteredLine draws a single line horizontally centered at baseline y.
func drawCenteredLine(img draw.Image, face font.Face, fg color.Color, line string, y, width int) {
	lineWidth := font.MeasureString(face, line).Ceil()
	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(fg),
		Face: face,
		Dot:  fixed.P((width-lineWidth)/2, y),
	}
	drawer.DrawString(line)
}

// wrapText splits text into lines that fit maxWidth when drawn with face.
// A single word wider than the limit gets its own line rather than being
// broken mid-word.
func wrapText(face font.Face, text string, maxWidth int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		candidate := current + " " + word
		if font.MeasureString(face, candidate).Ceil() > maxWidth {
			lines = append(lines, current)
			current = word
			continue
		}
		current = candidate
	}
	lines = append(lines, current)

	return lines
}
