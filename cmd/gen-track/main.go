// Command gen-track paints a test track: a white oval of tarmac on black
// walls, a red start line at the top and a gravel run-off at the right end.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
)

func main() {
	out := flag.String("out", "assets/track.png", "Output PNG path")
	width := flag.Int("width", 800, "Image width in pixels")
	height := flag.Int("height", 600, "Image height in pixels")
	flag.Parse()

	if err := run(*out, *width, *height); err != nil {
		fmt.Fprintf(os.Stderr, "gen-track: %v\n", err)
		os.Exit(1)
	}
}

func run(path string, width, height int) error {
	img := paint(width, height)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return f.Close()
}

func paint(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	black := color.RGBA{0, 0, 0, 255}
	white := color.RGBA{255, 255, 255, 255}
	red := color.RGBA{255, 0, 0, 255}
	green := color.RGBA{0, 255, 0, 255}

	centerX, centerY := width/2, height/2
	radiusX, radiusY := float64(width)*0.375, float64(height)/3
	trackWidth := 50

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			dx := float64(x - centerX)
			dy := float64(y - centerY)

			// Ellipse equation: (x/a)^2 + (y/b)^2 = 1
			dist := (dx*dx)/(radiusX*radiusX) + (dy*dy)/(radiusY*radiusY)

			switch {
			case dist <= 1.0 && dist >= 0.6:
				img.Set(x, y, white)
			case dist > 1.0 && dist <= 1.15 && dx > radiusX*0.7:
				img.Set(x, y, green)
			default:
				img.Set(x, y, black)
			}
		}
	}

	// Start line across the top straight
	for y := centerY - int(radiusY); y < centerY-int(radiusY)+trackWidth; y++ {
		for x := centerX - 10; x < centerX+10; x++ {
			if img.RGBAAt(x, y) == white {
				img.Set(x, y, red)
			}
		}
	}
	return img
}
