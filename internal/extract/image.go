// ABOUTME: Image preprocessing for OCR: grayscale, denoise, Otsu binarization.
// ABOUTME: Falls back to the original image if preprocessing fails.
package extract

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// extractImage preprocesses the image and runs the configured OCR engine.
func (e *Extractor) extractImage(ctx context.Context, path string) (string, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return "", fmt.Errorf("could not read image file %s: %w", path, err)
	}

	processed, err := preprocessForOCR(img)
	if err != nil {
		// Recognition still works on the raw image, just less reliably.
		e.log.Warn("image preprocessing failed, using original image")
		processed = img
	}

	text, err := e.ocr.Recognize(ctx, processed)
	if err != nil {
		return "", fmt.Errorf("failed to extract text from image %s: %w", path, err)
	}
	return text, nil
}

// preprocessForOCR improves recognition on low-contrast or noisy captures:
// grayscale conversion, light gaussian denoise, then Otsu thresholding to a
// binary image.
func preprocessForOCR(img image.Image) (image.Image, error) {
	gray := imaging.Grayscale(img)
	denoised := imaging.Blur(gray, 0.8)
	return otsuBinarize(toGray(denoised)), nil
}

// toGray converts any image to 8-bit grayscale.
func toGray(img image.Image) *image.Gray {
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.Set(x, y, img.At(x, y))
		}
	}
	return gray
}

// otsuBinarize thresholds a grayscale image using Otsu's method, which picks
// the cut that maximizes between-class variance of the intensity histogram.
func otsuBinarize(gray *image.Gray) *image.Gray {
	var hist [256]int
	total := 0
	bounds := gray.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			hist[gray.GrayAt(x, y).Y]++
			total++
		}
	}
	if total == 0 {
		return gray
	}

	var sum float64
	for i, c := range hist {
		sum += float64(i) * float64(c)
	}

	var sumB, wB float64
	var maxVar float64
	threshold := 0
	for i := 0; i < 256; i++ {
		wB += float64(hist[i])
		if wB == 0 {
			continue
		}
		wF := float64(total) - wB
		if wF == 0 {
			break
		}
		sumB += float64(i) * float64(hist[i])
		mB := sumB / wB
		mF := (sum - sumB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > maxVar {
			maxVar = between
			threshold = i
		}
	}

	out := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if int(gray.GrayAt(x, y).Y) > threshold {
				out.SetGray(x, y, color.Gray{Y: 255})
			} else {
				out.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}
	return out
}
