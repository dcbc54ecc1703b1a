package face

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// imageExtensions lists the reference image extensions the gallery builder accepts.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".webp": true,
}

// IsImageFile reports whether name has a recognised image extension (case-insensitive).
func IsImageFile(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}

// PrepareJPEG returns the image as JPEG bytes no larger than maxSize on either
// side. JPEG input already within bounds is returned unchanged; anything else
// is decoded, downscaled keeping aspect ratio and re-encoded. The returned
// ratio is original width over returned width (1 when not downscaled); boxes
// found in the returned image map back with RescaleDetections.
func PrepareJPEG(data []byte, maxSize int) ([]byte, float64, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode image header: %w", err)
	}
	if format == "jpeg" && (maxSize <= 0 || (cfg.Width <= maxSize && cfg.Height <= maxSize)) {
		return data, 1, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	newWidth, newHeight := width, height
	if maxSize > 0 && (width > maxSize || height > maxSize) {
		if width > height {
			newWidth = maxSize
			newHeight = int(float64(height) * float64(maxSize) / float64(width))
		} else {
			newHeight = maxSize
			newWidth = int(float64(width) * float64(maxSize) / float64(height))
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 90}); err != nil {
		return nil, 0, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), float64(width) / float64(newWidth), nil
}

// RescaleDetections multiplies every box by ratio in place, mapping boxes
// found in a downscaled copy back to the original image.
func RescaleDetections(detections []Detection, ratio float64) {
	if ratio == 1 || ratio <= 0 {
		return
	}
	for i := range detections {
		detections[i].Box = detections[i].Box.Scale(ratio)
	}
}
