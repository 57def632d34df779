package asset

import (
	"bytes"
	"context"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"math"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"videotube/pkg/apierror"
)

const jpegQuality = 90

// ImageNormalizer is a Store decorator that decodes image uploads, scales them
// down to fit maxDimension and re-encodes them as JPEG before delegating.
type ImageNormalizer struct {
	next         Store
	maxDimension int
}

func NewImageNormalizer(next Store, maxDimension int) *ImageNormalizer {
	if maxDimension <= 0 {
		maxDimension = 1920
	}
	return &ImageNormalizer{next: next, maxDimension: maxDimension}
}

func (n *ImageNormalizer) Put(ctx context.Context, upload Upload) (Asset, error) {
	if !upload.Kind.IsImage() {
		return n.next.Put(ctx, upload)
	}

	encoded, err := NormalizeImage(upload.Body, n.maxDimension)
	if err != nil {
		return Asset{}, apierror.Validation(string(upload.Kind)+" must be a valid image", upload.Filename)
	}

	upload.Body = bytes.NewReader(encoded)
	upload.Size = int64(len(encoded))
	upload.ContentType = "image/jpeg"
	upload.Filename = strings.TrimSuffix(upload.Filename, filepath.Ext(upload.Filename)) + ".jpg"
	return n.next.Put(ctx, upload)
}

func (n *ImageNormalizer) Delete(ctx context.Context, url string) error {
	return n.next.Delete(ctx, url)
}

// NormalizeImage decodes src, scales it so neither side exceeds maxDimension
// and returns the JPEG encoding. Transparent pixels are flattened onto white.
func NormalizeImage(src io.Reader, maxDimension int) ([]byte, error) {
	decoded, _, err := image.Decode(src)
	if err != nil {
		return nil, err
	}

	bounds := decoded.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width < 1 || height < 1 {
		return nil, image.ErrFormat
	}

	scale := float64(maxDimension) / float64(max(width, height))
	if scale > 1 {
		scale = 1
	}

	targetWidth := max(1, int(math.Round(float64(width)*scale)))
	targetHeight := max(1, int(math.Round(float64(height)*scale)))

	dst := image.NewRGBA(image.Rect(0, 0, targetWidth, targetHeight))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), decoded, bounds, draw.Over, nil)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
