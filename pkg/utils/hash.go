package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"image"
	"image/draw"
)

// ImageHash returns a hex-encoded SHA-256 digest of an image's pixel data.
// Two images with identical pixels produce identical hashes regardless of
// how they were constructed.
func ImageHash(img image.Image) string {
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Bounds().Min != (image.Point{}) {
		b := img.Bounds()
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}

	hasher := sha256.New()
	hasher.Write(rgba.Pix)
	return hex.EncodeToString(hasher.Sum(nil))
}

// ShortImageHash returns the first eight hex digits of ImageHash, used in
// exported artifact filenames.
func ShortImageHash(img image.Image) string {
	return ImageHash(img)[:8]
}
