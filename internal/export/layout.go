package export

import (
	"image"
	"image/color"
	"image/draw"
)

// DefaultSeparatorMargin is the pixel gap between group members in the
// stacked output.
const DefaultSeparatorMargin = 12

// Layout composes the cropped members of a group into one output buffer.
// The merge geometry is a policy, not a fixed algorithm; alternative layouts
// plug in here.
type Layout interface {
	Compose(parts []*image.RGBA) *image.RGBA
}

// VerticalStack stacks parts top to bottom at the left edge, separated by
// Margin pixels, on a canvas as wide as the widest part. A single part is
// returned unchanged in content: no margin, no padding rows.
type VerticalStack struct {
	Margin     int
	Background color.Color
}

// NewVerticalStack returns the default stacking layout.
func NewVerticalStack(margin int) VerticalStack {
	if margin < 0 {
		margin = DefaultSeparatorMargin
	}
	return VerticalStack{Margin: margin, Background: color.White}
}

func (v VerticalStack) Compose(parts []*image.RGBA) *image.RGBA {
	if len(parts) == 0 {
		return nil
	}

	maxWidth := 0
	totalHeight := 0
	for _, part := range parts {
		if w := part.Bounds().Dx(); w > maxWidth {
			maxWidth = w
		}
		totalHeight += part.Bounds().Dy()
	}
	totalHeight += v.Margin * (len(parts) - 1)

	bg := v.Background
	if bg == nil {
		bg = color.White
	}
	canvas := image.NewRGBA(image.Rect(0, 0, maxWidth, totalHeight))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	y := 0
	for _, part := range parts {
		b := part.Bounds()
		target := image.Rect(0, y, b.Dx(), y+b.Dy())
		draw.Draw(canvas, target, part, b.Min, draw.Src)
		y += b.Dy() + v.Margin
	}
	return canvas
}
