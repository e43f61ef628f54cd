package geometry

// PointsPerInch is the PDF unit density: document space is measured in
// points, 72 to the inch.
const PointsPerInch = 72.0

// Zoom limits for the view transform.
const (
	MinZoom = 0.1
	MaxZoom = 10.0
)

// RasterScale returns the document-to-raster scale factor for a target DPI.
func RasterScale(dpi float64) float64 {
	return dpi / PointsPerInch
}

// ToRaster converts a document-space point to raster space at the given DPI.
func ToRaster(p Point, dpi float64) Point {
	s := RasterScale(dpi)
	return Point{X: p.X * s, Y: p.Y * s}
}

// FromRaster converts a raster-space point at the given DPI back to document
// space.
func FromRaster(p Point, dpi float64) Point {
	s := RasterScale(dpi)
	return Point{X: p.X / s, Y: p.Y / s}
}

// RasterRect converts a document-space rectangle to raster space at the
// given DPI.
func RasterRect(r Rect, dpi float64) Rect {
	s := RasterScale(dpi)
	return Rect{X: r.X * s, Y: r.Y * s, Width: r.Width * s, Height: r.Height * s}
}

// Mapper converts between document, raster, and view space. The only state
// is the current view transform: the display DPI, a zoom scalar, and a pan
// offset in view pixels. All conversions are pure affine transforms.
//
// view = document * (dpi/72) * zoom + pan
type Mapper struct {
	dpi  float64
	zoom float64
	pan  Point
}

// NewMapper returns a mapper displaying pages at the given DPI with zoom 1
// and no pan. A non-positive DPI falls back to PointsPerInch.
func NewMapper(dpi float64) *Mapper {
	if dpi <= 0 {
		dpi = PointsPerInch
	}
	return &Mapper{dpi: dpi, zoom: 1.0}
}

// DPI returns the display resolution the view raster is rendered at.
func (m *Mapper) DPI() float64 { return m.dpi }

// SetDPI changes the display resolution. Non-positive values are ignored.
func (m *Mapper) SetDPI(dpi float64) {
	if dpi > 0 {
		m.dpi = dpi
	}
}

// Zoom returns the current zoom scalar.
func (m *Mapper) Zoom() float64 { return m.zoom }

// SetZoom sets the zoom scalar, clamped to [MinZoom, MaxZoom]. The zoom is
// therefore always strictly positive.
func (m *Mapper) SetZoom(zoom float64) {
	if zoom < MinZoom {
		zoom = MinZoom
	}
	if zoom > MaxZoom {
		zoom = MaxZoom
	}
	m.zoom = zoom
}

// Pan returns the current pan offset in view pixels.
func (m *Mapper) Pan() Point { return m.pan }

// SetPan sets the pan offset in view pixels.
func (m *Mapper) SetPan(p Point) { m.pan = p }

// scale is the combined document-to-view factor.
func (m *Mapper) scale() float64 {
	return RasterScale(m.dpi) * m.zoom
}

// ToView converts a document-space point to view space.
func (m *Mapper) ToView(p Point) Point {
	s := m.scale()
	return Point{X: p.X*s + m.pan.X, Y: p.Y*s + m.pan.Y}
}

// ToDocument converts a view-space point to document space. Points outside
// the rendered page still map to valid (possibly out-of-page) document
// coordinates; clamping is the caller's concern.
func (m *Mapper) ToDocument(p Point) Point {
	s := m.scale()
	return Point{X: (p.X - m.pan.X) / s, Y: (p.Y - m.pan.Y) / s}
}

// RectToView converts a document-space rectangle to view space.
func (m *Mapper) RectToView(r Rect) Rect {
	s := m.scale()
	return Rect{
		X:      r.X*s + m.pan.X,
		Y:      r.Y*s + m.pan.Y,
		Width:  r.Width * s,
		Height: r.Height * s,
	}
}

// RectToDocument converts a view-space rectangle to document space.
func (m *Mapper) RectToDocument(r Rect) Rect {
	s := m.scale()
	return Rect{
		X:      (r.X - m.pan.X) / s,
		Y:      (r.Y - m.pan.Y) / s,
		Width:  r.Width / s,
		Height: r.Height / s,
	}
}
