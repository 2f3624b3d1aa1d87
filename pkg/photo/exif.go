package photo

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// Metadata is what we keep from the EXIF block:
type Metadata struct {
	TakenAt time.Time
	HasGPS  bool
	Lat     float64
	Long    float64
	// Orientation is the EXIF orientation tag, 1 when missing:
	Orientation int
}

// ReadMetadata extracts capture time, GPS position and orientation from a JPEG.
// Images without EXIF return an empty Metadata and no error.
func ReadMetadata(data []byte) Metadata {
	md := Metadata{Orientation: 1}
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return md
	}
	if tm, err := x.DateTime(); err == nil {
		md.TakenAt = tm
	}
	if lat, long, err := x.LatLong(); err == nil {
		md.HasGPS = true
		md.Lat = lat
		md.Long = long
	}
	if tag, err := x.Get(exif.Orientation); err == nil {
		if v, err := tag.Int(0); err == nil && v >= 1 && v <= 8 {
			md.Orientation = v
		}
	}
	return md
}

// Describe renders the metadata for captions, e.g. "05/03/2024 14:30, -23.550520, -46.633308":
func (m Metadata) Describe() string {
	parts := make([]string, 0, 2)
	if !m.TakenAt.IsZero() {
		parts = append(parts, m.TakenAt.Format("02/01/2006 15:04"))
	}
	if m.HasGPS {
		parts = append(parts, fmt.Sprintf("%.6f, %.6f", m.Lat, m.Long))
	}
	return strings.Join(parts, ", ")
}
