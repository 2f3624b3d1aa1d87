package docx

import (
	"bytes"
	"encoding/xml"
	"math"
	"strconv"
)

const (
	twipsPerCM = 1440 / 2.54
	emuPerCM   = 360000
	// emuPerPixel assumes 96 DPI:
	emuPerPixel = 9525
	// lineUnit is a single line in w:spacing w:line with lineRule auto:
	lineUnit = 240
)

func twips(cm float64) string {
	return strconv.Itoa(int(math.Round(cm * twipsPerCM)))
}

// halfPoints converts a font size in points to the w:sz unit:
func halfPoints(pt float64) string {
	return strconv.Itoa(int(math.Round(pt * 2)))
}

// pointTwips converts points to twentieths of a point, as used by w:spacing before/after:
func pointTwips(pt float64) string {
	return strconv.Itoa(int(math.Round(pt * 20)))
}

func lineSpacing(multiple float64) string {
	return strconv.Itoa(int(math.Round(multiple * lineUnit)))
}

// esc escapes text for element content and attribute values:
func esc(s string) string {
	var b bytes.Buffer
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

// fitEMU scales a pixel size so it's never wider than maxCM, preserving the aspect ratio:
func fitEMU(widthPx, heightPx int, maxCM float64) (cx, cy int64) {
	if widthPx <= 0 || heightPx <= 0 {
		return 0, 0
	}
	w := float64(widthPx) * emuPerPixel
	h := float64(heightPx) * emuPerPixel
	if limit := maxCM * emuPerCM; limit > 0 && w > limit {
		h = h * limit / w
		w = limit
	}
	return int64(math.Round(w)), int64(math.Round(h))
}
