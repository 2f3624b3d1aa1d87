// Package layout describes the fixed regions of the generated report: page, header,
// title, body, photo annex, signature block and footer.
package layout

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/matiasinsaurralde/relatorio/pkg/types"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultProfile []byte

var errInvalidProfile = errors.New("invalid layout profile")

// Profile is the layout profile, see default.yaml for the values shipped with the binary:
type Profile struct {
	Page      Page      `yaml:"page"`
	Margins   Margins   `yaml:"margins"`
	Font      Font      `yaml:"font"`
	Header    Header    `yaml:"header"`
	Title     Title     `yaml:"title"`
	Footer    Footer    `yaml:"footer"`
	Body      Body      `yaml:"body"`
	Images    Images    `yaml:"images"`
	Markers   Markers   `yaml:"markers"`
	Annex     Annex     `yaml:"annex"`
	Signature Signature `yaml:"signature"`
}

type Page struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

type Margins struct {
	Top    float64 `yaml:"top"`
	Bottom float64 `yaml:"bottom"`
	Left   float64 `yaml:"left"`
	Right  float64 `yaml:"right"`
	Header float64 `yaml:"header"`
	Footer float64 `yaml:"footer"`
}

type Font struct {
	Family string  `yaml:"family"`
	Size   float64 `yaml:"size"`
}

// Header is drawn as a two column table: logo on the left, institution lines on the right.
type Header struct {
	Lines    []string `yaml:"lines"`
	FontSize float64  `yaml:"font_size"`
	// Logo is a PNG or JPEG path, relative to the profile file:
	Logo      string  `yaml:"logo"`
	LogoWidth float64 `yaml:"logo_width"`
	// LogoData is filled by Load from Logo:
	LogoData []byte `yaml:"-"`
}

type Title struct {
	Text     string  `yaml:"text"`
	FontSize float64 `yaml:"font_size"`
}

type Footer struct {
	Text        string  `yaml:"text"`
	PageNumbers bool    `yaml:"page_numbers"`
	FontSize    float64 `yaml:"font_size"`
}

type Body struct {
	FirstLineIndent float64 `yaml:"first_line_indent"`
	LineSpacing     float64 `yaml:"line_spacing"`
	SpaceAfter      float64 `yaml:"space_after"`
}

type Images struct {
	MaxWidth        float64 `yaml:"max_width"`
	CaptionFontSize float64 `yaml:"caption_font_size"`
}

type Markers struct {
	Policy types.MarkerPolicy `yaml:"policy"`
}

type Annex struct {
	Heading string `yaml:"heading"`
}

type Signature struct {
	// Place is printed before the date above the signatures, e.g. "Lisboa":
	Place string `yaml:"place"`
}

// Default returns the embedded profile:
func Default() *Profile {
	var p Profile
	if err := yaml.Unmarshal(defaultProfile, &p); err != nil {
		panic(fmt.Sprintf("layout: embedded profile: %v", err))
	}
	return &p
}

// Parse decodes a YAML profile on top of the embedded defaults, so partial files are fine:
func Parse(data []byte) (*Profile, error) {
	p := Default()
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("layout: parsing profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Load reads a profile from disk, the embedded one is returned for an empty path:
func Load(path string) (*Profile, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if p.Header.Logo != "" {
		logo := p.Header.Logo
		if !filepath.IsAbs(logo) {
			logo = filepath.Join(filepath.Dir(path), logo)
		}
		if p.Header.LogoData, err = os.ReadFile(logo); err != nil {
			return nil, fmt.Errorf("layout: reading logo: %w", err)
		}
	}
	return p, nil
}

// Validate rejects non positive sizes and unknown marker policies:
func (p *Profile) Validate() error {
	positive := map[string]float64{
		"page.width":        p.Page.Width,
		"page.height":       p.Page.Height,
		"font.size":         p.Font.Size,
		"body.line_spacing": p.Body.LineSpacing,
		"images.max_width":  p.Images.MaxWidth,
	}
	for name, v := range positive {
		if v <= 0 {
			return fmt.Errorf("%w: %s must be positive", errInvalidProfile, name)
		}
	}
	nonNegative := map[string]float64{
		"margins.top":            p.Margins.Top,
		"margins.bottom":         p.Margins.Bottom,
		"margins.left":           p.Margins.Left,
		"margins.right":          p.Margins.Right,
		"body.first_line_indent": p.Body.FirstLineIndent,
	}
	for name, v := range nonNegative {
		if v < 0 {
			return fmt.Errorf("%w: %s can't be negative", errInvalidProfile, name)
		}
	}
	if p.Margins.Left+p.Margins.Right >= p.Page.Width {
		return fmt.Errorf("%w: margins leave no room for text", errInvalidProfile)
	}
	if p.Font.Family == "" {
		return fmt.Errorf("%w: font.family is empty", errInvalidProfile)
	}
	if !p.Markers.Policy.Valid() {
		return fmt.Errorf("%w: unknown marker policy %q", errInvalidProfile, p.Markers.Policy)
	}
	return nil
}

// ContentWidth returns the text width in centimetres:
func (p *Profile) ContentWidth() float64 {
	return p.Page.Width - p.Margins.Left - p.Margins.Right
}

// ImageWidth returns the widest an image may be drawn, never wider than the text column:
func (p *Profile) ImageWidth() float64 {
	if p.Images.MaxWidth > p.ContentWidth() {
		return p.ContentWidth()
	}
	return p.Images.MaxWidth
}
