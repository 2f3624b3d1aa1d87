// Package docx writes the report as an OOXML word processing document.
//
// Only the subset needed by the report template is supported: styled paragraphs,
// a header table, a footer with page numbers, inline images and a signature block.
// Output is deterministic, the same calls and modification time produce the same bytes.
package docx

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/matiasinsaurralde/relatorio/pkg/layout"
)

var errUnsupportedImage = errors.New("docx: unsupported image format")

// Meta is written to docProps/core.xml:
type Meta struct {
	Title   string
	Subject string
	Author  string
}

// Signer is one entry of the signature block:
type Signer struct {
	Name     string
	Role     string
	Registry string
}

// Document accumulates body content until Write is called:
type Document struct {
	profile *layout.Profile
	meta    Meta
	body    bytes.Buffer
	media   []media
	// logo is the header image, kept apart since it lives in the header part relationships:
	logo *media
	// drawingID numbers wp:docPr elements, unique per part:
	drawingID int
}

type media struct {
	relID  string
	name   string
	data   []byte
	width  int
	height int
}

type runStyle struct {
	bold   bool
	italic bool
	size   float64
}

type paraStyle struct {
	align     string
	firstLine float64
	line      float64
	before    float64
	after     float64
	keepNext  bool
}

// New returns an empty document laid out with p:
func New(p *layout.Profile, meta Meta) *Document {
	d := &Document{profile: p, meta: meta}
	if len(p.Header.LogoData) > 0 {
		if m, err := newMedia(p.Header.LogoData, "rIdLogo", "logo"); err == nil {
			d.logo = m
		}
	}
	return d
}

func newMedia(data []byte, relID, base string) (*media, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errUnsupportedImage, err)
	}
	var ext string
	switch format {
	case "png":
		ext = "png"
	case "jpeg":
		ext = "jpeg"
	default:
		return nil, fmt.Errorf("%w: %s", errUnsupportedImage, format)
	}
	return &media{
		relID:  relID,
		name:   base + "." + ext,
		data:   data,
		width:  cfg.Width,
		height: cfg.Height,
	}, nil
}

// ImageCount returns the number of images embedded in the body:
func (d *Document) ImageCount() int {
	return len(d.media)
}

func (d *Document) bodyStyle() paraStyle {
	return paraStyle{
		align:     "both",
		firstLine: d.profile.Body.FirstLineIndent,
		line:      d.profile.Body.LineSpacing,
		after:     d.profile.Body.SpaceAfter,
	}
}

// Title writes the centered document title:
func (d *Document) Title(text string) {
	size := d.profile.Title.FontSize
	if size <= 0 {
		size = d.profile.Font.Size + 2
	}
	d.paragraph(paraStyle{align: "center", after: 12, keepNext: true}, runStyle{bold: true, size: size}, text)
}

// Heading writes a bold section heading kept with the next paragraph:
func (d *Document) Heading(text string) {
	d.paragraph(paraStyle{align: "left", before: 12, after: 6, keepNext: true}, runStyle{bold: true, size: d.profile.Font.Size}, text)
}

// MetaLine writes "label: value", skipping the line when value is empty.
// It reports whether something was written.
func (d *Document) MetaLine(label, value string) bool {
	if strings.TrimSpace(value) == "" {
		return false
	}
	d.body.WriteString("<w:p>")
	d.paraProps(paraStyle{align: "left", after: 2})
	d.runs(runStyle{bold: true, size: d.profile.Font.Size}, label+": ")
	d.runs(runStyle{size: d.profile.Font.Size}, value)
	d.body.WriteString("</w:p>")
	return true
}

// Paragraph writes a justified body paragraph with the profile's indent and line spacing:
func (d *Document) Paragraph(text string) {
	d.paragraph(d.bodyStyle(), runStyle{size: d.profile.Font.Size}, text)
}

// Note writes a centered italic line, used for placeholders and inline errors:
func (d *Document) Note(text string) {
	d.paragraph(paraStyle{align: "center", after: 6}, runStyle{italic: true, size: d.profile.Images.CaptionFontSize}, text)
}

// Image embeds a PNG or JPEG centered on its own line, followed by caption when not empty:
func (d *Document) Image(data []byte, caption string) error {
	n := len(d.media) + 1
	m, err := newMedia(data, fmt.Sprintf("rIdImg%d", n), fmt.Sprintf("image%d", n))
	if err != nil {
		return err
	}
	d.media = append(d.media, *m)

	keep := caption != ""
	d.body.WriteString("<w:p>")
	d.paraProps(paraStyle{align: "center", before: 6, after: 2, keepNext: keep})
	d.drawing(m, d.profile.ImageWidth())
	d.body.WriteString("</w:p>")
	if caption != "" {
		d.paragraph(paraStyle{align: "center", after: 8}, runStyle{italic: true, size: d.profile.Images.CaptionFontSize}, caption)
	}
	return nil
}

// PageBreak starts a new page:
func (d *Document) PageBreak() {
	d.body.WriteString(`<w:p><w:r><w:br w:type="page"/></w:r></w:p>`)
}

// Signatures writes the closing "place, date" line and one block per signer.
func (d *Document) Signatures(place, date string, signers []Signer) {
	closing := date
	if place != "" {
		closing = place + ", " + date
	}
	if closing != "" {
		d.paragraph(paraStyle{align: "right", before: 18, after: 24, keepNext: len(signers) > 0}, runStyle{size: d.profile.Font.Size}, closing+".")
	}
	for i, s := range signers {
		last := i == len(signers)-1
		d.paragraph(paraStyle{align: "center", before: 30, keepNext: true}, runStyle{size: d.profile.Font.Size}, strings.Repeat("_", 40))
		lines := []string{s.Name}
		if s.Role != "" {
			lines = append(lines, s.Role)
		}
		if s.Registry != "" {
			lines = append(lines, "Matrícula: "+s.Registry)
		}
		for j, line := range lines {
			keep := !last || j < len(lines)-1
			d.paragraph(paraStyle{align: "center", keepNext: keep}, runStyle{bold: j == 0, size: d.profile.Font.Size}, line)
		}
	}
}

func (d *Document) paragraph(ps paraStyle, rs runStyle, text string) {
	d.body.WriteString("<w:p>")
	d.paraProps(ps)
	d.runs(rs, text)
	d.body.WriteString("</w:p>")
}

func (d *Document) paraProps(ps paraStyle) {
	writeParaProps(&d.body, ps)
}

func (d *Document) runs(rs runStyle, text string) {
	writeRuns(&d.body, rs, text)
}

func writeParaProps(b *bytes.Buffer, ps paraStyle) {
	b.WriteString("<w:pPr>")
	if ps.keepNext {
		b.WriteString("<w:keepNext/>")
	}
	b.WriteString(`<w:spacing w:before="` + pointTwips(ps.before) + `" w:after="` + pointTwips(ps.after) + `"`)
	if ps.line > 0 {
		b.WriteString(` w:line="` + lineSpacing(ps.line) + `" w:lineRule="auto"`)
	}
	b.WriteString("/>")
	if ps.firstLine > 0 {
		b.WriteString(`<w:ind w:firstLine="` + twips(ps.firstLine) + `"/>`)
	}
	if ps.align != "" {
		b.WriteString(`<w:jc w:val="` + ps.align + `"/>`)
	}
	b.WriteString("</w:pPr>")
}

// writeRuns writes text as runs, turning line breaks into w:br:
func writeRuns(b *bytes.Buffer, rs runStyle, text string) {
	for i, line := range strings.Split(text, "\n") {
		b.WriteString("<w:r>")
		writeRunProps(b, rs)
		if i > 0 {
			b.WriteString("<w:br/>")
		}
		b.WriteString(`<w:t xml:space="preserve">` + esc(line) + "</w:t></w:r>")
	}
}

func writeRunProps(b *bytes.Buffer, rs runStyle) {
	if !rs.bold && !rs.italic && rs.size <= 0 {
		return
	}
	b.WriteString("<w:rPr>")
	if rs.bold {
		b.WriteString("<w:b/>")
	}
	if rs.italic {
		b.WriteString("<w:i/>")
	}
	if rs.size > 0 {
		sz := halfPoints(rs.size)
		b.WriteString(`<w:sz w:val="` + sz + `"/><w:szCs w:val="` + sz + `"/>`)
	}
	b.WriteString("</w:rPr>")
}

func (d *Document) drawing(m *media, maxCM float64) {
	d.drawingID++
	writeDrawing(&d.body, m, maxCM, d.drawingID)
}

func writeDrawing(b *bytes.Buffer, m *media, maxCM float64, id int) {
	cx, cy := fitEMU(m.width, m.height, maxCM)
	fmt.Fprintf(b, `<w:r><w:drawing><wp:inline distT="0" distB="0" distL="0" distR="0">`+
		`<wp:extent cx="%d" cy="%d"/><wp:docPr id="%d" name="%s"/>`+
		`<wp:cNvGraphicFramePr><a:graphicFrameLocks noChangeAspect="1"/></wp:cNvGraphicFramePr>`+
		`<a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/picture">`+
		`<pic:pic><pic:nvPicPr><pic:cNvPr id="%d" name="%s"/><pic:cNvPicPr/></pic:nvPicPr>`+
		`<pic:blipFill><a:blip r:embed="%s"/><a:stretch><a:fillRect/></a:stretch></pic:blipFill>`+
		`<pic:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%d" cy="%d"/></a:xfrm>`+
		`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom></pic:spPr></pic:pic>`+
		`</a:graphicData></a:graphic></wp:inline></w:drawing></w:r>`,
		cx, cy, id, esc(m.name), id, esc(m.name), m.relID, cx, cy)
}
