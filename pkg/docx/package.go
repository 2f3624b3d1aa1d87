package docx

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"time"
)

const (
	nsW   = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	nsR   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsWP  = "http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"
	nsA   = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsPic = "http://schemas.openxmlformats.org/drawingml/2006/picture"

	relBase = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/"

	xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"
)

// namespaces is shared by the document, header and footer roots:
var namespaces = fmt.Sprintf(`xmlns:w="%s" xmlns:r="%s" xmlns:wp="%s" xmlns:a="%s" xmlns:pic="%s"`,
	nsW, nsR, nsWP, nsA, nsPic)

// logoDrawingID keeps the header drawing id clear of the body ones:
const logoDrawingID = 1000

type part struct {
	name string
	data []byte
}

// Write packages the document and writes it to w. modTime is used for the zip entries
// and the core properties so output does not depend on the wall clock.
func (d *Document) Write(w io.Writer, modTime time.Time) error {
	modTime = modTime.UTC().Truncate(time.Second)
	parts := []part{
		{"[Content_Types].xml", d.contentTypes()},
		{"_rels/.rels", packageRels()},
		{"docProps/core.xml", d.coreProps(modTime)},
		{"docProps/app.xml", appProps()},
		{"word/document.xml", d.documentXML()},
		{"word/_rels/document.xml.rels", d.documentRels()},
		{"word/styles.xml", d.stylesXML()},
		{"word/header1.xml", d.headerXML()},
		{"word/footer1.xml", d.footerXML()},
	}
	if d.logo != nil {
		parts = append(parts,
			part{"word/_rels/header1.xml.rels", relationships([]relationship{{d.logo.relID, relBase + "image", "media/" + d.logo.name}})},
			part{"word/media/" + d.logo.name, d.logo.data},
		)
	}
	for _, m := range d.media {
		parts = append(parts, part{"word/media/" + m.name, m.data})
	}

	zw := zip.NewWriter(w)
	for _, p := range parts {
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     p.name,
			Method:   zip.Deflate,
			Modified: modTime,
		})
		if err != nil {
			return fmt.Errorf("docx: %s: %w", p.name, err)
		}
		if _, err := fw.Write(p.data); err != nil {
			return fmt.Errorf("docx: %s: %w", p.name, err)
		}
	}
	return zw.Close()
}

type relationship struct {
	id, typ, target string
}

func relationships(rels []relationship) []byte {
	var b bytes.Buffer
	b.WriteString(xmlHeader)
	b.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	for _, r := range rels {
		fmt.Fprintf(&b, `<Relationship Id="%s" Type="%s" Target="%s"/>`, r.id, r.typ, esc(r.target))
	}
	b.WriteString(`</Relationships>`)
	return b.Bytes()
}

func packageRels() []byte {
	return relationships([]relationship{
		{"rId1", relBase + "officeDocument", "word/document.xml"},
		{"rId2", "http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties", "docProps/core.xml"},
		{"rId3", relBase + "extended-properties", "docProps/app.xml"},
	})
}

func (d *Document) documentRels() []byte {
	rels := []relationship{
		{"rIdStyles", relBase + "styles", "styles.xml"},
		{"rIdHeader", relBase + "header", "header1.xml"},
		{"rIdFooter", relBase + "footer", "footer1.xml"},
	}
	for _, m := range d.media {
		rels = append(rels, relationship{m.relID, relBase + "image", "media/" + m.name})
	}
	return relationships(rels)
}

func (d *Document) contentTypes() []byte {
	const wml = "application/vnd.openxmlformats-officedocument.wordprocessingml."
	var b bytes.Buffer
	b.WriteString(xmlHeader)
	b.WriteString(`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`)
	b.WriteString(`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>`)
	b.WriteString(`<Default Extension="xml" ContentType="application/xml"/>`)
	b.WriteString(`<Default Extension="png" ContentType="image/png"/>`)
	b.WriteString(`<Default Extension="jpeg" ContentType="image/jpeg"/>`)
	b.WriteString(`<Override PartName="/word/document.xml" ContentType="` + wml + `document.main+xml"/>`)
	b.WriteString(`<Override PartName="/word/styles.xml" ContentType="` + wml + `styles+xml"/>`)
	b.WriteString(`<Override PartName="/word/header1.xml" ContentType="` + wml + `header+xml"/>`)
	b.WriteString(`<Override PartName="/word/footer1.xml" ContentType="` + wml + `footer+xml"/>`)
	b.WriteString(`<Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>`)
	b.WriteString(`<Override PartName="/docProps/app.xml" ContentType="application/vnd.openxmlformats-officedocument.extended-properties+xml"/>`)
	b.WriteString(`</Types>`)
	return b.Bytes()
}

func (d *Document) coreProps(modTime time.Time) []byte {
	ts := modTime.Format(time.RFC3339)
	var b bytes.Buffer
	b.WriteString(xmlHeader)
	b.WriteString(`<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" ` +
		`xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/" ` +
		`xmlns:dcmitype="http://purl.org/dc/dcmitype/" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">`)
	fmt.Fprintf(&b, `<dc:title>%s</dc:title><dc:subject>%s</dc:subject><dc:creator>%s</dc:creator>`,
		esc(d.meta.Title), esc(d.meta.Subject), esc(d.meta.Author))
	fmt.Fprintf(&b, `<dcterms:created xsi:type="dcterms:W3CDTF">%s</dcterms:created>`, ts)
	fmt.Fprintf(&b, `<dcterms:modified xsi:type="dcterms:W3CDTF">%s</dcterms:modified>`, ts)
	b.WriteString(`</cp:coreProperties>`)
	return b.Bytes()
}

func appProps() []byte {
	return []byte(xmlHeader + `<Properties xmlns="http://schemas.openxmlformats.org/officeDocument/2006/extended-properties">` +
		`<Application>relatorio</Application></Properties>`)
}

func (d *Document) stylesXML() []byte {
	p := d.profile
	font := esc(p.Font.Family)
	sz := halfPoints(p.Font.Size)
	var b bytes.Buffer
	b.WriteString(xmlHeader)
	b.WriteString(`<w:styles xmlns:w="` + nsW + `">`)
	b.WriteString(`<w:docDefaults><w:rPrDefault><w:rPr>`)
	fmt.Fprintf(&b, `<w:rFonts w:ascii="%s" w:hAnsi="%s" w:eastAsia="%s" w:cs="%s"/>`, font, font, font, font)
	fmt.Fprintf(&b, `<w:sz w:val="%s"/><w:szCs w:val="%s"/><w:lang w:val="pt-BR"/>`, sz, sz)
	b.WriteString(`</w:rPr></w:rPrDefault><w:pPrDefault><w:pPr><w:spacing w:after="0" w:line="240" w:lineRule="auto"/></w:pPr></w:pPrDefault></w:docDefaults>`)
	b.WriteString(`<w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/><w:qFormat/></w:style>`)
	b.WriteString(`<w:style w:type="table" w:default="1" w:styleId="TableNormal"><w:name w:val="Normal Table"/>` +
		`<w:tblPr><w:tblInd w:w="0" w:type="dxa"/><w:tblCellMar><w:left w:w="108" w:type="dxa"/><w:right w:w="108" w:type="dxa"/></w:tblCellMar></w:tblPr></w:style>`)
	b.WriteString(`</w:styles>`)
	return b.Bytes()
}

func (d *Document) documentXML() []byte {
	p := d.profile
	var b bytes.Buffer
	b.WriteString(xmlHeader)
	b.WriteString(`<w:document ` + namespaces + `><w:body>`)
	b.Write(d.body.Bytes())
	b.WriteString(`<w:sectPr>`)
	b.WriteString(`<w:headerReference w:type="default" r:id="rIdHeader"/>`)
	b.WriteString(`<w:footerReference w:type="default" r:id="rIdFooter"/>`)
	fmt.Fprintf(&b, `<w:pgSz w:w="%s" w:h="%s"/>`, twips(p.Page.Width), twips(p.Page.Height))
	fmt.Fprintf(&b, `<w:pgMar w:top="%s" w:right="%s" w:bottom="%s" w:left="%s" w:header="%s" w:footer="%s" w:gutter="0"/>`,
		twips(p.Margins.Top), twips(p.Margins.Right), twips(p.Margins.Bottom), twips(p.Margins.Left),
		twips(p.Margins.Header), twips(p.Margins.Footer))
	b.WriteString(`</w:sectPr></w:body></w:document>`)
	return b.Bytes()
}

// headerXML draws the institution lines in a borderless table with a bottom rule,
// the logo takes the first column when present.
func (d *Document) headerXML() []byte {
	p := d.profile
	contentW := p.ContentWidth()
	logoW := 0.0
	if d.logo != nil {
		logoW = p.Header.LogoWidth
		if logoW <= 0 || logoW >= contentW {
			logoW = contentW / 5
		}
	}
	size := p.Header.FontSize
	if size <= 0 {
		size = p.Font.Size
	}

	var b bytes.Buffer
	b.WriteString(xmlHeader)
	b.WriteString(`<w:hdr ` + namespaces + `>`)
	b.WriteString(`<w:tbl><w:tblPr>`)
	fmt.Fprintf(&b, `<w:tblW w:w="%s" w:type="dxa"/>`, twips(contentW))
	b.WriteString(`<w:tblBorders><w:bottom w:val="single" w:sz="8" w:space="0" w:color="000000"/></w:tblBorders>`)
	b.WriteString(`<w:tblLayout w:type="fixed"/></w:tblPr><w:tblGrid>`)
	if d.logo != nil {
		fmt.Fprintf(&b, `<w:gridCol w:w="%s"/>`, twips(logoW))
	}
	fmt.Fprintf(&b, `<w:gridCol w:w="%s"/></w:tblGrid><w:tr>`, twips(contentW-logoW))
	if d.logo != nil {
		fmt.Fprintf(&b, `<w:tc><w:tcPr><w:tcW w:w="%s" w:type="dxa"/><w:vAlign w:val="center"/></w:tcPr><w:p>`, twips(logoW))
		writeParaProps(&b, paraStyle{align: "center"})
		writeDrawing(&b, d.logo, logoW, logoDrawingID)
		b.WriteString(`</w:p></w:tc>`)
	}
	fmt.Fprintf(&b, `<w:tc><w:tcPr><w:tcW w:w="%s" w:type="dxa"/><w:vAlign w:val="center"/></w:tcPr>`, twips(contentW-logoW))
	lines := p.Header.Lines
	if len(lines) == 0 {
		// A cell needs at least one paragraph:
		lines = []string{""}
	}
	for i, line := range lines {
		b.WriteString(`<w:p>`)
		writeParaProps(&b, paraStyle{align: "center"})
		writeRuns(&b, runStyle{bold: i == 0, size: size}, line)
		b.WriteString(`</w:p>`)
	}
	b.WriteString(`</w:tc></w:tr></w:tbl><w:p/></w:hdr>`)
	return b.Bytes()
}

func (d *Document) footerXML() []byte {
	p := d.profile
	size := p.Footer.FontSize
	if size <= 0 {
		size = p.Font.Size
	}
	rs := runStyle{size: size}
	var b bytes.Buffer
	b.WriteString(xmlHeader)
	b.WriteString(`<w:ftr ` + namespaces + `><w:p>`)
	writeParaProps(&b, paraStyle{align: "center"})
	if p.Footer.Text != "" {
		text := p.Footer.Text
		if p.Footer.PageNumbers {
			text += " - "
		}
		writeRuns(&b, rs, text)
	}
	if p.Footer.PageNumbers {
		writeRuns(&b, rs, "Página ")
		writeField(&b, rs, "PAGE")
		writeRuns(&b, rs, " de ")
		writeField(&b, rs, "NUMPAGES")
	}
	b.WriteString(`</w:p></w:ftr>`)
	return b.Bytes()
}

func writeField(b *bytes.Buffer, rs runStyle, instr string) {
	fmt.Fprintf(b, `<w:fldSimple w:instr=" %s ">`, instr)
	writeRuns(b, rs, "1")
	b.WriteString(`</w:fldSimple>`)
}
