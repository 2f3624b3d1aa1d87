// Package photo turns uploaded evidence into images ready to embed: EXIF is read,
// orientation applied, large images scaled down and PDFs rasterized.
package photo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/matiasinsaurralde/relatorio/pkg/report"
	"github.com/matiasinsaurralde/relatorio/pkg/types"
	"github.com/rs/zerolog"
	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"
)

const (
	jpegQuality = 85

	// defaultMaxPixels bounds the decoded size, a small compressed upload can claim huge dimensions:
	defaultMaxPixels = 50_000_000
)

var (
	errNoRasterizer = errors.New("no PDF rasterizer configured")

	// ErrTooLarge is set on Prepared.Err when the image has more pixels than allowed:
	ErrTooLarge = errors.New("image dimensions too large")
)

// Rasterizer renders PDF evidence, implemented by internal/pkg/pdf2png:
type Rasterizer interface {
	FirstPage(pdfBytes []byte) ([]byte, error)
	PageCount(pdfBytes []byte) (int, error)
}

// Prepared is an upload ready to be embedded, in the same position as the upload:
type Prepared struct {
	Name string
	// Data is PNG or JPEG:
	Data     []byte
	Caption  string
	Metadata Metadata
	// Pages is set for PDF evidence:
	Pages int
	// Err is set when the upload couldn't be decoded, a placeholder is rendered instead:
	Err error
}

// Details returns the text appended to the caption: EXIF data or the PDF page count.
func (p *Prepared) Details() string {
	if p.Pages > 0 {
		if p.Pages == 1 {
			return "documento PDF, 1 página"
		}
		return fmt.Sprintf("documento PDF, %d páginas", p.Pages)
	}
	return p.Metadata.Describe()
}

// Preparer wraps the photo processing logic:
type Preparer struct {
	maxWidth   int
	maxPixels  int
	workers    int
	rasterizer Rasterizer
	logger     zerolog.Logger
}

// New initializes a preparer. rasterizer may be nil, PDF uploads then fail individually:
func New(maxWidth, workers int, rasterizer Rasterizer, logger zerolog.Logger) *Preparer {
	if workers < 1 {
		workers = 1
	}
	return &Preparer{
		maxWidth:   maxWidth,
		maxPixels:  defaultMaxPixels,
		workers:    workers,
		rasterizer: rasterizer,
		logger:     logger,
	}
}

// PrepareAll processes photos concurrently, keeping their order.
// Per photo failures end up in Prepared.Err, only a cancelled context fails the call.
func (p *Preparer) PrepareAll(ctx context.Context, photos []report.Photo) ([]Prepared, error) {
	out := make([]Prepared, len(photos))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i := range photos {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = p.Prepare(photos[i])
			if out[i].Err != nil {
				p.logger.Warn().Err(out[i].Err).Str("photo", photos[i].Name).Msg("photo could not be prepared")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Prepare processes a single upload:
func (p *Preparer) Prepare(photo report.Photo) Prepared {
	prepared := Prepared{
		Name:     photo.Name,
		Caption:  photo.Caption,
		Metadata: Metadata{Orientation: 1},
	}
	data := photo.Data
	if photo.ContentType == types.ContentTypePDF {
		if p.rasterizer == nil {
			prepared.Err = errNoRasterizer
			return prepared
		}
		rendered, err := p.rasterizer.FirstPage(data)
		if err != nil {
			prepared.Err = fmt.Errorf("rendering %s: %w", photo.Name, err)
			return prepared
		}
		if pages, err := p.rasterizer.PageCount(data); err == nil {
			prepared.Pages = pages
		}
		data = rendered
	} else {
		prepared.Metadata = ReadMetadata(data)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		prepared.Err = fmt.Errorf("decoding %s: %w", photo.Name, err)
		return prepared
	}
	if cfg.Width*cfg.Height > p.maxPixels {
		prepared.Err = fmt.Errorf("%w: %s is %dx%d", ErrTooLarge, photo.Name, cfg.Width, cfg.Height)
		return prepared
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		prepared.Err = fmt.Errorf("decoding %s: %w", photo.Name, err)
		return prepared
	}

	oriented := orient(src, prepared.Metadata.Orientation)
	bounds := oriented.Bounds()
	// Small, upright images are embedded untouched:
	if bounds.Dx() <= p.maxWidth && prepared.Metadata.Orientation == 1 {
		prepared.Data = data
		return prepared
	}

	scaled := scale(oriented, p.maxWidth)
	var buf bytes.Buffer
	if format == "png" {
		err = png.Encode(&buf, scaled)
	} else {
		err = jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: jpegQuality})
	}
	if err != nil {
		prepared.Err = fmt.Errorf("encoding %s: %w", photo.Name, err)
		return prepared
	}
	prepared.Data = buf.Bytes()
	return prepared
}

// scale resizes img to maxWidth keeping the aspect ratio, smaller images are only copied:
func scale(img image.Image, maxWidth int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w > maxWidth && maxWidth > 0 {
		h = h * maxWidth / w
		w = maxWidth
		if h < 1 {
			h = 1
		}
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// orient applies the EXIF orientation so the image is drawn upright.
// Pixels are copied straight between RGBA buffers:
func orient(img image.Image, orientation int) image.Image {
	if orientation <= 1 || orientation > 8 {
		return img
	}
	src := toRGBA(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	// Orientations 5-8 swap width and height:
	dw, dh := w, h
	if orientation >= 5 {
		dw, dh = h, w
	}
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w*4]
		for x := 0; x < w; x++ {
			var dx, dy int
			switch orientation {
			case 2:
				dx, dy = w-1-x, y
			case 3:
				dx, dy = w-1-x, h-1-y
			case 4:
				dx, dy = x, h-1-y
			case 5:
				dx, dy = y, x
			case 6:
				dx, dy = h-1-y, x
			case 7:
				dx, dy = h-1-y, w-1-x
			case 8:
				dx, dy = y, w-1-x
			}
			o := dy*dst.Stride + dx*4
			copy(dst.Pix[o:o+4], row[x*4:x*4+4])
		}
	}
	return dst
}

// toRGBA returns img as an RGBA anchored at the origin, converting it when needed:
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
