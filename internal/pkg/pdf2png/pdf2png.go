package pdf2png

import (
	"bytes"
	"errors"
	"image/png"
	"sync"
	"time"

	"github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/requests"
	"github.com/klippa-app/go-pdfium/webassembly"
)

const (
	// defaultDPI for rendering:
	defaultDPI = 150

	instanceTimeout = 30 * time.Second
)

var (
	errNoPages = errors.New("pdf has no pages")

	initOnce sync.Once
	initErr  error
	// instance is shared, the pool holds a single worker so calls are serialized:
	instance pdfium.Pdfium
	lock     sync.Mutex
)

// setup starts the PDFium WebAssembly runtime on first use, it takes a while so
// it's not done on package init:
func setup() error {
	initOnce.Do(func() {
		pool, err := webassembly.Init(webassembly.Config{
			MinIdle:  1,
			MaxIdle:  1,
			MaxTotal: 1,
		})
		if err != nil {
			initErr = err
			return
		}
		instance, initErr = pool.GetInstance(instanceTimeout)
	})
	return initErr
}

// RenderPage turns a specific page of the PDF into PNG bytes:
func RenderPage(pdfBytes []byte, page int) ([]byte, error) {
	if err := setup(); err != nil {
		return nil, err
	}
	lock.Lock()
	defer lock.Unlock()

	doc, err := instance.OpenDocument(&requests.OpenDocument{
		File: &pdfBytes,
	})
	if err != nil {
		return nil, err
	}
	defer instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{
		Document: doc.Document,
	})

	pageCount, err := instance.FPDF_GetPageCount(&requests.FPDF_GetPageCount{
		Document: doc.Document,
	})
	if err != nil {
		return nil, err
	}
	if pageCount.PageCount == 0 {
		return nil, errNoPages
	}
	if page >= pageCount.PageCount {
		page = pageCount.PageCount - 1
	}

	pageRender, err := instance.RenderPageInDPI(&requests.RenderPageInDPI{
		DPI: defaultDPI,
		Page: requests.Page{
			ByIndex: &requests.PageByIndex{
				Document: doc.Document,
				Index:    page,
			},
		},
	})
	if err != nil {
		return nil, err
	}
	defer pageRender.Cleanup()

	// Encode before Cleanup releases the bitmap:
	var buf bytes.Buffer
	if err := png.Encode(&buf, pageRender.Result.Image); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GetPageCount returns the amount of pages in a PDF:
func GetPageCount(pdfBytes []byte) (int, error) {
	if err := setup(); err != nil {
		return 0, err
	}
	lock.Lock()
	defer lock.Unlock()

	doc, err := instance.OpenDocument(&requests.OpenDocument{
		File: &pdfBytes,
	})
	if err != nil {
		return 0, err
	}
	defer instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{
		Document: doc.Document,
	})

	pageCount, err := instance.FPDF_GetPageCount(&requests.FPDF_GetPageCount{
		Document: doc.Document,
	})
	if err != nil {
		return 0, err
	}
	return pageCount.PageCount, nil
}

// Rasterizer adapts the package functions to the photo.Rasterizer interface:
type Rasterizer struct{}

// FirstPage renders page 0 as PNG:
func (Rasterizer) FirstPage(pdfBytes []byte) ([]byte, error) {
	return RenderPage(pdfBytes, 0)
}

// PageCount returns the amount of pages in a PDF:
func (Rasterizer) PageCount(pdfBytes []byte) (int, error) {
	return GetPageCount(pdfBytes)
}
