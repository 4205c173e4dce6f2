package export

import (
	"fmt"
	"strings"
	"time"
)

// Format identifies an export encoding.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// ParseFormat normalises user input; empty input selects CSV.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatPDF:
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", raw)
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "text/csv"
}

// Renderer encodes datasets as CSV or PDF.
type Renderer struct {
	now func() time.Time
}

// NewRenderer builds a renderer stamping PDFs with the current time.
func NewRenderer() *Renderer {
	return &Renderer{now: time.Now}
}

// Render encodes data in the given format. The title is used by PDF output only.
func (r *Renderer) Render(format Format, data Dataset, title string) ([]byte, error) {
	if err := data.validate(); err != nil {
		return nil, err
	}
	switch format {
	case FormatPDF:
		return renderPDF(data, title, r.now())
	case FormatCSV:
		return renderCSV(data)
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}
