// CLAUDE:SUMMARY Encodes a composite image as PNG, JPEG or single-page PDF (pdfcpu).
// Package export encodes finished composites for storage and delivery.
package export

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Format is an output encoding.
type Format string

const (
	PNG  Format = "png"
	JPEG Format = "jpeg"
	PDF  Format = "pdf"
)

// ParseFormat accepts png, jpeg (or jpg) and pdf, case-insensitively. An
// empty string means PNG.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "png":
		return PNG, nil
	case "jpeg", "jpg":
		return JPEG, nil
	case "pdf":
		return PDF, nil
	}
	return "", fmt.Errorf("export: unknown format %q", s)
}

// MIME returns the media type of f.
func (f Format) MIME() string {
	switch f {
	case JPEG:
		return "image/jpeg"
	case PDF:
		return "application/pdf"
	}
	return "image/png"
}

// Ext returns the file extension of f, with the dot.
func (f Format) Ext() string {
	switch f {
	case JPEG:
		return ".jpg"
	case PDF:
		return ".pdf"
	}
	return ".png"
}

// Encoder encodes images. The zero value encodes JPEG at quality 90.
type Encoder struct {
	JPEGQuality int
}

// Encode renders img in format f and returns the bytes with their media
// type.
func (e Encoder) Encode(img image.Image, f Format) ([]byte, string, error) {
	var buf bytes.Buffer
	var err error
	switch f {
	case PNG, "":
		f = PNG
		err = png.Encode(&buf, img)
	case JPEG:
		q := e.JPEGQuality
		if q <= 0 || q > 100 {
			q = 90
		}
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: q})
	case PDF:
		err = encodePDF(&buf, img)
	default:
		return nil, "", fmt.Errorf("export: unknown format %q", f)
	}
	if err != nil {
		return nil, "", fmt.Errorf("export: encode %s: %w", f, err)
	}
	return buf.Bytes(), f.MIME(), nil
}

// encodePDF writes a new PDF with img on its own page.
func encodePDF(w io.Writer, img image.Image) error {
	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		return err
	}
	conf := model.NewDefaultConfiguration()
	return api.ImportImages(nil, w, []io.Reader{&pngBuf}, nil, conf)
}
