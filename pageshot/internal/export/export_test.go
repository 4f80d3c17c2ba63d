package export

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

func testImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 40, 120))
	for y := 0; y < 120; y++ {
		for x := 0; x < 40; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(y * 2), G: uint8(x * 5), B: 80, A: 255})
		}
	}
	return img
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", PNG, false},
		{"PNG", PNG, false},
		{"jpg", JPEG, false},
		{"jpeg", JPEG, false},
		{" pdf ", PDF, false},
		{"gif", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q): err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q): got %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEncode_PNG(t *testing.T) {
	img := testImage()
	data, mime, err := Encoder{}.Encode(img, PNG)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if mime != "image/png" {
		t.Errorf("mime: got %q", mime)
	}
	back, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if back.Bounds() != img.Bounds() {
		t.Errorf("bounds: got %v, want %v", back.Bounds(), img.Bounds())
	}
}

func TestEncode_JPEG(t *testing.T) {
	data, mime, err := Encoder{JPEGQuality: 70}.Encode(testImage(), JPEG)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if mime != "image/jpeg" {
		t.Errorf("mime: got %q", mime)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if cfg.Width != 40 || cfg.Height != 120 {
		t.Errorf("size: got %dx%d, want 40x120", cfg.Width, cfg.Height)
	}
}

func TestEncode_PDF(t *testing.T) {
	data, mime, err := Encoder{}.Encode(testImage(), PDF)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if mime != "application/pdf" {
		t.Errorf("mime: got %q", mime)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatalf("not a PDF: %q", data[:min(len(data), 16)])
	}
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if ctx.PageCount != 1 {
		t.Errorf("pages: got %d, want 1", ctx.PageCount)
	}
}

func TestEncode_UnknownFormat(t *testing.T) {
	if _, _, err := (Encoder{}).Encode(testImage(), Format("tiff")); err == nil {
		t.Error("expected error")
	}
}

func TestFormatExt(t *testing.T) {
	for f, want := range map[Format]string{PNG: ".png", JPEG: ".jpg", PDF: ".pdf"} {
		if got := f.Ext(); got != want {
			t.Errorf("%s: got %q, want %q", f, got, want)
		}
	}
}
