// Package certificate draws printable certificate images.
package certificate

import (
	"bytes"
	"fmt"
	"image/color"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"codemaster-service/internal/domain"
)

const (
	Width  = 1200
	Height = 850
)

var (
	background = color.RGBA{R: 0x11, G: 0x18, B: 0x27, A: 0xff}
	accent     = color.RGBA{R: 0x34, G: 0xd3, B: 0x99, A: 0xff}
	muted      = color.RGBA{R: 0x9c, G: 0xa3, B: 0xaf, A: 0xff}
)

// Renderer holds parsed fonts; it is safe for concurrent use because every
// call builds its own faces.
type Renderer struct {
	regular *truetype.Font
	bold    *truetype.Font
}

func NewRenderer() (*Renderer, error) {
	regular, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TTF: %w", err)
	}
	bold, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TTF: %w", err)
	}
	return &Renderer{regular: regular, bold: bold}, nil
}

func face(f *truetype.Font, size float64) font.Face {
	return truetype.NewFace(f, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingNone})
}

// PNG renders cert for learner as a PNG image.
func (r *Renderer) PNG(learner string, cert domain.Certificate) ([]byte, error) {
	dc := gg.NewContext(Width, Height)

	dc.SetColor(background)
	dc.DrawRectangle(0, 0, Width, Height)
	dc.Fill()

	// Double border
	dc.SetColor(accent)
	dc.SetLineWidth(6)
	dc.DrawRectangle(30, 30, Width-60, Height-60)
	dc.Stroke()
	dc.SetLineWidth(2)
	dc.DrawRectangle(48, 48, Width-96, Height-96)
	dc.Stroke()

	cx := float64(Width) / 2

	dc.SetFontFace(face(r.bold, 64))
	dc.SetColor(accent)
	dc.DrawStringAnchored("Certificate of Completion", cx, 170, 0.5, 0.5)

	dc.SetFontFace(face(r.regular, 28))
	dc.SetColor(muted)
	dc.DrawStringAnchored("This certifies that", cx, 280, 0.5, 0.5)

	name := strings.TrimSpace(learner)
	if name == "" {
		name = "CodeMaster Learner"
	}
	dc.SetFontFace(face(r.bold, 56))
	dc.SetColor(color.White)
	dc.DrawStringAnchored(name, cx, 360, 0.5, 0.5)

	dc.SetFontFace(face(r.regular, 28))
	dc.SetColor(muted)
	dc.DrawStringAnchored("has successfully completed", cx, 440, 0.5, 0.5)

	dc.SetFontFace(face(r.bold, 44))
	dc.SetColor(color.White)
	dc.DrawStringWrapped(cert.CourseName, cx, 520, 0.5, 0.5, Width-240, 1.3, gg.AlignCenter)

	dc.SetFontFace(face(r.regular, 26))
	dc.SetColor(accent)
	dc.DrawStringAnchored(fmt.Sprintf("Score: %d%%", cert.Score), cx, 630, 0.5, 0.5)

	dc.SetColor(muted)
	dc.SetFontFace(face(r.regular, 22))
	dc.DrawStringAnchored("Issued "+cert.IssueDate.Format("January 2, 2006"), 120, 740, 0, 0.5)
	dc.DrawStringAnchored(cert.ID, Width-120, 740, 1, 0.5)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}
