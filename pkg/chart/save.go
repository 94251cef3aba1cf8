package chart

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgeps"
	"gonum.org/v1/plot/vg/vgimg"
	"gonum.org/v1/plot/vg/vgpdf"
	"gonum.org/v1/plot/vg/vgsvg"

	"github.com/matzehuels/geokit/pkg/errors"
)

// DefaultDPI is used when Save or Encode get a non-positive dpi.
const DefaultDPI = 300

// Formats lists the output formats understood by [Save] and [Encode].
var Formats = []string{"png", "jpg", "jpeg", "tif", "tiff", "pdf", "svg", "eps"}

// Save draws f once per format and writes base.<format> for each. With no
// formats a PNG is written. The dpi applies to raster formats. Missing
// parent directories are created. The written paths are returned in
// format order.
func Save(f Figure, base string, w, h vg.Length, dpi int, formats ...string) ([]string, error) {
	if len(formats) == 0 {
		formats = []string{"png"}
	}
	if dir := filepath.Dir(base); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	var written []string
	for _, format := range formats {
		format = normalizeFormat(format)
		path := base + "." + format
		if err := writeFile(f, path, format, w, h, dpi); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func writeFile(f Figure, path, format string, w, h vg.Length, dpi int) error {
	c, err := canvas(format, w, h, dpi)
	if err != nil {
		return err
	}
	f.Draw(draw.New(c))

	fh, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := c.WriteTo(fh); err != nil {
		fh.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return fh.Close()
}

// Encode renders f in one format and returns the bytes.
func Encode(f Figure, format string, w, h vg.Length, dpi int) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeTo(&buf, f, format, w, h, dpi); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeTo renders f in one format to out.
func EncodeTo(out io.Writer, f Figure, format string, w, h vg.Length, dpi int) error {
	c, err := canvas(normalizeFormat(format), w, h, dpi)
	if err != nil {
		return err
	}
	f.Draw(draw.New(c))
	_, err = c.WriteTo(out)
	return err
}

// ContentType returns the MIME type of an output format.
func ContentType(format string) string {
	switch normalizeFormat(format) {
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "tif", "tiff":
		return "image/tiff"
	case "pdf":
		return "application/pdf"
	case "svg":
		return "image/svg+xml"
	case "eps":
		return "application/postscript"
	}
	return "application/octet-stream"
}

func normalizeFormat(format string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), "."))
}

func canvas(format string, w, h vg.Length, dpi int) (vg.CanvasWriterTo, error) {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	raster := func() *vgimg.Canvas {
		return vgimg.NewWith(vgimg.UseWH(w, h), vgimg.UseDPI(dpi))
	}
	switch format {
	case "png":
		return vgimg.PngCanvas{Canvas: raster()}, nil
	case "jpg", "jpeg":
		return vgimg.JpegCanvas{Canvas: raster()}, nil
	case "tif", "tiff":
		return vgimg.TiffCanvas{Canvas: raster()}, nil
	case "pdf":
		return vgpdf.New(w, h), nil
	case "svg":
		return vgsvg.New(w, h), nil
	case "eps":
		return vgeps.New(w, h), nil
	}
	return nil, errors.New(errors.ErrCodeUnsupported, "plot format %q (want one of %s)", format, strings.Join(Formats, ", "))
}
