package legend

import (
	"bytes"
	"image"
	"math"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

const defaultSVGSize = 64 // when SVG viewBox has no size

// maxRasterDim limits pixel size of rasterized SVG, graphics with enormous
// viewBox would otherwise allocate huge buffers.
var maxRasterDim = 2048

// rasterizeSVG rasterizes SVG fitting it into targetW x targetH box keeping
// aspect ratio. Zero target dimension means intrinsic size.
func rasterizeSVG(svgData []byte, targetW, targetH int) (image.Image, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(svgData))
	if err != nil {
		return nil, err
	}

	intrW := int(math.Ceil(icon.ViewBox.W))
	intrH := int(math.Ceil(icon.ViewBox.H))
	if intrW <= 0 {
		intrW = defaultSVGSize
	}
	if intrH <= 0 {
		intrH = defaultSVGSize
	}

	w, h := intrW, intrH
	if targetW > 0 && targetH > 0 {
		scale := math.Min(float64(targetW)/float64(intrW), float64(targetH)/float64(intrH))
		w = int(math.Round(float64(intrW) * scale))
		h = int(math.Round(float64(intrH) * scale))
	}
	w = min(max(w, 1), maxRasterDim)
	h = min(max(h, 1), maxRasterDim)

	icon.SetTarget(0, 0, float64(w), float64(h))

	// transparent background, icon is composed over legend row
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, dst, dst.Bounds())
	dasher := rasterx.NewDasher(w, h, scanner)
	icon.Draw(dasher, 1.0)
	return dst, nil
}
