package translate

import (
	"fmt"
	"slices"
	"strings"

	"geocss/style"
)

const (
	kindPolygon = "polygon"
	kindLine    = "line"
	kindPoint   = "point"
	kindText    = "text"
)

type vendorOption struct {
	kind string
	name string
}

var vendorOptionTable = map[string]vendorOption{
	"-gt-label-padding":             {kindText, "spaceAround"},
	"-gt-label-group":               {kindText, "group"},
	"-gt-label-all-group":           {kindText, "allGroup"},
	"-gt-label-min-group-distance":  {kindText, "minGroupDistance"},
	"-gt-label-max-displacement":    {kindText, "maxDisplacement"},
	"-gt-label-repeat":              {kindText, "repeat"},
	"-gt-label-remove-overlaps":     {kindText, "removeOverlaps"},
	"-gt-label-allow-overruns":      {kindText, "allowOverruns"},
	"-gt-label-follow-line":         {kindText, "followLine"},
	"-gt-label-max-angle-delta":     {kindText, "maxAngleDelta"},
	"-gt-label-auto-wrap":           {kindText, "autoWrap"},
	"-gt-label-force-ltr":           {kindText, "forceLeftToRight"},
	"-gt-label-conflict-resolution": {kindText, "conflictResolution"},
	"-gt-label-goodness-of-fit":     {kindText, "goodnessOfFit"},
	"-gt-label-polygon-align":       {kindText, "polygonAlign"},
	"-gt-label-underline-text":      {kindText, "underlineText"},
	"-gt-shield-resize":             {kindText, "graphic-resize"},
	"-gt-shield-margin":             {kindText, "graphic-margin"},
	"-gt-fill-label-obstacle":       {kindPolygon, "labelObstacle"},
	"-gt-fill-random":               {kindPolygon, "random"},
	"-gt-fill-random-seed":          {kindPolygon, "random-seed"},
	"-gt-fill-random-tile-size":     {kindPolygon, "random-tile-size"},
	"-gt-fill-random-symbol-count":  {kindPolygon, "random-symbol-count"},
	"-gt-fill-random-space-around":  {kindPolygon, "random-space-around"},
	"-gt-fill-random-rotation":      {kindPolygon, "random-rotation"},
	"-gt-graphic-margin":            {kindPolygon, "graphic-margin"},
	"-gt-stroke-label-obstacle":     {kindLine, "labelObstacle"},
	"-gt-mark-label-obstacle":       {kindPoint, "labelObstacle"},
}

// vendorOptionsHandled lists -gt- properties mapped to symbolizer fields.
var vendorOptionsHandled = []string{"-gt-label-priority"}

// vendorOptions collects -gt- properties belonging to symbolizer kind.
// Properties missing from the table are attached by their prefix under
// their own name.
func (tr *translation) vendorOptions(d declarations, kind string, i int) style.VendorOptions {
	names := make([]string, 0, len(d))
	for name := range d {
		if strings.HasPrefix(name, "-gt-") && !slices.Contains(vendorOptionsHandled, name) {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	var out style.VendorOptions
	for _, name := range names {
		opt, ok := vendorOptionTable[name]
		if !ok {
			if opt, ok = guessVendorOption(name); !ok {
				tr.warn(fmt.Sprintf("line %d: unsupported vendor option %s", d[name].Line, name))
				continue
			}
		}
		if opt.kind != kind {
			continue
		}
		v, _, _ := d.value(name, i)
		out.Set(opt.name, termLiteral(v))
	}
	return out
}

func guessVendorOption(name string) (vendorOption, bool) {
	rest := strings.TrimPrefix(name, "-gt-")
	prefix, _, _ := strings.Cut(rest, "-")
	switch prefix {
	case "label", "shield", "font", "halo":
		return vendorOption{kindText, rest}, true
	case "fill":
		return vendorOption{kindPolygon, rest}, true
	case "stroke":
		return vendorOption{kindLine, rest}, true
	case "mark":
		return vendorOption{kindPoint, rest}, true
	}
	return vendorOption{}, false
}
