package config

// Specification of requested output type.
// ENUM(sld, ysld, bundle)
type OutputFmt int

// Ext returns extension of the main output file.
func (o OutputFmt) Ext() string {
	switch o {
	case OutputFmtSld:
		return ".sld"
	case OutputFmtYsld:
		return ".ysld"
	case OutputFmtBundle:
		return ".zip"
	default:
		// this should never happen
		panic("unsupported format requested")
	}
}

// Packaged reports if output carries local graphics next to the style.
func (o OutputFmt) Packaged() bool {
	return o == OutputFmtBundle
}
