package subtractor

// DataDumper receives raw intermediate signals for offline analysis. It is
// purely observational: the numeric results of the subtractor are identical
// whether or not a dumper is attached.
type DataDumper interface {
	// DumpRaw records one named vector for the current block. The slice
	// is only valid for the duration of the call.
	DumpRaw(name string, values []float64)
}

type nopDumper struct{}

func (nopDumper) DumpRaw(string, []float64) {}

// NopDumper is the default [DataDumper]; it discards everything.
var NopDumper DataDumper = nopDumper{}
