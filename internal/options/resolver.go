package options

import (
	"strconv"
	"strings"

	"zip-resizer/internal/domain"
)

// Resolve turns raw option inputs into engine options. Values that do not
// parse as base-10 integers become nil so the engine applies its default.
// Ranges are not checked here.
func Resolve(raw domain.RawOptions) domain.ProcessingOptions {
	return domain.ProcessingOptions{
		MaxWidth:  parseInt(raw.MaxWidth),
		MaxHeight: parseInt(raw.MaxHeight),
		Quality:   parseInt(raw.Quality),
	}
}

// Int returns a pointer to v, for building options by hand.
func Int(v int) *int {
	return &v
}

// Format renders options back into raw inputs; nil fields become empty strings.
func Format(opts domain.ProcessingOptions) domain.RawOptions {
	return domain.RawOptions{
		MaxWidth:  formatInt(opts.MaxWidth),
		MaxHeight: formatInt(opts.MaxHeight),
		Quality:   formatInt(opts.Quality),
	}
}

func parseInt(raw string) *int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return nil
	}
	return &v
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
