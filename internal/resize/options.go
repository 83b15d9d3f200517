package resize

import (
	"errors"
	"fmt"

	"zip-resizer/internal/domain"
)

// DefaultQuality is the JPEG quality used when none is configured.
const DefaultQuality = 80

// ErrInvalidQuality is returned for a quality outside 0..100.
var ErrInvalidQuality = errors.New("quality must be between 0 and 100")

// ErrInvalidDimension is returned for a non-positive size limit.
var ErrInvalidDimension = errors.New("size limit must be positive")

// Options are validated engine settings. Zero MaxWidth/MaxHeight means unbounded.
type Options struct {
	MaxWidth  int
	MaxHeight int
	Quality   int
}

// NewOptions validates run options and applies engine defaults for absent fields.
func NewOptions(opts *domain.ProcessingOptions) (Options, error) {
	out := Options{Quality: DefaultQuality}
	if opts == nil {
		return out, nil
	}

	if opts.MaxWidth != nil {
		if *opts.MaxWidth <= 0 {
			return Options{}, fmt.Errorf("%w: max width %d", ErrInvalidDimension, *opts.MaxWidth)
		}
		out.MaxWidth = *opts.MaxWidth
	}
	if opts.MaxHeight != nil {
		if *opts.MaxHeight <= 0 {
			return Options{}, fmt.Errorf("%w: max height %d", ErrInvalidDimension, *opts.MaxHeight)
		}
		out.MaxHeight = *opts.MaxHeight
	}
	if opts.Quality != nil {
		if *opts.Quality < 0 || *opts.Quality > 100 {
			return Options{}, fmt.Errorf("%w: %d", ErrInvalidQuality, *opts.Quality)
		}
		out.Quality = *opts.Quality
	}
	return out, nil
}

// fitWithin scales w x h down to the configured limits keeping aspect ratio.
// Width is capped first, then height; neither side drops below one pixel.
func (o Options) fitWithin(w, h int) (int, int) {
	if o.MaxWidth > 0 && w > o.MaxWidth {
		ratio := float64(o.MaxWidth) / float64(w)
		w = o.MaxWidth
		h = max(int(float64(h)*ratio), 1)
	}
	if o.MaxHeight > 0 && h > o.MaxHeight {
		ratio := float64(o.MaxHeight) / float64(h)
		h = o.MaxHeight
		w = max(int(float64(w)*ratio), 1)
	}
	return w, h
}
