package resize

import (
	"errors"
	"testing"

	"zip-resizer/internal/domain"
)

func intPtr(v int) *int { return &v }

// TestNewOptionsDefaults checks absent fields fall back to engine defaults.
func TestNewOptionsDefaults(t *testing.T) {
	for _, in := range []*domain.ProcessingOptions{nil, {}} {
		got, err := NewOptions(in)
		if err != nil {
			t.Fatalf("NewOptions(%+v) error = %v", in, err)
		}
		if got != (Options{Quality: DefaultQuality}) {
			t.Fatalf("options = %+v", got)
		}
	}
}

// TestNewOptionsRejectsOutOfRange checks engine-side validation.
func TestNewOptionsRejectsOutOfRange(t *testing.T) {
	cases := []struct {
		name string
		in   domain.ProcessingOptions
		want error
	}{
		{name: "quality too high", in: domain.ProcessingOptions{Quality: intPtr(101)}, want: ErrInvalidQuality},
		{name: "negative quality", in: domain.ProcessingOptions{Quality: intPtr(-1)}, want: ErrInvalidQuality},
		{name: "negative width", in: domain.ProcessingOptions{MaxWidth: intPtr(-5)}, want: ErrInvalidDimension},
		{name: "zero height", in: domain.ProcessingOptions{MaxHeight: intPtr(0)}, want: ErrInvalidDimension},
	}
	for _, tc := range cases {
		if _, err := NewOptions(&tc.in); !errors.Is(err, tc.want) {
			t.Fatalf("%s: error = %v, want %v", tc.name, err, tc.want)
		}
	}
}

// TestFitWithin checks aspect-preserving scaling limits.
func TestFitWithin(t *testing.T) {
	cases := []struct {
		opts         Options
		w, h         int
		wantW, wantH int
	}{
		{opts: Options{}, w: 400, h: 200, wantW: 400, wantH: 200},
		{opts: Options{MaxWidth: 100}, w: 400, h: 200, wantW: 100, wantH: 50},
		{opts: Options{MaxHeight: 50}, w: 400, h: 200, wantW: 100, wantH: 50},
		{opts: Options{MaxWidth: 200, MaxHeight: 50}, w: 400, h: 200, wantW: 100, wantH: 50},
		{opts: Options{MaxWidth: 800}, w: 400, h: 200, wantW: 400, wantH: 200},
		{opts: Options{MaxWidth: 10}, w: 1000, h: 5, wantW: 10, wantH: 1},
	}
	for _, tc := range cases {
		w, h := tc.opts.fitWithin(tc.w, tc.h)
		if w != tc.wantW || h != tc.wantH {
			t.Fatalf("fitWithin(%+v, %d, %d) = %dx%d, want %dx%d", tc.opts, tc.w, tc.h, w, h, tc.wantW, tc.wantH)
		}
	}
}
