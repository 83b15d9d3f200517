package queue

import "testing"

// TestAccepts checks the case-insensitive zip suffix rule.
func TestAccepts(t *testing.T) {
	cases := map[string]bool{
		"/data/photos.zip":  true,
		"/data/PHOTOS.ZIP":  true,
		"C:\\in\\Mixed.Zip": true,
		"archive.zip.txt":   false,
		"/data/photos.7z":   false,
		"/data/README":      false,
		"":                  false,
		"/data/photos.zipx": false,
		"/data/photos..zip": true,
		"/data/zip":         false,
	}
	for path, want := range cases {
		if got := Accepts(path); got != want {
			t.Fatalf("Accepts(%q) = %v, want %v", path, got, want)
		}
	}
}
