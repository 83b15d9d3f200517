package resize

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"zip-resizer/internal/domain"
)

const (
	outputSuffix              = "_resized.zip"
	tempPattern               = ".resize-*.partial"
	outputDirPerm os.FileMode = 0o750
)

// ProcessError is a stage-aware engine failure.
type ProcessError struct {
	Path    string `json:"path"`
	Stage   string `json:"stage"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error formats engine failures for logs and UI.
func (e *ProcessError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s: %s", e.Stage, e.Path, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s: %v", e.Stage, e.Path, e.Message, e.Err)
}

// Unwrap exposes underlying error for errors.Is / errors.As.
func (e *ProcessError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// entry is one archive member held in memory.
type entry struct {
	header zip.FileHeader
	data   []byte
}

// Engine resizes the images inside zip archives.
type Engine struct {
	outputDir string
	workers   int
	mkdirAll  func(path string, perm os.FileMode) error
}

// NewEngine builds an engine. Outputs are written next to each input unless
// outputDir is set.
func NewEngine(outputDir string) *Engine {
	return &Engine{
		outputDir: strings.TrimSpace(outputDir),
		workers:   runtime.NumCPU(),
		mkdirAll:  os.MkdirAll,
	}
}

// OutputPath returns where the resized copy of input is written.
func (e *Engine) OutputPath(input string) string {
	stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	if stem == "" {
		stem = "output"
	}
	dir := e.outputDir
	if dir == "" {
		dir = filepath.Dir(input)
	}
	return filepath.Join(dir, stem+outputSuffix)
}

// IsOutput reports whether name looks like an archive this engine wrote.
func IsOutput(name string) bool {
	return strings.HasSuffix(strings.ToLower(filepath.Base(name)), outputSuffix)
}

// Process validates opts and writes the resized copy of path.
func (e *Engine) Process(ctx context.Context, path string, opts *domain.ProcessingOptions) error {
	resolved, err := NewOptions(opts)
	if err != nil {
		return &ProcessError{Path: path, Stage: "options", Message: "invalid options", Err: err}
	}
	return e.ProcessFile(ctx, path, e.OutputPath(path), resolved)
}

// ProcessFile rewrites input into output. Images are resized and re-encoded
// as JPEG; other members are copied unchanged. Member order is preserved and
// directory members are dropped.
func (e *Engine) ProcessFile(ctx context.Context, input, output string, opts Options) error {
	entries, err := readEntries(input)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(e.workers, 1))
	for i := range entries {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			entries[i].data = transformEntry(entries[i].header.Name, entries[i].data, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return &ProcessError{Path: input, Stage: "transform", Message: "processing interrupted", Err: err}
	}

	if err := e.mkdirAll(filepath.Dir(output), outputDirPerm); err != nil {
		return &ProcessError{Path: output, Stage: "write", Message: "cannot create output directory", Err: err}
	}
	if err := writeEntries(output, entries); err != nil {
		return &ProcessError{Path: output, Stage: "write", Message: "cannot write archive", Err: err}
	}

	log.Info().Str("input", input).Str("output", output).Int("entries", len(entries)).Msg("archive processed")
	return nil
}

// readEntries loads every file member of the archive into memory.
func readEntries(input string) ([]entry, error) {
	reader, err := zip.OpenReader(input)
	if err != nil {
		return nil, &ProcessError{Path: input, Stage: "open", Message: "cannot open archive", Err: err}
	}
	defer func() { _ = reader.Close() }()

	entries := make([]entry, 0, len(reader.File))
	for _, f := range reader.File {
		if f.FileInfo().IsDir() {
			continue
		}
		data, err := readMember(f)
		if err != nil {
			return nil, &ProcessError{Path: input, Stage: "read", Message: "cannot read member " + f.Name, Err: err}
		}
		entries = append(entries, entry{header: f.FileHeader, data: data})
	}
	return entries, nil
}

func readMember(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}

// transformEntry returns the bytes to store for one member. Images that fail
// to decode or encode keep their original bytes.
func transformEntry(name string, data []byte, opts Options) []byte {
	if !isImage(name) {
		return data
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		log.Warn().Str("entry", name).Err(err).Msg("decode failed, keeping original")
		return data
	}

	bounds := img.Bounds()
	w, h := opts.fitWithin(bounds.Dx(), bounds.Dy())
	resized := imaging.Resize(img, w, h, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(opts.Quality)); err != nil {
		log.Warn().Str("entry", name).Err(err).Msg("encode failed, keeping original")
		return data
	}
	return buf.Bytes()
}

// writeEntries writes the archive through a temp file renamed into place.
func writeEntries(output string, entries []entry) error {
	tempFile, err := os.CreateTemp(filepath.Dir(output), tempPattern)
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tempFile.Name()

	zw := zip.NewWriter(tempFile)
	for _, ent := range entries {
		header := &zip.FileHeader{
			Name:     ent.header.Name,
			Method:   zip.Deflate,
			Modified: ent.header.Modified,
		}
		w, err := zw.CreateHeader(header)
		if err != nil {
			_ = tempFile.Close()
			_ = os.Remove(tmpName)
			return fmt.Errorf("create member %s: %w", ent.header.Name, err)
		}
		if _, err := w.Write(ent.data); err != nil {
			_ = tempFile.Close()
			_ = os.Remove(tmpName)
			return fmt.Errorf("write member %s: %w", ent.header.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		_ = tempFile.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("close zip writer: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp: %w", err)
	}
	// remove existing file to avoid permission issues on Windows
	if _, err := os.Stat(output); err == nil {
		_ = os.Remove(output)
	}
	if err := os.Rename(tmpName, output); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename temp: %w", err)
	}
	return nil
}

// isImage reports whether a member name has a resizable image extension.
func isImage(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png":
		return true
	default:
		return false
	}
}
