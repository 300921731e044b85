package media

import (
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/itchan-dev/worklog/internal/config"
	"github.com/itchan-dev/worklog/internal/domain"
	"github.com/itchan-dev/worklog/internal/logger"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/image/draw"
)

// ResizedDirName is the directory, next to an original, that holds its resized copy.
const ResizedDirName = "Resized"

var ErrNoEncoder = errors.New("no encoder for image format")

// Pipeline decides whether a stored file is an image and, if it is, writes
// a copy capped to maxSide pixels on its longest side into a Resized
// directory next to the original. It never returns an error: every failure
// resolves to "not an image".
//
// Calls block until the codecs finish and are not safe for concurrent use on
// the same file.
type Pipeline struct {
	maxSide         int
	maxDecodedBytes int64
	encoders        map[string]Encoder
	metrics         *Metrics
}

func New(cfg config.Image, registerer prometheus.Registerer) *Pipeline {
	return &Pipeline{
		maxSide:         cfg.MaxSide,
		maxDecodedBytes: cfg.MaxDecodedBytes,
		encoders:        defaultEncoders(cfg.JpegQuality),
		metrics:         newMetrics(registerer),
	}
}

func (p *Pipeline) Metrics() *Metrics {
	return p.metrics
}

// SetEncoder replaces the encoder used for format. A nil enc removes it.
func (p *Pipeline) SetEncoder(format string, enc Encoder) {
	if enc == nil {
		delete(p.encoders, format)
		return
	}
	p.encoders[format] = enc
}

// ResizedRelativePath is where the resized copy of relativePath is stored:
// same file name, in a Resized directory sibling to the original.
func ResizedRelativePath(relativePath string) string {
	rel := filepath.FromSlash(strings.ReplaceAll(relativePath, `\`, "/"))
	return filepath.Join(filepath.Dir(rel), ResizedDirName, filepath.Base(rel))
}

// Resolve runs the pipeline for the file at relativePath.
func (p *Pipeline) Resolve(paths domain.PathMapper, relativePath string) domain.ImageResolution {
	res := p.resolve(paths, relativePath)
	p.metrics.Resolutions.WithLabelValues(res.State.String()).Inc()

	if res.State == domain.ImageNotAnImage {
		logger.Log.Debug("attachment is not an image", "path", relativePath, "reason", res.Reason)
	}
	return res
}

func (p *Pipeline) resolve(paths domain.PathMapper, relativePath string) domain.ImageResolution {
	img, format, err := p.decode(paths.MapPath(relativePath))
	if err != nil {
		return domain.NotAnImage(err)
	}
	original := domain.ImageSize{Width: img.Bounds().Dx(), Height: img.Bounds().Dy()}

	enc, ok := p.encoders[format]
	if !ok {
		return domain.NotAnImage(fmt.Errorf("%w: %s", ErrNoEncoder, format))
	}

	resized := p.scale(img)

	resizedRel := ResizedRelativePath(relativePath)
	dst := paths.MapPath(resizedRel)
	length, err := p.write(dst, enc, resized)
	if err != nil {
		removeIfEmptyDir(filepath.Dir(dst))
		logger.Log.Warn("failed to write resized image", "path", relativePath, "error", err)
		return domain.NotAnImage(err)
	}

	return domain.ResolvedImage(domain.ImageInfo{
		Format:              format,
		Size:                original,
		ResizedRelativePath: resizedRel,
		ResizedLength:       length,
		ResizedSize:         domain.ImageSize{Width: resized.Bounds().Dx(), Height: resized.Bounds().Dy()},
	})
}

func (p *Pipeline) decode(path string) (image.Image, string, error) {
	p.metrics.Operations.WithLabelValues(OpDecode).Inc()

	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	// Check decoded image size before decoding to prevent OOM from crafted image headers.
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image dimensions: %w", err)
	}
	if int64(cfg.Width)*int64(cfg.Height)*4 > p.maxDecodedBytes {
		return nil, "", fmt.Errorf("image too large: %dx%d pixels, decoded size would exceed %d bytes limit", cfg.Width, cfg.Height, p.maxDecodedBytes)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, "", fmt.Errorf("failed to rewind file: %w", err)
	}
	img, format, err := image.Decode(f)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}

// scale fits img into a maxSide x maxSide box, keeping the aspect ratio.
// Images already within the box are returned as they are.
func (p *Pipeline) scale(img image.Image) image.Image {
	b := img.Bounds()
	w, h := FitWithin(b.Dx(), b.Dy(), p.maxSide)
	if w == b.Dx() && h == b.Dy() {
		return img
	}

	p.metrics.Operations.WithLabelValues(OpResize).Inc()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// FitWithin returns the size of a w x h image scaled down so that neither
// side exceeds limit. It never scales up.
func FitWithin(w, h, limit int) (int, int) {
	if w <= limit && h <= limit {
		return w, h
	}
	if w >= h {
		return limit, max(1, int(math.Round(float64(h)*float64(limit)/float64(w))))
	}
	return max(1, int(math.Round(float64(w)*float64(limit)/float64(h)))), limit
}

// write encodes img to a temp file next to dst and renames it into place, so
// a failed encode never leaves a partial file under dst's name.
func (p *Pipeline) write(dst string, enc Encoder, img image.Image) (int64, error) {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create %s directory: %w", ResizedDirName, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dst)+"-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	p.metrics.Operations.WithLabelValues(OpEncode).Inc()
	if err := enc(tmp, img); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return 0, fmt.Errorf("failed to encode image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("failed to move resized image into place: %w", err)
	}

	info, err := os.Stat(dst)
	if err != nil {
		os.Remove(dst)
		return 0, fmt.Errorf("failed to stat resized image: %w", err)
	}
	return info.Size(), nil
}

// removeIfEmptyDir removes dir only if it is a directory with no entries.
// Resized copies of other attachments are left alone.
func removeIfEmptyDir(dir string) {
	info, err := os.Lstat(dir)
	if err != nil || !info.IsDir() {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) > 0 {
		return
	}
	os.Remove(dir) // Best effort, ignore error here.
}
