package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
)

type (
	// FileInspector reports the byte size behind an asset handle. It is an
	// interface so tests can simulate a capture subsystem that refuses to
	// answer.
	FileInspector interface {
		Size(uri string) (int64, error)
	}

	// Preprocessor resizes and re-encodes oversized assets before upload.
	// Output format is fixed to JPEG so every submission looks the same to
	// the recognition endpoint.
	Preprocessor struct {
		inspector FileInspector
		workDir   string
		log       *logrus.Entry
	}

	osInspector struct{}
)

func (osInspector) Size(uri string) (int64, error) {
	info, err := os.Stat(uri)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// NewPreprocessor creates a Preprocessor writing compressed variants into
// workDir. An empty workDir falls back to the system temp directory.
func NewPreprocessor(workDir string) *Preprocessor {
	if workDir == "" {
		workDir = os.TempDir()
	}
	return &Preprocessor{
		inspector: osInspector{},
		workDir:   workDir,
		log:       logrus.WithField("component", "preprocessor"),
	}
}

// NewPreprocessorWithInspector is the test seam for size inspection.
func NewPreprocessorWithInspector(workDir string, inspector FileInspector) *Preprocessor {
	p := NewPreprocessor(workDir)
	p.inspector = inspector
	return p
}

// ShouldCompress reports whether the asset's underlying bytes exceed
// thresholdBytes. A failed size check fails open: an upload attempt must not
// be blocked just because the size could not be read.
func (p *Preprocessor) ShouldCompress(asset Asset, thresholdBytes int64) bool {
	size, err := p.inspector.Size(asset.URI)
	if err != nil {
		p.log.WithField("uri", asset.URI).Warnf("can not check file size: %v", err)
		return false
	}
	p.log.Debugf("image %s size is %.2f MB", asset.URI, float64(size)/1024/1024)
	return size > thresholdBytes
}

// Compress produces a new JPEG asset whose longest edge is at most
// maxDimension pixels, re-encoded at the given quality (0.0-1.0, lower is
// smaller). The input asset is left untouched. A failure is reported as a
// CompressionError, never papered over by returning the original.
func (p *Preprocessor) Compress(asset Asset, maxDimension int, quality float64) (Asset, error) {
	src, err := imaging.Open(asset.URI)
	if err != nil {
		return Asset{}, &CompressionError{URI: asset.URI, Err: err}
	}

	resized := imaging.Fit(src, maxDimension, maxDimension, imaging.Lanczos)
	bounds := resized.Bounds()

	name := fmt.Sprintf("scan_%d.jpg", time.Now().UnixNano())
	out := filepath.Join(p.workDir, name)
	if err := imaging.Save(resized, out, imaging.JPEGQuality(jpegQuality(quality))); err != nil {
		return Asset{}, &CompressionError{URI: asset.URI, Err: err}
	}

	p.log.WithFields(logrus.Fields{
		"source": asset.URI,
		"output": out,
	}).Debugf("compressed to %dx%d at quality %.2f", bounds.Dx(), bounds.Dy(), quality)

	return Asset{
		URI:      out,
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		MimeType: defaultMimeType,
		FileName: name,
	}, nil
}

// jpegQuality maps the 0.0-1.0 scale onto the encoder's 1-100 scale.
func jpegQuality(quality float64) int {
	q := int(quality * 100)
	if q < 1 {
		q = 1
	}
	if q > 100 {
		q = 100
	}
	return q
}
