// Package audio locates and reconstructs playable audio bytes from
// source-specific references.
//
// Blob-mode sources store dictation audio as compressed blobs with no
// reliable header. A blob may be valid WAV already, gzip compressed, raw
// deflate compressed, prefixed with a small opaque header (2-32 bytes)
// before the compressed payload, or an unknown raw format the downstream
// transcription service can often detect natively.
package audio

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

var (
	wavMagic  = []byte("RIFF")
	gzipMagic = []byte{0x1f, 0x8b}
)

// skipOffsets are the header sizes observed in front of compressed payloads.
var skipOffsets = []int{2, 4, 8, 16, 32}

const (
	ContentTypeWAV = "audio/wav"
	ContentTypeRaw = "audio/raw"
)

// Result holds resolved audio bytes and their labelled content type.
type Result struct {
	Data        []byte
	ContentType string
}

// Resolver recovers audio from file references and inline blobs.
type Resolver struct {
	logger *slog.Logger
}

// NewResolver creates a Resolver. A nil logger falls back to slog.Default.
func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{logger: logger}
}

// ResolveFile probes the two candidate filenames for a file-reference audio
// source: basename with the known audio extension first, then the bare
// basename. Returns the first existing path. Absence is reported with
// ok=false, never an error; the caller marks the item skipped.
func (r *Resolver) ResolveFile(mountRoot, relativePath, basename string) (string, bool) {
	if mountRoot == "" || relativePath == "" || basename == "" {
		return "", false
	}
	withExt := filepath.Join(mountRoot, relativePath, basename+".opus")
	if _, err := os.Stat(withExt); err == nil {
		return withExt, true
	}
	bare := filepath.Join(mountRoot, relativePath, basename)
	if _, err := os.Stat(bare); err == nil {
		return bare, true
	}
	return "", false
}

// ResolveBlob turns a raw audio blob into bytes suitable for the
// transcription service. The offset/length slice is applied first, then
// decompression strategies are tried in fixed priority order. The final
// fallback returns the slice unmodified as audio/raw, so a non-nil result is
// returned for any input; nil only means an unexpected defect was recovered.
func (r *Resolver) ResolveBlob(raw []byte, offset, length int, recordID int64) (res *Result) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("audio resolution panicked", "record_id", recordID, "panic", p)
			res = nil
		}
	}()

	segment := raw
	if offset >= 0 && length > 0 {
		if offset+length > len(raw) {
			r.logger.Warn("extent slice exceeds blob size, using full blob",
				"record_id", recordID, "offset", offset, "length", length, "blob_size", len(raw))
		} else {
			segment = raw[offset : offset+length]
		}
	}

	r.logger.Debug("resolving audio blob", "record_id", recordID, "bytes", len(segment))

	// Strategy 1: already WAV
	if isWAV(segment) {
		return &Result{Data: segment, ContentType: ContentTypeWAV}
	}

	// Strategy 2: gzip
	if isGzip(segment) {
		if out := tryGzip(segment); out != nil {
			r.logger.Debug("gzip decompressed blob", "record_id", recordID,
				"in", len(segment), "out", len(out))
			return &Result{Data: out, ContentType: labelContent(out)}
		}
	}

	// Strategy 3: raw deflate (no wrapper header)
	if out := tryDeflate(segment); out != nil {
		r.logger.Debug("deflate decompressed blob", "record_id", recordID,
			"in", len(segment), "out", len(out))
		return &Result{Data: out, ContentType: labelContent(out)}
	}

	// Strategy 4: skip a small opaque header, then retry gzip and deflate.
	// Deflate only counts when the output outgrows the input, rejecting
	// accidental false positives.
	for _, skip := range skipOffsets {
		if len(segment) <= skip {
			continue
		}
		trimmed := segment[skip:]

		if isGzip(trimmed) {
			if out := tryGzip(trimmed); out != nil {
				r.logger.Debug("gzip decompressed after header skip",
					"record_id", recordID, "skip", skip)
				return &Result{Data: out, ContentType: labelContent(out)}
			}
		}

		if out := tryDeflate(trimmed); out != nil && len(out) > len(segment) {
			r.logger.Debug("deflate decompressed after header skip",
				"record_id", recordID, "skip", skip)
			return &Result{Data: out, ContentType: labelContent(out)}
		}
	}

	// Strategy 5: send raw, the transcription service detects many formats
	r.logger.Info("could not decompress blob, sending raw",
		"record_id", recordID, "bytes", len(segment))
	return &Result{Data: segment, ContentType: ContentTypeRaw}
}

func isWAV(data []byte) bool {
	return len(data) >= 4 && bytes.Equal(data[:4], wavMagic)
}

func isGzip(data []byte) bool {
	return len(data) >= 2 && bytes.Equal(data[:2], gzipMagic)
}

func labelContent(data []byte) string {
	if isWAV(data) {
		return ContentTypeWAV
	}
	return ContentTypeRaw
}

func tryGzip(data []byte) []byte {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil || len(out) == 0 {
		return nil
	}
	return out
}

func tryDeflate(data []byte) []byte {
	fr := flate.NewReader(bytes.NewReader(data))
	defer fr.Close()
	out, err := io.ReadAll(fr)
	if err != nil || len(out) == 0 {
		return nil
	}
	return out
}
