package axiom

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/j-sauer/axiom-go/model"
)

// ContentEncoder wraps r into a reader that yields the content of r
// compressed. Compression happens while the returned reader is consumed.
//
// The compressing encoders run a goroutine per call that only stops once the
// returned reader is read to the end or closed. Client.Ingest closes it on
// every path; other callers must do so themselves.
type ContentEncoder func(r io.Reader) (io.Reader, error)

// GzipEncoder returns a ContentEncoder that compresses with gzip.
func GzipEncoder() ContentEncoder {
	return GzipEncoderWithLevel(gzip.BestSpeed)
}

// GzipEncoderWithLevel returns a ContentEncoder that compresses with gzip at
// the given level.
func GzipEncoderWithLevel(level int) ContentEncoder {
	return func(r io.Reader) (io.Reader, error) {
		pr, pw := io.Pipe()
		gzw, err := gzip.NewWriterLevel(pw, level)
		if err != nil {
			_ = pw.Close() //nolint:errcheck //nothing written yet
			return nil, fmt.Errorf("axiom: create gzip writer: %w", err)
		}
		go compressInto(pw, gzw, r)
		return pr, nil
	}
}

// ZstdEncoder returns a ContentEncoder that compresses with zstd.
func ZstdEncoder() ContentEncoder {
	return func(r io.Reader) (io.Reader, error) {
		pr, pw := io.Pipe()
		zsw, err := zstd.NewWriter(pw)
		if err != nil {
			_ = pw.Close() //nolint:errcheck //nothing written yet
			return nil, fmt.Errorf("axiom: create zstd writer: %w", err)
		}
		go compressInto(pw, zsw, r)
		return pr, nil
	}
}

// EncoderFor returns the ContentEncoder that produces enc. The identity
// encoder returns its input unchanged.
func EncoderFor(enc model.ContentEncoding) (ContentEncoder, error) {
	switch enc {
	case model.ContentEncodingIdentity:
		return func(r io.Reader) (io.Reader, error) { return r, nil }, nil
	case model.ContentEncodingGzip:
		return GzipEncoder(), nil
	case model.ContentEncodingZstd:
		return ZstdEncoder(), nil
	default:
		return nil, fmt.Errorf("%w: %d", model.ErrInvalidContentEncoding, int(enc))
	}
}

func compressInto(pw *io.PipeWriter, w io.WriteCloser, r io.Reader) {
	_, err := io.Copy(w, r)
	if closeErr := w.Close(); err == nil {
		err = closeErr
	}
	_ = pw.CloseWithError(err) //nolint:errcheck //always nil
}
