package compression

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/deploymenttheory/go-app-orchestrator/internal/common/errors"
)

// Format names a supported single-stream compression format
type Format string

const (
	FormatXZ    Format = "xz"
	FormatBZIP2 Format = "bzip2"
	FormatGZIP  Format = "gzip"
)

type codec struct {
	ext       string
	newWriter func(w io.Writer) (io.WriteCloser, error)
	newReader func(r io.Reader) (io.ReadCloser, error)
}

var codecs = map[Format]codec{
	FormatXZ:    {ext: ".xz", newWriter: newXZWriter, newReader: newXZReader},
	FormatBZIP2: {ext: ".bz2", newWriter: newBZIP2Writer, newReader: newBZIP2Reader},
	FormatGZIP:  {ext: ".gz", newWriter: newGZIPWriter, newReader: newGZIPReader},
}

// ParseFormat parses a format name. "bz2" and "gz" are accepted aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "xz":
		return FormatXZ, nil
	case "bzip2", "bz2":
		return FormatBZIP2, nil
	case "gzip", "gz":
		return FormatGZIP, nil
	}
	return "", fmt.Errorf("%w: %q", errors.ErrUnsupportedCompression, s)
}

// Extension returns the conventional file extension, with the dot
func (f Format) Extension() string {
	return codecs[f].ext
}

func lookup(f Format) (codec, error) {
	c, ok := codecs[f]
	if !ok {
		return codec{}, fmt.Errorf("%w: %q", errors.ErrUnsupportedCompression, f)
	}
	return c, nil
}

// Compress compresses data in memory
func Compress(f Format, data []byte) ([]byte, error) {
	c, err := lookup(f)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w, err := c.newWriter(&buf)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errors.ErrCompressionFailed, err.Error())
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, fmt.Errorf("%w: %s", errors.ErrCompressionFailed, err.Error())
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%w: %s", errors.ErrCompressionFailed, err.Error())
	}
	return buf.Bytes(), nil
}

// Decompress reverses Compress
func Decompress(f Format, data []byte) ([]byte, error) {
	c, err := lookup(f)
	if err != nil {
		return nil, err
	}

	r, err := c.newReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errors.ErrDecompressionFailed, err.Error())
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errors.ErrDecompressionFailed, err.Error())
	}
	return out, nil
}
