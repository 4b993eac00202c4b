package compression_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	compression "github.com/deploymenttheory/go-app-orchestrator/internal/common/compressionutil"
	"github.com/deploymenttheory/go-app-orchestrator/internal/common/errors"
)

var invoice = bytes.Repeat([]byte("INV-2024-0042;Office supplies;10000;1000\n"), 64)

func TestCompressDecompress(t *testing.T) {
	for _, f := range []compression.Format{
		compression.FormatXZ, compression.FormatBZIP2, compression.FormatGZIP,
	} {
		t.Run(string(f), func(t *testing.T) {
			packed, err := compression.Compress(f, invoice)
			require.NoError(t, err)
			assert.Less(t, len(packed), len(invoice))

			unpacked, err := compression.Decompress(f, packed)
			require.NoError(t, err)
			assert.Equal(t, invoice, unpacked)
		})
	}
}

func TestParseFormat(t *testing.T) {
	f, err := compression.ParseFormat("BZ2")
	require.NoError(t, err)
	assert.Equal(t, compression.FormatBZIP2, f)
	assert.Equal(t, ".bz2", f.Extension())

	_, err = compression.ParseFormat("zstd")
	assert.ErrorIs(t, err, errors.ErrUnsupportedCompression)

	_, err = compression.Compress("zstd", invoice)
	assert.ErrorIs(t, err, errors.ErrUnsupportedCompression)
}

func TestDecompressCorrupt(t *testing.T) {
	_, err := compression.Decompress(compression.FormatGZIP, []byte("not gzip"))
	assert.ErrorIs(t, err, errors.ErrDecompressionFailed)
}
