package providers

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	compression "github.com/deploymenttheory/go-app-orchestrator/internal/common/compressionutil"
	"github.com/deploymenttheory/go-app-orchestrator/internal/common/cryptoutil"
	"github.com/deploymenttheory/go-app-orchestrator/internal/common/errors"
	"github.com/deploymenttheory/go-app-orchestrator/internal/common/fsutil"
	"github.com/deploymenttheory/go-app-orchestrator/pkg/orchestration"
)

func TestArchiveStoreAndRemove(t *testing.T) {
	for _, format := range []compression.Format{compression.FormatXZ, compression.FormatBZIP2, compression.FormatGZIP} {
		t.Run(string(format), func(t *testing.T) {
			dir := t.TempDir()
			a, err := NewArchive(dir, format, cryptoutil.BLAKE2b256)
			require.NoError(t, err)
			ctx := context.Background()

			resp := a.Invoke(ctx, OpStore, map[string]any{
				"name":    "../receipt 2024/04.pdf",
				"content": "receipt body",
			})
			require.True(t, resp.Success, resp.Err)

			value := resp.Value.(map[string]any)
			path := value["path"].(string)
			assert.Equal(t, dir, filepath.Dir(path))
			assert.Equal(t, format.Extension(), filepath.Ext(path))

			want, err := cryptoutil.Digest(cryptoutil.BLAKE2b256, []byte("receipt body"))
			require.NoError(t, err)
			assert.Equal(t, want, value["digest"])

			data, err := a.Load(path)
			require.NoError(t, err)
			assert.Equal(t, "receipt body", string(data))

			resp = a.Invoke(ctx, OpRemove, map[string]any{"path": path})
			require.True(t, resp.Success, resp.Err)
			assert.False(t, fsutil.FileExists(path))

			// Removing twice is harmless
			resp = a.Invoke(ctx, OpRemove, map[string]any{"path": path})
			assert.True(t, resp.Success, resp.Err)
		})
	}
}

func TestArchiveStoresStructuredContentAsJSON(t *testing.T) {
	a, err := NewArchive(t.TempDir(), compression.FormatXZ, cryptoutil.SHA256)
	require.NoError(t, err)

	docs := []any{map[string]any{"type": "receipt", "fileUrl": "s3://bucket/r.pdf"}}
	resp := a.Invoke(context.Background(), OpStore, map[string]any{"content": docs})
	require.True(t, resp.Success, resp.Err)

	data, err := a.Load(resp.Value.(map[string]any)["path"].(string))
	require.NoError(t, err)
	var got []any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, docs, got)
}

func TestArchiveRejectsOutsidePaths(t *testing.T) {
	a, err := NewArchive(t.TempDir(), compression.FormatGZIP, cryptoutil.SHA256)
	require.NoError(t, err)

	resp := a.Invoke(context.Background(), OpRemove, map[string]any{"path": "/etc/passwd"})
	assert.False(t, resp.Success)
	assert.Equal(t, orchestration.KindValidation, resp.ErrorKind)
	assert.ErrorIs(t, resp.Err, errors.ErrPermissionDenied)

	resp = a.Invoke(context.Background(), OpStore, map[string]any{"name": "empty"})
	assert.Equal(t, orchestration.KindValidation, resp.ErrorKind)
}

func TestNewArchiveValidatesSettings(t *testing.T) {
	_, err := NewArchive("", compression.FormatXZ, cryptoutil.SHA256)
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)

	_, err = NewArchive(t.TempDir(), compression.Format("zip"), cryptoutil.SHA256)
	assert.ErrorIs(t, err, errors.ErrUnsupportedCompression)

	_, err = NewArchive(t.TempDir(), compression.FormatXZ, "md5")
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)
}
