package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	compression "github.com/deploymenttheory/go-app-orchestrator/internal/common/compressionutil"
	"github.com/deploymenttheory/go-app-orchestrator/internal/common/cryptoutil"
	"github.com/deploymenttheory/go-app-orchestrator/internal/common/errors"
	"github.com/deploymenttheory/go-app-orchestrator/internal/common/fsutil"
	"github.com/deploymenttheory/go-app-orchestrator/pkg/orchestration"
)

// ArchiveName is the registry name of the archive provider
const ArchiveName = "archive"

// Archive operations
const (
	OpStore  = "store"
	OpRemove = "remove"
)

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

type (
	// Archive stores compressed copies of documents in a directory
	Archive struct {
		dir    string
		format compression.Format
		digest cryptoutil.HashAlgorithm
		newID  func() string
	}

	storeInput struct {
		Name    string `mapstructure:"name"`
		Content any    `mapstructure:"content"`
	}
)

// NewArchive creates an archive writing to dir
func NewArchive(dir string, format compression.Format, digest cryptoutil.HashAlgorithm) (*Archive, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: archive directory is required", errors.ErrInvalidArgument)
	}
	if format.Extension() == "" {
		return nil, fmt.Errorf("%w: %q", errors.ErrUnsupportedCompression, format)
	}
	if _, err := cryptoutil.NewHasher(digest); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errors.ErrPathNotAccessible, dir)
	}
	return &Archive{dir: abs, format: format, digest: digest, newID: uuid.NewString}, nil
}

func (a *Archive) Name() string {
	return ArchiveName
}

func (a *Archive) Supports(operation string) bool {
	return operation == OpStore || operation == OpRemove
}

func (a *Archive) Invoke(
	ctx context.Context, operation string, input orchestration.Input,
) orchestration.Response {
	if err := ctx.Err(); err != nil {
		return orchestration.Fail(orchestration.KindCancelled, err)
	}
	switch operation {
	case OpStore:
		return a.store(input)
	case OpRemove:
		return a.remove(input)
	}
	return orchestration.Fail(orchestration.KindPermanent,
		fmt.Errorf("%w: %s.%s", orchestration.ErrUnsupportedOperation, ArchiveName, operation))
}

// store compresses the content and writes it under a unique name. String
// content is stored as is; anything else is stored as JSON.
func (a *Archive) store(input orchestration.Input) orchestration.Response {
	var in storeInput
	if err := decodeInput(input, &in); err != nil {
		return invalid(err)
	}
	if in.Content == nil {
		return invalid(fmt.Errorf("%w: content", errors.ErrMissingField))
	}

	var raw []byte
	switch c := in.Content.(type) {
	case string:
		raw = []byte(c)
	case []byte:
		raw = c
	default:
		b, err := json.Marshal(c)
		if err != nil {
			return invalid(fmt.Errorf("%w: %w", errors.ErrInvalidArgument, err))
		}
		raw = b
	}

	digest, err := cryptoutil.Digest(a.digest, raw)
	if err != nil {
		return orchestration.Fail(orchestration.KindPermanent, err)
	}
	packed, err := compression.Compress(a.format, raw)
	if err != nil {
		return orchestration.Fail(orchestration.KindPermanent, err)
	}

	name := strings.Trim(unsafeName.ReplaceAllString(in.Name, "_"), "._")
	if name == "" {
		name = "document"
	}
	path := filepath.Join(a.dir, name+"-"+a.newID()[:8]+a.format.Extension())
	if err := fsutil.WriteFileAtomic(path, packed, 0o600); err != nil {
		// Disk problems may clear on their own
		return orchestration.Fail(orchestration.KindTransient, err)
	}

	return orchestration.Succeed(map[string]any{
		"path":            path,
		"digest":          digest,
		"format":          string(a.format),
		"size":            len(raw),
		"compressed_size": len(packed),
	})
}

func (a *Archive) remove(input orchestration.Input) orchestration.Response {
	var in struct {
		Path string `mapstructure:"path"`
	}
	if err := decodeInput(input, &in); err != nil {
		return invalid(err)
	}
	if err := required("path", in.Path); err != nil {
		return invalid(err)
	}
	path, err := a.within(in.Path)
	if err != nil {
		return invalid(err)
	}
	if err := fsutil.DeleteFile(path); err != nil {
		return orchestration.Fail(orchestration.KindTransient, err)
	}
	return orchestration.Succeed(map[string]any{"path": path, "removed": true})
}

// Load reads back an archived document
func (a *Archive) Load(path string) ([]byte, error) {
	path, err := a.within(path)
	if err != nil {
		return nil, err
	}
	packed, err := fsutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return compression.Decompress(a.format, packed)
}

// within resolves path and rejects anything outside the archive directory
func (a *Archive) within(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s", errors.ErrPathNotAccessible, path)
	}
	rel, err := filepath.Rel(a.dir, abs)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%w: %s is outside the archive", errors.ErrPermissionDenied, path)
	}
	return abs, nil
}
