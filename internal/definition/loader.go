package definition

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/deploymenttheory/go-app-orchestrator/internal/common/errors"
	"github.com/deploymenttheory/go-app-orchestrator/internal/common/fsutil"
)

// Extensions lists the file extensions recognised as workflow definitions
var Extensions = []string{".yaml", ".yml", ".json", ".toml"}

// Loaded is one entry of a directory scan
type Loaded struct {
	Path       string
	Definition *Definition
	Err        error
}

// LoadFile loads a workflow definition from a file. The format follows the
// extension; files without one are read as YAML.
func LoadFile(path string) (*Definition, error) {
	if !fsutil.FileExists(path) {
		return nil, fmt.Errorf("%w: %s", errors.ErrDefinitionNotFound, path)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType(formatOf(path))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", errors.ErrDefinitionParse, path, err)
	}
	def, err := decode(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	def.Source = path
	return def, nil
}

// Parse loads a workflow definition from memory. format is yaml, json or
// toml.
func Parse(data []byte, format string) (*Definition, error) {
	v := viper.New()
	v.SetConfigType(strings.ToLower(format))
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrDefinitionParse, err)
	}
	return decode(v)
}

// LoadDir loads every definition file in dir, in name order. A file that
// fails to load is reported in its entry and does not stop the scan.
func LoadDir(dir string) ([]Loaded, error) {
	files, err := fsutil.ListFilesByExt(dir, Extensions...)
	if err != nil {
		return nil, err
	}
	res := make([]Loaded, 0, len(files))
	for _, path := range files {
		def, err := LoadFile(path)
		res = append(res, Loaded{Path: path, Definition: def, Err: err})
	}
	return res, nil
}

func decode(v *viper.Viper) (*Definition, error) {
	def := &Definition{}
	if err := v.Unmarshal(def); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrDefinitionParse, err)
	}
	return def, nil
}

func formatOf(path string) string {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yml", "":
		return "yaml"
	default:
		return ext[1:]
	}
}
