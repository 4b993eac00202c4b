package output

import (
	"fmt"
	"io"

	"howett.net/plist"

	"github.com/deploymenttheory/go-app-orchestrator/internal/common/errors"
)

// writePlist encodes doc as an XML property list. Property lists have no
// null, so nil values are dropped.
func writePlist(w io.Writer, doc any) error {
	encoder := plist.NewEncoderForFormat(w, plist.XMLFormat)
	encoder.Indent("\t")
	if err := encoder.Encode(stripNil(doc)); err != nil {
		return fmt.Errorf("%w: %s", errors.ErrFileWriteError, err.Error())
	}
	return nil
}

func stripNil(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if val == nil {
				continue
			}
			out[k] = stripNil(val)
		}
		return out
	case []any:
		out := make([]any, 0, len(t))
		for _, val := range t {
			if val == nil {
				continue
			}
			out = append(out, stripNil(val))
		}
		return out
	}
	return v
}
