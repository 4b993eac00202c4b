// Package providers holds the capability providers used by the CLI and the
// bundled workflows
package providers

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"

	"github.com/deploymenttheory/go-app-orchestrator/internal/common/errors"
	"github.com/deploymenttheory/go-app-orchestrator/pkg/orchestration"
)

// decodeInput decodes an opaque step input into dst. Field names follow
// the mapstructure tags of dst.
func decodeInput(input orchestration.Input, dst any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           dst,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(input); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrInvalidArgument, err)
	}
	return nil
}

// invalid reports a malformed input as a validation failure
func invalid(err error) orchestration.Response {
	return orchestration.Fail(orchestration.KindValidation, err)
}

// required fails with a validation error when a string field is empty
func required(field, value string) error {
	if value == "" {
		return fmt.Errorf("%w: %s", errors.ErrMissingField, field)
	}
	return nil
}
