package plugin

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// DecodeOptions decodes a plugin option map into out, a pointer to a struct
// tagged with `mapstructure`. Scalars are weakly coerced ("true" → true,
// "5" → 5, a single string → one element slice). Unknown keys are rejected.
func DecodeOptions(options map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		ZeroFields:       false,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("options decoder: %w", err)
	}
	if options == nil {
		return nil
	}
	if err := dec.Decode(options); err != nil {
		return fmt.Errorf("decode options: %w", err)
	}
	return nil
}
