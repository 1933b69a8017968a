package bus

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
	"github.com/rileyhilliard/portctl/internal/errors"
)

// Decode converts a payload into out, a pointer to a typed value. The payload
// may be a Go value handed over by the memory backend or the maps, slices and
// float64s produced by JSON transports; fields match on json tags and scalar
// types convert weakly.
func Decode(in any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrPayload, "Cannot build payload decoder", "")
	}
	if err := dec.Decode(in); err != nil {
		return errors.WrapWithCode(err, errors.ErrPayload,
			fmt.Sprintf("Cannot decode payload of type %T", in), "")
	}
	return nil
}

// Arg decodes positional argument i of msg into out.
func Arg(msg Message, i int, out any) error {
	if i < 0 || i >= len(msg.Data) {
		return errors.New(errors.ErrPayload,
			fmt.Sprintf("%s: missing argument %d (got %d)", msg.Method, i, len(msg.Data)), "")
	}
	return Decode(msg.Data[i], out)
}
