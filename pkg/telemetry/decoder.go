package telemetry

import (
	"errors"
	"fmt"

	"github.com/mpapenbr/racestore/log"
)

// DecodeStrategy decodes one blob format
type DecodeStrategy struct {
	Name   string
	Decode func(buf []byte) (Trajectory, error)
}

// Strategies lists the known blob formats, newest first.
// Older stores contain blobs written without the compression stage.
var Strategies = []DecodeStrategy{
	{Name: "zlib", Decode: Decompress},
	{Name: "raw", Decode: decode},
}

// DecodeWith tries the strategies in order and returns the first success.
// If all strategies fail the returned error wraps ErrDecode.
func DecodeWith(buf []byte, strategies ...DecodeStrategy) (Trajectory, string, error) {
	if len(buf) == 0 {
		return Trajectory{}, "", fmt.Errorf("%w: empty blob", ErrDecode)
	}
	errs := make([]error, 0, len(strategies))
	for _, s := range strategies {
		t, err := s.Decode(buf)
		if err == nil {
			return t, s.Name, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
	}
	return Trajectory{}, "", fmt.Errorf("%w: %w", ErrDecode, errors.Join(errs...))
}

// Decode returns the trajectory stored in buf. The second return value is
// false if buf does not contain a readable trajectory.
func Decode(buf []byte) (Trajectory, bool) {
	t, name, err := DecodeWith(buf, Strategies...)
	if err != nil {
		log.Default().Named("telemetry").Debug("no telemetry",
			log.Int("size", len(buf)), log.ErrorField(err))
		return Trajectory{}, false
	}
	if name != Strategies[0].Name {
		log.Default().Named("telemetry").Debug("decoded legacy blob",
			log.String("format", name))
	}
	return t, true
}
