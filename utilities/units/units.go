// Package units parses byte-size strings with the binary unit suffixes the
// command line accepts, e.g. "2048", "128KiB", "2MiB".
package units

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	KiB = 1 << 10
	MiB = 1 << 20
	GiB = 1 << 30
)

var multipliers = []struct {
	suffix string
	factor uint64
}{
	{"KiB", KiB},
	{"MiB", MiB},
	{"GiB", GiB},
}

// Parse converts a size string into a byte count. The numeric part accepts
// the usual integer prefixes ("0x...", "0..."), optionally followed by one
// of the suffixes KiB, MiB or GiB. Any other suffix is an error.
func Parse(text string) (uint64, error) {
	number := text
	factor := uint64(1)
	for _, mult := range multipliers {
		if strings.HasSuffix(text, mult.suffix) {
			number = strings.TrimSuffix(text, mult.suffix)
			factor = mult.factor
			break
		}
	}

	value, err := strconv.ParseUint(number, 0, 64)
	if err != nil {
		return 0, fmt.Errorf(
			"bad size %q: should be an integer, optionally followed by KiB, MiB or GiB",
			text)
	}
	if factor > 1 && value > ^uint64(0)/factor {
		return 0, fmt.Errorf("size %q overflows", text)
	}
	return value * factor, nil
}
