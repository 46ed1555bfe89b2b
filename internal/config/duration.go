package config

import (
	"fmt"
	"regexp"
	"strconv"
)

// durationPattern is the strict grammar from spec §6: an integer
// followed by exactly one unit letter, no sign, no whitespace.
var durationPattern = regexp.MustCompile(`^([0-9]+)([smhdw])$`)

// unitMultipliersMs maps each duration unit to its millisecond weight.
var unitMultipliersMs = map[byte]int64{
	's': 1000,
	'm': 60000,
	'h': 3600000,
	'd': 86400000,
	'w': 604800000,
}

// ParseDuration parses a strict duration string ("30s", "5m", "1h",
// "7d", "2w") into milliseconds. It is defined only on strings matching
// ^[0-9]+[smhdw]$; anything else is a config error.
func ParseDuration(s string) (int64, error) {
	m := durationPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid duration %q: must match ^[0-9]+[smhdw]$", s)
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	unit := m[2][0]
	mult, ok := unitMultipliersMs[unit]
	if !ok {
		return 0, fmt.Errorf("invalid duration %q: unknown unit", s)
	}
	return n * mult, nil
}

// IsValidDuration reports whether s matches the strict duration grammar.
func IsValidDuration(s string) bool {
	_, err := ParseDuration(s)
	return err == nil
}
