package parse

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	legacyRe   = regexp.MustCompile(`^[A-Z]{3}[0-9]{4}$`)
	mercosulRe = regexp.MustCompile(`^[A-Z]{3}[0-9][A-Z][0-9]{2}$`)
	spacesRe   = regexp.MustCompile(`[\s\-.]+`)
)

// PlateFormat identifies which licence plate layout matched.
type PlateFormat string

const (
	PlateLegacy   PlateFormat = "legacy"   // ABC1234
	PlateMercosul PlateFormat = "mercosul" // ABC1D23
)

// Plate is a normalized vehicle licence plate.
type Plate struct {
	Number string
	Format PlateFormat
}

// ParsePlate normalizes a raw plate entered by the user and checks it against
// the legacy and Mercosul layouts.
func ParsePlate(raw string) (Plate, error) {
	// "abc-1234" -> "ABC1234"
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = spacesRe.ReplaceAllString(s, "")

	if s == "" {
		return Plate{}, fmt.Errorf("plate is empty")
	}

	switch {
	case legacyRe.MatchString(s):
		return Plate{Number: s, Format: PlateLegacy}, nil
	case mercosulRe.MatchString(s):
		return Plate{Number: s, Format: PlateMercosul}, nil
	}
	return Plate{}, fmt.Errorf("unable to parse plate: %q", raw)
}

// Display renders the plate the way it is printed, with the legacy hyphen.
func (p Plate) Display() string {
	if p.Format == PlateLegacy && len(p.Number) == 7 {
		return p.Number[:3] + "-" + p.Number[3:]
	}
	return p.Number
}
