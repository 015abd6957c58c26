package neighgo

import "fmt"

// Mode selects how neighbor table data is presented. Canonical storage is
// always ModeFilled; the other modes are derived views selected by View or
// built directly through Ragged and Flattened.
type Mode uint8

const (
	// ModeFilled presents fixed-width rows padded with sentinel entries.
	ModeFilled Mode = iota
	// ModeRagged presents the finite prefix of every row.
	ModeRagged
	// ModeFlattened presents all finite entries as flat arrays together
	// with an owning-atom companion array.
	ModeFlattened
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	switch m {
	case ModeFilled:
		return "filled"
	case ModeRagged:
		return "ragged"
	case ModeFlattened:
		return "flattened"
	default:
		return fmt.Sprintf("Mode(%d)", uint8(m))
	}
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m <= ModeFlattened
}

// ParseMode converts a mode name into a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "filled":
		return ModeFilled, nil
	case "ragged":
		return ModeRagged, nil
	case "flattened":
		return ModeFlattened, nil
	default:
		return 0, &ErrUnknownMode{Mode: s}
	}
}
