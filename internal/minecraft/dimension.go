// Package minecraft holds the small pieces of Minecraft domain knowledge the
// renderer needs: the three dimensions, the map color palette, and the banner
// dye names.
package minecraft

import "fmt"

// Dimension identifies one of the three worlds a map can belong to.
type Dimension int

const (
	Overworld Dimension = iota
	Nether
	End
)

// String returns the canonical lowercase form used in filenames and JSON.
func (d Dimension) String() string {
	switch d {
	case Overworld:
		return "overworld"
	case Nether:
		return "nether"
	case End:
		return "end"
	default:
		return fmt.Sprintf("dimension(%d)", int(d))
	}
}

// MarshalText makes Dimension serialize as its canonical string in JSON.
func (d Dimension) MarshalText() ([]byte, error) {
	switch d {
	case Overworld, Nether, End:
		return []byte(d.String()), nil
	default:
		return nil, fmt.Errorf("unknown dimension %d", int(d))
	}
}

// Dimensions lists all three in a fixed order.
var Dimensions = []Dimension{Overworld, Nether, End}

// ParseDimension accepts the canonical lowercase form.
func ParseDimension(s string) (Dimension, error) {
	switch s {
	case "overworld":
		return Overworld, nil
	case "nether":
		return Nether, nil
	case "end":
		return End, nil
	}
	return 0, fmt.Errorf("unknown dimension %q", s)
}

// DimensionFromCode maps the legacy numeric codes found in older map records.
func DimensionFromCode(code int) (Dimension, error) {
	switch code {
	case -1:
		return Nether, nil
	case 0:
		return Overworld, nil
	case 1:
		return End, nil
	}
	return 0, fmt.Errorf("unknown dimension code %d", code)
}

// DimensionFromName maps the fully-qualified resource names used by newer
// map records.
func DimensionFromName(name string) (Dimension, error) {
	switch name {
	case "minecraft:overworld":
		return Overworld, nil
	case "minecraft:the_nether":
		return Nether, nil
	case "minecraft:the_end":
		return End, nil
	}
	return 0, fmt.Errorf("unknown dimension name %q", name)
}
