package classify

import "fmt"

// Direction is the acquisition direction of a plot's photographs. Upward
// images look at canopy against sky; downward images look at vegetation
// against soil or litter. The direction selects the classification
// algorithm and the naming of the derived indices.
type Direction string

const (
	// Up denotes upward-facing acquisition (canopy against sky)
	Up Direction = "up"

	// Down denotes downward-facing acquisition (vegetation against soil)
	Down Direction = "down"
)

// ParseDirection converts a string into a Direction.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case Up:
		return Up, nil
	case Down:
		return Down, nil
	}
	return "", fmt.Errorf("direction must be %q or %q, got %q", Up, Down, s)
}
