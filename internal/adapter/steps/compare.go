package steps

import "fmt"

const (
	GreaterThan = "greater than"
	LessThan    = "less than"
	EqualTo     = "equal to"
	NotEqualTo  = "not equal to"
)

// Compare reports whether "actual <op> expected" holds.
func Compare(op string, actual, expected float64) (bool, error) {
	switch op {
	case GreaterThan:
		return actual > expected, nil
	case LessThan:
		return actual < expected, nil
	case EqualTo:
		return actual == expected, nil
	case NotEqualTo:
		return actual != expected, nil
	default:
		return false, fmt.Errorf("unknown comparison %q", op)
	}
}
