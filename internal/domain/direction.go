package domain

// Direction is a canonical wager direction. The set of valid directions is
// closed: normalization maps raw content onto it once, and detection only
// ever compares Direction values.
type Direction string

// Canonical directions.
const (
	DirectionBig   Direction = "BIG"
	DirectionSmall Direction = "SMALL"
	DirectionOdd   Direction = "ODD"
	DirectionEven  Direction = "EVEN"
)

// OppositePair is two mutually exclusive directions staked against each
// other within the same round.
type OppositePair struct {
	First  Direction
	Second Direction
}

// Label returns the pair label in declaration order, e.g. "BIG-SMALL".
func (p OppositePair) Label() string {
	return string(p.First) + "-" + string(p.Second)
}

// Contains reports whether d is one of the two sides.
func (p OppositePair) Contains(d Direction) bool {
	return d == p.First || d == p.Second
}

// DirectionModel is the validated direction catalogue and the opposite pairs
// partitioning it. Pair order is the precedence order used when matching.
type DirectionModel struct {
	Directions []Direction
	Pairs      []OppositePair
}

// Known reports whether d belongs to the catalogue.
func (m DirectionModel) Known(d Direction) bool {
	for _, known := range m.Directions {
		if known == d {
			return true
		}
	}
	return false
}

// PairIndex returns the index of the first pair containing d.
func (m DirectionModel) PairIndex(d Direction) (int, bool) {
	for i, p := range m.Pairs {
		if p.Contains(d) {
			return i, true
		}
	}
	return -1, false
}

// DefaultDirectionModel returns the Big/Small and Odd/Even catalogue.
func DefaultDirectionModel() DirectionModel {
	return DirectionModel{
		Directions: []Direction{DirectionBig, DirectionSmall, DirectionOdd, DirectionEven},
		Pairs: []OppositePair{
			{First: DirectionBig, Second: DirectionSmall},
			{First: DirectionOdd, Second: DirectionEven},
		},
	}
}
