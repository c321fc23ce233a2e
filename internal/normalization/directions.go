package normalization

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"washtrade-lab/internal/domain"
)

// DefaultDirectionSynonyms is the built-in content catalogue.
var DefaultDirectionSynonyms = map[domain.Direction][]string{
	domain.DirectionBig:   {"两面-大", "和值-大", "大", "big", "da"},
	domain.DirectionSmall: {"两面-小", "和值-小", "小", "small", "xiao", "xia"},
	domain.DirectionOdd:   {"两面-单", "和值-单", "单", "odd", "dan"},
	domain.DirectionEven:  {"两面-双", "和值-双", "双", "even", "shuang"},
}

type synonym struct {
	text      string // lower-cased
	direction domain.Direction
}

// DirectionMatcher resolves bet content to a canonical direction. This is
// the only place direction text is matched.
type DirectionMatcher struct {
	synonyms []synonym // catalogue order
}

// NewDirectionMatcher builds a matcher over the model's directions, in
// catalogue order. Every synonym must map to a direction in the model.
func NewDirectionMatcher(model domain.DirectionModel, catalogue map[domain.Direction][]string) (*DirectionMatcher, error) {
	for d := range catalogue {
		if !model.Known(d) {
			return nil, fmt.Errorf("direction synonyms for unknown direction %q", d)
		}
	}

	m := &DirectionMatcher{}
	for _, d := range model.Directions {
		// The canonical name always resolves.
		m.synonyms = append(m.synonyms, synonym{text: strings.ToLower(string(d)), direction: d})
		for _, s := range catalogue[d] {
			s = strings.ToLower(strings.TrimSpace(s))
			if s == "" {
				continue
			}
			m.synonyms = append(m.synonyms, synonym{text: s, direction: d})
		}
	}
	return m, nil
}

// Match returns the direction for content. An exact synonym wins; otherwise
// the synonym with the most characters contained in content, ties going to
// catalogue order.
func (m *DirectionMatcher) Match(content string) (domain.Direction, bool) {
	c := strings.ToLower(strings.TrimSpace(content))
	if c == "" {
		return "", false
	}
	for _, s := range m.synonyms {
		if s.text == c {
			return s.direction, true
		}
	}

	var best synonym
	for _, s := range m.synonyms {
		if utf8.RuneCountInString(s.text) > utf8.RuneCountInString(best.text) && strings.Contains(c, s.text) {
			best = s
		}
	}
	if best.text == "" {
		return "", false
	}
	return best.direction, true
}
