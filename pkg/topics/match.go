package topics

import (
	"errors"
	"fmt"
	"strings"
)

// Separator is the topic level delimiter.
const Separator = "/"

// Wildcard segments.
const (
	SingleLevel = "+"
	MultiLevel  = "#"
)

var (
	// ErrEmptyFilter is returned when a filter has no segments.
	ErrEmptyFilter = errors.New("topic filter cannot be empty")
	// ErrMultiLevelNotLast is returned when "#" appears before the final segment.
	ErrMultiLevelNotLast = errors.New("multi-level wildcard must be the last segment")
)

// Validate checks topic filter syntax. It is applied when a subscription
// is registered; Matches assumes its filter argument already passed.
func Validate(filter string) error {
	if filter == "" {
		return ErrEmptyFilter
	}
	segments := strings.Split(filter, Separator)
	for i, seg := range segments {
		if seg == MultiLevel && i != len(segments)-1 {
			return ErrMultiLevelNotLast
		}
		if seg == SingleLevel || seg == MultiLevel {
			continue
		}
		// A wildcard character inside a literal segment is malformed.
		if strings.Contains(seg, SingleLevel) || strings.Contains(seg, MultiLevel) {
			return fmt.Errorf("segment %q mixes wildcard and literal characters", seg)
		}
	}
	return nil
}

// Matches reports whether topic falls under filter.
//
// The walk is pairwise over segments: a literal must equal the topic
// segment, "+" consumes exactly one segment unconditionally, and a
// trailing "#" consumes all remaining segments, including zero.
func Matches(filter, topic string) bool {
	fs := strings.Split(filter, Separator)
	ts := strings.Split(topic, Separator)

	for i, seg := range fs {
		if seg == MultiLevel {
			// "a/#" matches "a" as well as everything below it.
			return true
		}
		if i >= len(ts) {
			// Topic exhausted before the filter.
			return false
		}
		if seg != SingleLevel && seg != ts[i] {
			return false
		}
	}
	// Filter exhausted: match only if the topic is exhausted too.
	return len(fs) == len(ts)
}

// Score ranks a filter's specificity for tie-breaking among filters that
// all match a given topic. Comparison is lexicographic: more literal
// segments wins, then more total segments.
type Score struct {
	// Literals is the count of non-wildcard segments.
	Literals int
	// Length is the total segment count.
	Length int
}

// Specificity computes the Score for a filter. A fully literal filter is
// maximally specific; a bare "#" is minimally specific.
func Specificity(filter string) Score {
	segments := strings.Split(filter, Separator)
	score := Score{Length: len(segments)}
	for _, seg := range segments {
		if seg != SingleLevel && seg != MultiLevel {
			score.Literals++
		}
	}
	return score
}

// Less reports whether s ranks strictly below other.
func (s Score) Less(other Score) bool {
	if s.Literals != other.Literals {
		return s.Literals < other.Literals
	}
	return s.Length < other.Length
}
