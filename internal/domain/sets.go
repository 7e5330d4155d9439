package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
)

// Enum is a string vocabulary that can tell its members apart.
type Enum interface {
	~string
	Valid() bool
}

// EnumSet is an unordered set of enum tags. It is stored as a JSON array of
// strings. Input paths (NewEnumSet, UnmarshalJSON) drop unknown tags; stored
// sets keep them, so a job that only names retired lines stays constrained.
type EnumSet[T Enum] map[T]struct{}

// NewEnumSet builds a set from the given tags, ignoring unknown ones.
func NewEnumSet[T Enum](items ...T) EnumSet[T] {
	s := make(EnumSet[T], len(items))
	for _, it := range items {
		if it.Valid() {
			s[it] = struct{}{}
		}
	}
	return s
}

// Has reports whether v is a member.
func (s EnumSet[T]) Has(v T) bool {
	_, ok := s[v]
	return ok
}

// Intersects reports whether the two sets share at least one member.
func (s EnumSet[T]) Intersects(other EnumSet[T]) bool {
	small, big := s, other
	if len(big) < len(small) {
		small, big = big, small
	}
	for v := range small {
		if big.Has(v) {
			return true
		}
	}
	return false
}

// IsEmpty reports whether the set has no members.
func (s EnumSet[T]) IsEmpty() bool { return len(s) == 0 }

// Sorted returns the members in lexical order.
func (s EnumSet[T]) Sorted() []T {
	out := make([]T, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Encode renders the set in its storage form. An empty set encodes to "".
func (s EnumSet[T]) Encode() string {
	if len(s) == 0 {
		return ""
	}
	b, _ := json.Marshal(s.Sorted())
	return string(b)
}

// DecodeEnumSet parses the storage form of a set. Empty, malformed or
// non-array input yields an empty set. Unknown tags are kept.
func DecodeEnumSet[T Enum](raw string) EnumSet[T] {
	if raw == "" {
		return EnumSet[T]{}
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return EnumSet[T]{}
	}
	s := make(EnumSet[T], len(tags))
	for _, t := range tags {
		if t != "" {
			s[T(t)] = struct{}{}
		}
	}
	return s
}

// MarshalJSON encodes the set as a sorted JSON array.
func (s EnumSet[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON accepts a JSON array of tags.
func (s *EnumSet[T]) UnmarshalJSON(data []byte) error {
	var tags []T
	if err := json.Unmarshal(data, &tags); err != nil {
		return fmt.Errorf("decode enum set: %w", err)
	}
	*s = NewEnumSet(tags...)
	return nil
}

// Value implements driver.Valuer. Empty sets are stored as NULL.
func (s EnumSet[T]) Value() (driver.Value, error) {
	if len(s) == 0 {
		return nil, nil
	}
	return s.Encode(), nil
}

// Scan implements sql.Scanner.
func (s *EnumSet[T]) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s = EnumSet[T]{}
	case string:
		*s = DecodeEnumSet[T](v)
	case []byte:
		*s = DecodeEnumSet[T](string(v))
	default:
		return fmt.Errorf("unsupported enum set source %T", src)
	}
	return nil
}

// JobTypeSet is the set of job types a seeker prefers.
type JobTypeSet = EnumSet[JobType]

// TransitLineSet is a set of transit line ids.
type TransitLineSet = EnumSet[TransitLine]
