// internal/app/system/personname/personname.go

// Package personname converts between structured name records
// (first/middle/last/suffix) and their display strings.
//
// Compose renders a display name; Parse and Decompose go the other way,
// splitting free text into parts. Parsing is advisory: it never fails and
// simply leaves fields empty when the input has too few tokens.
package personname

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxSuffixLen is the longest trailing token (in characters) that Parse
// treats as a name suffix such as "Jr" or "III".
const MaxSuffixLen = 3

// Parts holds the structured pieces of a person's name.
type Parts struct {
	First  string `bson:"first_name" json:"first_name"`
	Middle string `bson:"middle_name,omitempty" json:"middle_name,omitempty"`
	Last   string `bson:"last_name" json:"last_name"`
	Suffix string `bson:"name_suffix,omitempty" json:"name_suffix,omitempty"`
}

// Claimed reports whether the record already carries anything beyond a
// first name. Claimed records are left alone by Decompose.
func (p Parts) Claimed() bool {
	return p.Middle != "" || p.Last != "" || p.Suffix != ""
}

// IsZero reports whether every field is empty.
func (p Parts) IsZero() bool {
	return p == Parts{}
}

// Order selects where the last name goes.
type Order int

const (
	// FirstFirst renders "First [Middle] Last [Suffix]".
	FirstFirst Order = iota
	// LastFirst renders "Last, First [Middle] [Suffix]".
	LastFirst
)

func (o Order) String() string {
	switch o {
	case FirstFirst:
		return "first_first"
	case LastFirst:
		return "last_first"
	default:
		return fmt.Sprintf("Order(%d)", int(o))
	}
}

// ParseOrder maps a configuration value onto an Order.
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "first_first", "first":
		return FirstFirst, nil
	case "last_first", "last":
		return LastFirst, nil
	}
	return FirstFirst, fmt.Errorf("unknown name order %q", s)
}

// MiddleMode selects how a middle name is rendered.
type MiddleMode int

const (
	// MiddleNone omits the middle name.
	MiddleNone MiddleMode = iota
	// MiddleInitial renders the first letter followed by ".".
	MiddleInitial
	// MiddleFull renders the whole middle name.
	MiddleFull
)

func (m MiddleMode) String() string {
	switch m {
	case MiddleNone:
		return "none"
	case MiddleInitial:
		return "initial"
	case MiddleFull:
		return "full"
	default:
		return fmt.Sprintf("MiddleMode(%d)", int(m))
	}
}

// ParseMiddleMode maps a configuration value onto a MiddleMode. The older
// "MI" and "MIDDLE" spellings are accepted as well.
func ParseMiddleMode(s string) (MiddleMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return MiddleNone, nil
	case "initial", "mi":
		return MiddleInitial, nil
	case "full", "middle":
		return MiddleFull, nil
	}
	return MiddleNone, fmt.Errorf("unknown middle name mode %q", s)
}

// Compose builds the display name for p.
//
// The output is plain concatenation. Nothing is trimmed, so a record
// without a first name renders with a leading space (FirstFirst) or a
// trailing ", " (LastFirst).
func Compose(p Parts, order Order, mode MiddleMode) string {
	mi := middleFragment(p.Middle, mode)

	var b strings.Builder
	if order == LastFirst {
		b.WriteString(p.Last)
		b.WriteString(", ")
		b.WriteString(p.First)
		if mi != "" {
			b.WriteString(" " + mi)
		}
		if p.Suffix != "" {
			b.WriteString(" " + p.Suffix)
		}
		return b.String()
	}

	b.WriteString(p.First)
	if mi != "" {
		b.WriteString(" " + mi)
	}
	b.WriteString(" " + p.Last)
	if p.Suffix != "" {
		b.WriteString(" " + p.Suffix)
	}
	return b.String()
}

func middleFragment(middle string, mode MiddleMode) string {
	if middle == "" {
		return ""
	}
	switch mode {
	case MiddleFull:
		return middle
	case MiddleInitial:
		r, _ := utf8.DecodeRuneInString(middle)
		return string(r) + "."
	default:
		return ""
	}
}

// DisplayName is the default rendering: first name first, full middle name.
func DisplayName(p Parts) string {
	return Compose(p, FirstFirst, MiddleFull)
}

// Formatter carries a default order and middle-name mode.
// The zero value renders FirstFirst with no middle name.
type Formatter struct {
	Order  Order
	Middle MiddleMode
}

// Format composes p with the formatter's settings.
func (f Formatter) Format(p Parts) string {
	return Compose(p, f.Order, f.Middle)
}
