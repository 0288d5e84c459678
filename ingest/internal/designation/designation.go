// Package designation classifies free-text booking notes that describe a
// transfer from an earlier booking.
//
// Recognized forms, matched case-insensitively on the keywords only:
//
//	Transfer from <sku>            attendee requested the move
//	Transfer from cancelled <sku>  the original course was cancelled
//
// Anything else is not a transfer. Parse never fails.
package designation

import (
	"strings"
	"unicode"
)

// Reason explains why a booking was transferred.
type Reason int

const (
	ReasonUnknown Reason = iota
	ReasonCourseCancelled
	ReasonAttendeeRequested
)

var reasonNames = [...]string{
	ReasonUnknown:           "unknown",
	ReasonCourseCancelled:   "course_cancelled",
	ReasonAttendeeRequested: "attendee_requested",
}

func (r Reason) String() string {
	if r < 0 || int(r) >= len(reasonNames) {
		return reasonNames[ReasonUnknown]
	}
	return reasonNames[r]
}

// MarshalText encodes the reason as its snake_case name.
func (r Reason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText decodes a snake_case name. Unrecognized names decode to
// ReasonUnknown.
func (r *Reason) UnmarshalText(text []byte) error {
	*r = ReasonUnknown
	for i, name := range reasonNames {
		if name == string(text) {
			*r = Reason(i)
		}
	}
	return nil
}

// Classification is the result of parsing a designation note.
// The zero value is the not-a-transfer result.
type Classification struct {
	IsTransfer     bool   `json:"isTransfer"`
	OriginalSku    string `json:"originalSku"`
	Reason         Reason `json:"reason"`
	RefundEligible bool   `json:"refundEligible"`
}

const (
	transferPhrase   = "transfer from"
	cancelledKeyword = "cancelled"
)

// Parse classifies text. RefundEligible is set exactly when the reason is
// ReasonCourseCancelled.
func Parse(text string) Classification {
	rest, ok := cutPrefixFold(text, transferPhrase)
	if !ok {
		return Classification{}
	}
	rest = strings.TrimLeftFunc(rest, unicode.IsSpace)

	reason := ReasonAttendeeRequested
	if after, ok := cutPrefixFold(rest, cancelledKeyword); ok {
		reason = ReasonCourseCancelled
		rest = after
	}

	return Classification{
		IsTransfer:     true,
		OriginalSku:    strings.TrimSpace(rest),
		Reason:         reason,
		RefundEligible: reason == ReasonCourseCancelled,
	}
}

// cutPrefixFold is strings.CutPrefix with ASCII case folding on the prefix.
func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return s, false
	}
	return s[len(prefix):], true
}
