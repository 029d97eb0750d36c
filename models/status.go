package models

import "strings"

// Status is the workflow state of a news article. Transitions are enforced
// centrally by the repository; no other component writes this field.
type Status string

const (
	StatusCollected              Status = "collected"
	StatusApprovedForTranslation Status = "approved_for_translation"
	StatusTranslated             Status = "translated"
	StatusApprovedForPublish     Status = "approved_for_publish"
	StatusPublished              Status = "published"
	StatusRejected               Status = "rejected"
)

// AllStatuses lists every workflow state in pipeline order.
func AllStatuses() []Status {
	return []Status{
		StatusCollected,
		StatusApprovedForTranslation,
		StatusTranslated,
		StatusApprovedForPublish,
		StatusPublished,
		StatusRejected,
	}
}

// ParseStatus maps a string to a known Status.
func ParseStatus(s string) (Status, bool) {
	for _, st := range AllStatuses() {
		if string(st) == strings.TrimSpace(strings.ToLower(s)) {
			return st, true
		}
	}
	return "", false
}

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	return s == StatusPublished || s == StatusRejected
}

// transitions is the only legal edge set. Rejection from non-terminal states
// is handled separately in CanTransition.
var transitions = map[Status]Status{
	StatusCollected:              StatusApprovedForTranslation,
	StatusApprovedForTranslation: StatusTranslated,
	StatusTranslated:             StatusApprovedForPublish,
	StatusApprovedForPublish:     StatusPublished,
}

// CanTransition reports whether moving from -> to is a legal edge.
func CanTransition(from, to Status) bool {
	if to == StatusRejected {
		return !from.Terminal()
	}
	return transitions[from] == to
}

// SplitCategories splits a comma-separated categories value, trimming blanks.
func SplitCategories(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, c := range strings.Split(raw, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// JoinCategories renders a category list back into the stored column form.
func JoinCategories(cats []string) string {
	return strings.Join(cats, ",")
}
