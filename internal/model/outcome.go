package model

import (
	"fmt"
	"strings"
)

// OutcomeKind tags an ItemOutcome
type OutcomeKind string

const (
	OutcomeDelivered OutcomeKind = "delivered"
	OutcomeSkipped   OutcomeKind = "skipped"
	OutcomeFailed    OutcomeKind = "failed"
)

// ItemOutcome is the terminal result of one item pipeline run. Exactly one of
// Caption (Delivered), Reason (Skipped) or Err (Failed) is meaningful.
type ItemOutcome struct {
	Kind    OutcomeKind
	Title   string
	URL     string
	Caption string
	Reason  string
	Err     error
}

// Delivered builds a delivered outcome
func Delivered(caption string) ItemOutcome {
	return ItemOutcome{Kind: OutcomeDelivered, Caption: caption}
}

// Skipped builds a skipped outcome
func Skipped(reason string) ItemOutcome {
	return ItemOutcome{Kind: OutcomeSkipped, Reason: reason}
}

// Failed builds a failed outcome
func Failed(err error) ItemOutcome {
	return ItemOutcome{Kind: OutcomeFailed, Err: err}
}

// WithItem annotates the outcome with the item's title and URL
func (o ItemOutcome) WithItem(title, url string) ItemOutcome {
	o.Title = title
	o.URL = url
	return o
}

// IsFailed reports whether the outcome is a failure
func (o ItemOutcome) IsFailed() bool {
	return o.Kind == OutcomeFailed
}

// Message returns the human-readable detail of the outcome
func (o ItemOutcome) Message() string {
	switch o.Kind {
	case OutcomeDelivered:
		return o.Caption
	case OutcomeSkipped:
		return o.Reason
	case OutcomeFailed:
		if o.Err == nil {
			return "unknown error"
		}
		return o.Err.Error()
	default:
		return ""
	}
}

// CollectionSummary accumulates per-item outcomes of a fan-out run
type CollectionSummary struct {
	Title      string
	Total      int
	Processed  int
	Unresolved int
	Outcomes   []ItemOutcome
}

// NewCollectionSummary starts an empty summary for total declared items
func NewCollectionSummary(title string, total int) *CollectionSummary {
	return &CollectionSummary{
		Title:    title,
		Total:    total,
		Outcomes: make([]ItemOutcome, 0, total),
	}
}

// Record appends an outcome; non-failed outcomes count as processed
func (s *CollectionSummary) Record(o ItemOutcome) {
	s.Outcomes = append(s.Outcomes, o)
	if !o.IsFailed() {
		s.Processed++
	}
}

// RecordUnresolved notes an entry that was skipped because no URL could be resolved
func (s *CollectionSummary) RecordUnresolved() {
	s.Unresolved++
}

// Count returns how many recorded outcomes have the given kind
func (s *CollectionSummary) Count(kind OutcomeKind) int {
	n := 0
	for _, o := range s.Outcomes {
		if o.Kind == kind {
			n++
		}
	}
	return n
}

// Attempted returns the number of entries that reached the item pipeline
func (s *CollectionSummary) Attempted() int {
	return len(s.Outcomes)
}

// Line returns the final one-line report
func (s *CollectionSummary) Line() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("✅ Playlist finished. %d/%d processed.", s.Processed, s.Total))
	if failed := s.Count(OutcomeFailed); failed > 0 {
		b.WriteString(fmt.Sprintf(" %d failed.", failed))
	}
	if s.Unresolved > 0 {
		b.WriteString(fmt.Sprintf(" %d without a link.", s.Unresolved))
	}
	return b.String()
}
