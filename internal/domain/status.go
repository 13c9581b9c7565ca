package domain

// Status is the palette tag of a question within an attempt.
type Status string

const (
	StatusNotVisited        Status = "not_visited"
	StatusNotAnswered       Status = "not_answered"
	StatusAnswered          Status = "answered"
	StatusMarkedForReview   Status = "marked_for_review"
	StatusAnsweredAndMarked Status = "answered_and_marked"
)

// Marked reports whether the question carries a review mark.
func (s Status) Marked() bool {
	return s == StatusMarkedForReview || s == StatusAnsweredAndMarked
}

// Visit is applied when a question becomes the active one.
func (s Status) Visit() Status {
	if s == StatusNotVisited || s == "" {
		return StatusNotAnswered
	}
	return s
}

// Answer is applied when a value is recorded. Marking is sticky.
func (s Status) Answer() Status {
	if s.Marked() {
		return StatusAnsweredAndMarked
	}
	return StatusAnswered
}

// Mark is applied on an explicit mark-for-review.
func (s Status) Mark() Status {
	if s == StatusAnswered || s == StatusAnsweredAndMarked {
		return StatusAnsweredAndMarked
	}
	return StatusMarkedForReview
}

// Clear is applied when the response is cleared; it drops any mark.
func (s Status) Clear() Status {
	return StatusNotAnswered
}
