package models

// PhotoVariant is one resolution variant of an inbound photo as reported by
// the messaging platform, with its own file references.
type PhotoVariant struct {
	FileID       string
	FileUniqueID string
	Width        int
	Height       int
	FileSize     int64
}

// IntakeCandidate carries the resolution variants of one inbound photo
// message, in the order the platform reported them.
type IntakeCandidate struct {
	Variants []PhotoVariant
}

// Largest returns the variant with the maximum reported byte size. Ties keep
// the first-seen variant, so in the platform's ascending ordering a tie on
// the top size still picks a full-size variant. ok is false for an empty
// candidate.
func (c IntakeCandidate) Largest() (PhotoVariant, bool) {
	if len(c.Variants) == 0 {
		return PhotoVariant{}, false
	}
	best := c.Variants[0]
	for _, v := range c.Variants[1:] {
		if v.FileSize > best.FileSize {
			best = v
		}
	}
	return best, true
}

// Outcome is the typed result of one intake attempt, rendered into
// user-facing text by the messaging layer.
type Outcome string

const (
	OutcomeAccepted            Outcome = "accepted"
	OutcomePaymentRequired     Outcome = "payment_required"
	OutcomeQuotaExceeded       Outcome = "quota_exceeded"
	OutcomeDuplicatePhoto      Outcome = "duplicate_photo"
	OutcomeNormalizationFailed Outcome = "normalization_failed"
	OutcomeFetchFailed         Outcome = "fetch_failed"
	OutcomeUnavailable         Outcome = "unavailable"
)

// Decision is the gatekeeper's verdict for a candidate. Variant is set only
// when the outcome is OutcomeAccepted. Count is the user's stored photo count
// observed during evaluation.
type Decision struct {
	Outcome Outcome
	Variant PhotoVariant
	Count   int64
}

// IntakeResult is what the full pipeline reports back to the caller.
type IntakeResult struct {
	Outcome Outcome
	Count   int64
	Cap     int
}
