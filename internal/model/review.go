package model

import "time"

// Review models an entry in the `reviews` table.  A user may leave at
// most one review per bootcamp; the unique (bootcamp_id, user_id) index
// enforces it.
//
// Fields:
//
//	ID         – primary key identifier.
//	BootcampID – reviewed bootcamp.
//	UserID     – author of the review.
//	Title      – short headline (≤ 100 chars).
//	Text       – review body.
//	Rating     – score between 1 and 10.
//	CreatedAt  – timestamp of creation.
type Review struct {
	ID         uint64           `json:"id"`
	BootcampID uint64           `json:"bootcampId"`
	UserID     uint64           `json:"user"`
	Title      string           `json:"title"`
	Text       string           `json:"text"`
	Rating     int              `json:"rating"`
	CreatedAt  time.Time        `json:"createdAt"`
	Bootcamp   *BootcampSummary `json:"bootcamp,omitempty"`
}

// OwnedBy reports whether the review was written by userID.
func (r *Review) OwnedBy(userID uint64) bool { return r.UserID == userID }
