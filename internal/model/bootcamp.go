package model

import "time"

// Careers lists the career tracks a bootcamp may advertise.
var Careers = []string{
	"Web Development",
	"Mobile Development",
	"UI/UX",
	"Data Science",
	"Business",
	"Other",
}

// DefaultPhoto is the photo file name used until a bootcamp uploads one.
const DefaultPhoto = "no-photo.jpg"

// Location is the geocoded position of a bootcamp's address.
type Location struct {
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	FormattedAddress string  `json:"formattedAddress"`
	Street           string  `json:"street"`
	City             string  `json:"city"`
	State            string  `json:"state"`
	Zipcode          string  `json:"zipcode"`
	Country          string  `json:"country"`
}

// Bootcamp represents a row in the `bootcamps` table.  Each bootcamp is
// owned by one user (normally a publisher).  AverageCost and
// AverageRating are derived from the bootcamp's courses and reviews and
// are recomputed by the repository whenever those change.
type Bootcamp struct {
	ID            uint64    `json:"id"`
	UserID        uint64    `json:"user"`
	Name          string    `json:"name"`
	Slug          string    `json:"slug"`
	Description   string    `json:"description"`
	Website       string    `json:"website,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Email         string    `json:"email,omitempty"`
	Address       string    `json:"address,omitempty"`
	Location      *Location `json:"location,omitempty"`
	Careers       []string  `json:"careers"`
	AverageRating *float64  `json:"averageRating,omitempty"`
	AverageCost   *float64  `json:"averageCost,omitempty"`
	Photo         string    `json:"photo"`
	Housing       bool      `json:"housing"`
	JobAssistance bool      `json:"jobAssistance"`
	JobGuarantee  bool      `json:"jobGuarantee"`
	AcceptGi      bool      `json:"acceptGi"`
	CreatedAt     time.Time `json:"createdAt"`

	// Courses is only filled when a handler embeds them.
	Courses []Course `json:"courses,omitempty"`
}

// OwnedBy reports whether the bootcamp belongs to userID.
func (b *Bootcamp) OwnedBy(userID uint64) bool { return b.UserID == userID }

// BootcampSummary is the reduced view of a bootcamp embedded into course
// and review responses.
type BootcampSummary struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}
