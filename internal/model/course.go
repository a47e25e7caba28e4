package model

import "time"

// Skill levels accepted for Course.MinimumSkill.
const (
	SkillBeginner     = "beginner"
	SkillIntermediate = "intermediate"
	SkillAdvanced     = "advanced"
)

// Course represents a row in the `courses` table.  A course belongs to a
// bootcamp and records the user who created it so ownership can be
// checked without loading the bootcamp.
type Course struct {
	ID                   uint64           `json:"id"`
	BootcampID           uint64           `json:"bootcampId"`
	UserID               uint64           `json:"user"`
	Title                string           `json:"title"`
	Description          string           `json:"description"`
	Weeks                string           `json:"weeks"`
	Tuition              float64          `json:"tuition"`
	MinimumSkill         string           `json:"minimumSkill"`
	ScholarshipAvailable bool             `json:"scholarshipAvailable"`
	CreatedAt            time.Time        `json:"createdAt"`
	Bootcamp             *BootcampSummary `json:"bootcamp,omitempty"`
}

// OwnedBy reports whether the course was created by userID.
func (c *Course) OwnedBy(userID uint64) bool { return c.UserID == userID }
