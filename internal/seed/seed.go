// Package seed loads the demo data set from YAML files and imports it
// into, or wipes it from, the database.
package seed

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/iliyamo/bootcamp-directory/internal/model"
	"github.com/iliyamo/bootcamp-directory/internal/utils"
)

// Files read by Load, in import order.
const (
	UsersFile     = "users.yaml"
	BootcampsFile = "bootcamps.yaml"
	CoursesFile   = "courses.yaml"
	ReviewsFile   = "reviews.yaml"
)

type User struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Role     string `yaml:"role"`
	Password string `yaml:"password"`
}

type Location struct {
	Latitude         float64 `yaml:"latitude"`
	Longitude        float64 `yaml:"longitude"`
	FormattedAddress string  `yaml:"formattedAddress"`
	Street           string  `yaml:"street"`
	City             string  `yaml:"city"`
	State            string  `yaml:"state"`
	Zipcode          string  `yaml:"zipcode"`
	Country          string  `yaml:"country"`
}

// Bootcamp refers to its owner by email.
type Bootcamp struct {
	Owner         string    `yaml:"owner"`
	Name          string    `yaml:"name"`
	Description   string    `yaml:"description"`
	Website       string    `yaml:"website"`
	Phone         string    `yaml:"phone"`
	Email         string    `yaml:"email"`
	Address       string    `yaml:"address"`
	Location      *Location `yaml:"location"`
	Careers       []string  `yaml:"careers"`
	Housing       bool      `yaml:"housing"`
	JobAssistance bool      `yaml:"jobAssistance"`
	JobGuarantee  bool      `yaml:"jobGuarantee"`
	AcceptGi      bool      `yaml:"acceptGi"`
}

// Course refers to its bootcamp by name and its author by email.
type Course struct {
	Bootcamp             string  `yaml:"bootcamp"`
	Owner                string  `yaml:"owner"`
	Title                string  `yaml:"title"`
	Description          string  `yaml:"description"`
	Weeks                string  `yaml:"weeks"`
	Tuition              float64 `yaml:"tuition"`
	MinimumSkill         string  `yaml:"minimumSkill"`
	ScholarshipAvailable bool    `yaml:"scholarshipAvailable"`
}

type Review struct {
	Bootcamp string `yaml:"bootcamp"`
	Author   string `yaml:"author"`
	Title    string `yaml:"title"`
	Text     string `yaml:"text"`
	Rating   int    `yaml:"rating"`
}

// Data is the complete seed set.
type Data struct {
	Users     []User
	Bootcamps []Bootcamp
	Courses   []Course
	Reviews   []Review
}

// Load reads the four seed files from fsys.
func Load(fsys fs.FS) (*Data, error) {
	var d Data
	for name, dst := range map[string]any{
		UsersFile:     &d.Users,
		BootcampsFile: &d.Bootcamps,
		CoursesFile:   &d.Courses,
		ReviewsFile:   &d.Reviews,
	} {
		raw, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		if err := yaml.Unmarshal(raw, dst); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
	}
	return &d, nil
}

// Stores are the writers Import needs.  The repository types implement
// them.
type Stores struct {
	Users     interface{ Create(context.Context, *model.User) error }
	Bootcamps interface{ Create(context.Context, *model.Bootcamp) error }
	Courses   interface{ Create(context.Context, *model.Course) error }
	Reviews   interface{ Create(context.Context, *model.Review) error }
}

// Import writes d in dependency order, resolving owners and bootcamps
// by email and name.
func Import(ctx context.Context, s Stores, d *Data, bcryptCost int, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	users := map[string]uint64{}
	for _, in := range d.Users {
		hash, err := utils.HashPassword(in.Password, bcryptCost)
		if err != nil {
			return err
		}
		role := model.Role(in.Role)
		if role == "" {
			role = model.RoleUser
		}
		u := &model.User{Name: in.Name, Email: in.Email, Role: role, PasswordHash: hash}
		if !u.Role.Valid() {
			return fmt.Errorf("user %s: unknown role %q", in.Email, in.Role)
		}
		if err := s.Users.Create(ctx, u); err != nil {
			return fmt.Errorf("user %s: %w", in.Email, err)
		}
		users[strings.ToLower(u.Email)] = u.ID
	}

	camps := map[string]uint64{}
	for _, in := range d.Bootcamps {
		owner, ok := users[strings.ToLower(in.Owner)]
		if !ok {
			return fmt.Errorf("bootcamp %s: unknown owner %q", in.Name, in.Owner)
		}
		b := &model.Bootcamp{
			UserID: owner, Name: in.Name, Slug: utils.Slugify(in.Name), Description: in.Description,
			Website: in.Website, Phone: in.Phone, Email: in.Email, Address: in.Address, Careers: in.Careers,
			Housing: in.Housing, JobAssistance: in.JobAssistance, JobGuarantee: in.JobGuarantee, AcceptGi: in.AcceptGi,
		}
		if l := in.Location; l != nil {
			b.Location = &model.Location{
				Latitude: l.Latitude, Longitude: l.Longitude, FormattedAddress: l.FormattedAddress,
				Street: l.Street, City: l.City, State: l.State, Zipcode: l.Zipcode, Country: l.Country,
			}
		}
		if err := s.Bootcamps.Create(ctx, b); err != nil {
			return fmt.Errorf("bootcamp %s: %w", in.Name, err)
		}
		camps[b.Name] = b.ID
	}

	for _, in := range d.Courses {
		campID, owner, err := resolve(camps, users, in.Bootcamp, in.Owner)
		if err != nil {
			return fmt.Errorf("course %s: %w", in.Title, err)
		}
		c := &model.Course{
			BootcampID: campID, UserID: owner, Title: in.Title, Description: in.Description, Weeks: in.Weeks,
			Tuition: in.Tuition, MinimumSkill: in.MinimumSkill, ScholarshipAvailable: in.ScholarshipAvailable,
		}
		if err := s.Courses.Create(ctx, c); err != nil {
			return fmt.Errorf("course %s: %w", in.Title, err)
		}
	}

	for _, in := range d.Reviews {
		campID, author, err := resolve(camps, users, in.Bootcamp, in.Author)
		if err != nil {
			return fmt.Errorf("review %s: %w", in.Title, err)
		}
		rv := &model.Review{BootcampID: campID, UserID: author, Title: in.Title, Text: in.Text, Rating: in.Rating}
		if err := s.Reviews.Create(ctx, rv); err != nil {
			return fmt.Errorf("review %s: %w", in.Title, err)
		}
	}

	logger.InfoContext(ctx, "data imported",
		slog.Int("users", len(d.Users)),
		slog.Int("bootcamps", len(d.Bootcamps)),
		slog.Int("courses", len(d.Courses)),
		slog.Int("reviews", len(d.Reviews)),
	)
	return nil
}

func resolve(camps, users map[string]uint64, bootcamp, email string) (uint64, uint64, error) {
	campID, ok := camps[bootcamp]
	if !ok {
		return 0, 0, fmt.Errorf("unknown bootcamp %q", bootcamp)
	}
	userID, ok := users[strings.ToLower(email)]
	if !ok {
		return 0, 0, fmt.Errorf("unknown user %q", email)
	}
	return campID, userID, nil
}

// Delete removes every row of the four tables, children first.
func Delete(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	for _, table := range []string{"reviews", "courses", "bootcamps", "users"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
	}
	return tx.Commit()
}
