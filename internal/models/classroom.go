package models

import "time"

// Classroom represents a section offered at a campus for an academic cycle.
type Classroom struct {
	ID         string    `db:"id" json:"id"`
	CycleID    string    `db:"cycle_id" json:"cycle_id"`
	CampusCode string    `db:"campus_code" json:"campus_code"`
	GradeLevel string    `db:"grade_level" json:"grade_level"`
	Section    string    `db:"section" json:"section"`
	Capacity   int       `db:"capacity" json:"capacity"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// ClassroomFilter defines filter criteria for listing classrooms.
type ClassroomFilter struct {
	CycleID    string
	CampusCode string
	GradeLevel string
	Active     *bool
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
