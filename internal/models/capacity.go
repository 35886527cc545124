package models

// ClassroomCapacityRecord is the capacity lookup's wire shape. Any subset of
// the counters may be missing depending on the backing source, so everything
// past the classroom id is nullable and must be normalized before use.
type ClassroomCapacityRecord struct {
	ClassroomID string `db:"classroom_id" json:"classroom_id"`
	Capacity    *int   `db:"capacity" json:"capacity,omitempty"`
	Occupied    *int   `db:"occupied" json:"occupied,omitempty"`
	Reserved    *int   `db:"reserved" json:"reserved,omitempty"`
	Available   *int   `db:"available" json:"available,omitempty"`
}

// ClassroomCapacity is the strict internal shape every consumer sees.
type ClassroomCapacity struct {
	ClassroomID string `json:"classroom_id"`
	Capacity    int    `json:"capacity"`
	Occupied    int    `json:"occupied"`
	Reserved    int    `json:"reserved"`
	Available   int    `json:"available"`
}

// Normalize collapses a partial record into the strict shape. An explicit
// available figure wins; otherwise it is derived from the remaining counters.
func (r ClassroomCapacityRecord) Normalize() ClassroomCapacity {
	out := ClassroomCapacity{ClassroomID: r.ClassroomID}
	if r.Capacity != nil {
		out.Capacity = *r.Capacity
	}
	if r.Occupied != nil {
		out.Occupied = *r.Occupied
	}
	if r.Reserved != nil {
		out.Reserved = *r.Reserved
	}
	if r.Available != nil {
		out.Available = *r.Available
	} else {
		out.Available = out.Capacity - out.Occupied - out.Reserved
	}
	return out
}

// CapacityState is the transient lookup status observed for one student
// slot's selected classroom. It is rebuilt from scratch on every classroom
// change and never persisted.
type CapacityState struct {
	IsLoading bool `json:"is_loading"`
	IsError   bool `json:"is_error"`
	// Available is nil while loading, on error, or when no classroom is
	// selected.
	Available *int `json:"available"`
}
