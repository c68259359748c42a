package models

// Course is catalog reference data.
type Course struct {
	ID      string `db:"id" json:"id"`
	Code    string `db:"code" json:"code"`
	Name    string `db:"name" json:"name"`
	Credits int    `db:"credits" json:"credits"`
}

// CourseSection is a scheduled group of a course with a seat capacity.
type CourseSection struct {
	ID       string `db:"id" json:"id"`
	CourseID string `db:"course_id" json:"course_id"`
	Section  string `db:"section" json:"section"`
	IsLab    bool   `db:"is_lab" json:"is_lab"`
	Capacity int    `db:"capacity" json:"capacity"`
}

// SectionOffering joins a section with its course for catalog listings.
type SectionOffering struct {
	CourseSection
	CourseCode string `db:"course_code" json:"course_code"`
	CourseName string `db:"course_name" json:"course_name"`
	Credits    int    `db:"credits" json:"credits"`
}

// Label renders the section as CODE-SECTION, marking labs.
func (s SectionOffering) Label() string {
	label := s.CourseCode + "-" + s.Section
	if s.IsLab {
		label += " (LAB)"
	}
	return label
}

// SectionAvailability reports live seat accounting for a section.
type SectionAvailability struct {
	SectionID        string `json:"section_id"`
	Capacity         int    `json:"capacity"`
	Enrolled         int    `json:"enrolled"`
	OutstandingHolds int    `json:"outstanding_holds"`
	AvailableSeats   int    `json:"available_seats"`
	OverCapacityBy   int    `json:"over_capacity_by,omitempty"`
}
