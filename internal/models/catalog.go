package models

// Course is a unit of study worth a fixed number of credits.
type Course struct {
	ID      string `db:"id" json:"id"`
	Code    string `db:"code" json:"code"`
	Title   string `db:"title" json:"title"`
	Credits int    `db:"credits" json:"credits"`
}

// Term is an academic period sections are offered in.
type Term struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Room is a physical space schedule slots may be assigned to.
type Room struct {
	ID       string `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	Capacity int    `db:"capacity" json:"capacity"`
}

// Instructor teaches sections through schedule slots.
type Instructor struct {
	ID       string `db:"id" json:"id"`
	FullName string `db:"full_name" json:"full_name"`
}

// Section is a scheduled offering of a course in a term with a hard
// enrollment capacity.
type Section struct {
	ID       string `db:"id" json:"id"`
	CourseID string `db:"course_id" json:"course_id"`
	TermID   string `db:"term_id" json:"term_id"`
	Capacity int    `db:"capacity" json:"capacity"`
}
