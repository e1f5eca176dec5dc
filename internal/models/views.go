package models

type Dashboard struct {
	Student      User         `json:"student"`
	BatteryLevel int          `json:"battery_level"`
	Enrollments  []Enrollment `json:"enrollments"`
}

type LectureListing struct {
	Chapter      Chapter   `json:"chapter"`
	Lectures     []Lecture `json:"lectures"`
	EnrolledIDs  []uint    `json:"enrolled_ids"`
	CompletedIDs []uint    `json:"completed_ids"`
}

type LectureDetail struct {
	Lecture      Lecture     `json:"lecture"`
	EmbedURL     string      `json:"embed_url"`
	Enrollment   *Enrollment `json:"enrollment,omitempty"`
	Quiz         *Quiz       `json:"quiz,omitempty"`
	StudentPhone string      `json:"student_phone"`
}

type ProgressUpdate struct {
	Progress     int  `json:"progress"`
	Completed    bool `json:"completed"`
	BatteryLevel int  `json:"battery_level"`
}
