package domain

type AttendanceStatus string

const (
	StatusPresent   AttendanceStatus = "Present"
	StatusAbsent    AttendanceStatus = "Absent"
	StatusNotMarked AttendanceStatus = "Not Marked"
)

func (status AttendanceStatus) Valid() bool {
	return status == StatusPresent || status == StatusAbsent || status == StatusNotMarked
}

type AttendanceSummary struct {
	Total     int `json:"total"`
	Present   int `json:"present"`
	Absent    int `json:"absent"`
	NotMarked int `json:"notMarked"`
}

// AttendanceSheet is the attendance of one subject on one date
type AttendanceSheet struct {
	Subject string                      `json:"subject"`
	Date    string                      `json:"date"`
	Summary AttendanceSummary           `json:"summary"`
	Records map[string]AttendanceStatus `json:"records"`
}

type AttendanceWarning struct {
	Student    string `json:"student"`
	Percentage int    `json:"percentage"`
	Message    string `json:"message"`
}
