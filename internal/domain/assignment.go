package domain

import "time"

type Attachment struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Data string `json:"data"` // URL returned by the upload relay
}

type SkippedFile struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

type Submission struct {
	StudentName string       `json:"studentName"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments"`
	SubmittedAt time.Time    `json:"submittedAt"`
	UpdatedAt   *time.Time   `json:"updatedAt,omitempty"`
}

type Assignment struct {
	Id          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Subject     string       `json:"subject,omitempty"`
	Deadline    time.Time    `json:"deadline"`
	Attachments []Attachment `json:"attachments"`
	CreatedBy   string       `json:"createdBy"`
	CreatedAt   time.Time    `json:"createdAt"`
	Submissions []Submission `json:"submissions"`
}
