package dto

import "github.com/universys/universyslite/internal/app/models"

// CreateSectionRequest represents section creation data
type CreateSectionRequest struct {
	CourseID         int64  `json:"courseId" binding:"required,gt=0"`
	TermID           int64  `json:"termId" binding:"required,gt=0"`
	SectionNumber    string `json:"sectionNumber" binding:"required,max=10" example:"001"`
	InstructorID     *int64 `json:"instructorId,omitempty" binding:"omitempty,gt=0"`
	Capacity         int    `json:"capacity" binding:"required,gt=0" example:"30"`
	WaitlistCapacity *int   `json:"waitlistCapacity,omitempty" binding:"omitempty,min=0" example:"10"`
}

// UpdateCapacityRequest changes the seat and waitlist limits of a section
type UpdateCapacityRequest struct {
	Capacity         int  `json:"capacity" binding:"required,gt=0"`
	WaitlistCapacity *int `json:"waitlistCapacity,omitempty" binding:"omitempty,min=0"`
}

// AssignInstructorRequest sets the instructor teaching a section
type AssignInstructorRequest struct {
	InstructorID int64 `json:"instructorId" binding:"required,gt=0"`
}

// SectionFilterRequest represents section list query parameters
type SectionFilterRequest struct {
	TermID       *int64 `form:"termId" binding:"omitempty,gt=0"`
	CourseID     *int64 `form:"courseId" binding:"omitempty,gt=0"`
	InstructorID *int64 `form:"instructorId" binding:"omitempty,gt=0"`
	Status       string `form:"status" binding:"omitempty,oneof=OPEN CLOSED CANCELLED"`
}

// AddMeetingRequest schedules a weekly meeting. Day 1 is Monday.
type AddMeetingRequest struct {
	RoomID    int64  `json:"roomId" binding:"required,gt=0"`
	DayOfWeek int    `json:"dayOfWeek" binding:"required,min=1,max=7" example:"1"`
	StartTime string `json:"startTime" binding:"required,hhmm" example:"09:00"`
	EndTime   string `json:"endTime" binding:"required,hhmm" example:"10:15"`
}

// AvailableRoomsRequest represents free-room search parameters
type AvailableRoomsRequest struct {
	TermID      int64  `form:"termId" binding:"required,gt=0"`
	DayOfWeek   int    `form:"day" binding:"required,min=1,max=7"`
	StartTime   string `form:"start" binding:"required,hhmm"`
	EndTime     string `form:"end" binding:"required,hhmm"`
	MinCapacity int    `form:"minCapacity" binding:"omitempty,min=0"`
}

// MeetingResponse renders a meeting with clock times
type MeetingResponse struct {
	ID        int64  `json:"id"`
	SectionID int64  `json:"sectionId"`
	RoomID    int64  `json:"roomId"`
	RoomLabel string `json:"roomLabel,omitempty"`
	DayOfWeek int    `json:"dayOfWeek"`
	StartTime string `json:"startTime" example:"09:00"`
	EndTime   string `json:"endTime" example:"10:15"`
}

// FromMeeting converts a meeting model to its response form.
func FromMeeting(m *models.Meeting) MeetingResponse {
	return MeetingResponse{
		ID:        m.ID,
		SectionID: m.SectionID,
		RoomID:    m.RoomID,
		RoomLabel: m.RoomLabel,
		DayOfWeek: m.DayOfWeek,
		StartTime: models.FormatClock(m.StartMinute),
		EndTime:   models.FormatClock(m.EndMinute),
	}
}

// FromMeetings converts a slice of meetings.
func FromMeetings(ms []*models.Meeting) []MeetingResponse {
	out := make([]MeetingResponse, 0, len(ms))
	for _, m := range ms {
		out = append(out, FromMeeting(m))
	}
	return out
}

// ChangeSectionStatusRequest opens or closes a section for registration
type ChangeSectionStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=OPEN CLOSED" example:"CLOSED"`
}
