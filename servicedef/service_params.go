package servicedef

import (
	"encoding/json"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

const (
	RoleAdmin   = "ADMIN"
	RoleTeacher = "TEACHER"
	RoleStudent = "STUDENT"

	StatusActive   = "ACTIVE"
	StatusDisabled = "DISABLED"

	ChatRoleUser      = "USER"
	ChatRoleAssistant = "ASSISTANT"

	StyleEducational = "EDUCATIONAL"
)

type LoginParams struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type BulkCreateUsersParams struct {
	Users []CreateUserParams `json:"users"`
}

type CreateUserParams struct {
	Username       string          `json:"username"`
	Email          string          `json:"email"`
	Password       string          `json:"password"`
	Role           string          `json:"role"`
	Status         string          `json:"status,omitempty"`
	StudentProfile *StudentProfile `json:"studentProfile,omitempty"`
	TeacherProfile *TeacherProfile `json:"teacherProfile,omitempty"`
}

type StudentProfile struct {
	StudentNo string `json:"studentNo"`
	Grade     string `json:"grade,omitempty"`
	Major     string `json:"major,omitempty"`
	ClassName string `json:"className,omitempty"`
}

type TeacherProfile struct {
	TeacherNo  string   `json:"teacherNo"`
	Department string   `json:"department,omitempty"`
	Title      string   `json:"title,omitempty"`
	Subjects   []string `json:"subjects,omitempty"`
}

type UpdateUserStatusParams struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// CreateCourseParams leaves every optional field out of the request when it is not set.
type CreateCourseParams struct {
	Name        string
	Semester    string
	Credit      ldvalue.OptionalInt
	EnrollLimit ldvalue.OptionalInt
	Description string
}

func (p CreateCourseParams) MarshalJSON() ([]byte, error) {
	b := ldvalue.ObjectBuild().Set("name", ldvalue.String(p.Name))
	if p.Semester != "" {
		b.Set("semester", ldvalue.String(p.Semester))
	}
	if p.Credit.IsDefined() {
		b.Set("credit", ldvalue.Int(p.Credit.IntValue()))
	}
	if p.EnrollLimit.IsDefined() {
		b.Set("enrollLimit", ldvalue.Int(p.EnrollLimit.IntValue()))
	}
	if p.Description != "" {
		b.Set("description", ldvalue.String(p.Description))
	}
	return json.Marshal(b.Build())
}

type CreateModuleParams struct {
	Title        string `json:"title"`
	DisplayOrder int    `json:"displayOrder"`
	ReleaseAt    string `json:"releaseAt,omitempty"`
}

type ChatRequest struct {
	Messages       []ChatMessage    `json:"messages"`
	ConversationID string           `json:"conversationId,omitempty"`
	Context        *ChatContext     `json:"context,omitempty"`
	Preferences    *ChatPreferences `json:"preferences,omitempty"`
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatContext struct {
	CourseID   string `json:"courseId,omitempty"`
	ChapterID  string `json:"chapterId,omitempty"`
	QuestionID string `json:"questionId,omitempty"`
}

type ChatPreferences struct {
	Language           string `json:"language,omitempty"`
	Style              string `json:"style,omitempty"`
	IncludeReferences  bool   `json:"includeReferences"`
	IncludeSuggestions bool   `json:"includeSuggestions"`
}

type UpdateConversationParams struct {
	Title string `json:"title"`
}
