// Package fakeservice is an in-memory implementation of the parts of the C3PO REST API that the
// contract tests exercise. It exists so that the suites themselves can be tested, and so that
// the test runner can be tried out without a real deployment.
//
// Only behavior that the suites check is modelled. There is no persistence, and the AI
// assistant answers with canned text.
package fakeservice

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const (
	roleAdmin   = "ADMIN"
	roleTeacher = "TEACHER"
	roleStudent = "STUDENT"

	statusActive   = "ACTIVE"
	statusDisabled = "DISABLED"

	tokenLifetime = time.Hour
)

// Faults make the service deviate from the expected contract, for testing how the suites
// report problems.
type Faults struct {
	OmitModulesFromList    bool
	DisabledUsersCanLogIn  bool
	AcceptUnknownChatRoles bool
	KeepDeletedChats       bool
}

type Service struct {
	secret        []byte
	lock          sync.Mutex
	users         map[string]*user
	courses       map[string]*course
	conversations map[string]*conversation
	faults        Faults
	now           func() time.Time
}

type user struct {
	ID             string                 `json:"id"`
	Username       string                 `json:"username"`
	Email          string                 `json:"email"`
	Role           string                 `json:"role"`
	Status         string                 `json:"status"`
	StudentProfile map[string]interface{} `json:"studentProfile,omitempty"`
	TeacherProfile map[string]interface{} `json:"teacherProfile,omitempty"`
	CreatedAt      time.Time              `json:"createdAt"`
	password       string
}

type course struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Semester    string    `json:"semester,omitempty"`
	Credit      int       `json:"credit"`
	EnrollLimit int       `json:"enrollLimit"`
	TeacherID   string    `json:"teacherId"`
	CreatedAt   time.Time `json:"createdAt"`
	modules     []*module
}

type module struct {
	ID           string `json:"id"`
	CourseID     string `json:"courseId"`
	Title        string `json:"title"`
	DisplayOrder int    `json:"displayOrder"`
	ReleaseAt    string `json:"releaseAt,omitempty"`
}

type conversation struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	CourseID  string        `json:"courseId,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
	Messages  []chatMessage `json:"-"`
	ownerID   string
	deleted   bool
}

type chatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// New creates a service with a single active administrator account.
func New(adminUsername, adminPassword string) *Service {
	s := &Service{
		secret:        []byte(uuid.NewString()),
		users:         make(map[string]*user),
		courses:       make(map[string]*course),
		conversations: make(map[string]*conversation),
		now:           time.Now,
	}
	admin := &user{
		ID:        uuid.NewString(),
		Username:  adminUsername,
		Email:     adminUsername + "@example.com",
		Role:      roleAdmin,
		Status:    statusActive,
		CreatedAt: s.now(),
		password:  adminPassword,
	}
	s.users[admin.ID] = admin
	return s
}

func (s *Service) SetFaults(f Faults) {
	s.lock.Lock()
	s.faults = f
	s.lock.Unlock()
}

func (s *Service) currentFaults() Faults {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.faults
}

// Handler returns the API routes, rooted at "/". Callers that serve the API under a prefix
// such as "/api" mount it there.
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Post("/auth/login", s.login)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		r.Get("/v1/users/me", s.getCurrentUser)
		r.Get("/v1/profile", s.getProfile)

		r.Route("/v1/admin", func(r chi.Router) {
			r.Use(requireRole(roleAdmin))
			r.Get("/users", s.listUsers)
			r.Post("/users", s.createUsers)
			r.Put("/users/{id}/status", s.updateUserStatus)
			r.Get("/system/settings", s.getSystemSettings)
		})

		r.Get("/courses", s.listCourses)
		r.With(requireRole(roleTeacher, roleAdmin)).Post("/courses", s.createCourse)
		r.Get("/courses/{id}/modules", s.listModules)
		r.With(requireRole(roleTeacher, roleAdmin)).Post("/courses/{id}/modules", s.createModule)

		r.Route("/assistant", func(r chi.Router) {
			r.Post("/chat", s.chat)
			r.Get("/summary", s.courseAnswer("Summary"))
			r.Get("/learning-path", s.courseAnswer("Learning path"))
			r.Get("/review-reminder", s.reviewReminder)
			r.Get("/conversations", s.listConversations)
			r.Delete("/conversations", s.clearConversations)
			r.Get("/conversations/{id}", s.getConversation)
			r.Patch("/conversations/{id}", s.renameConversation)
			r.Delete("/conversations/{id}", s.deleteConversation)
			r.Get("/conversations/{id}/messages", s.listMessages)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "no such endpoint")
	})
	return r
}

type envelope struct {
	Data interface{} `json:"data"`
}

type errorBody struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, envelope{Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Status: status, Message: message})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	return true
}
