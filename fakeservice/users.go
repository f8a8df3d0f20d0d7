package fakeservice

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const minPasswordLength = 8

type createUsersRequest struct {
	Users []struct {
		Username       string                 `json:"username"`
		Email          string                 `json:"email"`
		Password       string                 `json:"password"`
		Role           string                 `json:"role"`
		Status         string                 `json:"status"`
		StudentProfile map[string]interface{} `json:"studentProfile"`
		TeacherProfile map[string]interface{} `json:"teacherProfile"`
	} `json:"users"`
}

type createdUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type failedUser struct {
	Username string `json:"username"`
	Reason   string `json:"reason"`
}

type createUsersResult struct {
	Created []createdUser `json:"created"`
	Failed  []failedUser  `json:"failed"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

type pagedData struct {
	Data     interface{} `json:"data"`
	Page     int         `json:"page"`
	PageSize int         `json:"pageSize"`
	Total    int         `json:"total"`
}

func (s *Service) getCurrentUser(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	writeData(w, http.StatusOK, map[string]interface{}{
		"id":       u.ID,
		"username": u.Username,
		"email":    u.Email,
		"role":     u.Role,
		"status":   u.Status,
	})
}

func (s *Service) getProfile(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	writeData(w, http.StatusOK, u)
}

func (s *Service) listUsers(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)

	s.lock.Lock()
	all := make([]user, 0, len(s.users))
	for _, u := range s.users {
		all = append(all, *u)
	}
	s.lock.Unlock()

	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	writeJSON(w, http.StatusOK, pagedData{
		Data:     pageOf(all, page, pageSize),
		Page:     page,
		PageSize: pageSize,
		Total:    len(all),
	})
}

func (s *Service) createUsers(w http.ResponseWriter, r *http.Request) {
	var req createUsersRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Users) == 0 {
		writeError(w, http.StatusBadRequest, "users must not be empty")
		return
	}

	result := createUsersResult{Created: []createdUser{}, Failed: []failedUser{}}
	s.lock.Lock()
	for _, in := range req.Users {
		reason := ""
		switch {
		case in.Username == "" || in.Email == "":
			reason = "username and email are required"
		case len(in.Password) < minPasswordLength:
			reason = fmt.Sprintf("password must be at least %d characters", minPasswordLength)
		case in.Role != roleAdmin && in.Role != roleTeacher && in.Role != roleStudent:
			reason = "unknown role " + strconv.Quote(in.Role)
		case in.Role == roleStudent && in.StudentProfile == nil:
			reason = "studentProfile is required for students"
		case in.Role == roleTeacher && in.TeacherProfile == nil:
			reason = "teacherProfile is required for teachers"
		case s.findUser(in.Username) != nil || s.findUser(in.Email) != nil:
			reason = "user already exists"
		}
		if reason != "" {
			result.Failed = append(result.Failed, failedUser{Username: in.Username, Reason: reason})
			continue
		}
		status := in.Status
		if status == "" {
			status = statusActive
		}
		u := &user{
			ID:             uuid.NewString(),
			Username:       in.Username,
			Email:          in.Email,
			Role:           in.Role,
			Status:         status,
			StudentProfile: in.StudentProfile,
			TeacherProfile: in.TeacherProfile,
			CreatedAt:      s.now(),
			password:       in.Password,
		}
		s.users[u.ID] = u
		result.Created = append(result.Created, createdUser{ID: u.ID, Username: u.Username, Role: u.Role})
	}
	s.lock.Unlock()

	if len(result.Created) == 0 {
		writeJSON(w, http.StatusBadRequest, envelope{Data: result})
		return
	}
	writeData(w, http.StatusCreated, result)
}

func (s *Service) updateUserStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Status != statusActive && req.Status != statusDisabled {
		writeError(w, http.StatusBadRequest, "status must be ACTIVE or DISABLED")
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	u, ok := s.users[chi.URLParam(r, "id")]
	if !ok {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if u.ID == currentUser(r).ID && req.Status == statusDisabled {
		writeError(w, http.StatusBadRequest, "cannot disable your own account")
		return
	}
	u.Status = req.Status
	writeData(w, http.StatusOK, map[string]interface{}{
		"id":     u.ID,
		"status": u.Status,
		"reason": req.Reason,
	})
}

func (s *Service) getSystemSettings(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, map[string]interface{}{
		"passwordPolicy": map[string]interface{}{
			"minLength":        minPasswordLength,
			"requireUppercase": false,
			"requireDigit":     false,
		},
		"session": map[string]interface{}{
			"tokenLifetimeSeconds": int(tokenLifetime.Seconds()),
		},
	})
}

func pagination(r *http.Request) (page, pageSize int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ = strconv.Atoi(r.URL.Query().Get("pageSize"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	return page, pageSize
}

func pageOf[T any](items []T, page, pageSize int) []T {
	start := (page - 1) * pageSize
	if start >= len(items) {
		return []T{}
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
