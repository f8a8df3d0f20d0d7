package fakeservice

import (
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type createCourseRequest struct {
	Name        string `json:"name"`
	Semester    string `json:"semester"`
	Credit      *int   `json:"credit"`
	EnrollLimit *int   `json:"enrollLimit"`
}

type createModuleRequest struct {
	Title        string `json:"title"`
	DisplayOrder int    `json:"displayOrder"`
	ReleaseAt    string `json:"releaseAt"`
}

func (s *Service) listCourses(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)

	s.lock.Lock()
	all := make([]course, 0, len(s.courses))
	for _, c := range s.courses {
		all = append(all, *c)
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

func (s *Service) createCourse(w http.ResponseWriter, r *http.Request) {
	var req createCourseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	c := &course{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Semester:  req.Semester,
		TeacherID: currentUser(r).ID,
		CreatedAt: s.now(),
	}
	if req.Credit != nil {
		c.Credit = *req.Credit
	}
	if req.EnrollLimit != nil {
		c.EnrollLimit = *req.EnrollLimit
	}

	s.lock.Lock()
	s.courses[c.ID] = c
	s.lock.Unlock()

	writeData(w, http.StatusCreated, c)
}

func (s *Service) createModule(w http.ResponseWriter, r *http.Request) {
	var req createModuleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	c, ok := s.courses[chi.URLParam(r, "id")]
	if !ok {
		writeError(w, http.StatusNotFound, "course not found")
		return
	}
	if u := currentUser(r); u.Role != roleAdmin && u.ID != c.TeacherID {
		writeError(w, http.StatusForbidden, "not the teacher of this course")
		return
	}
	m := &module{
		ID:           uuid.NewString(),
		CourseID:     c.ID,
		Title:        req.Title,
		DisplayOrder: req.DisplayOrder,
		ReleaseAt:    req.ReleaseAt,
	}
	c.modules = append(c.modules, m)
	writeData(w, http.StatusOK, m)
}

func (s *Service) listModules(w http.ResponseWriter, r *http.Request) {
	s.lock.Lock()
	c, ok := s.courses[chi.URLParam(r, "id")]
	var modules []module
	if ok && !s.faults.OmitModulesFromList {
		for _, m := range c.modules {
			modules = append(modules, *m)
		}
	}
	s.lock.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "course not found")
		return
	}
	sort.SliceStable(modules, func(i, j int) bool { return modules[i].DisplayOrder < modules[j].DisplayOrder })
	if modules == nil {
		modules = []module{}
	}
	writeData(w, http.StatusOK, modules)
}

func (s *Service) courseExists(id string) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	_, ok := s.courses[id]
	return ok
}
