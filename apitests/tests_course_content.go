package apitests

import (
	"github.com/stretchr/testify/assert"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"

	"github.com/fin-c3po/api-contract-tests/servicedef"
)

type courseContentState struct {
	teacher  Credentials
	courseID string
	moduleID string
}

// DoCourseContentTests creates a temporary teacher, then works as that teacher. Whatever
// happens, the suite ends logged in as the administrator again.
func DoCourseContentTests(t *T) {
	t.RequireLogin(t.AdminCredentials())
	t.Defer(func() { t.LoginAsAdmin() })

	var state courseContentState

	t.Run("create teacher", func(t *T) {
		suffix := uniqueSuffix()
		username := "auto-teacher-" + suffix
		password := "Teacher#" + suffix

		resp := t.Post("/v1/admin/users", servicedef.BulkCreateUsersParams{
			Users: []servicedef.CreateUserParams{{
				Username: username,
				Email:    username + "@example.com",
				Password: password,
				Role:     servicedef.RoleTeacher,
				Status:   servicedef.StatusActive,
				TeacherProfile: &servicedef.TeacherProfile{
					TeacherNo:  "T" + suffix,
					Department: "Mathematics",
					Title:      "Lecturer",
					Subjects:   []string{"Linear Algebra", "Discrete Math"},
				},
			}},
		})
		t.RequireStatus(201, resp, "Create temporary teacher")
		state.teacher = Credentials{Identifier: username, Password: password}
		t.Infof("Created teacher %s", username)
	})

	if state.teacher.Identifier == "" {
		t.Warnf("Skipping remaining course content tests (no teacher account)")
		return
	}
	t.RequireLogin(state.teacher)

	t.Run("create course", func(t *T) {
		resp := t.Post("/courses", servicedef.CreateCourseParams{
			Name:        "Automated Course " + uniqueSuffix(),
			Semester:    "2025春",
			Credit:      ldvalue.NewOptionalInt(3),
			EnrollLimit: ldvalue.NewOptionalInt(50),
		})
		t.RequireStatus(201, resp, "Create course")
		state.courseID = t.RequireString(resp, "data.id", "Course creation response has id")
	})

	t.Run("create module", func(t *T) {
		courseID := t.RequireFixture(state.courseID, "course id")

		resp := t.Post("/courses/"+courseID+"/modules", servicedef.CreateModuleParams{
			Title:        "Week 1 · Automated test module",
			DisplayOrder: 1,
			ReleaseAt:    "2025-09-01T00:00:00Z",
		})
		t.RequireStatus(200, resp, "Create course module")
		state.moduleID = t.RequireString(resp, "data.id", "Module creation response has id")
	})

	t.Run("list modules", func(t *T) {
		courseID := t.RequireFixture(state.courseID, "course id")

		resp := t.Get("/courses/" + courseID + "/modules")
		t.RequireStatus(200, resp, "List course modules")
		t.RequireJSONField(resp, "data", "Modules list has data")

		if state.moduleID == "" {
			return
		}
		ids := t.Strings(resp, "data", "id")
		t.Expect("Modules list contains created module", func(a assert.TestingT) bool {
			return assert.Contains(a, ids, state.moduleID)
		})
	})
}
