package apitests

import (
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"

	"github.com/fin-c3po/api-contract-tests/servicedef"
)

type adminUserState struct {
	userID   string
	username string
	password string
	disabled bool
}

func DoAdminUserTests(t *T) {
	t.RequireLogin(t.AdminCredentials())

	var state adminUserState

	t.Run("list users", func(t *T) {
		resp := t.Get("/v1/admin/users?page=1&pageSize=5")
		t.RequireStatus(200, resp, "List admin users")
		t.AssertJSONField(resp, "data", "Users list contains data")
	})

	t.Run("bulk create student", func(t *T) {
		suffix := uniqueSuffix()
		username := "auto-student-" + suffix
		password := "Student#" + suffix

		resp := t.Post("/v1/admin/users", servicedef.BulkCreateUsersParams{
			Users: []servicedef.CreateUserParams{{
				Username: username,
				Email:    username + "@example.com",
				Password: password,
				Role:     servicedef.RoleStudent,
				Status:   servicedef.StatusActive,
				StudentProfile: &servicedef.StudentProfile{
					StudentNo: "S" + suffix,
					Grade:     "2025",
					Major:     "Computer Science",
					ClassName: "CS-" + suffix,
				},
			}},
		})
		t.RequireStatus(201, resp, "Bulk create student user")
		t.RequireJSONField(resp, "data.created", "Bulk create response has created list")

		ids := t.Strings(resp, "data.created", "id")
		if !t.Check(len(ids) > 0 && ids[0] != "", "Created user has id", "data.created[0].id is missing") {
			return
		}
		state = adminUserState{userID: ids[0], username: username, password: password}
		t.Infof("Created student user %s (%s)", username, state.userID)
	})

	t.Run("disable user", func(t *T) {
		id := t.RequireFixture(state.userID, "created user id")

		resp := t.Put("/v1/admin/users/"+id+"/status", servicedef.UpdateUserStatusParams{
			Status: servicedef.StatusDisabled,
			Reason: "Automated regression test disable",
		})
		t.RequireStatus(200, resp, "Update user status")
		t.RequireJSONField(resp, "data.status", "Status update response has status field")
		state.disabled = t.AssertJSONEquals(resp, "data.status", ldvalue.String(servicedef.StatusDisabled),
			"User status updated to DISABLED")
	})

	t.Run("disabled user cannot log in", func(t *T) {
		if !state.disabled {
			t.SkipWithReason("no disabled user")
		}
		resp := t.Post("/auth/login", servicedef.LoginParams{
			Identifier: state.username,
			Password:   state.password,
		})
		t.AssertStatus(403, resp, "Login as disabled user returns 403")
	})
}
