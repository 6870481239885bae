package handler

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/school-records/records-api/internal/api/middleware"
	"github.com/school-records/records-api/internal/core/domain"
)

// identityView is the public shape of an account: never the password hash.
type identityView struct {
	Username  string `json:"username"`
	Role      string `json:"role"`
	StudentID string `json:"student_id,omitempty"`
	TeacherID string `json:"teacher_id,omitempty"`
}

func newIdentityView(username string, p domain.Principal) identityView {
	return identityView{
		Username:  username,
		Role:      string(p.Role()),
		StudentID: p.StudentID(),
		TeacherID: p.TeacherID(),
	}
}

// ctxIdentity returns the identity injected by the Auth middleware. A missing
// identity means the route was mounted without the guard.
func ctxIdentity(c echo.Context) (domain.Identity, error) {
	id, ok := middleware.IdentityFrom(c)
	if !ok || id.Username == "" {
		return domain.Identity{}, fmt.Errorf("%w: missing authentication claims", domain.ErrUnauthenticated)
	}
	return id, nil
}
