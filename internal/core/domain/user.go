package domain

import (
	"fmt"
	"strings"
	"time"
)

// Role is the access level of an account.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// linkKind says which entity, if any, a role is linked to.
type linkKind int

const (
	linkNone linkKind = iota
	linkStudent
	linkTeacher
)

// roleLinks declares the linkage each known role requires. New roles are
// added here.
var roleLinks = map[Role]linkKind{
	RoleAdmin:   linkNone,
	RoleStudent: linkStudent,
	RoleTeacher: linkTeacher,
}

// ParseRole returns the Role named by s, or ErrInvalidInput for unknown roles.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if _, ok := roleLinks[r]; !ok {
		return "", fmt.Errorf("%w: role must be one of %s", ErrInvalidInput, knownRoles())
	}
	return r, nil
}

func knownRoles() string {
	// Fixed order keeps error messages stable.
	return strings.Join([]string{string(RoleAdmin), string(RoleStudent), string(RoleTeacher)}, ", ")
}

// Principal is the role of an account together with its linkage:
// Admin, Student(id) or Teacher(id). The zero value is not a valid principal;
// build one with AdminPrincipal, StudentPrincipal, TeacherPrincipal or
// NewPrincipal.
type Principal struct {
	role Role
	link string
}

func AdminPrincipal() Principal { return Principal{role: RoleAdmin} }

// StudentPrincipal links a student account to studentID. A blank id yields
// the zero Principal, which every consumer rejects.
func StudentPrincipal(studentID string) Principal {
	return linked(RoleStudent, studentID)
}

// TeacherPrincipal links a teacher account to teacherID. A blank id yields
// the zero Principal.
func TeacherPrincipal(teacherID string) Principal {
	return linked(RoleTeacher, teacherID)
}

func linked(r Role, id string) Principal {
	id = strings.TrimSpace(id)
	if id == "" {
		return Principal{}
	}
	return Principal{role: r, link: id}
}

// NewPrincipal validates untyped role/linkage input. Blank linkage fields are
// treated as absent. Exactly one linkage must be present for a non-admin
// role, and it must be the one the role requires; admin takes none.
func NewPrincipal(role, studentID, teacherID string) (Principal, error) {
	r, err := ParseRole(role)
	if err != nil {
		return Principal{}, err
	}

	studentID = strings.TrimSpace(studentID)
	teacherID = strings.TrimSpace(teacherID)

	if studentID != "" && teacherID != "" {
		return Principal{}, fmt.Errorf("%w: student_id and teacher_id are mutually exclusive", ErrInvalidLinkage)
	}

	switch roleLinks[r] {
	case linkStudent:
		if studentID == "" {
			return Principal{}, fmt.Errorf("%w: role %s requires student_id", ErrInvalidLinkage, r)
		}
		return StudentPrincipal(studentID), nil
	case linkTeacher:
		if teacherID == "" {
			return Principal{}, fmt.Errorf("%w: role %s requires teacher_id", ErrInvalidLinkage, r)
		}
		return TeacherPrincipal(teacherID), nil
	default:
		if studentID != "" || teacherID != "" {
			return Principal{}, fmt.Errorf("%w: role %s takes no student_id or teacher_id", ErrInvalidLinkage, r)
		}
		return Principal{role: r}, nil
	}
}

func (p Principal) Role() Role { return p.role }

// StudentID is empty unless the principal is linked to a student.
func (p Principal) StudentID() string {
	if roleLinks[p.role] == linkStudent {
		return p.link
	}
	return ""
}

// TeacherID is empty unless the principal is linked to a teacher.
func (p Principal) TeacherID() string {
	if roleLinks[p.role] == linkTeacher {
		return p.link
	}
	return ""
}

func (p Principal) IsAdmin() bool { return p.role == RoleAdmin }

// IsZero reports whether p was never set.
func (p Principal) IsZero() bool { return p.role == "" }

// User is an identity record as held by the user store.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Principal    Principal
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity is what an authenticated request knows about its caller.
type Identity struct {
	Username  string
	Principal Principal
}

// Claims are the facts carried by an issued token.
type Claims struct {
	Identity
	// TokenID is the jti of the token, unique per issued token.
	TokenID   string
	ExpiresAt time.Time
}
