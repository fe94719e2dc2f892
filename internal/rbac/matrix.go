package rbac

// Target names a redirect destination; Pages resolves it to a concrete path.
type Target int

const (
	TargetNone Target = iota
	TargetAnonymous
	TargetAdminLogin
	TargetStudentLogin
	TargetAdminHome
	TargetStudentHome
)

// Decision is the capability matrix verdict for one (role, category) pair.
type Decision struct {
	Allow    bool
	SignOut  bool
	Redirect Target
	Alert    string
}

const (
	alertAdminArea    = "Access denied. This area is restricted to administrators only. Client users can only access the student portal."
	alertSuperOnly    = "Access denied. This page is only accessible to Super Administrators."
	alertAdminNotSupr = "Access denied. Events, Attendance, and Reports are only accessible to Administrators."
	alertStudentArea  = "Access denied. This area is for students only."
	alertUnknownPage  = "Access denied. This page is not available."
)

var allow = Decision{Allow: true}

// Decide is the capability matrix. It is a pure function of its arguments and
// matches exhaustively; SuperAdmin is deliberately not a superset of Admin for
// CategoryAdminNotSuper.
func Decide(role Role, category Category) Decision {
	switch category {
	case CategoryPublic:
		return allow

	case CategoryAdministrator:
		switch role {
		case Admin, SuperAdmin:
			return allow
		case ClientUser:
			return Decision{SignOut: true, Redirect: TargetStudentLogin, Alert: alertAdminArea}
		}

	case CategorySuperAdmin:
		switch role {
		case SuperAdmin:
			return allow
		case Admin:
			return Decision{Redirect: TargetAdminHome, Alert: alertSuperOnly}
		case ClientUser:
			return Decision{SignOut: true, Redirect: TargetStudentLogin, Alert: alertAdminArea}
		}

	case CategoryAdminNotSuper:
		switch role {
		case Admin:
			return allow
		case SuperAdmin:
			return Decision{Redirect: TargetAdminHome, Alert: alertAdminNotSupr}
		case ClientUser:
			return Decision{SignOut: true, Redirect: TargetStudentLogin, Alert: alertAdminArea}
		}

	case CategoryClient:
		switch role {
		case ClientUser:
			return allow
		case Admin, SuperAdmin:
			return Decision{SignOut: true, Redirect: TargetAdminLogin, Alert: alertStudentArea}
		}
	}

	// Unclassified pages and invalid roles land here: deny without sign-out.
	return Decision{Redirect: HomeFor(role), Alert: alertUnknownPage}
}

// HomeFor is the landing page for a signed-in role.
func HomeFor(role Role) Target {
	switch role {
	case Admin, SuperAdmin:
		return TargetAdminHome
	case ClientUser:
		return TargetStudentHome
	default:
		return TargetAnonymous
	}
}

// LoginFor is the login entry point for an area category, used when nobody is
// signed in or the session has just been torn down.
func LoginFor(category Category) Target {
	switch category {
	case CategoryClient:
		return TargetStudentLogin
	case CategoryAdministrator, CategorySuperAdmin, CategoryAdminNotSuper:
		return TargetAdminLogin
	default:
		return TargetAnonymous
	}
}
