package rbac

// Affordances lists the navigation items and actions the front end should show
// and hide for a role. Element ids match the admin and student pages.
type Affordances struct {
	Show []string `json:"show"`
	Hide []string `json:"hide"`
}

var (
	superAdminItems = []string{
		"auditTrailLink", "viewAllLink", "auditActionBtn",
		"userMaintenanceLink", "addUserActionBtn", "manageUsersActionBtn",
	}
	adminItems = []string{
		"eventsLink", "attendanceLink", "reportsLink",
		"eventsWidget", "attendanceWidget", "reportsWidget",
		"createEventAction", "markAttendanceAction", "generateReportAction",
	}
)

// AffordancesFor returns the role-conditioned UI affordances.
func AffordancesFor(role Role) Affordances {
	switch role {
	case SuperAdmin:
		return Affordances{Show: clone(superAdminItems), Hide: clone(adminItems)}
	case Admin:
		return Affordances{Show: clone(adminItems), Hide: clone(superAdminItems)}
	default:
		return Affordances{Show: []string{}, Hide: append(clone(superAdminItems), adminItems...)}
	}
}

func clone(s []string) []string {
	return append([]string(nil), s...)
}
