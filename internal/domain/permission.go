package domain

const (
	ResourceUsers        = "users"
	ResourceWorkers      = "workers"
	ResourceSites        = "sites"
	ResourceAttendance   = "attendance"
	ResourceMaterials    = "materials"
	ResourceDispatch     = "dispatch"
	ResourceOvertime     = "overtime"
	ResourcePayments     = "payments"
	ResourceExpenses     = "expenses"
	ResourcePendingWork  = "pending_work"
	ResourceWorkUpdates  = "work_updates"
	ResourceUploads      = "uploads"
	ResourceDashboard    = "dashboard"
	PermissionActionRead = "read"
	PermissionActionEdit = "write"
)

var allResources = []string{
	ResourceUsers, ResourceWorkers, ResourceSites, ResourceAttendance, ResourceMaterials,
	ResourceDispatch, ResourceOvertime, ResourcePayments, ResourceExpenses,
	ResourcePendingWork, ResourceWorkUpdates, ResourceUploads, ResourceDashboard,
}

func Permission(resource, action string) string {
	return resource + ":" + action
}

// PermissionsForRole returns the static grant list for role.
func PermissionsForRole(role Role) []string {
	switch role {
	case RoleAdmin:
		return grant(allResources, allResources)
	case RoleManager:
		scoped := make([]string, 0, len(allResources))
		for _, r := range allResources {
			if r != ResourceUsers {
				scoped = append(scoped, r)
			}
		}
		return grant(scoped, scoped)
	case RoleSupervisor:
		read := []string{
			ResourceWorkers, ResourceSites, ResourceAttendance, ResourceMaterials, ResourceDispatch,
			ResourceOvertime, ResourceExpenses, ResourcePendingWork, ResourceWorkUpdates,
			ResourceUploads, ResourceDashboard,
		}
		write := []string{
			ResourceAttendance, ResourceMaterials, ResourceDispatch, ResourcePendingWork,
			ResourceWorkUpdates, ResourceUploads,
		}
		return grant(read, write)
	default:
		return nil
	}
}

func grant(read, write []string) []string {
	perms := make([]string, 0, len(read)+len(write))
	for _, r := range read {
		perms = append(perms, Permission(r, PermissionActionRead))
	}
	for _, r := range write {
		perms = append(perms, Permission(r, PermissionActionEdit))
	}
	return perms
}
