package shared

// Core platform permissions.
const (
	PermUsersView = "users.view"
	PermUsersEdit = "users.edit"

	PermRolesView = "roles.view"
	PermRolesEdit = "roles.edit"

	PermPermissionsView = "permissions.view"

	PermDepartmentsView = "departments.view"
	PermDepartmentsEdit = "departments.edit"

	PermTasksView    = "tasks.view"
	PermTasksCreate  = "tasks.create"
	PermTasksEdit    = "tasks.edit"
	PermTasksAssign  = "tasks.assign"
	PermTasksApprove = "tasks.approve"

	PermNotificationsView = "notifications.view"
)

// Sub-permission keys nested under a resource.
const (
	SubTasksReassign = "reassign"
)

// CoreScopes lists all permissions known to the platform.
func CoreScopes() []string {
	return []string{
		PermUsersView,
		PermUsersEdit,
		PermRolesView,
		PermRolesEdit,
		PermPermissionsView,
		PermDepartmentsView,
		PermDepartmentsEdit,
		PermTasksView,
		PermTasksCreate,
		PermTasksEdit,
		PermTasksAssign,
		PermTasksApprove,
		PermNotificationsView,
	}
}
