package rbac

// Default policy. Every authenticated account is a teacher; admin exists for
// operational tooling.
var RolePermissions = map[string][]string{
	"teacher": {
		"upload:create",
		"upload:view",
		"notes:preview",
		"classroom:list",
		"classroom:post",
		"logs:view",
	},
	"admin": {
		"*", // everything
	},
}
