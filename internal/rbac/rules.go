package rbac

// Simple default policy. Expand as needed.
var RolePermissions = map[string][]string{
	"student": {
		"assessment:view",
		"submission:create",
		"result:view-own",
		"user:change_password",
	},
	"teacher": {
		"assessment:create",
		"assessment:view",
		"assessment:view-full",
		"assessment:delete",
		"result:view-all",
		"users:bulk_upsert",
		"users:list",
		"user:change_password",
	},
	"admin": {
		"*", // everything
	},
}
