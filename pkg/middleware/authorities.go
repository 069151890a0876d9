package middleware

// Authorities checked by the route groups.
const (
	AuthorityCreateUser             = "ROLE_CREATE_USER"
	AuthorityManageNomisUserAccount = "ROLE_MANAGE_NOMIS_USER_ACCOUNT"
	AuthorityMaintainAccessRoles    = "ROLE_MAINTAIN_ACCESS_ROLES"
	AuthorityMaintainAccessAdmin    = "ROLE_MAINTAIN_ACCESS_ROLES_ADMIN"
	AuthorityMaintainOAuthUsers     = "ROLE_MAINTAIN_OAUTH_USERS"
	AuthorityGroupManager           = "ROLE_AUTH_GROUP_MANAGER"
	AuthorityRolesAdmin             = "ROLE_ROLES_ADMIN"
	AuthorityMaintainEmailDomains   = "ROLE_MAINTAIN_EMAIL_DOMAINS"
)
