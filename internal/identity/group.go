package identity

import "github.com/google/uuid"

// Group is an external users group.
type Group struct {
	Code string `json:"groupCode"`
	Name string `json:"groupName"`
}

// GroupDetail is a group with the roles its managers may assign.
type GroupDetail struct {
	Code            string  `json:"groupCode"`
	Name            string  `json:"groupName"`
	AssignableRoles []Role  `json:"assignableRoles"`
	Children        []Group `json:"children"`
}

// EmailDomain is an entry in the email domain allow list.
type EmailDomain struct {
	ID          uuid.UUID `json:"id"`
	Domain      string    `json:"domain"`
	Description string    `json:"description,omitempty"`
}
