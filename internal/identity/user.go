package identity

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// GenericUser is the normalized view of a user from any source. UUID is only
// set for auth identities and StaffID only for nomis identities.
type GenericUser struct {
	Username         string     `json:"username"`
	Active           bool       `json:"active"`
	Name             string     `json:"name"`
	AuthSource       AuthSource `json:"authSource"`
	UserID           string     `json:"userId"`
	UUID             *uuid.UUID `json:"uuid,omitempty"`
	StaffID          *int64     `json:"staffId,omitempty"`
	ActiveCaseLoadID string     `json:"activeCaseLoadId,omitempty"`
}

// EmailAddress is a user's email as known to its source.
type EmailAddress struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Verified bool   `json:"verified"`
}

// SourceUser is a user as returned by one upstream system.
type SourceUser interface {
	ToGenericUser() GenericUser
	EmailAddress() EmailAddress
}

// PrisonUser is a user of the prison system.
type PrisonUser struct {
	Username         string
	StaffID          int64
	FirstName        string
	LastName         string
	Email            string
	ActiveCaseLoadID string
	AccountStatus    string
	Enabled          bool
}

func (u PrisonUser) ToGenericUser() GenericUser {
	staffID := u.StaffID
	return GenericUser{
		Username:         u.Username,
		Active:           u.Enabled,
		Name:             capitalizeFully(u.FirstName + " " + u.LastName),
		AuthSource:       SourceNomis,
		UserID:           strconv.FormatInt(u.StaffID, 10),
		StaffID:          &staffID,
		ActiveCaseLoadID: u.ActiveCaseLoadID,
	}
}

func (u PrisonUser) EmailAddress() EmailAddress {
	return EmailAddress{Username: u.Username, Email: u.Email, Verified: u.Email != ""}
}

// FirstNameCapitalized returns the first name as used in greetings.
func (u PrisonUser) FirstNameCapitalized() string {
	return capitalizeFully(u.FirstName)
}

// ExternalUser is a user of the external users directory.
type ExternalUser struct {
	UserID    uuid.UUID
	Username  string
	Email     string
	FirstName string
	LastName  string
	Enabled   bool
	Verified  bool
	Locked    bool
}

func (u ExternalUser) ToGenericUser() GenericUser {
	id := u.UserID
	return GenericUser{
		Username:   u.Username,
		Active:     u.Enabled,
		Name:       strings.TrimSpace(u.FirstName + " " + u.LastName),
		AuthSource: SourceAuth,
		UserID:     u.UserID.String(),
		UUID:       &id,
	}
}

func (u ExternalUser) EmailAddress() EmailAddress {
	return EmailAddress{Username: u.Username, Email: u.Email, Verified: u.Verified}
}

// DeliusUser is a user of the probation system. Username is upper case and
// Email is lower case with typographic apostrophes normalized.
type DeliusUser struct {
	UserID    string
	Username  string
	FirstName string
	Surname   string
	Email     string
	Enabled   bool
}

func (u DeliusUser) ToGenericUser() GenericUser {
	return GenericUser{
		Username:   u.Username,
		Active:     u.Enabled,
		Name:       strings.TrimSpace(u.FirstName + " " + u.Surname),
		AuthSource: SourceDelius,
		UserID:     u.UserID,
	}
}

func (u DeliusUser) EmailAddress() EmailAddress {
	return EmailAddress{Username: u.Username, Email: u.Email, Verified: true}
}

// AzureUser is an Azure AD user. Username is the object id.
type AzureUser struct {
	Username  string
	FirstName string
	LastName  string
	Email     string
	Enabled   bool
}

func (u AzureUser) ToGenericUser() GenericUser {
	return GenericUser{
		Username:   u.Username,
		Active:     u.Enabled,
		Name:       strings.TrimSpace(u.FirstName + " " + u.LastName),
		AuthSource: SourceAzureAD,
		UserID:     u.Username,
	}
}

func (u AzureUser) EmailAddress() EmailAddress {
	return EmailAddress{Username: u.Username, Email: u.Email, Verified: true}
}

func capitalizeFully(s string) string {
	return cases.Title(language.English).String(strings.TrimSpace(s))
}
