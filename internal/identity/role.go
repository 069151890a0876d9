package identity

import (
	"fmt"
	"slices"

	"github.com/samber/lo"
)

// NomisRoleNameMaxLength is the longest role name the prison system stores.
const NomisRoleNameMaxLength = 30

// AdminType is a class of administrator allowed to grant a role.
type AdminType struct {
	Code string `json:"adminTypeCode"`
	Name string `json:"adminTypeName"`
}

var (
	AdminTypeDpsLsa    = AdminType{Code: "DPS_LSA", Name: "DPS Local System Administrator"}
	AdminTypeDpsAdm    = AdminType{Code: "DPS_ADM", Name: "DPS Central Administrator"}
	AdminTypeExtAdm    = AdminType{Code: "EXT_ADM", Name: "External Administrator"}
	AdminTypeImsHidden = AdminType{Code: "IMS_HIDDEN", Name: "IMS Hidden"}
)

var adminTypes = lo.KeyBy(
	[]AdminType{AdminTypeDpsLsa, AdminTypeDpsAdm, AdminTypeExtAdm, AdminTypeImsHidden},
	func(a AdminType) string { return a.Code },
)

// ParseAdminType resolves an admin type code.
func ParseAdminType(code string) (AdminType, error) {
	a, ok := adminTypes[code]
	if !ok {
		return AdminType{}, fmt.Errorf("unknown admin type %q", code)
	}
	return a, nil
}

// ParseAdminTypes resolves every code, failing on the first unknown one.
func ParseAdminTypes(codes []string) ([]AdminType, error) {
	out := make([]AdminType, 0, len(codes))
	for _, c := range codes {
		a, err := ParseAdminType(c)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// AddDpsAdmTypeIfRequired returns the distinct codes of types in input order.
// A local system administrator type implies the central administrator type,
// which is appended when missing.
func AddDpsAdmTypeIfRequired(types []AdminType) []string {
	codes := lo.Uniq(lo.Map(types, func(a AdminType, _ int) string { return a.Code }))
	if slices.Contains(codes, AdminTypeDpsLsa.Code) && !slices.Contains(codes, AdminTypeDpsAdm.Code) {
		codes = append(codes, AdminTypeDpsAdm.Code)
	}
	return codes
}

// HasDpsAdminType reports whether a role with these types lives in the prison
// system as well as the external registry.
func HasDpsAdminType(types []AdminType) bool {
	return lo.ContainsBy(types, func(a AdminType) bool {
		return a == AdminTypeDpsAdm || a == AdminTypeDpsLsa
	})
}

// TruncateForNomis cuts a role name to the length the prison system accepts.
func TruncateForNomis(name string) string {
	r := []rune(name)
	if len(r) <= NomisRoleNameMaxLength {
		return name
	}
	return string(r[:NomisRoleNameMaxLength])
}

// Role is an access role.
type Role struct {
	Code        string      `json:"code"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	AdminTypes  []AdminType `json:"adminType,omitempty"`
}

// Caseload is a prison establishment a user can work in.
type Caseload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CaseloadRoles are the legacy roles a user holds in one caseload.
type CaseloadRoles struct {
	Caseload Caseload `json:"caseload"`
	Roles    []Role   `json:"roles"`
}

// UserRoleDetail is a prison user with their roles.
type UserRoleDetail struct {
	Username       string          `json:"username"`
	Active         bool            `json:"active"`
	AccountType    string          `json:"accountType"`
	ActiveCaseload *Caseload       `json:"activeCaseload,omitempty"`
	DpsRoles       []Role          `json:"dpsRoles"`
	NomisRoles     []CaseloadRoles `json:"nomisRoles,omitempty"`
}
