package identity

import (
	"slices"
	"strings"

	"github.com/samber/lo"
)

// MergeRoleNames replaces each role name with the name held in the registry
// for the same code and sorts the result by name. Roles missing from the
// registry keep their own name. Neither input is modified.
func MergeRoleNames(roles, registry []Role) []Role {
	names := lo.SliceToMap(registry, func(r Role) (string, string) { return r.Code, r.Name })

	merged := lo.Map(roles, func(r Role, _ int) Role {
		if name, ok := names[r.Code]; ok {
			r.Name = name
		}
		return r
	})
	slices.SortStableFunc(merged, func(a, b Role) int {
		return strings.Compare(a.Name, b.Name)
	})
	return merged
}

// ReconcileRoleNames returns detail with its DPS role names taken from the
// registry. All other fields pass through.
func ReconcileRoleNames(detail UserRoleDetail, registry []Role) UserRoleDetail {
	detail.DpsRoles = MergeRoleNames(detail.DpsRoles, registry)
	return detail
}
