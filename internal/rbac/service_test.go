package rbac

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dhawalhost/manageusers/internal/identity"
	"github.com/dhawalhost/manageusers/pkg/apperr"
)

type mockRegistry struct {
	mu          sync.Mutex
	roles       map[string]identity.Role
	rolesErr    error
	filters     [][]identity.AdminType
	created     []identity.Role
	renamed     map[string]string
	retyped     map[string][]identity.AdminType
	userRoles   []identity.Role
	addedToUser []string
}

func newMockRegistry(roles ...identity.Role) *mockRegistry {
	m := &mockRegistry{roles: map[string]identity.Role{}, renamed: map[string]string{}, retyped: map[string][]identity.AdminType{}}
	for _, r := range roles {
		m.roles[r.Code] = r
	}
	return m
}

func (m *mockRegistry) GetRoles(_ context.Context, adminTypes []identity.AdminType) ([]identity.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filters = append(m.filters, adminTypes)
	var out []identity.Role
	for _, r := range m.roles {
		out = append(out, r)
	}
	return out, m.rolesErr
}

func (m *mockRegistry) GetRole(_ context.Context, code string) (*identity.Role, error) {
	r, ok := m.roles[code]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *mockRegistry) CreateRole(_ context.Context, role identity.Role) error {
	m.created = append(m.created, role)
	return nil
}

func (m *mockRegistry) UpdateRoleName(_ context.Context, code, name string) error {
	m.renamed[code] = name
	return nil
}

func (m *mockRegistry) UpdateRoleDescription(context.Context, string, string) error { return nil }

func (m *mockRegistry) UpdateRoleAdminTypes(_ context.Context, code string, types []identity.AdminType) error {
	m.retyped[code] = types
	return nil
}

func (m *mockRegistry) GetUserRoles(context.Context, uuid.UUID) ([]identity.Role, error) {
	return m.userRoles, nil
}

func (m *mockRegistry) AddRolesToUser(_ context.Context, _ uuid.UUID, codes []string) error {
	m.addedToUser = append(m.addedToUser, codes...)
	return nil
}

func (m *mockRegistry) RemoveRoleFromUser(context.Context, uuid.UUID, string) error { return nil }

type mockPrison struct {
	detail    identity.UserRoleDetail
	detailErr error
	usernames []string
	created   []identity.Role
	renamed   map[string]string
	retyped   map[string][]identity.AdminType
	added     []string
}

func newMockPrison() *mockPrison {
	return &mockPrison{renamed: map[string]string{}, retyped: map[string][]identity.AdminType{}}
}

func (m *mockPrison) GetUserRoles(_ context.Context, username string, _ bool) (identity.UserRoleDetail, error) {
	m.usernames = append(m.usernames, username)
	return m.detail, m.detailErr
}

func (m *mockPrison) AddRoleToUser(_ context.Context, username, roleCode, caseloadID string) error {
	m.added = append(m.added, strings.Join([]string{username, roleCode, caseloadID}, "/"))
	return nil
}

func (m *mockPrison) RemoveRoleFromUser(context.Context, string, string, string) error { return nil }

func (m *mockPrison) CreateRole(_ context.Context, role identity.Role) error {
	m.created = append(m.created, role)
	return nil
}

func (m *mockPrison) UpdateRoleName(_ context.Context, code, name string) error {
	m.renamed[code] = name
	return nil
}

func (m *mockPrison) UpdateRoleAdminTypes(_ context.Context, code string, types []identity.AdminType) error {
	m.retyped[code] = types
	return nil
}

const longName = "Maintain access roles that has more than 30 characters in the role name"

func TestGetPrisonUserRolesUsesRegistryNames(t *testing.T) {
	registry := newMockRegistry(identity.Role{Code: "MAINTAIN_ACCESS_ROLES", Name: longName})
	prison := newMockPrison()
	prison.detail = identity.UserRoleDetail{
		Username: "BOB",
		Active:   true,
		DpsRoles: []identity.Role{
			{Code: "MAINTAIN_ACCESS_ROLES", Name: "Maintain DPS user roles"},
			{Code: "ADD_SENSITIVE_CASE_NOTES", Name: "Add Sensitive Case Notes"},
		},
	}
	svc := NewService(registry, prison, zap.NewNop())

	detail, err := svc.GetPrisonUserRoles(context.Background(), "bob", false)
	require.NoError(t, err)

	assert.Equal(t, []string{"BOB"}, prison.usernames)
	assert.Equal(t, [][]identity.AdminType{{identity.AdminTypeDpsAdm}}, registry.filters)
	require.Len(t, detail.DpsRoles, 2)
	assert.Equal(t, "Add Sensitive Case Notes", detail.DpsRoles[0].Name)
	assert.Equal(t, longName, detail.DpsRoles[1].Name)
	assert.True(t, detail.Active)
}

func TestGetPrisonUserRolesFailsWhenEitherFetchFails(t *testing.T) {
	registry := newMockRegistry()
	registry.rolesErr = apperr.Unavailable("external-users", 503, nil)
	svc := NewService(registry, newMockPrison(), zap.NewNop())

	_, err := svc.GetPrisonUserRoles(context.Background(), "bob", false)
	assert.True(t, apperr.IsKind(err, apperr.KindUpstreamUnavailable))
}

func TestCreateRole(t *testing.T) {
	tests := []struct {
		name         string
		adminTypes   []string
		inPrison     bool
		prisonTypes  []string
		registryName string
	}{
		{"external only", []string{"EXT_ADM"}, false, nil, longName},
		{"central admin", []string{"DPS_ADM"}, true, []string{"DPS_ADM"}, longName},
		{"local admin", []string{"DPS_LSA", "EXT_ADM"}, true, []string{"DPS_LSA", "EXT_ADM"}, longName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := newMockRegistry()
			prison := newMockPrison()
			svc := NewService(registry, prison, zap.NewNop())

			err := svc.CreateRole(context.Background(), CreateRoleRequest{Code: "new_role", Name: longName, AdminTypes: tt.adminTypes})
			require.NoError(t, err)

			require.Len(t, registry.created, 1)
			assert.Equal(t, "NEW_ROLE", registry.created[0].Code)
			assert.Equal(t, tt.registryName, registry.created[0].Name)
			if !tt.inPrison {
				assert.Empty(t, prison.created)
				return
			}
			require.Len(t, prison.created, 1)
			codes := make([]string, 0, len(prison.created[0].AdminTypes))
			for _, a := range prison.created[0].AdminTypes {
				codes = append(codes, a.Code)
			}
			assert.Equal(t, tt.prisonTypes, codes)
		})
	}
}

func TestCreateRoleValidation(t *testing.T) {
	registry := newMockRegistry()
	svc := NewService(registry, newMockPrison(), zap.NewNop())

	err := svc.CreateRole(context.Background(), CreateRoleRequest{Code: "R", Name: longName, AdminTypes: []string{"DPS_ADM"}})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	err = svc.CreateRole(context.Background(), CreateRoleRequest{Code: "ROLE", Name: longName, AdminTypes: []string{"NOPE"}})
	var e *apperr.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "adminType", e.Field)
	assert.Empty(t, registry.created)
}

func TestUpdateRoleNamePropagatesToPrison(t *testing.T) {
	registry := newMockRegistry(
		identity.Role{Code: "DPS_ROLE", Name: "Old", AdminTypes: []identity.AdminType{identity.AdminTypeDpsAdm}},
		identity.Role{Code: "EXT_ROLE", Name: "Old", AdminTypes: []identity.AdminType{identity.AdminTypeExtAdm}},
	)
	prison := newMockPrison()
	svc := NewService(registry, prison, zap.NewNop())

	require.NoError(t, svc.UpdateRoleName(context.Background(), "DPS_ROLE", longName))
	require.NoError(t, svc.UpdateRoleName(context.Background(), "EXT_ROLE", "New name"))

	assert.Equal(t, map[string]string{"DPS_ROLE": longName, "EXT_ROLE": "New name"}, registry.renamed)
	assert.Equal(t, map[string]string{"DPS_ROLE": longName}, prison.renamed)

	err := svc.UpdateRoleName(context.Background(), "MISSING", "New name")
	assert.True(t, apperr.IsNotFound(err))
}

func TestUpdateRoleAdminTypes(t *testing.T) {
	dps := []identity.AdminType{identity.AdminTypeDpsAdm}
	ext := []identity.AdminType{identity.AdminTypeExtAdm}

	t.Run("gaining a DPS type creates the role in the prison system", func(t *testing.T) {
		registry := newMockRegistry(identity.Role{Code: "R", Name: "Role", AdminTypes: ext})
		prison := newMockPrison()
		svc := NewService(registry, prison, zap.NewNop())

		require.NoError(t, svc.UpdateRoleAdminTypes(context.Background(), "R", []string{"EXT_ADM", "DPS_LSA"}))

		require.Len(t, prison.created, 1)
		assert.Equal(t, "Role", prison.created[0].Name)
		assert.Empty(t, prison.retyped)
	})

	t.Run("an existing DPS role is updated", func(t *testing.T) {
		registry := newMockRegistry(identity.Role{Code: "R", Name: "Role", AdminTypes: dps})
		prison := newMockPrison()
		svc := NewService(registry, prison, zap.NewNop())

		require.NoError(t, svc.UpdateRoleAdminTypes(context.Background(), "R", []string{"DPS_LSA"}))

		assert.Empty(t, prison.created)
		assert.Equal(t, []identity.AdminType{identity.AdminTypeDpsLsa}, prison.retyped["R"])
		assert.Equal(t, []identity.AdminType{identity.AdminTypeDpsLsa}, registry.retyped["R"])
	})

	t.Run("non DPS types stay in the registry", func(t *testing.T) {
		registry := newMockRegistry(identity.Role{Code: "R", Name: "Role", AdminTypes: dps})
		prison := newMockPrison()
		svc := NewService(registry, prison, zap.NewNop())

		require.NoError(t, svc.UpdateRoleAdminTypes(context.Background(), "R", []string{"EXT_ADM"}))

		assert.Empty(t, prison.created)
		assert.Empty(t, prison.retyped)
	})

	t.Run("empty types rejected", func(t *testing.T) {
		svc := NewService(newMockRegistry(), newMockPrison(), zap.NewNop())
		err := svc.UpdateRoleAdminTypes(context.Background(), "R", nil)
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	})
}

func TestPrisonUserRoleAssignmentUppercasesUsername(t *testing.T) {
	prison := newMockPrison()
	svc := NewService(newMockRegistry(), prison, zap.NewNop())

	require.NoError(t, svc.AddRoleToPrisonUser(context.Background(), "bob", "ROLE_A", "MDI"))
	assert.Equal(t, []string{"BOB/ROLE_A/MDI"}, prison.added)
}

func TestAddRolesToExternalUserNeedsCodes(t *testing.T) {
	registry := newMockRegistry()
	svc := NewService(registry, newMockPrison(), zap.NewNop())

	err := svc.AddRolesToExternalUser(context.Background(), uuid.New(), nil)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	require.NoError(t, svc.AddRolesToExternalUser(context.Background(), uuid.New(), []string{"A", "B"}))
	assert.Equal(t, []string{"A", "B"}, registry.addedToUser)
}
