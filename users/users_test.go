package users_test

import (
	"testing"

	"github.com/jrsteele09/go-tenant-guard/users"
	"github.com/stretchr/testify/require"
)

func TestValidatePasswordStrength(t *testing.T) {
	tests := []struct {
		password string
		wantErr  bool
	}{
		{"Passw0rd", false},
		{"short1A", true},
		{"alllowercase1", true},
		{"ALLUPPERCASE1", true},
		{"NoNumbersHere", true},
	}
	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			err := users.ValidatePasswordStrength(tt.password)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := users.HashPassword("Passw0rd")
	require.NoError(t, err)
	require.NotEqual(t, "Passw0rd", hash)

	u := &users.User{PasswordHash: hash}
	require.True(t, u.CheckPassword("Passw0rd"))
	require.False(t, u.CheckPassword("passw0rd"))
}

func TestTenantMembership(t *testing.T) {
	u := &users.User{
		ID: "U1",
		Tenants: []users.TenantMembership{
			{TenantID: "T1", Roles: []string{users.RoleAgent}, Permissions: []string{"leads:read"}},
			{TenantID: "T2", Roles: []string{users.RoleAdmin}},
		},
	}

	require.True(t, u.HasTenant("T1"))
	require.False(t, u.HasTenant("T3"))
	require.False(t, u.HasTenant(""))
	require.True(t, u.HasTenantRole("T1", users.RoleAgent))
	require.False(t, u.HasTenantRole("T1", users.RoleAdmin))
	require.True(t, u.HasTenantRole("T2", users.RoleAdmin))
	require.Equal(t, []string{"leads:read"}, u.GetPermissionsForTenant("T1"))
	require.Nil(t, u.GetRolesForTenant("T3"))

	roles := u.GetRolesForTenant("T1")
	roles[0] = users.RoleAdmin
	require.False(t, u.HasTenantRole("T1", users.RoleAdmin))

	c := u.Clone()
	c.Tenants[0].Permissions[0] = "leads:write"
	require.Equal(t, []string{"leads:read"}, u.GetPermissionsForTenant("T1"))
}
