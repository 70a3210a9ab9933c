package authz

import (
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	svc, err := NewService(db)
	if err != nil {
		t.Fatalf("new authz service: %v", err)
	}
	return svc
}

func mustEnforce(t *testing.T, svc *Service, adminID uint, obj, act string) bool {
	t.Helper()
	allow, err := svc.EnforceAdmin(adminID, obj, act)
	if err != nil {
		t.Fatalf("enforce %s %s: %v", act, obj, err)
	}
	return allow
}

func TestEnforceAdminWithRolePolicy(t *testing.T) {
	svc := newTestService(t)
	if err := svc.GrantRolePolicy("ops", "/admin/topups/:id", "GET"); err != nil {
		t.Fatalf("grant role policy: %v", err)
	}
	if err := svc.SetAdminRoles(1, []string{"ops"}); err != nil {
		t.Fatalf("set admin roles: %v", err)
	}

	// /api/v1 前缀和动作大小写都要归一后命中
	if !mustEnforce(t, svc, 1, "/api/v1/admin/topups/42", "get") {
		t.Fatalf("ops role should read topup detail")
	}
	if mustEnforce(t, svc, 1, "/api/v1/admin/topups/42", "POST") {
		t.Fatalf("ops role must not write topups")
	}
}

func TestSetAdminRolesOverride(t *testing.T) {
	svc := newTestService(t)
	if err := svc.GrantRolePolicy("ops", "/admin/orders", "GET"); err != nil {
		t.Fatalf("grant ops policy: %v", err)
	}
	if err := svc.GrantRolePolicy("finance", "/admin/payment-references", "GET"); err != nil {
		t.Fatalf("grant finance policy: %v", err)
	}

	if err := svc.SetAdminRoles(2, []string{"ops"}); err != nil {
		t.Fatalf("set first role: %v", err)
	}
	roles, err := svc.GetAdminRoles(2)
	if err != nil {
		t.Fatalf("get roles: %v", err)
	}
	if len(roles) != 1 || roles[0] != "role:ops" {
		t.Fatalf("roles after first assign: %v", roles)
	}

	// SetAdminRoles 是覆盖语义，旧角色绑定必须被清掉
	if err := svc.SetAdminRoles(2, []string{"finance"}); err != nil {
		t.Fatalf("set second role: %v", err)
	}
	roles, err = svc.GetAdminRoles(2)
	if err != nil {
		t.Fatalf("get roles: %v", err)
	}
	if len(roles) != 1 || roles[0] != "role:finance" {
		t.Fatalf("roles after override: %v", roles)
	}

	if mustEnforce(t, svc, 2, "/admin/orders", "GET") {
		t.Fatalf("old role permission should be gone")
	}
	if !mustEnforce(t, svc, 2, "/admin/payment-references", "GET") {
		t.Fatalf("new role permission should apply")
	}
}

func TestNormalizeObject(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "/api/v1/admin/orders/:id", want: "/admin/orders/:id"},
		{in: "/admin/orders/:id", want: "/admin/orders/:id"},
		{in: "admin/orders", want: "/admin/orders"},
		{in: "/api/v1", want: "/"},
		{in: "", want: "/"},
	}
	for _, tc := range cases {
		if got := NormalizeObject(tc.in); got != tc.want {
			t.Fatalf("NormalizeObject(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestBootstrapBuiltinRoles(t *testing.T) {
	svc := newTestService(t)
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap builtin roles: %v", err)
	}

	roles, err := svc.ListRoles()
	if err != nil {
		t.Fatalf("list roles: %v", err)
	}
	missing := map[string]bool{
		"role:readonly_auditor": true,
		"role:support":          true,
		"role:finance":          true,
	}
	for _, role := range roles {
		delete(missing, role)
	}
	if len(missing) != 0 {
		t.Fatalf("builtin roles missing: %v", missing)
	}

	if err := svc.SetAdminRoles(3, []string{"support"}); err != nil {
		t.Fatalf("set admin roles: %v", err)
	}

	// support 继承 readonly_auditor，对账台账可读
	if !mustEnforce(t, svc, 3, "/admin/payment-references", "GET") {
		t.Fatalf("support should inherit readonly access")
	}
	// 但资金操作不在 support 的权限面里
	if mustEnforce(t, svc, 3, "/admin/wallet/manual-credit", "POST") {
		t.Fatalf("support must not touch manual credit")
	}
}
