package authz

import (
	"fmt"

	"github.com/nairamart-next/internal/logger"
)

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role      string
	Inherits  []string
	Policies  []Policy
	Immutable bool
}

// BuiltinRoleSeeds 系统预置角色矩阵
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: "readonly_auditor",
			Policies: []Policy{
				{Object: "/admin/*", Action: "GET"},
			},
			Immutable: true,
		},
		{
			Role:     "support",
			Inherits: []string{"readonly_auditor"},
			Policies: []Policy{
				{Object: "/admin/orders", Action: "GET"},
				{Object: "/admin/orders/:id", Action: "GET"},
				{Object: "/admin/orders/:id", Action: "PATCH"},
				{Object: "/admin/topups", Action: "GET"},
				{Object: "/admin/topups/:id", Action: "GET"},
				{Object: "/admin/topups/:id/processing", Action: "POST"},
				{Object: "/admin/topups/:id/complete", Action: "POST"},
				{Object: "/admin/topups/:id/fail", Action: "POST"},
				{Object: "/admin/users", Action: "GET"},
				{Object: "/admin/users/:id", Action: "GET"},
			},
			Immutable: true,
		},
		{
			Role:     "finance",
			Inherits: []string{"readonly_auditor"},
			Policies: []Policy{
				{Object: "/admin/payment-references", Action: "GET"},
				{Object: "/admin/reconcile-alerts", Action: "GET"},
				{Object: "/admin/reconcile-alerts/:id/resolve", Action: "POST"},
				{Object: "/admin/wallet/manual-credit", Action: "POST"},
				{Object: "/admin/wallet/manual-debit", Action: "POST"},
				{Object: "/admin/orders", Action: "GET"},
				{Object: "/admin/orders/:id", Action: "GET"},
			},
			Immutable: true,
		},
	}
}

// BootstrapBuiltinRoles 启动时落预置角色，幂等，重复执行不产生重复规则
func (s *Service) BootstrapBuiltinRoles() error {
	if err := s.ready(); err != nil {
		return err
	}

	changed := false
	for _, seed := range BuiltinRoleSeeds() {
		seeded, err := s.seedRole(seed)
		if err != nil {
			return err
		}
		changed = changed || seeded
	}

	if changed {
		logger.Infow("authz_builtin_roles_seeded")
	}
	return nil
}

func (s *Service) seedRole(seed RoleSeed) (bool, error) {
	role, err := NormalizeRole(seed.Role)
	if err != nil {
		return false, err
	}
	changed := false

	exists, err := s.enforcer.HasNamedGroupingPolicy("g", role, roleAnchor)
	if err != nil {
		return false, fmt.Errorf("check builtin role failed: %w", err)
	}
	if !exists {
		added, err := s.enforcer.AddNamedGroupingPolicy("g", role, roleAnchor)
		if err != nil {
			return false, fmt.Errorf("create builtin role failed: %w", err)
		}
		changed = changed || added
	}

	for _, parent := range seed.Inherits {
		parentRole, err := NormalizeRole(parent)
		if err != nil {
			return false, err
		}
		added, err := s.enforcer.AddNamedGroupingPolicy("g", role, parentRole)
		if err != nil {
			return false, fmt.Errorf("link role inheritance failed: %w", err)
		}
		changed = changed || added
	}

	for _, policy := range seed.Policies {
		action := NormalizeAction(policy.Action)
		if action == "" {
			return false, fmt.Errorf("builtin policy action is required")
		}
		added, err := s.enforcer.AddPolicy(role, NormalizeObject(policy.Object), action)
		if err != nil {
			return false, fmt.Errorf("add builtin policy failed: %w", err)
		}
		changed = changed || added
	}

	return changed, nil
}
