package authz

import (
	"fmt"

	"github.com/modaplex/internal/constants"
)

// RoleSeed 预置角色，UserType 为策略生效的账号类型
type RoleSeed struct {
	Role     string
	UserType string
	Policies []Policy
}

// BuiltinRoleSeeds 系统预置角色矩阵
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role:     "admin",
			UserType: constants.UserTypeAdmin,
			Policies: []Policy{
				{Object: "/admin/*", Action: "*"},
			},
		},
		{
			Role:     "support",
			UserType: constants.UserTypeStaff,
			Policies: []Policy{
				{Object: "/admin/me", Action: "GET"},
				{Object: "/admin/orders", Action: "GET"},
				{Object: "/admin/orders/:id", Action: "GET"},
				{Object: "/admin/orders/:id/history", Action: "GET"},
				{Object: "/admin/orders/:id/payments", Action: "GET"},
				{Object: "/admin/orders/:id/status", Action: "PATCH"},
				{Object: "/admin/orders/:id/items/:item_id/status", Action: "PATCH"},
				{Object: "/admin/orders/:id/items/:item_id/quantity", Action: "PATCH"},
				{Object: "/admin/orders/:id/discount", Action: "PUT"},
				{Object: "/admin/orders/:id/recompute", Action: "POST"},
				{Object: "/admin/orders/:id/reconcile", Action: "POST"},
				{Object: "/admin/payments/webhooks/:transaction_id", Action: "GET"},
				{Object: "/admin/vendors", Action: "GET"},
				{Object: "/admin/vendors/:id", Action: "GET"},
				{Object: "/admin/products", Action: "GET"},
				{Object: "/admin/products/:id", Action: "GET"},
			},
		},
		{
			Role:     "finance",
			UserType: constants.UserTypeStaff,
			Policies: []Policy{
				{Object: "/admin/me", Action: "GET"},
				{Object: "/admin/orders", Action: "GET"},
				{Object: "/admin/orders/:id", Action: "GET"},
				{Object: "/admin/orders/:id/payments", Action: "GET"},
				{Object: "/admin/orders/:id/reconcile", Action: "POST"},
				{Object: "/admin/commissions", Action: "GET"},
				{Object: "/admin/commissions/summary", Action: "GET"},
				{Object: "/admin/commissions/approve", Action: "POST"},
				{Object: "/admin/payouts", Action: "*"},
				{Object: "/admin/payouts/:id", Action: "GET"},
				{Object: "/admin/payouts/:id/:action", Action: "POST"},
				{Object: "/admin/reports", Action: "GET"},
				{Object: "/admin/reports/generate", Action: "POST"},
				{Object: "/admin/vendors", Action: "GET"},
				{Object: "/admin/vendors/:id", Action: "GET"},
			},
		},
		{
			Role:     "vendor",
			UserType: constants.UserTypeVendor,
			Policies: []Policy{
				{Object: "/admin/me", Action: "GET"},
				{Object: "/admin/orders", Action: "GET"},
				{Object: "/admin/orders/:id", Action: "GET"},
				{Object: "/admin/orders/:id/history", Action: "GET"},
				{Object: "/admin/orders/:id/items/:item_id/status", Action: "PATCH"},
				{Object: "/admin/commissions", Action: "GET"},
				{Object: "/admin/commissions/summary", Action: "GET"},
				{Object: "/admin/payouts", Action: "GET"},
				{Object: "/admin/payouts/:id", Action: "GET"},
				{Object: "/admin/reports", Action: "GET"},
				{Object: "/admin/brands", Action: "*"},
				{Object: "/admin/brands/:id", Action: "*"},
				{Object: "/admin/products", Action: "*"},
				{Object: "/admin/products/:id", Action: "*"},
			},
		},
	}
}

func isBuiltinRole(role string) bool {
	for _, seed := range BuiltinRoleSeeds() {
		if rolePrefix+seed.Role == role {
			return true
		}
	}
	return false
}

// BootstrapBuiltinRoles 写入预置角色与策略，已存在的条目跳过
func (s *Service) BootstrapBuiltinRoles() error {
	if err := s.ready(); err != nil {
		return err
	}
	for _, seed := range BuiltinRoleSeeds() {
		role, err := s.EnsureRole(seed.Role)
		if err != nil {
			return err
		}
		for _, policy := range seed.Policies {
			action := NormalizeAction(policy.Action)
			if action == "" {
				return fmt.Errorf("builtin policy action is required: %s", seed.Role)
			}
			if _, err := s.enforcer.AddPolicy(role, seed.UserType, NormalizeObject(policy.Object), action); err != nil {
				return fmt.Errorf("add builtin policy failed: %w", err)
			}
		}
	}
	return nil
}
