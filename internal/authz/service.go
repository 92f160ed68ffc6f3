package authz

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/modaplex/internal/constants"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	"github.com/casbin/casbin/v3/util"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"
)

const (
	apiV1Prefix     = "/api/v1"
	casbinTableName = "casbin_rule"
	userSubjectFmt  = "user:%d"
	rolePrefix      = "role:"
	roleAnchor      = "role:__anchor__"
	anyUserType     = "*"
)

// 请求携带账号类型，策略可限定只对某类账号生效
const marketplaceModel = `
[request_definition]
r = sub, utype, obj, act

[policy_definition]
p = sub, utype, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = (g(r.sub, p.sub) || r.sub == p.sub) && (p.utype == "*" || r.utype == p.utype) && keyMatch2(r.obj, p.obj) && (r.act == p.act || p.act == "*")
`

var (
	ErrUnavailable     = errors.New("authz service unavailable")
	ErrRoleRequired    = errors.New("role is required")
	ErrRoleReserved    = errors.New("reserved role is not allowed")
	ErrActionRequired  = errors.New("action is required")
	ErrUserRequired    = errors.New("user id is required")
	ErrRolesNotAllowed = errors.New("extra roles are only assignable to staff accounts")
)

// 商家账号只能访问的后台资源前缀，handler 会按商家再过滤数据
var vendorScopedPrefixes = []string{
	"/admin/me",
	"/admin/orders",
	"/admin/commissions",
	"/admin/payouts",
	"/admin/reports",
	"/admin/brands",
	"/admin/products",
}

// 可以被授予附加角色的账号类型
var roleAssignableTypes = map[string]bool{
	constants.UserTypeStaff: true,
	constants.UserTypeAdmin: true,
}

// Policy 权限策略
type Policy struct {
	Subject  string `json:"subject"`
	UserType string `json:"user_type"`
	Object   string `json:"object"`
	Action   string `json:"action"`
}

// Principal 后台请求主体
type Principal struct {
	UserID   uint
	UserType string
	Role     string
}

// Service 后台授权服务
type Service struct {
	enforcer *casbin.SyncedEnforcer
}

// NewService 创建授权服务，策略存储在 casbin_rule 表
func NewService(db *gorm.DB) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("authz db is nil")
	}
	adapter, err := gormadapter.NewAdapterByDBUseTableName(db, "", casbinTableName)
	if err != nil {
		return nil, fmt.Errorf("create authz adapter failed: %w", err)
	}
	m, err := model.NewModelFromString(marketplaceModel)
	if err != nil {
		return nil, fmt.Errorf("load authz model failed: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("init authz enforcer failed: %w", err)
	}
	enforcer.AddFunction("keyMatch2", util.KeyMatch2Func)
	enforcer.EnableAutoSave(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("load authz policy failed: %w", err)
	}
	return &Service{enforcer: enforcer}, nil
}

func (s *Service) ready() error {
	if s == nil || s.enforcer == nil {
		return ErrUnavailable
	}
	return nil
}

// Authorize 判定后台请求是否放行。
// 顾客账号一律拒绝；商家账号只按内置 vendor 角色判定且限于商家资源；
// 员工与管理员按用户直连策略、附加角色与 Token 角色判定。
func (s *Service) Authorize(p Principal, obj, act string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	userType := strings.ToLower(strings.TrimSpace(p.UserType))
	object := NormalizeObject(obj)
	action := NormalizeAction(act)

	switch userType {
	case constants.UserTypeVendor:
		if !IsVendorScoped(object) {
			return false, nil
		}
		return s.enforcer.Enforce(rolePrefix+constants.UserTypeVendor, userType, object, action)
	case constants.UserTypeStaff, constants.UserTypeAdmin:
	default:
		return false, nil
	}

	if p.UserID != 0 {
		allowed, err := s.enforcer.Enforce(SubjectForUser(p.UserID), userType, object, action)
		if err != nil || allowed {
			return allowed, err
		}
	}
	if strings.TrimSpace(p.Role) == "" {
		return false, nil
	}
	role, err := NormalizeRole(p.Role)
	if err != nil || role == rolePrefix+constants.UserTypeVendor {
		return false, nil
	}
	return s.enforcer.Enforce(role, userType, object, action)
}

// IsVendorScoped 资源是否对商家账号开放
func IsVendorScoped(object string) bool {
	object = NormalizeObject(object)
	for _, prefix := range vendorScopedPrefixes {
		if object == prefix || strings.HasPrefix(object, prefix+"/") {
			return true
		}
	}
	return false
}

// EnsureRole 确保角色存在
func (s *Service) EnsureRole(role string) (string, error) {
	normalized, err := NormalizeRole(role)
	if err != nil {
		return "", err
	}
	if err := s.ready(); err != nil {
		return "", err
	}
	if normalized == roleAnchor {
		return "", ErrRoleReserved
	}
	if _, err := s.enforcer.AddNamedGroupingPolicy("g", normalized, roleAnchor); err != nil {
		return "", fmt.Errorf("create role failed: %w", err)
	}
	return normalized, nil
}

// ListRoles 列出全部角色
func (s *Service) ListRoles() ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rules, err := s.enforcer.GetFilteredNamedGroupingPolicy("g", 1, roleAnchor)
	if err != nil {
		return nil, fmt.Errorf("list roles failed: %w", err)
	}
	roles := make([]string, 0, len(rules))
	for _, rule := range rules {
		if len(rule) > 0 && strings.HasPrefix(rule[0], rolePrefix) {
			roles = append(roles, rule[0])
		}
	}
	sort.Strings(roles)
	return roles, nil
}

// DeleteRole 删除角色及其策略与用户关联，内置角色不可删除
func (s *Service) DeleteRole(role string) error {
	normalized, err := NormalizeRole(role)
	if err != nil {
		return err
	}
	if normalized == roleAnchor || isBuiltinRole(normalized) {
		return ErrRoleReserved
	}
	if err := s.ready(); err != nil {
		return err
	}
	if _, err := s.enforcer.RemoveFilteredPolicy(0, normalized); err != nil {
		return fmt.Errorf("remove role policy failed: %w", err)
	}
	if _, err := s.enforcer.RemoveFilteredNamedGroupingPolicy("g", 0, normalized); err != nil {
		return fmt.Errorf("remove role link failed: %w", err)
	}
	if _, err := s.enforcer.RemoveFilteredNamedGroupingPolicy("g", 1, normalized); err != nil {
		return fmt.Errorf("remove role members failed: %w", err)
	}
	return nil
}

// GrantRolePolicy 为自定义角色授予策略，对所有可持有该角色的账号类型生效
func (s *Service) GrantRolePolicy(role, object, action string) error {
	normalizedRole, err := s.EnsureRole(role)
	if err != nil {
		return err
	}
	act := NormalizeAction(action)
	if act == "" {
		return ErrActionRequired
	}
	if _, err := s.enforcer.AddPolicy(normalizedRole, anyUserType, NormalizeObject(object), act); err != nil {
		return fmt.Errorf("grant policy failed: %w", err)
	}
	return nil
}

// RevokeRolePolicy 撤销角色策略（不区分账号类型）
func (s *Service) RevokeRolePolicy(role, object, action string) error {
	normalizedRole, err := NormalizeRole(role)
	if err != nil {
		return err
	}
	act := NormalizeAction(action)
	if act == "" {
		return ErrActionRequired
	}
	if err := s.ready(); err != nil {
		return err
	}
	if _, err := s.enforcer.RemoveFilteredPolicy(0, normalizedRole, "", NormalizeObject(object), act); err != nil {
		return fmt.Errorf("revoke policy failed: %w", err)
	}
	return nil
}

// GetRolePolicies 查询角色策略
func (s *Service) GetRolePolicies(role string) ([]Policy, error) {
	normalizedRole, err := NormalizeRole(role)
	if err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	rules, err := s.enforcer.GetFilteredPolicy(0, normalizedRole)
	if err != nil {
		return nil, fmt.Errorf("get role policies failed: %w", err)
	}
	return convertPolicies(rules), nil
}

// SetUserRoles 覆盖员工账号的附加角色，商家与顾客账号不可持有附加角色
func (s *Service) SetUserRoles(userID uint, userType string, roles []string) error {
	if userID == 0 {
		return ErrUserRequired
	}
	if !roleAssignableTypes[strings.ToLower(strings.TrimSpace(userType))] {
		return ErrRolesNotAllowed
	}
	if err := s.ready(); err != nil {
		return err
	}
	normalized := make([]string, 0, len(roles))
	for _, role := range roles {
		r, err := NormalizeRole(role)
		if err != nil {
			return err
		}
		if r == rolePrefix+constants.UserTypeVendor {
			return ErrRoleReserved
		}
		normalized = append(normalized, r)
	}

	subject := SubjectForUser(userID)
	if _, err := s.enforcer.RemoveFilteredNamedGroupingPolicy("g", 0, subject); err != nil {
		return fmt.Errorf("clear user roles failed: %w", err)
	}
	for _, role := range normalized {
		if _, err := s.EnsureRole(role); err != nil {
			return err
		}
		if _, err := s.enforcer.AddNamedGroupingPolicy("g", subject, role); err != nil {
			return fmt.Errorf("assign user role failed: %w", err)
		}
	}
	return nil
}

// GetUserRoles 查询账号的附加角色
func (s *Service) GetUserRoles(userID uint) ([]string, error) {
	if userID == 0 {
		return nil, ErrUserRequired
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	roles, err := s.enforcer.GetRolesForUser(SubjectForUser(userID))
	if err != nil {
		return nil, fmt.Errorf("get user roles failed: %w", err)
	}
	filtered := make([]string, 0, len(roles))
	for _, role := range roles {
		if strings.HasPrefix(role, rolePrefix) && role != roleAnchor {
			filtered = append(filtered, role)
		}
	}
	sort.Strings(filtered)
	return filtered, nil
}

// GetUserPolicies 查询主体实际生效的策略，与 Authorize 的判定口径一致
func (s *Service) GetUserPolicies(p Principal) ([]Policy, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	userType := strings.ToLower(strings.TrimSpace(p.UserType))
	subjects := make([]string, 0, 4)
	switch userType {
	case constants.UserTypeVendor:
		subjects = append(subjects, rolePrefix+constants.UserTypeVendor)
	case constants.UserTypeStaff, constants.UserTypeAdmin:
		if p.UserID != 0 {
			subjects = append(subjects, SubjectForUser(p.UserID))
			roles, err := s.GetUserRoles(p.UserID)
			if err != nil {
				return nil, err
			}
			subjects = append(subjects, roles...)
		}
		if role, err := NormalizeRole(p.Role); err == nil && role != rolePrefix+constants.UserTypeVendor {
			subjects = append(subjects, role)
		}
	default:
		return []Policy{}, nil
	}

	seen := make(map[Policy]struct{})
	result := make([]Policy, 0)
	for _, subject := range subjects {
		rules, err := s.enforcer.GetFilteredPolicy(0, subject)
		if err != nil {
			return nil, fmt.Errorf("get policies failed: %w", err)
		}
		for _, policy := range convertPolicies(rules) {
			if policy.UserType != anyUserType && policy.UserType != userType {
				continue
			}
			if userType == constants.UserTypeVendor && !IsVendorScoped(policy.Object) {
				continue
			}
			if _, ok := seen[policy]; ok {
				continue
			}
			seen[policy] = struct{}{}
			result = append(result, policy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Subject != b.Subject {
			return a.Subject < b.Subject
		}
		if a.Object != b.Object {
			return a.Object < b.Object
		}
		return a.Action < b.Action
	})
	return result, nil
}

func convertPolicies(rules [][]string) []Policy {
	policies := make([]Policy, 0, len(rules))
	for _, rule := range rules {
		if len(rule) < 4 {
			continue
		}
		policies = append(policies, Policy{
			Subject:  strings.TrimSpace(rule[0]),
			UserType: strings.TrimSpace(rule[1]),
			Object:   NormalizeObject(rule[2]),
			Action:   NormalizeAction(rule[3]),
		})
	}
	return policies
}

// SubjectForUser 用户主体标识
func SubjectForUser(userID uint) string {
	return fmt.Sprintf(userSubjectFmt, userID)
}

// NormalizeRole 统一角色名称为 role:<name>
func NormalizeRole(role string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(role))
	if normalized == "" {
		return "", ErrRoleRequired
	}
	normalized = strings.ReplaceAll(normalized, " ", "_")
	if !strings.HasPrefix(normalized, rolePrefix) {
		normalized = rolePrefix + normalized
	}
	if len(normalized) <= len(rolePrefix) {
		return "", ErrRoleRequired
	}
	return normalized, nil
}

// NormalizeObject 统一资源路径，去掉 /api/v1 前缀
func NormalizeObject(object string) string {
	normalized := strings.TrimSpace(object)
	if normalized == "" {
		return "/"
	}
	if !strings.HasPrefix(normalized, "/") {
		normalized = "/" + normalized
	}
	if normalized == apiV1Prefix {
		return "/"
	}
	if strings.HasPrefix(normalized, apiV1Prefix+"/") {
		return strings.TrimPrefix(normalized, apiV1Prefix)
	}
	return normalized
}

// NormalizeAction 统一 HTTP 动作
func NormalizeAction(action string) string {
	return strings.ToUpper(strings.TrimSpace(action))
}
