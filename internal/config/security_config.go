package config

type SecurityLevel int

const (
	SecurityPublic  SecurityLevel = iota // No authentication
	SecurityAccess                       // Any valid access token; ownership checked by the handler
	SecurityFinance                      // Access token with the finance role
	SecuritySystem                       // Service token (booking platform, payment gateway)
)

const (
	RoleFinance = "finance"
	RoleSystem  = "system"
)

// RouteSecurityConfig maps HTTP route names to their required security level
var RouteSecurityConfig = map[string]SecurityLevel{
	// Probes - Public
	"Healthz": SecurityPublic,
	"Metrics": SecurityPublic,

	// Wallets - Access Protected (owner or finance)
	"GetBalance":        SecurityAccess,
	"ListTransactions":  SecurityAccess,
	"RequestWithdrawal": SecurityAccess,

	// Refund quotes - Access Protected
	"CalculateRefund": SecurityAccess,

	// Finance back office
	"ApplyAdjustment":        SecurityFinance,
	"SetCreditLimit":         SecurityFinance,
	"ListPendingWithdrawals": SecurityFinance,
	"ResolveWithdrawal":      SecurityFinance,
	"GetRefund":              SecurityFinance,
	"ReconcileWallet":        SecurityFinance,

	// Platform integrations
	"RecordEarning": SecuritySystem,
	"CreateRefund":  SecuritySystem,
	"ProcessRefund": SecuritySystem,
}

// GetSecurityLevel returns the security level for a given route name
func GetSecurityLevel(route string) SecurityLevel {
	if level, exists := RouteSecurityConfig[route]; exists {
		return level
	}
	// Default to highest security for unknown routes
	return SecuritySystem
}

// Satisfies reports whether the given roles meet the level. Finance staff may
// also drive the system workflows by hand (for example refund callbacks that
// never arrived).
func (l SecurityLevel) Satisfies(roles []string) bool {
	has := func(want string) bool {
		for _, r := range roles {
			if r == want {
				return true
			}
		}
		return false
	}
	switch l {
	case SecurityPublic, SecurityAccess:
		return true
	case SecurityFinance:
		return has(RoleFinance)
	case SecuritySystem:
		return has(RoleSystem) || has(RoleFinance)
	}
	return false
}
