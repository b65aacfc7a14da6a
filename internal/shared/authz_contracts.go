package shared

// Roles known to the policy.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleSales   = "sales"
	RoleClient  = "client"
	RoleSystem  = "system"
)

// Contract and analytics permissions.
const (
	PermContractsView   = "contracts.view"
	PermContractsCreate = "contracts.create"
	PermContractsClose  = "contracts.close"
	PermContractsDelete = "contracts.delete"

	PermPeriodsCreate      = "periods.create"
	PermPeriodsUpdateGoal  = "periods.update_goal"
	PermPeriodsDelete      = "periods.delete"
	PermPeriodsRefreshPerf = "periods.refresh_performance"

	PermAnalyticsView = "analytics.view"
)

// ContractScopes lists all permissions related to contract management.
func ContractScopes() []string {
	return []string{
		PermContractsView,
		PermContractsCreate,
		PermContractsClose,
		PermContractsDelete,
		PermPeriodsCreate,
		PermPeriodsUpdateGoal,
		PermPeriodsDelete,
		PermPeriodsRefreshPerf,
		PermAnalyticsView,
	}
}
