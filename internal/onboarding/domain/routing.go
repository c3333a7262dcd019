package domain

// 团队名称
const (
	TeamSales     = "Sales"
	TeamTechnical = "Technical"
	TeamAccounts  = "Accounts"
)

// TeamUnassignedKey 统计中未分派申请的桶名
const TeamUnassignedKey = "Unassigned"

// RouteTeam 根据申请属性决定负责团队，规则按序匹配，首个命中生效：
// 国际区域归 Sales，升级类申请归 Technical，大型企业归 Accounts，其余归 Sales。
func RouteTeam(r *OnboardingRequest) string {
	switch {
	case r.Region == RegionInternational:
		return TeamSales
	case r.RequestType == RequestTypeUpgrade:
		return TeamTechnical
	case r.CompanySize == CompanySizeEnterprise:
		return TeamAccounts
	default:
		return TeamSales
	}
}
