package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRouteTeam(t *testing.T) {
	tests := []struct {
		name     string
		request  *OnboardingRequest
		expected string
	}{
		{
			name:     "international region goes to sales",
			request:  &OnboardingRequest{Region: RegionInternational},
			expected: TeamSales,
		},
		{
			name:     "upgrade goes to technical",
			request:  &OnboardingRequest{RequestType: RequestTypeUpgrade, Region: RegionNorth},
			expected: TeamTechnical,
		},
		{
			name:     "enterprise goes to accounts",
			request:  &OnboardingRequest{CompanySize: CompanySizeEnterprise, Region: RegionSouth},
			expected: TeamAccounts,
		},
		{
			name:     "default goes to sales",
			request:  &OnboardingRequest{Region: RegionWest, CompanySize: CompanySizeSmall},
			expected: TeamSales,
		},
		{
			name:     "international wins over upgrade",
			request:  &OnboardingRequest{Region: RegionInternational, RequestType: RequestTypeUpgrade},
			expected: TeamSales,
		},
		{
			name:     "upgrade wins over enterprise",
			request:  &OnboardingRequest{RequestType: RequestTypeUpgrade, CompanySize: CompanySizeEnterprise},
			expected: TeamTechnical,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, RouteTeam(tt.request))
		})
	}
}

func TestRequestFilterMatches(t *testing.T) {
	r := &OnboardingRequest{
		ReferenceNumber: "ONB-20260831-XK91QP",
		TradingName:     "Acme Foods",
		ContactName:     "Jo Smith",
		ContactEmail:    "jo@acme.example",
		Status:          StatusUnderReview,
		AssignedTeam:    TeamSales,
	}

	assert.True(t, RequestFilter{}.Matches(r))
	assert.True(t, RequestFilter{Status: StatusUnderReview}.Matches(r))
	assert.False(t, RequestFilter{Status: StatusNew}.Matches(r))
	assert.True(t, RequestFilter{AssignedTeam: TeamSales}.Matches(r))
	assert.False(t, RequestFilter{AssignedTeam: TeamAccounts}.Matches(r))

	// 搜索大小写不敏感，命中任一字段即可
	assert.True(t, RequestFilter{Search: "ACME"}.Matches(r))
	assert.True(t, RequestFilter{Search: "smith"}.Matches(r))
	assert.True(t, RequestFilter{Search: "xk91qp"}.Matches(r))
	assert.False(t, RequestFilter{Search: "widgets"}.Matches(r))
}
