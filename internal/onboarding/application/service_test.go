package application

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/clientonboarding/internal/onboarding/domain"
)

// fakeTx 直接执行，不提供真实事务语义
type fakeTx struct{}

func (fakeTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// memoryStore 内存仓储，同时实现申请、流转记录与分派记录三个接口
type memoryStore struct {
	mu          sync.Mutex
	requests    map[string]*domain.OnboardingRequest
	histories   []*domain.StatusHistory
	assignments []*domain.TeamAssignment
}

func newMemoryStore() *memoryStore {
	return &memoryStore{requests: make(map[string]*domain.OnboardingRequest)}
}

func (s *memoryStore) Save(ctx context.Context, r *domain.OnboardingRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *r
	s.requests[r.ID] = &copied
	return nil
}

func (s *memoryStore) Update(ctx context.Context, r *domain.OnboardingRequest) error {
	return s.Save(ctx, r)
}

func (s *memoryStore) Get(ctx context.Context, id string) (*domain.OnboardingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return nil, nil
	}
	copied := *r
	return &copied, nil
}

func (s *memoryStore) List(ctx context.Context, filter domain.RequestFilter, limit, offset int) ([]*domain.OnboardingRequest, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*domain.OnboardingRequest
	for _, r := range s.requests {
		if filter.Matches(r) {
			copied := *r
			matched = append(matched, &copied)
		}
	}
	// 创建时间倒序，相同时刻按 ID 定序保证分页稳定
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	total := int64(len(matched))
	if offset >= len(matched) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (s *memoryStore) Stats(ctx context.Context) (*domain.RequestStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := &domain.RequestStats{
		ByStatus: make(map[domain.RequestStatus]int64),
		ByTeam:   make(map[string]int64),
	}
	for _, r := range s.requests {
		stats.Total++
		stats.ByStatus[r.Status]++
		if r.AssignedTeam == "" {
			stats.ByTeam[domain.TeamUnassignedKey]++
		} else {
			stats.ByTeam[r.AssignedTeam]++
		}
	}
	return stats, nil
}

func (s *memoryStore) Append(ctx context.Context, h *domain.StatusHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.histories = append(s.histories, h)
	return nil
}

func (s *memoryStore) ListByRequest(ctx context.Context, requestID string) ([]*domain.StatusHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.StatusHistory
	for _, h := range s.histories {
		if h.RequestID == requestID {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChangedAt.After(out[j].ChangedAt) })
	return out, nil
}

// assignmentStore 分派记录内存仓储
type assignmentStore struct {
	store *memoryStore
}

func (s *assignmentStore) Save(ctx context.Context, a *domain.TeamAssignment) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	s.store.assignments = append(s.store.assignments, a)
	return nil
}

func (s *assignmentStore) ListByRequest(ctx context.Context, requestID string) ([]*domain.TeamAssignment, error) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	var out []*domain.TeamAssignment
	for _, a := range s.store.assignments {
		if a.RequestID == requestID {
			out = append(out, a)
		}
	}
	return out, nil
}

func newTestService() (*OnboardingService, *memoryStore) {
	store := newMemoryStore()
	svc := NewOnboardingService(fakeTx{}, store, store, &assignmentStore{store: store}, nil, nil, 16)
	return svc, store
}

func TestCreateRequestStartsAsNew(t *testing.T) {
	svc, _ := newTestService()

	dto, err := svc.CreateRequest(context.Background(), CreateRequestCommand{
		TradingName:  "Acme Trading",
		ContactName:  "Jo Smith",
		ContactEmail: "jo@acme.example",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, dto.ID)
	assert.Regexp(t, `^ONB-\d{8}-[A-Z0-9]{6}$`, dto.ReferenceNumber)
	assert.Equal(t, string(domain.StatusNew), dto.Status)
	assert.Equal(t, 0, dto.CompletionPercentage)
	assert.Empty(t, dto.AssignedTeam)
}

func TestRoutingAssignsTeamAndRecordsAudit(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	dto, err := svc.CreateRequest(ctx, CreateRequestCommand{
		TradingName:  "Global Ltd",
		ContactName:  "Ana",
		ContactEmail: "ana@global.example",
		Region:       domain.RegionInternational,
	})
	require.NoError(t, err)

	require.NoError(t, svc.routeRequest(ctx, dto.ID))

	routed, err := store.Get(ctx, dto.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TeamSales, routed.AssignedTeam)
	assert.Equal(t, domain.StatusUnderReview, routed.Status)
	assert.Equal(t, 25, routed.CompletionPercentage)

	histories, err := store.ListByRequest(ctx, dto.ID)
	require.NoError(t, err)
	require.Len(t, histories, 1)
	assert.Equal(t, domain.StatusNew, histories[0].OldStatus)
	assert.Equal(t, domain.StatusUnderReview, histories[0].NewStatus)
	assert.Equal(t, domain.SystemActor, histories[0].ChangedBy)

	assignments, err := (&assignmentStore{store: store}).ListByRequest(ctx, dto.ID)
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, domain.TeamSales, assignments[0].TeamName)
	assert.Equal(t, domain.AssignmentStatusPending, assignments[0].Status)
}

func TestRoutingUpgradeGoesToTechnical(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	dto, err := svc.CreateRequest(ctx, CreateRequestCommand{
		TradingName:  "North Upgrades",
		ContactName:  "Kim",
		ContactEmail: "kim@north.example",
		RequestType:  domain.RequestTypeUpgrade,
		Region:       domain.RegionNorth,
		CompanySize:  domain.CompanySizeSmall,
	})
	require.NoError(t, err)

	require.NoError(t, svc.routeRequest(ctx, dto.ID))

	routed, err := store.Get(ctx, dto.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TeamTechnical, routed.AssignedTeam)
}

func TestRoutingSkipsAssignedRequest(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	dto, err := svc.CreateRequest(ctx, CreateRequestCommand{
		TradingName:  "Assigned Co",
		ContactName:  "Lee",
		ContactEmail: "lee@assigned.example",
	})
	require.NoError(t, err)

	request, err := store.Get(ctx, dto.ID)
	require.NoError(t, err)
	request.AssignedTeam = domain.TeamAccounts
	require.NoError(t, store.Update(ctx, request))

	require.NoError(t, svc.routeRequest(ctx, dto.ID))

	after, err := store.Get(ctx, dto.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TeamAccounts, after.AssignedTeam)
	assert.Equal(t, domain.StatusNew, after.Status)

	histories, err := store.ListByRequest(ctx, dto.ID)
	require.NoError(t, err)
	assert.Empty(t, histories)
}

func TestRoutingSkipsMissingRequest(t *testing.T) {
	svc, _ := newTestService()

	assert.NoError(t, svc.routeRequest(context.Background(), "no-such-id"))
}

func TestUpdateStatusRecordsActorAndAudit(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	dto, err := svc.CreateRequest(ctx, CreateRequestCommand{
		TradingName:  "Hold Co",
		ContactName:  "Pat",
		ContactEmail: "pat@hold.example",
	})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, dto.ID, domain.StatusInProgress, "agent-7", "")
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(ctx, dto.ID, domain.StatusOnHold, "agent-7", "waiting on documents")
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusOnHold), updated.Status)
	assert.Equal(t, 25, updated.CompletionPercentage)

	histories, err := store.ListByRequest(ctx, dto.ID)
	require.NoError(t, err)
	require.Len(t, histories, 2)
	assert.Equal(t, "agent-7", histories[0].ChangedBy)
	assert.Equal(t, domain.StatusInProgress, histories[0].OldStatus)
	assert.Equal(t, domain.StatusOnHold, histories[0].NewStatus)
	assert.Equal(t, "waiting on documents", histories[0].Notes)
}

func TestUpdateStatusDefaultsActorToSystem(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	dto, err := svc.CreateRequest(ctx, CreateRequestCommand{
		TradingName:  "Sys Co",
		ContactName:  "Sam",
		ContactEmail: "sam@sys.example",
	})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, dto.ID, domain.StatusCompleted, "", "")
	require.NoError(t, err)

	histories, err := store.ListByRequest(ctx, dto.ID)
	require.NoError(t, err)
	require.Len(t, histories, 1)
	assert.Equal(t, domain.SystemActor, histories[0].ChangedBy)
}

func TestUpdateStatusRejectsInvalidStatus(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.UpdateStatus(context.Background(), "any", domain.RequestStatus("Archived"), "", "")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestUpdateStatusUnknownRequest(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.UpdateStatus(context.Background(), "missing", domain.StatusCompleted, "", "")
	assert.ErrorIs(t, err, ErrRequestNotFound)
}

func TestGetRequestNotFound(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.GetRequest(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRequestNotFound)
}

func TestGetRequestIncludesHistoryAndAssignments(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	dto, err := svc.CreateRequest(ctx, CreateRequestCommand{
		TradingName:  "Detail Co",
		ContactName:  "Dana",
		ContactEmail: "dana@detail.example",
		CompanySize:  domain.CompanySizeEnterprise,
	})
	require.NoError(t, err)

	require.NoError(t, svc.routeRequest(ctx, dto.ID))

	detail, err := svc.GetRequest(ctx, dto.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TeamAccounts, detail.AssignedTeam)
	require.Len(t, detail.StatusHistory, 1)
	require.Len(t, detail.TeamAssignments, 1)
	assert.Equal(t, domain.TeamAccounts, detail.TeamAssignments[0].TeamName)
}

func TestUpdateRequestPartialFields(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	dto, err := svc.CreateRequest(ctx, CreateRequestCommand{
		TradingName:  "Old Name",
		ContactName:  "Casey",
		ContactEmail: "casey@old.example",
		Notes:        "original",
	})
	require.NoError(t, err)

	newName := "New Name"
	updated, err := svc.UpdateRequest(ctx, dto.ID, UpdateRequestCommand{TradingName: &newName})
	require.NoError(t, err)

	assert.Equal(t, "New Name", updated.TradingName)
	assert.Equal(t, "casey@old.example", updated.ContactEmail)
	assert.Equal(t, "original", updated.Notes)
	assert.Equal(t, string(domain.StatusNew), updated.Status)
	assert.Equal(t, dto.ReferenceNumber, updated.ReferenceNumber)
}

func TestListRequestsFiltersAndPaginates(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	for _, name := range []string{"Alpha Foods", "Beta Metals", "Gamma Foods"} {
		_, err := svc.CreateRequest(ctx, CreateRequestCommand{
			TradingName:  name,
			ContactName:  "Contact",
			ContactEmail: "contact@example.com",
		})
		require.NoError(t, err)
	}

	result, err := svc.ListRequests(ctx, ListRequestsQuery{Search: "foods", Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, result.Items, 2)
	assert.Equal(t, int64(2), result.Pagination.Total)

	// 非法分页参数被纠正
	result, err = svc.ListRequests(ctx, ListRequestsQuery{Page: -1, Limit: 0})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Pagination.Page)
	assert.Equal(t, 20, result.Pagination.PageSize)
	assert.Equal(t, int64(3), result.Pagination.Total)
}

func TestListRequestsWalksAllPages(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	names := []string{"Alpha", "Beta", "Gamma", "Delta", "Epsilon"}
	for _, name := range names {
		_, err := svc.CreateRequest(ctx, CreateRequestCommand{
			TradingName:  name,
			ContactName:  "Contact",
			ContactEmail: "contact@example.com",
		})
		require.NoError(t, err)
	}

	// 5 条记录、每页 2 条应有 3 页，且各页不重不漏
	seen := make(map[string]bool)
	for page := 1; page <= 3; page++ {
		result, err := svc.ListRequests(ctx, ListRequestsQuery{Page: page, Limit: 2})
		require.NoError(t, err)

		assert.Equal(t, int64(5), result.Pagination.Total)
		assert.Equal(t, int64(3), result.Pagination.Pages)
		assert.LessOrEqual(t, len(result.Items), 2)
		if page < 3 {
			assert.Len(t, result.Items, 2)
		} else {
			assert.Len(t, result.Items, 1)
		}

		for _, item := range result.Items {
			assert.False(t, seen[item.ID], "request %s returned on more than one page", item.ID)
			seen[item.ID] = true
		}
	}
	assert.Len(t, seen, 5)

	// 越过末页返回空页，总数不变
	result, err := svc.ListRequests(ctx, ListRequestsQuery{Page: 4, Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, result.Items)
	assert.Equal(t, int64(5), result.Pagination.Total)
}

func TestStatsCountsStatusAndTeams(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	a, err := svc.CreateRequest(ctx, CreateRequestCommand{
		TradingName: "A", ContactName: "A", ContactEmail: "a@example.com",
		Region: domain.RegionInternational,
	})
	require.NoError(t, err)
	_, err = svc.CreateRequest(ctx, CreateRequestCommand{
		TradingName: "B", ContactName: "B", ContactEmail: "b@example.com",
	})
	require.NoError(t, err)

	require.NoError(t, svc.routeRequest(ctx, a.ID))

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.ByStatus[string(domain.StatusNew)])
	assert.Equal(t, int64(1), stats.ByStatus[string(domain.StatusUnderReview)])
	assert.Equal(t, int64(1), stats.ByTeam[domain.TeamSales])
	assert.Equal(t, int64(1), stats.ByTeam[domain.TeamUnassignedKey])
}

func TestCreateRequestEnqueuesRouting(t *testing.T) {
	svc, _ := newTestService()

	dto, err := svc.CreateRequest(context.Background(), CreateRequestCommand{
		TradingName:  "Queue Co",
		ContactName:  "Quinn",
		ContactEmail: "quinn@queue.example",
	})
	require.NoError(t, err)

	select {
	case id := <-svc.routingQueue:
		assert.Equal(t, dto.ID, id)
	default:
		t.Fatal("expected request id on routing queue")
	}
}

func TestRoutingWorkerProcessesQueue(t *testing.T) {
	svc, store := newTestService()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dto, err := svc.CreateRequest(ctx, CreateRequestCommand{
		TradingName:  "Worker Co",
		ContactName:  "Wren",
		ContactEmail: "wren@worker.example",
		CompanySize:  domain.CompanySizeEnterprise,
	})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		NewRoutingWorker(svc).Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		r, err := store.Get(context.Background(), dto.ID)
		return err == nil && r != nil && r.AssignedTeam == domain.TeamAccounts
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
