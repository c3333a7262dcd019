package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/clientonboarding/internal/onboarding/application"
	"github.com/wyfcoding/clientonboarding/internal/onboarding/domain"
)

type fakeTx struct{}

func (fakeTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// memoryRepos 内存仓储，实现三个仓储接口
type memoryRepos struct {
	mu          sync.Mutex
	requests    map[string]*domain.OnboardingRequest
	histories   []*domain.StatusHistory
	assignments []*domain.TeamAssignment
}

func newMemoryRepos() *memoryRepos {
	return &memoryRepos{requests: make(map[string]*domain.OnboardingRequest)}
}

func (s *memoryRepos) Save(ctx context.Context, r *domain.OnboardingRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *r
	s.requests[r.ID] = &copied
	return nil
}

func (s *memoryRepos) Update(ctx context.Context, r *domain.OnboardingRequest) error {
	return s.Save(ctx, r)
}

func (s *memoryRepos) Get(ctx context.Context, id string) (*domain.OnboardingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return nil, nil
	}
	copied := *r
	return &copied, nil
}

func (s *memoryRepos) List(ctx context.Context, filter domain.RequestFilter, limit, offset int) ([]*domain.OnboardingRequest, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []*domain.OnboardingRequest
	for _, r := range s.requests {
		if filter.Matches(r) {
			copied := *r
			matched = append(matched, &copied)
		}
	}
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

func (s *memoryRepos) Stats(ctx context.Context) (*domain.RequestStats, error) {
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

func (s *memoryRepos) Append(ctx context.Context, h *domain.StatusHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.histories = append(s.histories, h)
	return nil
}

func (s *memoryRepos) ListByRequest(ctx context.Context, requestID string) ([]*domain.StatusHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.StatusHistory
	for _, h := range s.histories {
		if h.RequestID == requestID {
			out = append(out, h)
		}
	}
	return out, nil
}

type assignmentRepo struct {
	repos *memoryRepos
}

func (s *assignmentRepo) Save(ctx context.Context, a *domain.TeamAssignment) error {
	s.repos.mu.Lock()
	defer s.repos.mu.Unlock()
	s.repos.assignments = append(s.repos.assignments, a)
	return nil
}

func (s *assignmentRepo) ListByRequest(ctx context.Context, requestID string) ([]*domain.TeamAssignment, error) {
	s.repos.mu.Lock()
	defer s.repos.mu.Unlock()
	var out []*domain.TeamAssignment
	for _, a := range s.repos.assignments {
		if a.RequestID == requestID {
			out = append(out, a)
		}
	}
	return out, nil
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	repos := newMemoryRepos()
	service := application.NewOnboardingService(fakeTx{}, repos, repos, &assignmentRepo{repos: repos}, nil, nil, 16)

	router := gin.New()
	NewOnboardingHandler(service, nil, 0).RegisterRoutes(router)
	return router
}

func doRequest(router *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestHealth(t *testing.T) {
	router := newTestRouter()
	w := doRequest(router, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateRequestReturns201(t *testing.T) {
	router := newTestRouter()

	w := doRequest(router, http.MethodPost, "/api/onboarding",
		`{"tradingName":"Acme","contactName":"Jo","contactEmail":"jo@acme.example","requestType":"New Installation"}`, nil)

	require.Equal(t, http.StatusCreated, w.Code)
	env := decodeEnvelope(t, w)
	assert.True(t, env.Success)

	var dto application.RequestDTO
	require.NoError(t, json.Unmarshal(env.Data, &dto))
	assert.Equal(t, string(domain.StatusNew), dto.Status)
	assert.Equal(t, 0, dto.CompletionPercentage)
	assert.Regexp(t, `^ONB-\d{8}-[A-Z0-9]{6}$`, dto.ReferenceNumber)
}

func TestCreateRequestValidation(t *testing.T) {
	router := newTestRouter()

	// 缺少必填字段
	w := doRequest(router, http.MethodPost, "/api/onboarding", `{"tradingName":"Acme"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, decodeEnvelope(t, w).Success)

	// 枚举外的值
	w = doRequest(router, http.MethodPost, "/api/onboarding",
		`{"tradingName":"Acme","contactName":"Jo","contactEmail":"jo@acme.example","region":"Central"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetRequestNotFound(t *testing.T) {
	router := newTestRouter()

	w := doRequest(router, http.MethodGet, "/api/onboarding/unknown-id", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, decodeEnvelope(t, w).Success)
}

func TestUpdateStatusFlow(t *testing.T) {
	router := newTestRouter()

	w := doRequest(router, http.MethodPost, "/api/onboarding",
		`{"tradingName":"Acme","contactName":"Jo","contactEmail":"jo@acme.example"}`, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var dto application.RequestDTO
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &dto))

	// 非法状态
	w = doRequest(router, http.MethodPatch, "/api/onboarding/"+dto.ID+"/status",
		`{"status":"Archived"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 合法流转，操作人取 X-User-ID
	w = doRequest(router, http.MethodPatch, "/api/onboarding/"+dto.ID+"/status",
		`{"status":"In Progress","notes":"kickoff"}`, map[string]string{"X-User-ID": "agent-7"})
	require.Equal(t, http.StatusOK, w.Code)

	var updated application.RequestDTO
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &updated))
	assert.Equal(t, string(domain.StatusInProgress), updated.Status)
	assert.Equal(t, 50, updated.CompletionPercentage)

	// 详情包含审计记录
	w = doRequest(router, http.MethodGet, "/api/onboarding/"+dto.ID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var detail application.RequestDetailDTO
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &detail))
	require.Len(t, detail.StatusHistory, 1)
	assert.Equal(t, "agent-7", detail.StatusHistory[0].ChangedBy)
	assert.Equal(t, string(domain.StatusNew), detail.StatusHistory[0].OldStatus)
	assert.Equal(t, string(domain.StatusInProgress), detail.StatusHistory[0].NewStatus)

	// 未知申请
	w = doRequest(router, http.MethodPatch, "/api/onboarding/unknown/status",
		`{"status":"Completed"}`, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateRequestFields(t *testing.T) {
	router := newTestRouter()

	w := doRequest(router, http.MethodPost, "/api/onboarding",
		`{"tradingName":"Old Name","contactName":"Jo","contactEmail":"jo@acme.example"}`, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var dto application.RequestDTO
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &dto))

	w = doRequest(router, http.MethodPut, "/api/onboarding/"+dto.ID,
		`{"tradingName":"New Name","companySize":"Large"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var updated application.RequestDTO
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &updated))
	assert.Equal(t, "New Name", updated.TradingName)
	assert.Equal(t, "Large", updated.CompanySize)
	assert.Equal(t, "jo@acme.example", updated.ContactEmail)
}

func TestListRequests(t *testing.T) {
	router := newTestRouter()

	for _, body := range []string{
		`{"tradingName":"Alpha Foods","contactName":"A","contactEmail":"a@example.com"}`,
		`{"tradingName":"Beta Metals","contactName":"B","contactEmail":"b@example.com"}`,
	} {
		w := doRequest(router, http.MethodPost, "/api/onboarding", body, nil)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := doRequest(router, http.MethodGet, "/api/onboarding?search=foods", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var result application.ListRequestsResult
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &result))
	assert.Len(t, result.Items, 1)
	assert.Equal(t, int64(1), result.Pagination.Total)
}

func TestStats(t *testing.T) {
	router := newTestRouter()

	w := doRequest(router, http.MethodPost, "/api/onboarding",
		`{"tradingName":"Acme","contactName":"Jo","contactEmail":"jo@acme.example"}`, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(router, http.MethodGet, "/api/onboarding/stats", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats application.StatsDTO
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &stats))
	assert.Equal(t, int64(1), stats.Total)
	assert.Equal(t, int64(1), stats.ByStatus[string(domain.StatusNew)])
	assert.Equal(t, int64(1), stats.ByTeam[domain.TeamUnassignedKey])
}
