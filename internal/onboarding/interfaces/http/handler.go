// Package http 提供入驻申请服务的 REST 接口
package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/clientonboarding/internal/onboarding/application"
	"github.com/wyfcoding/clientonboarding/internal/onboarding/domain"
	"github.com/wyfcoding/clientonboarding/pkg/cache"
	"github.com/wyfcoding/clientonboarding/pkg/logger"
)

// statsCacheKey 统计响应缓存键
const statsCacheKey = "onboarding:stats"

// OnboardingHandler HTTP 处理器
type OnboardingHandler struct {
	service *application.OnboardingService
	// 统计响应缓存，可为 nil（测试或禁用缓存时）
	statsCache *cache.RedisCache
	statsTTL   time.Duration
}

// NewOnboardingHandler 创建 HTTP 处理器
func NewOnboardingHandler(service *application.OnboardingService, statsCache *cache.RedisCache, statsTTL time.Duration) *OnboardingHandler {
	return &OnboardingHandler{
		service:    service,
		statsCache: statsCache,
		statsTTL:   statsTTL,
	}
}

// RegisterRoutes 注册路由
func (h *OnboardingHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.Health)

	api := router.Group("/api/onboarding")
	{
		api.POST("", h.CreateRequest)
		api.GET("", h.ListRequests)
		api.GET("/stats", h.Stats)
		api.GET("/:id", h.GetRequest)
		api.PUT("/:id", h.UpdateRequest)
		api.PATCH("/:id/status", h.UpdateStatus)
	}
}

// createRequestBody 创建申请请求体
type createRequestBody struct {
	TradingName    string `json:"tradingName" binding:"required"`
	ContactName    string `json:"contactName" binding:"required"`
	ContactEmail   string `json:"contactEmail" binding:"required,email"`
	ContactPhone   string `json:"contactPhone"`
	CompanyAddress string `json:"companyAddress"`
	Industry       string `json:"industry" binding:"omitempty,oneof=Manufacturing Retail Logistics Other"`
	CompanySize    string `json:"companySize" binding:"omitempty,oneof=Small Medium Large Enterprise"`
	RequestType    string `json:"requestType" binding:"omitempty,oneof='New Installation' Upgrade Migration"`
	Region         string `json:"region" binding:"omitempty,oneof=North South East West International"`
	Notes          string `json:"notes"`
}

// updateRequestBody 更新申请请求体，缺失字段保持原值
type updateRequestBody struct {
	TradingName    *string `json:"tradingName"`
	ContactName    *string `json:"contactName"`
	ContactEmail   *string `json:"contactEmail" binding:"omitempty,email"`
	ContactPhone   *string `json:"contactPhone"`
	CompanyAddress *string `json:"companyAddress"`
	Industry       *string `json:"industry" binding:"omitempty,oneof=Manufacturing Retail Logistics Other"`
	CompanySize    *string `json:"companySize" binding:"omitempty,oneof=Small Medium Large Enterprise"`
	RequestType    *string `json:"requestType" binding:"omitempty,oneof='New Installation' Upgrade Migration"`
	Region         *string `json:"region" binding:"omitempty,oneof=North South East West International"`
	Notes          *string `json:"notes"`
}

// updateStatusBody 状态流转请求体
type updateStatusBody struct {
	Status string `json:"status" binding:"required"`
	Notes  string `json:"notes"`
}

// Health 健康检查
func (h *OnboardingHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// CreateRequest 创建入驻申请
func (h *OnboardingHandler) CreateRequest(c *gin.Context) {
	var body createRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	dto, err := h.service.CreateRequest(c.Request.Context(), application.CreateRequestCommand{
		TradingName:    body.TradingName,
		ContactName:    body.ContactName,
		ContactEmail:   body.ContactEmail,
		ContactPhone:   body.ContactPhone,
		CompanyAddress: body.CompanyAddress,
		Industry:       domain.Industry(body.Industry),
		CompanySize:    domain.CompanySize(body.CompanySize),
		RequestType:    domain.RequestType(body.RequestType),
		Region:         domain.Region(body.Region),
		Notes:          body.Notes,
	})
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to create onboarding request", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to create onboarding request"})
		return
	}

	h.invalidateStatsCache(c)

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": dto})
}

// ListRequests 查询申请列表
func (h *OnboardingHandler) ListRequests(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	result, err := h.service.ListRequests(c.Request.Context(), application.ListRequestsQuery{
		Status:       c.Query("status"),
		AssignedTeam: c.Query("assignedTeam"),
		Search:       c.Query("search"),
		Page:         page,
		Limit:        limit,
	})
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to list onboarding requests", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to list onboarding requests"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": result})
}

// Stats 统计，响应短暂缓存在 Redis
func (h *OnboardingHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	if h.statsCache != nil {
		var cached application.StatsDTO
		if ok, err := h.statsCache.GetJSON(ctx, statsCacheKey, &cached); err == nil && ok {
			c.JSON(http.StatusOK, gin.H{"success": true, "data": &cached})
			return
		}
	}

	stats, err := h.service.Stats(ctx)
	if err != nil {
		logger.Error(ctx, "Failed to aggregate stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to aggregate stats"})
		return
	}

	if h.statsCache != nil {
		if err := h.statsCache.SetJSON(ctx, statsCacheKey, stats, h.statsTTL); err != nil {
			logger.Warn(ctx, "Failed to cache stats response", "error", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": stats})
}

// GetRequest 查询申请详情
func (h *OnboardingHandler) GetRequest(c *gin.Context) {
	id := c.Param("id")

	detail, err := h.service.GetRequest(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, application.ErrRequestNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Onboarding request not found"})
			return
		}
		logger.Error(c.Request.Context(), "Failed to get onboarding request", "request_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to get onboarding request"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": detail})
}

// UpdateRequest 更新申请资料
func (h *OnboardingHandler) UpdateRequest(c *gin.Context) {
	id := c.Param("id")

	var body updateRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	cmd := application.UpdateRequestCommand{
		TradingName:    body.TradingName,
		ContactName:    body.ContactName,
		ContactEmail:   body.ContactEmail,
		ContactPhone:   body.ContactPhone,
		CompanyAddress: body.CompanyAddress,
		Notes:          body.Notes,
	}
	if body.Industry != nil {
		industry := domain.Industry(*body.Industry)
		cmd.Industry = &industry
	}
	if body.CompanySize != nil {
		size := domain.CompanySize(*body.CompanySize)
		cmd.CompanySize = &size
	}
	if body.RequestType != nil {
		requestType := domain.RequestType(*body.RequestType)
		cmd.RequestType = &requestType
	}
	if body.Region != nil {
		region := domain.Region(*body.Region)
		cmd.Region = &region
	}

	dto, err := h.service.UpdateRequest(c.Request.Context(), id, cmd)
	if err != nil {
		if errors.Is(err, application.ErrRequestNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Onboarding request not found"})
			return
		}
		logger.Error(c.Request.Context(), "Failed to update onboarding request", "request_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to update onboarding request"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": dto})
}

// UpdateStatus 流转申请状态，操作人取 X-User-ID 请求头，缺省记为 system
func (h *OnboardingHandler) UpdateStatus(c *gin.Context) {
	id := c.Param("id")

	var body updateStatusBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	changedBy := c.GetHeader("X-User-ID")

	dto, err := h.service.UpdateStatus(c.Request.Context(), id, domain.RequestStatus(body.Status), changedBy, body.Notes)
	if err != nil {
		switch {
		case errors.Is(err, application.ErrInvalidStatus):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid status value"})
		case errors.Is(err, application.ErrRequestNotFound):
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Onboarding request not found"})
		default:
			logger.Error(c.Request.Context(), "Failed to update request status", "request_id", id, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to update request status"})
		}
		return
	}

	h.invalidateStatsCache(c)

	c.JSON(http.StatusOK, gin.H{"success": true, "data": dto})
}

// invalidateStatsCache 写操作后清除统计缓存
func (h *OnboardingHandler) invalidateStatsCache(c *gin.Context) {
	if h.statsCache == nil {
		return
	}
	if err := h.statsCache.Delete(c.Request.Context(), statsCacheKey); err != nil {
		logger.Warn(c.Request.Context(), "Failed to invalidate stats cache", "error", err)
	}
}
