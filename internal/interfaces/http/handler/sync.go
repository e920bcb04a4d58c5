package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	connectionapp "github.com/kossanah/woocommerce-fusion/internal/application/connection"
	integrationapp "github.com/kossanah/woocommerce-fusion/internal/application/integration"
	"github.com/kossanah/woocommerce-fusion/internal/domain/connection"
	"github.com/kossanah/woocommerce-fusion/internal/domain/integration"
	"github.com/kossanah/woocommerce-fusion/internal/infrastructure/scheduler"
	"github.com/kossanah/woocommerce-fusion/internal/interfaces/http/dto"
)

const defaultJobHistoryLimit = 50

// SyncHandler triggers outbound syncs and reports queued job history.
// With a scheduler the runs are queued and answered with 202; without one
// they run inline and the result is returned directly.
type SyncHandler struct {
	BaseHandler
	profiles  *connectionapp.ProfileService
	priceList *integrationapp.PriceListSyncService
	stock     *integrationapp.StockSyncService
	items     *integrationapp.ItemSyncService
	scheduler *scheduler.SyncScheduler
}

// NewSyncHandler creates a new SyncHandler. sched may be nil.
func NewSyncHandler(
	profiles *connectionapp.ProfileService,
	priceList *integrationapp.PriceListSyncService,
	stock *integrationapp.StockSyncService,
	items *integrationapp.ItemSyncService,
	sched *scheduler.SyncScheduler,
) *SyncHandler {
	return &SyncHandler{
		profiles:  profiles,
		priceList: priceList,
		stock:     stock,
		items:     items,
		scheduler: sched,
	}
}

// StockSyncRequest names the item whose stock is pushed
type StockSyncRequest struct {
	ItemCode string `json:"item_code" binding:"required,max=140"`
}

// JobHistoryQuery narrows the job history listing
type JobHistoryQuery struct {
	Kind  string `form:"kind"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=500"`
}

// SyncPriceList pushes the price list of one profile
func (h *SyncHandler) SyncPriceList(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	profileID, err := pathUUID(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid profile ID format")
		return
	}

	if !h.queueing() {
		result, err := h.priceList.Run(c.Request.Context(), tenantID, profileID)
		if err != nil {
			h.HandleDomainError(c, err)
			return
		}
		h.Success(c, result)
		return
	}

	// Refuse up front what the worker would reject permanently.
	policy, err := h.profiles.ResolvePolicy(c.Request.Context(), tenantID, profileID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	if !policy.IsEnabled(connection.SyncDomainPriceList) {
		h.HandleDomainError(c, integration.ErrSyncDomainDisabled)
		return
	}

	job, err := h.scheduler.SchedulePriceListSync(tenantID, profileID)
	if err != nil {
		h.queueError(c, err)
		return
	}
	h.Accepted(c, job)
}

// SyncStockItem pushes the stock of one item to every profile it is linked on
func (h *SyncHandler) SyncStockItem(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req StockSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	if !h.queueing() {
		result, err := h.stock.SyncItem(c.Request.Context(), tenantID, req.ItemCode)
		if err != nil {
			h.HandleDomainError(c, err)
			return
		}
		h.Success(c, result)
		return
	}

	job, err := h.scheduler.ScheduleStockSync(tenantID, req.ItemCode)
	if err != nil {
		h.queueError(c, err)
		return
	}
	h.Accepted(c, job)
}

// SyncProduct reconciles one storefront product of a profile with its ERP item
func (h *SyncHandler) SyncProduct(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	profileID, err := pathUUID(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid profile ID format")
		return
	}

	productID := strings.TrimSpace(c.Param("product_id"))
	if _, err := strconv.ParseInt(productID, 10, 64); err != nil {
		h.BadRequest(c, "Invalid product ID format")
		return
	}

	if !h.queueing() {
		outcome, err := h.items.SyncProduct(c.Request.Context(), tenantID, profileID, productID)
		if err != nil {
			h.HandleDomainError(c, err)
			return
		}
		h.Success(c, outcome)
		return
	}

	policy, err := h.profiles.ResolvePolicy(c.Request.Context(), tenantID, profileID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	if !policy.IsEnabled(connection.SyncDomainItems) {
		h.HandleDomainError(c, integration.ErrSyncDomainDisabled)
		return
	}

	job, err := h.scheduler.ScheduleProductSync(tenantID, profileID, productID)
	if err != nil {
		h.queueError(c, err)
		return
	}
	h.Accepted(c, job)
}

// ListJobs returns the most recent sync jobs of the tenant, newest first
func (h *SyncHandler) ListJobs(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var query JobHistoryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BindError(c, err)
		return
	}

	var kind scheduler.SyncJobKind
	if query.Kind != "" {
		kind, err = scheduler.ParseSyncJobKind(query.Kind)
		if err != nil {
			h.BadRequest(c, "Unknown sync job kind")
			return
		}
	}
	if query.Limit == 0 {
		query.Limit = defaultJobHistoryLimit
	}

	jobs := make([]*scheduler.SyncJob, 0)
	if h.scheduler != nil {
		for _, job := range h.scheduler.GetJobHistoryByTenant(tenantID, query.Limit) {
			if kind == "" || job.Kind == kind {
				jobs = append(jobs, job)
			}
		}
	}
	h.Success(c, jobs)
}

func (h *SyncHandler) queueing() bool {
	return h.scheduler != nil && h.scheduler.IsRunning()
}

func (h *SyncHandler) queueError(c *gin.Context, err error) {
	if errors.Is(err, scheduler.ErrJobQueueFull) {
		c.Header("Retry-After", "30")
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeRateLimited, "Sync queue is full")
		return
	}
	h.HandleDomainError(c, err)
}
