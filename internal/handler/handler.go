// Package handler exposes the local data layer to the UI process over HTTP.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jacksonmacedok2-maker/Venda-flow/internal/domain"
	"github.com/jacksonmacedok2-maker/Venda-flow/internal/membership"
	"github.com/jacksonmacedok2-maker/Venda-flow/internal/queue"
	"github.com/jacksonmacedok2-maker/Venda-flow/internal/remote"
	"github.com/jacksonmacedok2-maker/Venda-flow/internal/service"
	"github.com/jacksonmacedok2-maker/Venda-flow/internal/syncengine"
	"github.com/jacksonmacedok2-maker/Venda-flow/pkg/logger"
	"github.com/jacksonmacedok2-maker/Venda-flow/pkg/response"
)

// Handler carries the route dependencies.
type Handler struct {
	data     *service.Data
	engine   *syncengine.Engine
	resolver *membership.Resolver
	queue    *queue.Queue
	log      *logger.Logger
}

// New builds the HTTP handler.
func New(data *service.Data, engine *syncengine.Engine, resolver *membership.Resolver, q *queue.Queue, log *logger.Logger) *Handler {
	return &Handler{data: data, engine: engine, resolver: resolver, queue: q, log: log}
}

// RegisterRoutes mounts all routes. Everything under /api/v1 requires a
// bearer token; /health does not.
func (h *Handler) RegisterRoutes(r *gin.Engine, jwtSecret string) {
	r.GET("/health", h.Health)

	api := r.Group("/api/v1")
	api.Use(AuthMiddleware(jwtSecret))
	{
		api.GET("/clients", h.ListClients)
		api.POST("/clients", h.CreateClient)
		api.GET("/products", h.ListProducts)
		api.POST("/products", h.CreateProduct)
		api.GET("/orders", h.ListOrders)
		api.POST("/orders", h.CreateOrder)
		api.GET("/orders/next-code", h.NextOrderCode)
		api.GET("/transactions", h.ListTransactions)
		api.POST("/transactions", h.CreateTransaction)
		api.GET("/dashboard/stats", h.DashboardStats)

		api.GET("/settings/company", h.GetCompanySettings)
		api.PUT("/settings/company", h.UpdateCompanySettings)
		api.GET("/settings/commercial", h.GetCommercialSettings)
		api.PUT("/settings/commercial", h.UpdateCommercialSettings)

		api.GET("/invitations", h.ListInvitations)
		api.POST("/invitations", h.GenerateInvitation)
		api.DELETE("/invitations/:id", h.DeleteInvitation)

		api.POST("/sync/drain", h.DrainNow)
		api.GET("/sync/status", h.SyncStatus)
		api.GET("/sync/dead-letters", h.ListDeadLetters)
		api.POST("/sync/dead-letters/:id/requeue", h.RequeueDeadLetter)
		api.DELETE("/sync/dead-letters/:id", h.DropDeadLetter)

		api.GET("/membership", h.Membership)
		api.POST("/membership/override", h.OverrideMembership)
		api.POST("/membership/refresh", h.RefreshMembership)
	}
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, response.Success(gin.H{"status": "ok"}))
}

func (h *Handler) ListClients(c *gin.Context) {
	clients, err := h.data.ListClients(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(clients))
}

func (h *Handler) CreateClient(c *gin.Context) {
	var client domain.Client
	if err := c.ShouldBindJSON(&client); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest("Invalid client payload"))
		return
	}
	created, err := h.data.CreateClient(c.Request.Context(), client)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(created))
}

func (h *Handler) ListProducts(c *gin.Context) {
	products, err := h.data.ListProducts(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(products))
}

func (h *Handler) CreateProduct(c *gin.Context) {
	var product domain.Product
	if err := c.ShouldBindJSON(&product); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest("Invalid product payload"))
		return
	}
	created, err := h.data.CreateProduct(c.Request.Context(), product)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(created))
}

func (h *Handler) ListOrders(c *gin.Context) {
	orders, err := h.data.ListOrders(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(orders))
}

// createOrderRequest is the order bundle the UI submits.
type createOrderRequest struct {
	Order domain.Order       `json:"order"`
	Items []domain.OrderItem `json:"items"`
}

func (h *Handler) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest("Invalid order payload"))
		return
	}
	created, err := h.data.CreateOrder(c.Request.Context(), req.Order, req.Items)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(created))
}

func (h *Handler) NextOrderCode(c *gin.Context) {
	code, err := h.data.NextOrderCode(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(gin.H{"code": code}))
}

func (h *Handler) ListTransactions(c *gin.Context) {
	transactions, err := h.data.ListTransactions(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(transactions))
}

func (h *Handler) CreateTransaction(c *gin.Context) {
	var tx domain.Transaction
	if err := c.ShouldBindJSON(&tx); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest("Invalid transaction payload"))
		return
	}
	created, err := h.data.CreateTransaction(c.Request.Context(), tx)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(created))
}

func (h *Handler) DashboardStats(c *gin.Context) {
	stats, err := h.data.DashboardStats(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(stats))
}

func (h *Handler) GetCompanySettings(c *gin.Context) {
	settings, err := h.data.GetCompanySettings(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(settings))
}

func (h *Handler) UpdateCompanySettings(c *gin.Context) {
	var settings domain.CompanySettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest("Invalid settings payload"))
		return
	}
	updated, err := h.data.UpdateCompanySettings(c.Request.Context(), settings)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(updated))
}

func (h *Handler) GetCommercialSettings(c *gin.Context) {
	settings, err := h.data.GetCommercialSettings(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(settings))
}

func (h *Handler) UpdateCommercialSettings(c *gin.Context) {
	var settings domain.CommercialSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest("Invalid settings payload"))
		return
	}
	updated, err := h.data.UpdateCommercialSettings(c.Request.Context(), settings)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(updated))
}

func (h *Handler) ListInvitations(c *gin.Context) {
	invitations, err := h.data.ListInvitations(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(invitations))
}

type generateInvitationRequest struct {
	Name  string      `json:"name"`
	Email string      `json:"email" binding:"required"`
	Role  domain.Role `json:"role" binding:"required"`
}

func (h *Handler) GenerateInvitation(c *gin.Context) {
	var req generateInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest("Invalid invitation payload"))
		return
	}
	userID, _ := GetUserID(c)

	created, err := h.data.GenerateInvitation(c.Request.Context(), req.Name, req.Email, req.Role, userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(created))
}

func (h *Handler) DeleteInvitation(c *gin.Context) {
	if err := h.data.DeleteInvitation(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(nil))
}

// DrainNow runs a drain pass and returns the resulting engine status. When a
// pass is already running the call just schedules a follow-up.
func (h *Handler) DrainNow(c *gin.Context) {
	if err := h.engine.DrainNow(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(h.engine.Status()))
}

func (h *Handler) SyncStatus(c *gin.Context) {
	c.JSON(http.StatusOK, response.Success(h.engine.Status()))
}

func (h *Handler) ListDeadLetters(c *gin.Context) {
	letters, err := h.queue.DeadLetters(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	if letters == nil {
		letters = []queue.DeadLetter{}
	}
	c.JSON(http.StatusOK, response.Success(letters))
}

func (h *Handler) RequeueDeadLetter(c *gin.Context) {
	if err := h.queue.RequeueDeadLetter(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, response.NotFound(err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(nil))
}

func (h *Handler) DropDeadLetter(c *gin.Context) {
	if err := h.queue.DropDeadLetter(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, response.NotFound(err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(nil))
}

// Membership reports the resolved company and the resolution state.
func (h *Handler) Membership(c *gin.Context) {
	current, state := h.resolver.Current()
	c.JSON(http.StatusOK, response.Success(gin.H{
		"membership": current,
		"state":      state,
	}))
}

func (h *Handler) OverrideMembership(c *gin.Context) {
	var m domain.Membership
	if err := c.ShouldBindJSON(&m); err != nil || m.CompanyID == "" {
		c.JSON(http.StatusBadRequest, response.BadRequest("Invalid membership payload"))
		return
	}
	h.resolver.SetOverride(m)
	current, state := h.resolver.Current()
	c.JSON(http.StatusOK, response.Success(gin.H{
		"membership": current,
		"state":      state,
	}))
}

func (h *Handler) RefreshMembership(c *gin.Context) {
	outcome, err := h.resolver.Refresh(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	current, state := h.resolver.Current()
	c.JSON(http.StatusOK, response.Success(gin.H{
		"outcome":    outcome,
		"membership": current,
		"state":      state,
	}))
}

// fail translates service errors into the response envelope.
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNoActiveCompany):
		c.JSON(response.GetHTTPStatus(response.ErrCodeNoTenant),
			response.Error(response.ErrCodeNoTenant, "No active company; resolve or override a membership first"))
	case errors.Is(err, service.ErrOffline):
		c.JSON(response.GetHTTPStatus(response.ErrCodeOffline),
			response.Error(response.ErrCodeOffline, "Operation requires connectivity"))
	case errors.Is(err, remote.ErrValidation):
		c.JSON(http.StatusBadRequest, response.Error(response.ErrCodeValidationFailed, err.Error()))
	case errors.Is(err, remote.ErrAuthExpired):
		c.JSON(http.StatusUnauthorized, response.Unauthorized("Session expired"))
	default:
		h.log.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, response.InternalError("Unexpected error"))
	}
}
