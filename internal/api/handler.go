package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/service"
	"storefront/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// TokenVerifier validates a federated ID token and returns the verified
// assertion. Verification is an external concern; handlers never inspect
// tokens themselves.
type TokenVerifier interface {
	Verify(ctx context.Context, idToken string) (*service.Assertion, error)
}

// Handler contains HTTP handlers
type Handler struct {
	orders   *service.OrderEngine
	identity *service.IdentityResolver
	catalog  *service.CatalogService
	verifier TokenVerifier
}

// NewHandler creates a new HTTP handler
func NewHandler(
	orders *service.OrderEngine,
	identity *service.IdentityResolver,
	catalog *service.CatalogService,
	verifier TokenVerifier,
) *Handler {
	return &Handler{
		orders:   orders,
		identity: identity,
		catalog:  catalog,
		verifier: verifier,
	}
}

// SetupRoutes sets up HTTP routes. Admin routes carry no authorization
// layer here; enforcement belongs to the gateway in front of this service.
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.POST("/orders", h.createOrder)
		api.GET("/orders/user/:userId", h.listUserOrders)

		api.POST("/register", h.register)
		api.POST("/login", h.login)
		api.POST("/auth/google", h.googleLogin)
		api.PUT("/users/:id", h.updateProfile)

		api.GET("/products/:id", h.getProduct)

		admin := api.Group("/admin")
		{
			admin.GET("/orders/:id", h.getOrderDetail)
			admin.PUT("/orders/:id/status", h.transitionOrderStatus)
			admin.POST("/products", h.createProduct)
			admin.PUT("/products/:id", h.updateProduct)
			admin.DELETE("/products/:id", h.deleteProduct)
			admin.PUT("/customers/:id/status", h.setCustomerStatus)
		}
	}
}

func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// writeError maps the application error taxonomy onto HTTP responses.
// Unknown errors read as store failures and hide their cause.
func writeError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)

	message := "internal error"
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		message = appErr.Message
	}

	c.JSON(apperr.HTTPStatus(kind), gin.H{
		"code":  kind,
		"error": message,
	})
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  apperr.ValidationFailed,
			"error": "invalid id",
		})
		return 0, false
	}
	return id, true
}

// createOrder handles order creation
func (h *Handler) createOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  apperr.ValidationFailed,
			"error": "invalid request body",
		})
		return
	}

	resp, err := h.orders.CreateOrder(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// listUserOrders returns a user's order history, newest first
func (h *Handler) listUserOrders(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}

	orders, err := h.orders.ListOrdersForUser(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, orders)
}

// getOrderDetail returns an order with its enriched items
func (h *Handler) getOrderDetail(c *gin.Context) {
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	detail, err := h.orders.GetOrderDetail(c.Request.Context(), orderID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

type transitionRequest struct {
	Status string `json:"status" binding:"required"`
}

// transitionOrderStatus moves an order through the status machine
func (h *Handler) transitionOrderStatus(c *gin.Context) {
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  apperr.ValidationFailed,
			"error": "status is required",
		})
		return
	}

	if err := h.orders.TransitionStatus(c.Request.Context(), orderID, req.Status); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// getProduct returns a single product
func (h *Handler) getProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	p, err := h.catalog.GetProduct(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

type productRequest struct {
	SKU           string  `json:"sku"`
	Name          string  `json:"name" binding:"required"`
	Category      string  `json:"category"`
	Price         float64 `json:"price"`
	Image         string  `json:"image"`
	Description   string  `json:"description"`
	StockQuantity int     `json:"stock_quantity"`
	IsActive      *bool   `json:"is_active"`
}

func (r *productRequest) toModel() *models.Product {
	p := &models.Product{
		SKU:           r.SKU,
		Name:          r.Name,
		Category:      r.Category,
		Price:         r.Price,
		StockQuantity: r.StockQuantity,
		IsActive:      true,
	}
	if r.IsActive != nil {
		p.IsActive = *r.IsActive
	}
	if r.Image != "" {
		p.Image.String = r.Image
		p.Image.Valid = true
	}
	if r.Description != "" {
		p.Description.String = r.Description
		p.Description.Valid = true
	}
	return p
}

// createProduct handles admin product creation
func (h *Handler) createProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  apperr.ValidationFailed,
			"error": "invalid request body",
		})
		return
	}

	p := req.toModel()
	if err := h.catalog.CreateProduct(c.Request.Context(), p); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "id": p.ID, "sku": p.SKU})
}

// updateProduct handles admin product updates
func (h *Handler) updateProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  apperr.ValidationFailed,
			"error": "invalid request body",
		})
		return
	}

	p := req.toModel()
	p.ID = id
	if err := h.catalog.UpdateProduct(c.Request.Context(), p); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// deleteProduct handles admin product deletion
func (h *Handler) deleteProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.catalog.DeleteProduct(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
