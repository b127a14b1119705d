package gateway

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/listboard/gateway/internal/aggregator"
	"github.com/listboard/gateway/internal/health"
	"github.com/listboard/gateway/internal/observability"
	"github.com/listboard/gateway/internal/proxy"
	"github.com/listboard/gateway/internal/registry"
	"github.com/listboard/gateway/internal/util"
)

// Handler holds the gateway's route handlers.
type Handler struct {
	registry   *registry.Registry
	aggregator *aggregator.Aggregator
	checker    *health.Checker
	forwarder  *proxy.Forwarder
	logger     observability.Logger
}

// NewHandler creates the handler set.
func NewHandler(
	reg *registry.Registry,
	agg *aggregator.Aggregator,
	checker *health.Checker,
	forwarder *proxy.Forwarder,
	logger observability.Logger,
) *Handler {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Handler{
		registry:   reg,
		aggregator: agg,
		checker:    checker,
		forwarder:  forwarder,
		logger:     logger,
	}
}

// Register mounts all routes on the engine. Anything that matches no
// explicit route falls through to the proxy.
func (h *Handler) Register(engine *gin.Engine) {
	engine.GET("/status", h.status)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	engine.GET("/registry", h.listServices)
	engine.POST("/registry", h.registerService)
	engine.DELETE("/registry/:name", h.unregisterService)

	engine.GET("/api/dashboard", h.dashboard)
	engine.GET("/api/search", h.search)

	engine.NoRoute(gin.WrapH(h.forwarder))
}

func (h *Handler) status(c *gin.Context) {
	c.JSON(http.StatusOK, util.Success(h.checker.Report()))
}

func (h *Handler) listServices(c *gin.Context) {
	c.JSON(http.StatusOK, util.Success(h.registry.ListAll()))
}

// registerRequest is the body of POST /registry.
type registerRequest struct {
	Name     string            `json:"name" binding:"required"`
	Address  string            `json:"address" binding:"required"`
	Metadata map[string]string `json:"metadata"`
}

func (h *Handler) registerService(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, util.Fail("name and address are required"))
		return
	}

	rec := h.registry.Register(req.Name, req.Address, req.Metadata)
	h.logger.Info("service registered via API",
		observability.String("service", req.Name),
		observability.String("address", req.Address),
	)
	c.JSON(http.StatusCreated, util.Success(rec))
}

func (h *Handler) unregisterService(c *gin.Context) {
	name := c.Param("name")
	if !h.registry.Unregister(name) {
		c.JSON(http.StatusNotFound, util.Fail("service not found"))
		return
	}
	c.JSON(http.StatusOK, util.SuccessMessage("service unregistered"))
}

func (h *Handler) dashboard(c *gin.Context) {
	status, env := h.aggregator.Dashboard(c.Request.Context(), bearerToken(c))
	c.JSON(status, env)
}

func (h *Handler) search(c *gin.Context) {
	status, env := h.aggregator.Search(c.Request.Context(), c.Query("q"), bearerToken(c))
	c.JSON(status, env)
}

// bearerToken extracts the bearer credential, empty when absent or
// malformed.
func bearerToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}
