package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service string
}

func NewHandler(service string) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(router gin.IRouter) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
}

type Status struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, Status{Status: "ok", Service: h.service})
}

func (h *Handler) Ready(c *gin.Context) {
	c.JSON(http.StatusOK, Status{Status: "ready", Service: h.service})
}
