// internal/handler/connection_handler.go
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"printer-bridge/internal/connection"
	"printer-bridge/internal/service"
	"printer-bridge/internal/utils"
)

// ConnectionHandler handles the printer link and wired access grants
type ConnectionHandler struct {
	printerService *service.PrinterService
	logger         *utils.ServiceLogger
}

// NewConnectionHandler creates a new connection handler
func NewConnectionHandler(printerService *service.PrinterService, logger *zap.Logger) *ConnectionHandler {
	return &ConnectionHandler{
		printerService: printerService,
		logger:         utils.NewServiceLogger(logger, "connection-handler"),
	}
}

// RegisterRoutes registers connection and access routes
func (h *ConnectionHandler) RegisterRoutes(router *gin.RouterGroup) {
	conn := router.Group("/connection")
	{
		conn.GET("", h.GetStatus)
		conn.POST("", h.Connect)
		conn.POST("/wired", h.ConnectWired)
		conn.DELETE("", h.Disconnect)
	}

	access := router.Group("/access")
	{
		access.GET("", h.ListAccessRequests)
		access.POST("/:token", h.ResolveAccess)
	}
}

// ConnectRequest names the printer to connect to
type ConnectRequest struct {
	Address string `json:"address" binding:"required"`
}

// ResolveAccessRequest answers a pending wired access request
type ResolveAccessRequest struct {
	Granted *bool `json:"granted" binding:"required"`
}

// GetStatus returns the link state
// @Summary Connection status
// @Tags Connection
// @Produce json
// @Success 200 {object} utils.APIResponse{data=connection.Status}
// @Router /connection [get]
func (h *ConnectionHandler) GetStatus(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Connection status", h.printerService.Status())
}

// Connect opens a session to the printer at address
// @Summary Connect to a printer
// @Description MAC addresses use the configured wireless transport, usb:vid:pid the wired one and anything else a serial port
// @Tags Connection
// @Accept json
// @Produce json
// @Param request body ConnectRequest true "Printer address"
// @Success 200 {object} utils.APIResponse{data=connection.Status} "Connected"
// @Failure 400 {object} utils.APIResponse "Invalid request"
// @Failure 409 {object} utils.APIResponse "Another connect is in progress"
// @Failure 502 {object} utils.APIResponse "Connect failed"
// @Router /connection [post]
func (h *ConnectionHandler) Connect(c *gin.Context) {
	var req ConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.printerService.Connect(c.Request.Context(), req.Address); err != nil {
		utils.ServiceErrorResponse(c, "Connect failed", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Connected", h.printerService.Status())
}

// ConnectWired connects to the first wired printer, asking for access if needed
// @Summary Connect over USB
// @Description Probe USB printers and connect to the first one. Blocks while access is pending.
// @Tags Connection
// @Produce json
// @Success 200 {object} utils.APIResponse{data=connection.Status} "Connected"
// @Failure 403 {object} utils.APIResponse "Access denied"
// @Failure 404 {object} utils.APIResponse "No wired printer found"
// @Router /connection/wired [post]
func (h *ConnectionHandler) ConnectWired(c *gin.Context) {
	address, err := h.printerService.ConnectAlternateTransport(c.Request.Context())
	if err != nil {
		utils.ServiceErrorResponse(c, "Wired connect failed", err)
		return
	}

	h.logger.Info("Wired printer connected", zap.String("address", address))
	utils.SuccessResponse(c, http.StatusOK, "Connected", h.printerService.Status())
}

// Disconnect closes the session. Calling it while idle is not an error.
// @Summary Disconnect
// @Tags Connection
// @Produce json
// @Success 200 {object} utils.APIResponse{data=connection.Status} "Disconnected"
// @Router /connection [delete]
func (h *ConnectionHandler) Disconnect(c *gin.Context) {
	h.printerService.Disconnect()
	utils.SuccessResponse(c, http.StatusOK, "Disconnected", h.printerService.Status())
}

// ListAccessRequests returns wired connects waiting for a grant
// @Summary Pending access requests
// @Tags Access
// @Produce json
// @Success 200 {object} utils.APIResponse{data=[]connection.AccessRequest}
// @Router /access [get]
func (h *ConnectionHandler) ListAccessRequests(c *gin.Context) {
	pending := h.printerService.PendingAccess()
	if pending == nil {
		pending = []connection.AccessRequest{}
	}
	utils.SuccessResponse(c, http.StatusOK, "Pending access requests", pending)
}

// ResolveAccess grants or denies one pending request
// @Summary Resolve access request
// @Tags Access
// @Accept json
// @Produce json
// @Param token path string true "Request token"
// @Param request body ResolveAccessRequest true "Decision"
// @Success 200 {object} utils.APIResponse "Resolved"
// @Failure 404 {object} utils.APIResponse "No such request"
// @Router /access/{token} [post]
func (h *ConnectionHandler) ResolveAccess(c *gin.Context) {
	var req ResolveAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	token := c.Param("token")
	if err := h.printerService.ResolveAccess(token, *req.Granted); err != nil {
		utils.ServiceErrorResponse(c, "Resolve access failed", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Access resolved", gin.H{
		"token":   token,
		"granted": *req.Granted,
	})
}
