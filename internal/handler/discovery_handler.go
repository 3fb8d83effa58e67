// internal/handler/discovery_handler.go
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"printer-bridge/internal/model"
	"printer-bridge/internal/service"
	"printer-bridge/internal/utils"
)

// DiscoveryHandler handles printer scans
type DiscoveryHandler struct {
	printerService *service.PrinterService
	logger         *utils.ServiceLogger
}

// NewDiscoveryHandler creates a new discovery handler
func NewDiscoveryHandler(printerService *service.PrinterService, logger *zap.Logger) *DiscoveryHandler {
	return &DiscoveryHandler{
		printerService: printerService,
		logger:         utils.NewServiceLogger(logger, "discovery-handler"),
	}
}

// RegisterRoutes registers discovery routes
func (h *DiscoveryHandler) RegisterRoutes(router *gin.RouterGroup) {
	devices := router.Group("/devices")
	{
		devices.GET("/scan", h.ScanDevices)
		devices.DELETE("/scan", h.StopScan)
	}
}

// ScanResponse lists the devices one scan found
type ScanResponse struct {
	Mode    model.ScanMode `json:"mode"`
	Count   int            `json:"count"`
	Devices []model.Device `json:"devices"`
}

// ScanDevices runs a discovery and returns its result
// @Summary Scan for printers
// @Description Discover paired or all nearby printers. Results are de-duplicated by address.
// @Tags Discovery
// @Produce json
// @Param mode query string false "paired (default) or all"
// @Success 200 {object} utils.APIResponse{data=ScanResponse} "Scan completed"
// @Failure 409 {object} utils.APIResponse "Scan already in progress"
// @Failure 503 {object} utils.APIResponse "Radio unavailable"
// @Router /devices/scan [get]
func (h *DiscoveryHandler) ScanDevices(c *gin.Context) {
	mode := model.ParseScanMode(c.Query("mode"))

	devices, err := h.printerService.ScanDevices(c.Request.Context(), mode)
	if err != nil {
		h.logger.Warn("Scan failed", zap.String("mode", string(mode)), zap.Error(err))
		utils.ServiceErrorResponse(c, "Scan failed", err)
		return
	}
	if devices == nil {
		devices = []model.Device{}
	}

	utils.SuccessResponse(c, http.StatusOK, "Scan completed", ScanResponse{
		Mode:    mode,
		Count:   len(devices),
		Devices: devices,
	})
}

// StopScan ends a running scan early
// @Summary Stop scan
// @Description Stop the running scan. The scan request returns what was found so far.
// @Tags Discovery
// @Produce json
// @Success 200 {object} utils.APIResponse "Scan stop result"
// @Router /devices/scan [delete]
func (h *DiscoveryHandler) StopScan(c *gin.Context) {
	stopped := h.printerService.StopScan()
	message := "No scan in progress"
	if stopped {
		message = "Scan stopped"
	}
	utils.SuccessResponse(c, http.StatusOK, message, gin.H{"stopped": stopped})
}
