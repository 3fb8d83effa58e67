// internal/handler/print_handler.go
package handler

import (
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"printer-bridge/internal/service"
	"printer-bridge/internal/ticket"
	"printer-bridge/internal/utils"
)

// PrintHandler compiles tickets and sends them to the printer
type PrintHandler struct {
	printerService *service.PrinterService
	logger         *utils.ServiceLogger
}

// NewPrintHandler creates a new print handler
func NewPrintHandler(printerService *service.PrinterService, logger *zap.Logger) *PrintHandler {
	return &PrintHandler{
		printerService: printerService,
		logger:         utils.NewServiceLogger(logger, "print-handler"),
	}
}

// RegisterRoutes registers print routes
func (h *PrintHandler) RegisterRoutes(router *gin.RouterGroup) {
	p := router.Group("/print")
	{
		p.POST("", h.Print)
		p.POST("/preview", h.Preview)
	}
}

// PreviewResponse carries the compiled stream without printing it
type PreviewResponse struct {
	Bytes int    `json:"bytes"`
	Data  string `json:"data"`
}

// decodeJob reads the request body as a print job
func (h *PrintHandler) decodeJob(c *gin.Context) (ticket.Job, bool) {
	body, err := c.GetRawData()
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Unable to read request body", err)
		return ticket.Job{}, false
	}

	job, err := ticket.DecodeJob(body, h.printerService.Defaults())
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid print job", err)
		return ticket.Job{}, false
	}
	return job, true
}

// Print compiles and prints a ticket
// @Summary Print a ticket
// @Description Compile items to ESC/POS and write them to the connected printer in one piece
// @Tags Print
// @Accept json
// @Produce json
// @Success 200 {object} utils.APIResponse{data=service.PrintResult} "Printed"
// @Failure 400 {object} utils.APIResponse "Invalid job"
// @Failure 409 {object} utils.APIResponse "Not connected or printer busy"
// @Failure 502 {object} utils.APIResponse "Write failed"
// @Router /print [post]
func (h *PrintHandler) Print(c *gin.Context) {
	job, ok := h.decodeJob(c)
	if !ok {
		return
	}

	result, err := h.printerService.Print(c.Request.Context(), job)
	if err != nil {
		utils.ServiceErrorResponse(c, "Print failed", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Printed", result)
}

// Preview compiles a ticket and returns the bytes base64 encoded
// @Summary Compile a ticket
// @Tags Print
// @Accept json
// @Produce json
// @Success 200 {object} utils.APIResponse{data=PreviewResponse} "Compiled"
// @Failure 400 {object} utils.APIResponse "Invalid job"
// @Router /print/preview [post]
func (h *PrintHandler) Preview(c *gin.Context) {
	job, ok := h.decodeJob(c)
	if !ok {
		return
	}

	data, err := h.printerService.Compile(c.Request.Context(), job)
	if err != nil {
		utils.ServiceErrorResponse(c, "Compile failed", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Compiled", PreviewResponse{
		Bytes: len(data),
		Data:  base64.StdEncoding.EncodeToString(data),
	})
}
