package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"egg-trading/internal/dto"
)

func (h *HttpAPIHandler) SetupJobs(base *echo.Group) {
	v1 := base.Group("/v1/jobs")
	{
		v1.POST("/daily", h.RunDaily)
		v1.POST("/tick", h.RunTick)
		v1.POST("/report", h.RunReport)
	}
}

// RunDaily triggers the decision pass outside its schedule. Safe to repeat:
// bots with an open parent are skipped.
func (h *HttpAPIHandler) RunDaily(c echo.Context) error {
	if err := h.service.TradingService.RunDaily(c.Request().Context()); err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewBaseResponse(http.StatusInternalServerError, err.Error(), nil))
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("daily decision pass completed", nil))
}

func (h *HttpAPIHandler) RunTick(c echo.Context) error {
	if err := h.service.TradingService.RunTWAPTick(c.Request().Context(), false); err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewBaseResponse(http.StatusInternalServerError, err.Error(), nil))
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("slice tick completed", nil))
}

func (h *HttpAPIHandler) RunReport(c echo.Context) error {
	if err := h.service.ReportService.SendDailyReport(c.Request().Context()); err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewBaseResponse(http.StatusInternalServerError, err.Error(), nil))
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("report sent", nil))
}
