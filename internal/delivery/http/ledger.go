package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"egg-trading/internal/dto"
	"egg-trading/internal/model"
)

func (h *HttpAPIHandler) SetupLedger(base *echo.Group) {
	v1 := base.Group("/v1")
	{
		v1.GET("/orders", h.ListOrders)
		v1.GET("/histories", h.ListHistories)
		v1.GET("/status", h.GetStatus)
		v1.PUT("/status", h.UpdateStatus)
	}
}

func (h *HttpAPIHandler) ListOrders(c echo.Context) error {
	orders, err := h.repo.OrderRepo.ListAll(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewBaseResponse(http.StatusInternalServerError, err.Error(), nil))
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("orders", orders))
}

func (h *HttpAPIHandler) ListHistories(c echo.Context) error {
	var req dto.HistoryRangeRequest
	if err := h.bindAndValidate(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	from, _ := time.Parse("2006-01-02", req.From)
	to, _ := time.Parse("2006-01-02", req.To)
	if to.Before(from) {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("to must not be before from"))
	}

	histories, err := h.repo.HistoryRepo.ListRange(c.Request().Context(), from, to)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewBaseResponse(http.StatusInternalServerError, err.Error(), nil))
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("histories", histories))
}

func (h *HttpAPIHandler) GetStatus(c echo.Context) error {
	status, err := h.repo.StatusRepo.Get(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewBaseResponse(http.StatusInternalServerError, err.Error(), nil))
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("status", status))
}

func (h *HttpAPIHandler) UpdateStatus(c echo.Context) error {
	var req dto.UpdateStatusRequest
	if err := h.bindAndValidate(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	status := &model.Status{
		ID:          1,
		DepositKRW:  req.DepositKRW,
		DepositUSD:  req.DepositUSD,
		WithdrawKRW: req.WithdrawKRW,
		WithdrawUSD: req.WithdrawUSD,
	}
	if err := h.repo.StatusRepo.Upsert(c.Request().Context(), status); err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewBaseResponse(http.StatusInternalServerError, err.Error(), nil))
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("status saved", status))
}
