package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"egg-trading/internal/dto"
	"egg-trading/internal/model"
)

func (h *HttpAPIHandler) SetupBots(base *echo.Group) {
	v1 := base.Group("/v1/bots")
	{
		v1.GET("", h.ListBots)
		v1.GET("/:name", h.GetBot)
		v1.PUT("/:name", h.UpsertBot)
		v1.DELETE("/:name", h.DeleteBot)
		v1.PATCH("/:name/active", h.SetBotActive)
		v1.POST("/:name/force-buy", h.ForceBuy)
	}
}

func (h *HttpAPIHandler) ListBots(c echo.Context) error {
	bots, err := h.repo.BotRepo.GetAll(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewBaseResponse(http.StatusInternalServerError, err.Error(), nil))
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("bots", bots))
}

func (h *HttpAPIHandler) GetBot(c echo.Context) error {
	ctx := c.Request().Context()
	name := c.Param("name")

	bot, err := h.repo.BotRepo.GetByName(ctx, name)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewBaseResponse(http.StatusInternalServerError, err.Error(), nil))
	}
	if bot == nil {
		return c.JSON(http.StatusNotFound, dto.NewBaseResponse(http.StatusNotFound, "bot not found", nil))
	}

	trade, err := h.repo.TradeRepo.FindByName(ctx, name)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewBaseResponse(http.StatusInternalServerError, err.Error(), nil))
	}
	order, err := h.repo.OrderRepo.FindByName(ctx, name)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewBaseResponse(http.StatusInternalServerError, err.Error(), nil))
	}

	return c.JSON(http.StatusOK, dto.NewSuccessResponse("bot", map[string]interface{}{
		"bot":   bot,
		"trade": trade,
		"order": order,
	}))
}

func (h *HttpAPIHandler) UpsertBot(c echo.Context) error {
	var req dto.UpsertBotRequest
	if err := h.bindAndValidate(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}
	req.Name = c.Param("name")

	ctx := c.Request().Context()
	existing, err := h.repo.BotRepo.GetByName(ctx, req.Name)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewBaseResponse(http.StatusInternalServerError, err.Error(), nil))
	}

	bot := botFromRequest(&req)
	if existing != nil {
		// Cycle state is not editable through the API.
		bot.AddedSeed = existing.AddedSeed
		bot.LastDynamicBump = existing.LastDynamicBump
		bot.CreatedAt = existing.CreatedAt
		err = h.repo.BotRepo.Update(ctx, bot)
	} else {
		err = h.repo.BotRepo.Create(ctx, bot)
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewBaseResponse(http.StatusInternalServerError, err.Error(), nil))
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("bot saved", bot))
}

func (h *HttpAPIHandler) DeleteBot(c echo.Context) error {
	ctx := c.Request().Context()
	name := c.Param("name")

	trade, err := h.repo.TradeRepo.FindByName(ctx, name)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewBaseResponse(http.StatusInternalServerError, err.Error(), nil))
	}
	if trade != nil {
		return c.JSON(http.StatusConflict, dto.NewBaseResponse(http.StatusConflict, "bot has an open cycle", nil))
	}

	if err := h.repo.BotRepo.Delete(ctx, name); err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewBaseResponse(http.StatusInternalServerError, err.Error(), nil))
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("bot deleted", nil))
}

func (h *HttpAPIHandler) SetBotActive(c echo.Context) error {
	var req dto.SetActiveRequest
	if err := h.bindAndValidate(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	ctx := c.Request().Context()
	name := c.Param("name")
	bot, err := h.repo.BotRepo.GetByName(ctx, name)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewBaseResponse(http.StatusInternalServerError, err.Error(), nil))
	}
	if bot == nil {
		return c.JSON(http.StatusNotFound, dto.NewBaseResponse(http.StatusNotFound, "bot not found", nil))
	}

	if err := h.repo.BotRepo.SetActive(ctx, name, req.Active); err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewBaseResponse(http.StatusInternalServerError, err.Error(), nil))
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("bot updated", nil))
}

func (h *HttpAPIHandler) ForceBuy(c echo.Context) error {
	var req dto.ForceBuyRequest
	if err := h.bindAndValidate(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	name := c.Param("name")
	if err := h.service.TradingService.ForceBuy(c.Request().Context(), name, req.Seed); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, dto.NewBaseResponse(http.StatusUnprocessableEntity, err.Error(), nil))
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("forced buy queued", nil))
}

func botFromRequest(req *dto.UpsertBotRequest) *model.BotInfo {
	loc := model.PointLoc(req.PointLoc)
	if loc == "" {
		loc = model.PointLocP1
	}
	return &model.BotInfo{
		Name:                  req.Name,
		Symbol:                req.Symbol,
		Seed:                  req.Seed,
		ProfitRate:            req.ProfitRate,
		TDiv:                  req.TDiv,
		MaxTier:               req.MaxTier,
		Active:                req.Active,
		Priority:              req.Priority,
		CheckBuyAvgPrice:      req.CheckBuyAvgPrice,
		CheckBuyTDivPrice:     req.CheckBuyTDivPrice,
		PointLoc:              loc,
		SkipSell:              req.SkipSell,
		DynamicSeedEnabled:    req.DynamicSeedEnabled,
		DynamicSeedMax:        req.DynamicSeedMax,
		DynamicSeedMultiplier: req.DynamicSeedMultiplier,
		DynamicSeedTThreshold: req.DynamicSeedTThreshold,
		DynamicSeedDropRate:   req.DynamicSeedDropRate,
	}
}
