package dto

// UpsertBotRequest creates or replaces a bot definition. Name is the identity;
// changing strategy parameters on a live cycle takes effect at the next
// decision pass.
type UpsertBotRequest struct {
	Name       string  `json:"name" validate:"required,max=64"`
	Symbol     string  `json:"symbol" validate:"required,uppercase"`
	Seed       float64 `json:"seed" validate:"required,gt=0"`
	ProfitRate float64 `json:"profit_rate" validate:"required,gt=0"`
	TDiv       int     `json:"t_div" validate:"required,gt=0"`
	MaxTier    int     `json:"max_tier" validate:"required,gt=0"`
	Active     bool    `json:"active"`
	Priority   int     `json:"priority" validate:"gte=0"`

	CheckBuyAvgPrice  bool   `json:"is_check_buy_avr_price"`
	CheckBuyTDivPrice bool   `json:"is_check_buy_t_div_price"`
	PointLoc          string `json:"point_loc" validate:"omitempty,oneof=P1 P1_2 P2_3"`
	SkipSell          bool   `json:"skip_sell"`

	DynamicSeedEnabled    bool    `json:"dynamic_seed_enabled"`
	DynamicSeedMax        float64 `json:"dynamic_seed_max" validate:"gte=0"`
	DynamicSeedMultiplier float64 `json:"dynamic_seed_multiplier" validate:"gte=0"`
	DynamicSeedTThreshold float64 `json:"dynamic_seed_t_threshold" validate:"gte=0"`
	DynamicSeedDropRate   float64 `json:"dynamic_seed_drop_rate" validate:"gte=0"`
}

type SetActiveRequest struct {
	Active bool `json:"active"`
}

// ForceBuyRequest queues a manual buy outside the decision pass. A zero seed
// means the bot's configured seed.
type ForceBuyRequest struct {
	Seed float64 `json:"seed" validate:"gte=0"`
}

type HistoryRangeRequest struct {
	From string `query:"from" validate:"required,datetime=2006-01-02"`
	To   string `query:"to" validate:"required,datetime=2006-01-02"`
}

// UpdateStatusRequest replaces the deposit/withdraw ledger used for overall
// profit accounting.
type UpdateStatusRequest struct {
	DepositKRW  float64 `json:"deposit_krw" validate:"gte=0"`
	DepositUSD  float64 `json:"deposit_usd" validate:"gte=0"`
	WithdrawKRW float64 `json:"withdraw_krw" validate:"gte=0"`
	WithdrawUSD float64 `json:"withdraw_usd" validate:"gte=0"`
}
