package model

// OrderType is the closed set of parent-order and history-row types. It
// doubles as the trade type recorded on History rows.
type OrderType string

const (
	OrderTypeBuy      OrderType = "Buy"
	OrderTypeBuyForce OrderType = "Buy_Force"
	OrderTypeSell     OrderType = "Sell"
	OrderTypeSell14   OrderType = "Sell_1_4"
	OrderTypeSell34   OrderType = "Sell_3_4"
	OrderTypeSellPart OrderType = "Sell_Part"
)

func (t OrderType) IsBuy() bool {
	return t == OrderTypeBuy || t == OrderTypeBuyForce
}

func (t OrderType) IsSell() bool {
	return !t.IsBuy()
}

// IsFullSell reports whether a completely filled order of this type closes
// the cycle.
func (t OrderType) IsFullSell() bool {
	return t == OrderTypeSell
}

// SellRatio is the fraction of the held amount a sell type targets.
func (t OrderType) SellRatio() float64 {
	switch t {
	case OrderTypeSell:
		return 1
	case OrderTypeSell34:
		return 0.75
	case OrderTypeSell14:
		return 0.25
	default:
		return 0
	}
}

// PointLoc selects the fraction of the tier band used by the point function.
type PointLoc string

const (
	PointLocP1  PointLoc = "P1"
	PointLocP12 PointLoc = "P1_2"
	PointLocP23 PointLoc = "P2_3"
)

// Fraction returns the band fraction for the location; unknown values fall
// back to P1.
func (p PointLoc) Fraction() float64 {
	switch p {
	case PointLocP12:
		return 1.0 / 2.0
	case PointLocP23:
		return 2.0 / 3.0
	default:
		return 1.0
	}
}

// DecisionKind enumerates the outcomes of the daily decision.
type DecisionKind string

const (
	DecisionHold     DecisionKind = "Hold"
	DecisionBuy      DecisionKind = "Buy"
	DecisionSellFull DecisionKind = "SellFull"
	DecisionSell34   DecisionKind = "Sell3_4"
	DecisionSell14   DecisionKind = "Sell1_4"
	DecisionSellPart DecisionKind = "SellPartForced"
)

// Decision is the pure output of the decision engine. Seed carries the dollar
// amount for buys; Qty carries units for sells.
type Decision struct {
	Kind DecisionKind
	Seed float64
	Qty  int64
	// InsufficientBalance marks a hold forced by available cash rather than
	// strategy; the operator gets told about these.
	InsufficientBalance bool
	Reason              string
}

func (d Decision) IsHold() bool {
	return d.Kind == DecisionHold || d.Kind == ""
}

func (d Decision) IsBuy() bool {
	return d.Kind == DecisionBuy
}

func (d Decision) IsSell() bool {
	switch d.Kind {
	case DecisionSellFull, DecisionSell34, DecisionSell14, DecisionSellPart:
		return true
	}
	return false
}

// OrderType maps the decision onto the parent order type it creates.
func (d Decision) OrderType() OrderType {
	switch d.Kind {
	case DecisionBuy:
		return OrderTypeBuy
	case DecisionSellFull:
		return OrderTypeSell
	case DecisionSell34:
		return OrderTypeSell34
	case DecisionSell14:
		return OrderTypeSell14
	case DecisionSellPart:
		return OrderTypeSellPart
	}
	return ""
}
