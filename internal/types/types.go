package types

import "time"

// Direction of a trade relative to the trap range.
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// Candle is one fixed-interval OHLC bar. Ts is the bar open time (unix seconds).
type Candle struct {
	Ts                          int64
	Open, High, Low, Close, Vol float64
}

// Tick is a live bid/ask quote.
type Tick struct {
	Bid float64
	Ask float64
	Ts  int64
}

// SymbolSpec describes the instrument contract as reported by the venue.
type SymbolSpec struct {
	Point        float64 // smallest price increment
	Digits       int     // native decimal precision
	ContractSize float64 // units per 1.0 lot
	VolumeMin    float64
	VolumeMax    float64
	VolumeStep   float64
	StopsLevel   int // minimum stop distance in points
}

// PointValue is the account-currency value of a one-point move per 1.0 lot.
func (s SymbolSpec) PointValue() float64 {
	return s.ContractSize * s.Point
}

// OrderReq is a market order submission.
type OrderReq struct {
	Symbol    string
	Direction Direction
	Volume    float64
	Price     float64
	SL        float64
	TP        float64
	Comment   string
}

// OrderResult is the venue's response to a submission.
type OrderResult struct {
	Ticket        int64
	ExecutedPrice float64
	Retcode       int
	Comment       string
}

// Position is a bot-tracked open position, keyed by the venue ticket.
type Position struct {
	Ticket     int64
	Symbol     string
	Phase      string
	Direction  Direction
	EntryPrice float64
	SL         float64
	TP         float64
	Volume     float64
	RiskMoney  float64
	OpenedAt   time.Time
}

// VenuePosition is an open position as reported by the venue.
type VenuePosition struct {
	Ticket     int64
	Symbol     string
	Direction  Direction
	EntryPrice float64
	SL         float64
	TP         float64
	Volume     float64
}

// Deal is one trade-history record. Exit deals close a position.
type Deal struct {
	PositionTicket int64
	Symbol         string
	IsExit         bool
	Price          float64
	Profit         float64
	Volume         float64
	Ts             int64
}

// CloseStatus is the lifecycle status persisted per ticket.
type CloseStatus string

const (
	StatusOpen          CloseStatus = "OPEN"
	StatusGain          CloseStatus = "GAIN"
	StatusLoss          CloseStatus = "LOSS"
	StatusClosedUnknown CloseStatus = "CLOSED_UNKNOWN"
)

// TradeRecord is the persisted ledger row for a ticket. ClosePrice and
// Profit are nil until the position is resolved, and stay nil when the
// closing deal could not be found in venue history.
type TradeRecord struct {
	Timestamp  time.Time
	Ticket     int64
	Symbol     string
	Direction  Direction
	EntryPrice float64
	ClosePrice *float64
	Profit     *float64
	SL         float64
	TP         float64
	Volume     float64
	RiskMoney  float64
	Status     CloseStatus
}

// PendingSubmission is persisted before every order submission so a crash
// between submit and acknowledge can be reconciled against venue state at
// the next startup.
type PendingSubmission struct {
	ID        string // ULID
	Symbol    string
	Phase     string
	Direction Direction
	Volume    float64
	Price     float64
	SL        float64
	TP        float64
	RiskMoney float64
	CreatedAt time.Time
}
