package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	SideLong  = "LONG"
	SideShort = "SHORT"
)

// Trade is a single round trip recorded under a strategy run.
// Ownership is inherited through the run's instance.
type Trade struct {
	TradeID         string           `gorm:"primaryKey;size:36;column:trade_id" json:"trade_id"`
	RunID           string           `gorm:"size:36;not null;index;column:run_id" json:"run_id"`
	Symbol          string           `gorm:"size:50;not null;column:symbol" json:"symbol"`
	Side            string           `gorm:"size:10;not null;column:side" json:"side"` // LONG, SHORT
	EntryTime       time.Time        `gorm:"column:entry_time" json:"entry_time"`
	ExitTime        *time.Time       `gorm:"column:exit_time" json:"exit_time,omitempty"`
	EntryPrice      decimal.Decimal  `gorm:"type:real;column:entry_price" json:"entry_price"`
	ExitPrice       *decimal.Decimal `gorm:"type:real;column:exit_price" json:"exit_price,omitempty"`
	Quantity        decimal.Decimal  `gorm:"type:real;column:quantity" json:"quantity"`
	PnlNet          decimal.Decimal  `gorm:"type:real;column:pnl_net" json:"pnl_net"`
	PnlGross        *decimal.Decimal `gorm:"type:real;column:pnl_gross" json:"pnl_gross,omitempty"`
	Commission      decimal.Decimal  `gorm:"type:real;column:commission" json:"commission"`
	MAE             *float64         `gorm:"column:mae" json:"mae,omitempty"`
	MFE             *float64         `gorm:"column:mfe" json:"mfe,omitempty"`
	DurationSeconds *int64           `gorm:"column:duration_seconds" json:"duration_seconds,omitempty"`
	ExtraJSON       string           `gorm:"type:text;column:extra_json" json:"extra_json,omitempty"`

	Run *StrategyRun `gorm:"foreignKey:RunID;references:RunID;constraint:OnDelete:CASCADE" json:"run,omitempty"`
}

func (Trade) TableName() string { return "trades" }

func (t *Trade) BeforeCreate(_ *gorm.DB) error {
	if t.TradeID == "" {
		t.TradeID = uuid.NewString()
	}
	return nil
}

// RunSeriesBar is one point of a run's equity/price series.
type RunSeriesBar struct {
	BarID   string    `gorm:"primaryKey;size:36;column:bar_id" json:"bar_id"`
	RunID   string    `gorm:"size:36;not null;index;column:run_id" json:"run_id"`
	TimeUTC time.Time `gorm:"column:time_utc" json:"time_utc"`
	Open    float64   `gorm:"column:open" json:"open"`
	High    float64   `gorm:"column:high" json:"high"`
	Low     float64   `gorm:"column:low" json:"low"`
	Close   float64   `gorm:"column:close" json:"close"`
	Volume  float64   `gorm:"column:volume" json:"volume"`

	Run *StrategyRun `gorm:"foreignKey:RunID;references:RunID;constraint:OnDelete:CASCADE" json:"-"`
}

func (RunSeriesBar) TableName() string { return "run_series_bars" }

func (b *RunSeriesBar) BeforeCreate(_ *gorm.DB) error {
	if b.BarID == "" {
		b.BarID = uuid.NewString()
	}
	return nil
}

// MarketBar is shared market data. It belongs to no tenant.
type MarketBar struct {
	BarID     string    `gorm:"primaryKey;size:36;column:bar_id" json:"bar_id"`
	Symbol    string    `gorm:"size:50;not null;index:idx_market_bars_symbol_time;column:symbol" json:"symbol"`
	Timeframe string    `gorm:"size:10;not null;column:timeframe" json:"timeframe"`
	TimeUTC   time.Time `gorm:"index:idx_market_bars_symbol_time;column:time_utc" json:"time_utc"`
	Open      float64   `gorm:"column:open" json:"open"`
	High      float64   `gorm:"column:high" json:"high"`
	Low       float64   `gorm:"column:low" json:"low"`
	Close     float64   `gorm:"column:close" json:"close"`
	Volume    float64   `gorm:"column:volume" json:"volume"`
}

func (MarketBar) TableName() string { return "market_bars" }

func (b *MarketBar) BeforeCreate(_ *gorm.DB) error {
	if b.BarID == "" {
		b.BarID = uuid.NewString()
	}
	return nil
}
