package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RunTypeBacktest = "BACKTEST"
	RunTypeLive     = "LIVE"
	RunTypePaper    = "PAPER"
)

// Strategy is a trading strategy definition owned by a user.
type Strategy struct {
	StrategyID string    `gorm:"primaryKey;size:36;column:strategy_id" json:"strategy_id"`
	Name       string    `gorm:"size:255;not null;column:name" json:"name"`
	UserID     *string   `gorm:"size:36;index;column:user_id" json:"user_id,omitempty"`
	CreatedUTC time.Time `gorm:"column:created_utc" json:"created_utc"`

	Instances []StrategyInstance `gorm:"foreignKey:StrategyID;references:StrategyID" json:"instances,omitempty"`
	User      *User              `gorm:"foreignKey:UserID;references:UserID" json:"user,omitempty"`
}

func (Strategy) TableName() string { return "strategies" }

func (s *Strategy) BeforeCreate(_ *gorm.DB) error {
	if s.StrategyID == "" {
		s.StrategyID = uuid.NewString()
	}
	return nil
}

// StrategyInstance is a parameterized deployment of a strategy.
type StrategyInstance struct {
	InstanceID string    `gorm:"primaryKey;size:36;column:instance_id" json:"instance_id"`
	StrategyID string    `gorm:"size:36;not null;index;column:strategy_id" json:"strategy_id"`
	UserID     *string   `gorm:"size:36;index;column:user_id" json:"user_id,omitempty"`
	CreatedUTC time.Time `gorm:"column:created_utc" json:"created_utc"`

	Strategy *Strategy     `gorm:"foreignKey:StrategyID;references:StrategyID;constraint:OnDelete:CASCADE" json:"strategy,omitempty"`
	Runs     []StrategyRun `gorm:"foreignKey:InstanceID;references:InstanceID" json:"runs,omitempty"`
}

func (StrategyInstance) TableName() string { return "strategy_instances" }

func (i *StrategyInstance) BeforeCreate(_ *gorm.DB) error {
	if i.InstanceID == "" {
		i.InstanceID = uuid.NewString()
	}
	return nil
}

// StrategyRun is one execution of an instance. Ownership is inherited
// through the instance, so runs carry no user_id column of their own.
type StrategyRun struct {
	RunID      string     `gorm:"primaryKey;size:36;column:run_id" json:"run_id"`
	InstanceID string     `gorm:"size:36;not null;index;column:instance_id" json:"instance_id"`
	RunType    string     `gorm:"size:20;not null;column:run_type" json:"run_type"` // BACKTEST, LIVE, PAPER
	StartUTC   time.Time  `gorm:"column:start_utc" json:"start_utc"`
	EndUTC     *time.Time `gorm:"column:end_utc" json:"end_utc,omitempty"`

	Instance *StrategyInstance `gorm:"foreignKey:InstanceID;references:InstanceID;constraint:OnDelete:CASCADE" json:"instance,omitempty"`
	Trades   []Trade           `gorm:"foreignKey:RunID;references:RunID" json:"trades,omitempty"`
}

func (StrategyRun) TableName() string { return "strategy_runs" }

func (r *StrategyRun) BeforeCreate(_ *gorm.DB) error {
	if r.RunID == "" {
		r.RunID = uuid.NewString()
	}
	return nil
}
