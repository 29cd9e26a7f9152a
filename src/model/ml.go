package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	SessionStatusPlanned = "PLANNED"
	SessionStatusRunning = "RUNNING"
	SessionStatusDone    = "DONE"
	SessionStatusFailed  = "FAILED"

	IterationStatusPending = "PENDING"
	IterationStatusRunning = "RUNNING"
	IterationStatusDone    = "DONE"
	IterationStatusFailed  = "FAILED"
)

// MlRewardFunction is user-authored reward code for training.
type MlRewardFunction struct {
	FunctionID   string    `gorm:"primaryKey;size:36;column:function_id" json:"function_id"`
	Name         string    `gorm:"size:255;not null;column:name" json:"name"`
	Code         string    `gorm:"type:text;not null;column:code" json:"code"`
	CreatedUTC   time.Time `gorm:"column:created_utc" json:"created_utc"`
	MetadataJSON string    `gorm:"type:text;column:metadata_json" json:"metadata_json,omitempty"`
	UserID       *string   `gorm:"size:36;index;column:user_id" json:"user_id,omitempty"`
}

func (MlRewardFunction) TableName() string { return "ml_reward_functions" }

func (f *MlRewardFunction) BeforeCreate(_ *gorm.DB) error {
	if f.FunctionID == "" {
		f.FunctionID = uuid.NewString()
	}
	return nil
}

// MlModelArchitecture describes a model topology owned by a user.
type MlModelArchitecture struct {
	ModelID    string    `gorm:"primaryKey;size:36;column:model_id" json:"model_id"`
	Name       string    `gorm:"size:255;not null;column:name" json:"name"`
	SpecJSON   string    `gorm:"type:text;column:spec_json" json:"spec_json,omitempty"`
	CreatedUTC time.Time `gorm:"column:created_utc" json:"created_utc"`
	UserID     *string   `gorm:"size:36;index;column:user_id" json:"user_id,omitempty"`
}

func (MlModelArchitecture) TableName() string { return "ml_model_architectures" }

func (m *MlModelArchitecture) BeforeCreate(_ *gorm.DB) error {
	if m.ModelID == "" {
		m.ModelID = uuid.NewString()
	}
	return nil
}

// MlTrainingProcess holds the hyperparameter/process configuration.
type MlTrainingProcess struct {
	ProcessID  string    `gorm:"primaryKey;size:36;column:process_id" json:"process_id"`
	Name       string    `gorm:"size:255;not null;column:name" json:"name"`
	ConfigJSON string    `gorm:"type:text;column:config_json" json:"config_json,omitempty"`
	CreatedUTC time.Time `gorm:"column:created_utc" json:"created_utc"`
	UserID     *string   `gorm:"size:36;index;column:user_id" json:"user_id,omitempty"`
}

func (MlTrainingProcess) TableName() string { return "ml_training_processes" }

func (p *MlTrainingProcess) BeforeCreate(_ *gorm.DB) error {
	if p.ProcessID == "" {
		p.ProcessID = uuid.NewString()
	}
	return nil
}

// MlTrainingSession ties a reward function, architecture and process
// together for a sequence of training iterations.
type MlTrainingSession struct {
	SessionID  string    `gorm:"primaryKey;size:36;column:session_id" json:"session_id"`
	Name       string    `gorm:"size:255;not null;column:name" json:"name"`
	FunctionID *string   `gorm:"size:36;index;column:function_id" json:"function_id,omitempty"`
	ModelID    *string   `gorm:"size:36;index;column:model_id" json:"model_id,omitempty"`
	ProcessID  *string   `gorm:"size:36;index;column:process_id" json:"process_id,omitempty"`
	Status     string    `gorm:"size:20;not null;default:PLANNED;column:status" json:"status"` // PLANNED, RUNNING, DONE, FAILED
	CreatedUTC time.Time `gorm:"column:created_utc" json:"created_utc"`
	UserID     *string   `gorm:"size:36;index;column:user_id" json:"user_id,omitempty"`

	Iterations []MlIteration `gorm:"foreignKey:SessionID;references:SessionID" json:"iterations,omitempty"`
}

func (MlTrainingSession) TableName() string { return "ml_training_sessions" }

func (s *MlTrainingSession) BeforeCreate(_ *gorm.DB) error {
	if s.SessionID == "" {
		s.SessionID = uuid.NewString()
	}
	return nil
}

// MlIteration is one training pass within a session. Ownership is
// inherited through the session.
type MlIteration struct {
	IterationID       string     `gorm:"primaryKey;size:36;column:iteration_id" json:"iteration_id"`
	SessionID         string     `gorm:"size:36;not null;index;column:session_id" json:"session_id"`
	DatasetID         string     `gorm:"size:36;not null;index;column:dataset_id" json:"dataset_id"`
	Status            string     `gorm:"size:20;not null;default:PENDING;column:status" json:"status"` // PENDING, RUNNING, DONE, FAILED
	MetricsJSON       string     `gorm:"type:text;column:metrics_json" json:"metrics_json,omitempty"`
	ModelArtifactPath string     `gorm:"size:512;column:model_artifact_path" json:"model_artifact_path,omitempty"`
	StartUTC          *time.Time `gorm:"column:start_utc" json:"start_utc,omitempty"`
	EndUTC            *time.Time `gorm:"column:end_utc" json:"end_utc,omitempty"`

	Session *MlTrainingSession `gorm:"foreignKey:SessionID;references:SessionID;constraint:OnDelete:CASCADE" json:"-"`
	Dataset *Dataset           `gorm:"foreignKey:DatasetID;references:DatasetID" json:"-"`
}

func (MlIteration) TableName() string { return "ml_iterations" }

func (i *MlIteration) BeforeCreate(_ *gorm.DB) error {
	if i.IterationID == "" {
		i.IterationID = uuid.NewString()
	}
	return nil
}
