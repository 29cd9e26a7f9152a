package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Dataset is a named collection of training data sources owned by a user.
type Dataset struct {
	DatasetID         string    `gorm:"primaryKey;size:36;column:dataset_id" json:"dataset_id"`
	Name              string    `gorm:"size:255;not null;column:name" json:"name"`
	Description       string    `gorm:"size:512;column:description" json:"description,omitempty"`
	CreatedUTC        time.Time `gorm:"column:created_utc" json:"created_utc"`
	SourcesJSON       string    `gorm:"type:text;column:sources_json" json:"sources_json"`
	FeatureConfigJSON string    `gorm:"type:text;column:feature_config_json" json:"feature_config_json,omitempty"`
	UserID            *string   `gorm:"size:36;index;column:user_id" json:"user_id,omitempty"`

	Samples []MlDatasetSample `gorm:"foreignKey:DatasetID;references:DatasetID" json:"samples,omitempty"`
	User    *User             `gorm:"foreignKey:UserID;references:UserID" json:"user,omitempty"`
}

func (Dataset) TableName() string { return "datasets" }

func (d *Dataset) BeforeCreate(_ *gorm.DB) error {
	if d.DatasetID == "" {
		d.DatasetID = uuid.NewString()
	}
	return nil
}

// MlDatasetSample is a single feature row of a dataset. Ownership is
// inherited through the dataset.
type MlDatasetSample struct {
	SampleID     string `gorm:"primaryKey;size:36;column:sample_id" json:"sample_id"`
	DatasetID    string `gorm:"size:36;not null;index;column:dataset_id" json:"dataset_id"`
	FeaturesJSON string `gorm:"type:text;not null;column:features_json" json:"features_json"`

	Dataset *Dataset `gorm:"foreignKey:DatasetID;references:DatasetID;constraint:OnDelete:CASCADE" json:"-"`
}

func (MlDatasetSample) TableName() string { return "ml_dataset_samples" }

func (s *MlDatasetSample) BeforeCreate(_ *gorm.DB) error {
	if s.SampleID == "" {
		s.SampleID = uuid.NewString()
	}
	return nil
}
