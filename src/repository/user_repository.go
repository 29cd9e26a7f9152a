package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tenancymigrator/src/model"
)

type GormUserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *GormUserRepository {
	logger.WithField("component", "GormUserRepository").
		Debug("Creating new GormUserRepository")

	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) GetUserByEmail(
	ctx context.Context,
	email string,
) (*model.User, error) {

	var u model.User
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		First(&u).Error

	if err != nil {
		return nil, err
	}

	return &u, nil
}

// GetActiveUserByEmail resolves an email to exactly one active user.
func (r *GormUserRepository) GetActiveUserByEmail(
	ctx context.Context,
	email string,
) (*model.User, error) {

	var u model.User
	err := r.db.WithContext(ctx).
		Where("email = ? AND is_active = ?", email, true).
		First(&u).Error

	if err != nil {
		return nil, err
	}

	return &u, nil
}
