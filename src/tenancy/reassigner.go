// Package tenancy repairs pre-tenancy data: rows in owned tables whose
// user_id was never set get assigned to a designated target user.
package tenancy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tenancymigrator/src/catalog"
	"tenancymigrator/src/database/migrations"
	"tenancymigrator/src/repository"
	"tenancymigrator/src/schema"
)

// ErrTargetUserMissing means the reassignment target email does not
// resolve to exactly one active user.
var ErrTargetUserMissing = errors.New("target user missing or inactive")

// TableResult is the per-table outcome of a reassignment.
type TableResult struct {
	Table   string `json:"table"`
	Updated int64  `json:"updated"`
}

// Result summarizes one reassignment run.
type Result struct {
	TargetUserID string        `json:"target_user_id"`
	TargetEmail  string        `json:"target_email"`
	Tables       []TableResult `json:"tables"`
	Total        int64         `json:"total"`
}

// Reassigner assigns orphan rows to a target user. It is not a general
// ACL tool; it exists only to repair pre-tenancy data. Rows with a
// non-null but unknown user_id are never rewritten; the prober reports
// those as defects requiring human action.
type Reassigner struct {
	db  *gorm.DB
	log *logrus.Entry
}

func NewReassigner(db *gorm.DB) *Reassigner {
	return &Reassigner{
		db:  db,
		log: logrus.WithField("component", "reassigner"),
	}
}

// Reassign moves every null-user_id row of every owned table to the
// user identified by email. All table updates run inside a single
// transaction: any per-table failure rolls the whole repair back.
// Derived tables are never updated directly; their ownership flows
// through the declared parent FK.
func (r *Reassigner) Reassign(ctx context.Context, email string) (*Result, error) {
	users := repository.NewUserRepository(r.db)
	target, err := users.GetActiveUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTargetUserMissing, email)
		}
		return nil, fmt.Errorf("resolve target user %s: %w", email, err)
	}

	result := &Result{TargetUserID: target.UserID, TargetEmail: email}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		in := schema.NewIntrospector(tx)
		for _, t := range catalog.Owned() {
			exists, err := in.HasTable(t.Name)
			if err != nil {
				return fmt.Errorf("inspect %s: %w", t.Name, err)
			}
			if !exists {
				r.log.WithField("table", t.Name).Debug("table absent, nothing to reassign")
				result.Tables = append(result.Tables, TableResult{Table: t.Name})
				continue
			}

			res := tx.Exec(
				fmt.Sprintf("UPDATE %s SET user_id = ? WHERE user_id IS NULL", t.Name),
				target.UserID,
			)
			if res.Error != nil {
				return fmt.Errorf("reassign %s: %w", t.Name, res.Error)
			}

			result.Tables = append(result.Tables, TableResult{Table: t.Name, Updated: res.RowsAffected})
			result.Total += res.RowsAffected
			if res.RowsAffected > 0 {
				r.log.WithFields(logrus.Fields{
					"table": t.Name,
					"rows":  res.RowsAffected,
					"user":  target.UserID,
				}).Info("orphan rows reassigned")
			}
		}

		if result.Total > 0 {
			id := fmt.Sprintf("reassign_orphans:%s:%s", target.UserID, time.Now().UTC().Format(time.RFC3339))
			if err := migrations.Record(tx, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
