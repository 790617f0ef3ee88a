// Package seed bootstraps the default admin user and affiliate tiers
// so a fresh install is usable immediately.
package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	affiliatedomain "github.com/smallbiznis/referra/internal/affiliate/domain"
	"github.com/smallbiznis/referra/internal/auth/password"
	"github.com/smallbiznis/referra/internal/config"
	userdomain "github.com/smallbiznis/referra/internal/user/domain"
	"gorm.io/gorm"
)

type tierSpec struct {
	name       string
	level      int
	multiplier decimal.Decimal
}

func defaultTiers() []tierSpec {
	return []tierSpec{
		{name: "Bronze", level: 1, multiplier: decimal.NewFromInt(1)},
		{name: "Silver", level: 2, multiplier: decimal.RequireFromString("1.2")},
		{name: "Gold", level: 3, multiplier: decimal.RequireFromString("1.5")},
	}
}

// EnsureDefaultTiers seeds the Bronze/Silver/Gold tiers when absent.
func EnsureDefaultTiers(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, spec := range defaultTiers() {
			var tier affiliatedomain.AffiliateTier
			err := tx.WithContext(ctx).Where("name = ?", spec.name).First(&tier).Error
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			tier = affiliatedomain.AffiliateTier{
				ID:                   node.Generate(),
				Name:                 spec.name,
				Level:                spec.level,
				CommissionMultiplier: spec.multiplier,
				CreatedAt:            time.Now().UTC(),
			}
			if err := tx.WithContext(ctx).Create(&tier).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// EnsureAdminUser seeds the bootstrap admin account when absent.
func EnsureAdminUser(db *gorm.DB, cfg config.Config) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	email := strings.ToLower(strings.TrimSpace(cfg.BootstrapAdminEmail))
	if email == "" {
		return nil
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user userdomain.User
		err := tx.WithContext(ctx).Where("email = ?", email).First(&user).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		hashed, err := password.Hash(cfg.BootstrapAdminPassword)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		user = userdomain.User{
			ID:           node.Generate(),
			Email:        email,
			PasswordHash: hashed,
			FullName:     "Referra Admin",
			Role:         userdomain.RoleAdmin,
			IsActive:     true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		return tx.WithContext(ctx).Create(&user).Error
	})
}
