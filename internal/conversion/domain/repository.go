package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, conversion *Conversion) error
	Update(ctx context.Context, db *gorm.DB, conversion *Conversion) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Conversion, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Conversion, error)
}

type ListFilter struct {
	AffiliateID snowflake.ID
	ProgramID   snowflake.ID
	Status      ConversionStatus
	Limit       int
	Offset      int
}
