package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, program *Program) error
	Update(ctx context.Context, db *gorm.DB, program *Program) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Program, error)
	FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*Program, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Program, error)
}

type EnrollmentRepository interface {
	Insert(ctx context.Context, db *gorm.DB, enrollment *Enrollment) error
	Update(ctx context.Context, db *gorm.DB, enrollment *Enrollment) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Enrollment, error)
	Find(ctx context.Context, db *gorm.DB, programID, affiliateID snowflake.ID) (*Enrollment, error)
	ListByProgram(ctx context.Context, db *gorm.DB, programID snowflake.ID) ([]Enrollment, error)
	ListByAffiliate(ctx context.Context, db *gorm.DB, affiliateID snowflake.ID) ([]Enrollment, error)
}

type ListFilter struct {
	Status ProgramStatus
	Type   ProgramType
	Limit  int
	Offset int
}
