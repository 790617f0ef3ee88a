package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	programdomain "github.com/smallbiznis/referra/internal/program/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() programdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, program *programdomain.Program) error {
	return db.WithContext(ctx).Create(program).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, program *programdomain.Program) error {
	return db.WithContext(ctx).Save(program).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*programdomain.Program, error) {
	return r.findOne(ctx, db, "id = ?", id)
}

func (r *repo) FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*programdomain.Program, error) {
	return r.findOne(ctx, db, "slug = ?", slug)
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, query string, arg any) (*programdomain.Program, error) {
	var program programdomain.Program
	err := db.WithContext(ctx).First(&program, query, arg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &program, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter programdomain.ListFilter) ([]programdomain.Program, error) {
	query := db.WithContext(ctx).Model(&programdomain.Program{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Type != "" {
		query = query.Where("program_type = ?", filter.Type)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var programs []programdomain.Program
	if err := query.Order("created_at DESC").Find(&programs).Error; err != nil {
		return nil, err
	}
	return programs, nil
}

type enrollmentRepo struct{}

func ProvideEnrollment() programdomain.EnrollmentRepository {
	return &enrollmentRepo{}
}

func (r *enrollmentRepo) Insert(ctx context.Context, db *gorm.DB, enrollment *programdomain.Enrollment) error {
	return db.WithContext(ctx).Create(enrollment).Error
}

func (r *enrollmentRepo) Update(ctx context.Context, db *gorm.DB, enrollment *programdomain.Enrollment) error {
	return db.WithContext(ctx).Save(enrollment).Error
}

func (r *enrollmentRepo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*programdomain.Enrollment, error) {
	var enrollment programdomain.Enrollment
	err := db.WithContext(ctx).First(&enrollment, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &enrollment, nil
}

func (r *enrollmentRepo) Find(ctx context.Context, db *gorm.DB, programID, affiliateID snowflake.ID) (*programdomain.Enrollment, error) {
	var enrollment programdomain.Enrollment
	err := db.WithContext(ctx).
		First(&enrollment, "program_id = ? AND affiliate_id = ?", programID, affiliateID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &enrollment, nil
}

func (r *enrollmentRepo) ListByProgram(ctx context.Context, db *gorm.DB, programID snowflake.ID) ([]programdomain.Enrollment, error) {
	var enrollments []programdomain.Enrollment
	err := db.WithContext(ctx).
		Where("program_id = ?", programID).
		Order("created_at DESC").
		Find(&enrollments).Error
	if err != nil {
		return nil, err
	}
	return enrollments, nil
}

func (r *enrollmentRepo) ListByAffiliate(ctx context.Context, db *gorm.DB, affiliateID snowflake.ID) ([]programdomain.Enrollment, error) {
	var enrollments []programdomain.Enrollment
	err := db.WithContext(ctx).
		Where("affiliate_id = ?", affiliateID).
		Order("created_at DESC").
		Find(&enrollments).Error
	if err != nil {
		return nil, err
	}
	return enrollments, nil
}
