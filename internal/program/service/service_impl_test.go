package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/referra/internal/clock"
	programdomain "github.com/smallbiznis/referra/internal/program/domain"
	programrepo "github.com/smallbiznis/referra/internal/program/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var percentConfig = json.RawMessage(`{"type":"percentage","value":10}`)

type fixture struct {
	db   *gorm.DB
	node *snowflake.Node
	svc  programdomain.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&programdomain.Program{},
		&programdomain.Enrollment{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(ServiceParam{
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       clock.NewFakeClock(time.Date(2024, time.April, 1, 9, 0, 0, 0, time.UTC)),
		Repo:        programrepo.Provide(),
		Enrollments: programrepo.ProvideEnrollment(),
	})

	return &fixture{db: db, node: node, svc: svc}
}

func (f *fixture) createProgram(t *testing.T, name string) programdomain.Program {
	t.Helper()
	program, err := f.svc.Create(context.Background(), programdomain.CreateProgramRequest{
		Name:             name,
		CommissionConfig: percentConfig,
	})
	require.NoError(t, err)
	return program
}

func TestCreate_Defaults(t *testing.T) {
	f := newFixture(t)

	program := f.createProgram(t, "SaaS Partner Program")
	assert.Equal(t, "saas-partner-program", program.Slug)
	assert.Equal(t, programdomain.ProgramTypeSaaS, program.ProgramType)
	assert.Equal(t, programdomain.ProgramStatusActive, program.Status)
	assert.Equal(t, 30, program.CookieWindowDays)
	assert.Equal(t, "USD", program.Currency)
}

func TestCreate_DuplicateSlug(t *testing.T) {
	f := newFixture(t)

	f.createProgram(t, "Partner Program")
	_, err := f.svc.Create(context.Background(), programdomain.CreateProgramRequest{
		Name:             "Partner Program",
		CommissionConfig: percentConfig,
	})
	assert.ErrorIs(t, err, programdomain.ErrSlugTaken)
}

func TestCreate_RejectsBadConfig(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), programdomain.CreateProgramRequest{
		Name:             "Broken",
		CommissionConfig: json.RawMessage(`{"type":"tiered"}`),
	})
	assert.ErrorIs(t, err, programdomain.ErrInvalidConfig)
}

func TestCreate_RejectsUnknownType(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), programdomain.CreateProgramRequest{
		Name:             "Odd",
		ProgramType:      "dropshipping",
		CommissionConfig: percentConfig,
	})
	assert.Error(t, err)
}

func TestUpdate_StatusAndConfig(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	program := f.createProgram(t, "Partner Program")

	paused := string(programdomain.ProgramStatusPaused)
	updated, err := f.svc.Update(ctx, program.ID.String(), programdomain.UpdateProgramRequest{
		Status:           &paused,
		CommissionConfig: json.RawMessage(`{"type":"fixed","value":5}`),
	})
	require.NoError(t, err)
	assert.Equal(t, programdomain.ProgramStatusPaused, updated.Status)
	assert.JSONEq(t, `{"type":"fixed","value":5}`, string(updated.CommissionConfig))

	bogus := "retired"
	_, err = f.svc.Update(ctx, program.ID.String(), programdomain.UpdateProgramRequest{Status: &bogus})
	assert.ErrorIs(t, err, programdomain.ErrInvalidStatus)
}

func TestEnroll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	program := f.createProgram(t, "Partner Program")
	affiliateID := f.node.Generate()

	enrollment, err := f.svc.Enroll(ctx, program.ID.String(), programdomain.EnrollRequest{AffiliateID: affiliateID})
	require.NoError(t, err)
	assert.Equal(t, programdomain.EnrollmentStatusActive, enrollment.Status)

	_, err = f.svc.Enroll(ctx, program.ID.String(), programdomain.EnrollRequest{AffiliateID: affiliateID})
	assert.ErrorIs(t, err, programdomain.ErrAlreadyEnrolled)
}

func TestEnroll_RequiresActiveProgram(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	program := f.createProgram(t, "Partner Program")

	paused := string(programdomain.ProgramStatusPaused)
	_, err := f.svc.Update(ctx, program.ID.String(), programdomain.UpdateProgramRequest{Status: &paused})
	require.NoError(t, err)

	_, err = f.svc.Enroll(ctx, program.ID.String(), programdomain.EnrollRequest{AffiliateID: f.node.Generate()})
	assert.ErrorIs(t, err, programdomain.ErrProgramNotActive)
}

func TestEnroll_CustomConfigValidated(t *testing.T) {
	f := newFixture(t)
	program := f.createProgram(t, "Partner Program")

	_, err := f.svc.Enroll(context.Background(), program.ID.String(), programdomain.EnrollRequest{
		AffiliateID:            f.node.Generate(),
		CustomCommissionConfig: json.RawMessage(`{"type":"nope"}`),
	})
	assert.ErrorIs(t, err, programdomain.ErrInvalidConfig)
}

func TestUpdateEnrollment_Pause(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	program := f.createProgram(t, "Partner Program")
	affiliateID := f.node.Generate()

	enrollment, err := f.svc.Enroll(ctx, program.ID.String(), programdomain.EnrollRequest{AffiliateID: affiliateID})
	require.NoError(t, err)

	paused := string(programdomain.EnrollmentStatusPaused)
	updated, err := f.svc.UpdateEnrollment(ctx, enrollment.ID.String(), programdomain.UpdateEnrollmentRequest{Status: &paused})
	require.NoError(t, err)
	assert.Equal(t, programdomain.EnrollmentStatusPaused, updated.Status)

	_, err = f.svc.ActiveEnrollment(ctx, program.ID, affiliateID)
	assert.ErrorIs(t, err, programdomain.ErrEnrollmentNotFound)
}
