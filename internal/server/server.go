package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/referra/internal/affiliate"
	affiliatedomain "github.com/smallbiznis/referra/internal/affiliate/domain"
	"github.com/smallbiznis/referra/internal/auth"
	authdomain "github.com/smallbiznis/referra/internal/auth/domain"
	"github.com/smallbiznis/referra/internal/auth/token"
	"github.com/smallbiznis/referra/internal/commission"
	commissiondomain "github.com/smallbiznis/referra/internal/commission/domain"
	"github.com/smallbiznis/referra/internal/config"
	"github.com/smallbiznis/referra/internal/conversion"
	conversiondomain "github.com/smallbiznis/referra/internal/conversion/domain"
	"github.com/smallbiznis/referra/internal/observability"
	obsmiddleware "github.com/smallbiznis/referra/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/referra/internal/observability/metrics"
	obstracing "github.com/smallbiznis/referra/internal/observability/tracing"
	"github.com/smallbiznis/referra/internal/payout"
	payoutdomain "github.com/smallbiznis/referra/internal/payout/domain"
	"github.com/smallbiznis/referra/internal/program"
	programdomain "github.com/smallbiznis/referra/internal/program/domain"
	"github.com/smallbiznis/referra/internal/ratelimit"
	"github.com/smallbiznis/referra/internal/referral"
	referraldomain "github.com/smallbiznis/referra/internal/referral/domain"
	"github.com/smallbiznis/referra/internal/user"
	userdomain "github.com/smallbiznis/referra/internal/user/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("http.server",
	config.Module,
	fx.Provide(registerGin),
	auth.Module,
	user.Module,
	affiliate.Module,
	program.Module,
	referral.Module,
	conversion.Module,
	commission.Module,
	payout.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine        *gin.Engine
	cfg           config.Config
	tokens        *token.Manager
	authSvc       authdomain.Service
	userSvc       userdomain.Service
	affiliateSvc  affiliatedomain.Service
	programSvc    programdomain.Service
	referralSvc   referraldomain.Service
	conversionSvc conversiondomain.Service
	commissionSvc commissiondomain.Service
	payoutSvc     payoutdomain.Service
	trackLimiter  *ratelimit.TrackLimiter
	obsMetrics    *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	Tokens        *token.Manager
	AuthSvc       authdomain.Service
	UserSvc       userdomain.Service
	AffiliateSvc  affiliatedomain.Service
	ProgramSvc    programdomain.Service
	ReferralSvc   referraldomain.Service
	ConversionSvc conversiondomain.Service
	CommissionSvc commissiondomain.Service
	PayoutSvc     payoutdomain.Service
	TrackLimiter  *ratelimit.TrackLimiter   `optional:"true"`
	ObsMetrics    *obsmetrics.Metrics       `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		tokens:        p.Tokens,
		authSvc:       p.AuthSvc,
		userSvc:       p.UserSvc,
		affiliateSvc:  p.AffiliateSvc,
		programSvc:    p.ProgramSvc,
		referralSvc:   p.ReferralSvc,
		conversionSvc: p.ConversionSvc,
		commissionSvc: p.CommissionSvc,
		payoutSvc:     p.PayoutSvc,
		trackLimiter:  p.TrackLimiter,
		obsMetrics:    p.ObsMetrics,
	}

	svc.registerPublicRoutes()
	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerPublicRoutes() {
	s.engine.GET("/track/:code", s.TrackClick)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1")

	// -------- Auth --------
	authgrp := api.Group("/auth")
	authgrp.POST("/register", s.Register)
	authgrp.POST("/login", s.Login)
	authgrp.POST("/refresh", s.RefreshToken)

	// -------- Conversions (postback) --------
	// External order systems post conversions here; auto_validate is
	// honored only for authenticated admins.
	api.POST("/conversions", s.CreateConversion)

	// -------- Referral verification --------
	api.GET("/referrals/verify/:code", s.VerifyReferralCode)

	authed := api.Group("", s.AuthRequired())

	// -------- Users --------
	authed.GET("/users/me", s.GetCurrentUser)
	authed.PATCH("/users/me", s.UpdateCurrentUser)
	authed.GET("/users", s.RequireRole(userdomain.RoleAdmin), s.ListUsers)
	authed.POST("/users", s.RequireRole(userdomain.RoleAdmin), s.CreateUser)
	authed.GET("/users/:id", s.RequireRole(userdomain.RoleAdmin), s.GetUserByID)
	authed.PATCH("/users/:id", s.RequireRole(userdomain.RoleAdmin), s.UpdateUser)
	authed.DELETE("/users/:id", s.RequireRole(userdomain.RoleAdmin), s.DeactivateUser)

	// -------- Affiliates --------
	authed.POST("/affiliates/apply", s.ApplyAffiliate)
	authed.GET("/affiliates/me", s.GetCurrentAffiliate)
	authed.PATCH("/affiliates/me", s.UpdateCurrentAffiliate)
	authed.GET("/affiliates/me/earnings", s.GetCurrentAffiliateEarnings)
	authed.GET("/affiliates", s.RequireRole(userdomain.RoleAdmin), s.ListAffiliates)
	authed.GET("/affiliates/:id", s.RequireRole(userdomain.RoleAdmin), s.GetAffiliateByID)
	authed.POST("/affiliates/:id/approve", s.RequireRole(userdomain.RoleAdmin), s.ApproveAffiliate)
	authed.POST("/affiliates/:id/reject", s.RequireRole(userdomain.RoleAdmin), s.RejectAffiliate)
	authed.GET("/affiliates/:id/earnings", s.RequireRole(userdomain.RoleAdmin), s.GetAffiliateEarnings)

	// -------- Tiers --------
	authed.GET("/tiers", s.ListTiers)
	authed.GET("/tiers/:id", s.GetTierByID)

	// -------- Programs --------
	authed.GET("/programs", s.ListPrograms)
	authed.GET("/programs/:id", s.GetProgramByID)
	authed.POST("/programs", s.RequireRole(userdomain.RoleAdmin), s.CreateProgram)
	authed.PATCH("/programs/:id", s.RequireRole(userdomain.RoleAdmin), s.UpdateProgram)
	authed.POST("/programs/:id/enroll", s.EnrollInProgram)
	authed.GET("/programs/:id/enrollments", s.RequireRole(userdomain.RoleAdmin), s.ListProgramEnrollments)
	authed.GET("/enrollments/me", s.ListCurrentAffiliateEnrollments)
	authed.PATCH("/enrollments/:id", s.RequireRole(userdomain.RoleAdmin), s.UpdateEnrollment)

	// -------- Referral links --------
	authed.POST("/links", s.CreateLink)
	authed.GET("/links", s.ListLinks)
	authed.GET("/links/:id", s.GetLinkByID)
	authed.PATCH("/links/:id", s.UpdateLink)
	authed.DELETE("/links/:id", s.DeleteLink)
	authed.GET("/links/:id/stats", s.GetLinkStats)
	authed.GET("/links/:id/clicks", s.ListLinkClicks)

	// -------- Conversions --------
	authed.GET("/conversions", s.RequireRole(userdomain.RoleAdmin), s.ListConversions)
	authed.GET("/conversions/:id", s.RequireRole(userdomain.RoleAdmin), s.GetConversionByID)
	authed.POST("/conversions/:id/validate", s.RequireRole(userdomain.RoleAdmin), s.ValidateConversion)
	authed.POST("/conversions/:id/reject", s.RequireRole(userdomain.RoleAdmin), s.RejectConversion)
	authed.POST("/conversions/:id/reverse", s.RequireRole(userdomain.RoleAdmin), s.ReverseConversion)

	// -------- Commissions --------
	authed.GET("/commissions/me", s.ListCurrentAffiliateCommissions)
	authed.GET("/commissions", s.RequireRole(userdomain.RoleAdmin), s.ListCommissions)
	authed.GET("/commissions/:id", s.RequireRole(userdomain.RoleAdmin), s.GetCommissionByID)
	authed.POST("/commissions/:id/approve", s.RequireRole(userdomain.RoleAdmin), s.ApproveCommission)
	authed.POST("/commissions/:id/reject", s.RequireRole(userdomain.RoleAdmin), s.RejectCommission)

	// -------- Payouts --------
	authed.GET("/payouts/me", s.ListCurrentAffiliatePayouts)
	authed.GET("/payouts/stats", s.RequireRole(userdomain.RoleAdmin), s.GetPayoutStats)
	authed.POST("/payouts/generate", s.RequireRole(userdomain.RoleAdmin), s.GeneratePayout)
	authed.POST("/payouts/generate-monthly", s.RequireRole(userdomain.RoleAdmin), s.GenerateMonthlyPayouts)
	authed.GET("/payouts", s.RequireRole(userdomain.RoleAdmin), s.ListPayouts)
	authed.GET("/payouts/:id", s.RequireRole(userdomain.RoleAdmin), s.GetPayoutByID)
	authed.POST("/payouts/:id/process", s.RequireRole(userdomain.RoleAdmin), s.ProcessPayout)
	authed.POST("/payouts/:id/complete", s.RequireRole(userdomain.RoleAdmin), s.CompletePayout)
	authed.POST("/payouts/:id/cancel", s.RequireRole(userdomain.RoleAdmin), s.CancelPayout)
	authed.POST("/payouts/:id/fail", s.RequireRole(userdomain.RoleAdmin), s.FailPayout)
}
