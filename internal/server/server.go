package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/karobar/karobar/internal/authclient"
	bomdomain "github.com/karobar/karobar/internal/bom/domain"
	branchdomain "github.com/karobar/karobar/internal/branch/domain"
	companydomain "github.com/karobar/karobar/internal/company/domain"
	"github.com/karobar/karobar/internal/config"
	fydomain "github.com/karobar/karobar/internal/financialyear/domain"
	obslogger "github.com/karobar/karobar/internal/observability/logger"
	quotationdomain "github.com/karobar/karobar/internal/quotation/domain"
	seqdomain "github.com/karobar/karobar/internal/sequence/domain"
	userdomain "github.com/karobar/karobar/internal/user/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
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
	engine       *gin.Engine
	cfg          config.Config
	db           *gorm.DB
	genID        *snowflake.Node
	auth         *authclient.Client
	companySvc   companydomain.Service
	branchSvc    branchdomain.Service
	yearSvc      fydomain.Service
	userSvc      userdomain.Service
	quotationSvc quotationdomain.Service
	bomSvc       bomdomain.Service
	sequenceSvc  seqdomain.Service
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	DB           *gorm.DB
	GenID        *snowflake.Node
	Auth         *authclient.Client
	CompanySvc   companydomain.Service
	BranchSvc    branchdomain.Service
	YearSvc      fydomain.Service
	UserSvc      userdomain.Service
	QuotationSvc quotationdomain.Service
	BomSvc       bomdomain.Service
	SequenceSvc  seqdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		db:           p.DB,
		genID:        p.GenID,
		auth:         p.Auth,
		companySvc:   p.CompanySvc,
		branchSvc:    p.BranchSvc,
		yearSvc:      p.YearSvc,
		userSvc:      p.UserSvc,
		quotationSvc: p.QuotationSvc,
		bomSvc:       p.BomSvc,
		sequenceSvc:  p.SequenceSvc,
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/login", s.Login)
	auth.POST("/change-password", s.AuthRequired(), s.ChangePassword)
	auth.GET("/me", s.AuthRequired(), s.Me)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// Setup is the only write allowed before authentication: there is nothing
	// to authenticate against until the first company exists.
	api.POST("/setup", s.Setup)

	api.Use(s.AuthRequired())

	// -------- Companies --------
	api.GET("/companies", s.ListCompanies)
	api.GET("/companies/:id", s.GetCompanyByID)
	api.PATCH("/companies/:id", s.UpdateCompany)

	// -------- Branches --------
	api.GET("/branches", s.ListBranches)
	api.POST("/branches", s.CreateBranch)
	api.GET("/branches/:id", s.GetBranchByID)
	api.DELETE("/branches/:id", s.RetireBranch)

	// -------- Financial Years --------
	api.GET("/financial-years", s.ListFinancialYears)
	api.POST("/financial-years", s.CreateFinancialYear)
	api.GET("/financial-years/:id", s.GetFinancialYearByID)
	api.POST("/financial-years/:id/lock", s.LockFinancialYear)
	api.POST("/financial-years/:id/unlock", s.UnlockFinancialYear)

	// -------- Users --------
	api.GET("/users", s.ListUsers)
	api.POST("/users", s.CreateUser)
	api.DELETE("/users/:id", s.RetireUser)

	// -------- Quotations --------
	api.GET("/quotations", s.ListQuotations)
	api.POST("/quotations", s.CreateQuotation)
	api.GET("/quotations/:id", s.GetQuotationByID)
	api.PATCH("/quotations/:id", s.UpdateQuotation)
	api.POST("/quotations/:id/status", s.UpdateQuotationStatus)

	// -------- BOMs --------
	api.GET("/boms", s.ListBOMs)
	api.POST("/boms", s.CreateBOM)
	api.GET("/boms/:id", s.GetBOMByID)
	api.POST("/boms/:id/approve", s.ApproveBOM)
	api.POST("/boms/:id/clone", s.CloneBOM)

	// -------- Document Sequences --------
	api.GET("/sequences", s.ListSequences)
	api.PATCH("/sequences/:id", s.UpdateSequenceFormat)
	api.DELETE("/sequences/:id", s.RetireSequence)
}
