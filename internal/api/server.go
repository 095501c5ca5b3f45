package api

import (
	"fmt"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"github.com/vietanh2810/fuelticket-api/docs"
	v1 "github.com/vietanh2810/fuelticket-api/internal/api/handler/v1"
	"github.com/vietanh2810/fuelticket-api/internal/api/middleware"
	"github.com/vietanh2810/fuelticket-api/internal/config"
	"github.com/vietanh2810/fuelticket-api/internal/domain"
	"github.com/vietanh2810/fuelticket-api/internal/notify"
	"github.com/vietanh2810/fuelticket-api/internal/pkg/clock"
	"github.com/vietanh2810/fuelticket-api/internal/repository"
	"github.com/vietanh2810/fuelticket-api/internal/repository/dao"
	"github.com/vietanh2810/fuelticket-api/internal/service"
)

// Deps are the outer services the server publishes to and coordinates with.
// JobLock may be nil on a single replica.
type Deps struct {
	Notifier service.Notifier
	Hub      *notify.Hub
	JobLock  service.JobLock
}

type Server struct {
	Config    *config.AppConfig
	Router    *gin.Engine
	Scheduler *service.Scheduler

	tx        *dao.Transactor
	tickets   *repository.TicketRepository
	schedules *repository.SaleScheduleRepository
	stocks    *repository.FuelStockRepository
	settings  service.Settings
	clock     clock.Clock
}

func NewServer(conf *config.AppConfig, db *gorm.DB, deps Deps) (*Server, error) {
	settings, err := Settings(conf)
	if err != nil {
		return nil, err
	}

	gin.SetMode(conf.Gin.Mode)
	engine := gin.New()

	s := &Server{
		Config:    conf,
		Router:    engine,
		tx:        dao.NewTransactor(db),
		tickets:   repository.NewTicketRepository(dao.NewTicketDAO(db)),
		schedules: repository.NewSaleScheduleRepository(dao.NewSaleScheduleDAO(db)),
		stocks:    repository.NewFuelStockRepository(dao.NewFuelStockDAO(db), dao.NewFuelMovementDAO(db)),
		settings:  settings,
		clock:     clock.Real{},
	}

	if s.Scheduler, err = s.initScheduler(deps); err != nil {
		return nil, err
	}

	s.MountMiddlewares()

	ticketHandler := s.initTicketHandler(deps)
	scheduleHandler := s.initScheduleHandler()
	stockHandler := s.initStockHandler()
	feedHandler := v1.NewFeedHandler(deps.Hub, conf.API.AllowedCORSDomains)
	adminHandler := v1.NewAdminHandler(s.Scheduler)
	s.MountHandlers(ticketHandler, scheduleHandler, stockHandler, feedHandler, adminHandler)

	return s, nil
}

// Settings derives the ticket lifecycle settings from the configuration.
func Settings(conf *config.AppConfig) (service.Settings, error) {
	loc, err := conf.Scheduler.Location()
	if err != nil {
		return service.Settings{}, fmt.Errorf("conf.Scheduler.Location -> %w", err)
	}

	return service.Settings{
		ValidityDays:       conf.Ticket.ValidityDays,
		RenewalWindowDays:  conf.Ticket.RenewalWindowDays,
		FallbackOffsetDays: conf.Ticket.FallbackOffsetDays,
		NumberAttempts:     conf.Ticket.NumberAttempts,
		Location:           loc,
	}, nil
}

func (s *Server) initTicketHandler(deps Deps) *v1.TicketHandler {
	svc := service.NewTicketService(s.tx, s.tickets, s.schedules, s.stocks, deps.Notifier, s.clock, s.settings)
	handler := v1.NewTicketHandler(svc)

	return handler
}

func (s *Server) initScheduleHandler() *v1.ScheduleHandler {
	svc := service.NewScheduleService(s.tx, s.schedules, s.stocks, s.clock, s.settings)
	handler := v1.NewScheduleHandler(svc)

	return handler
}

func (s *Server) initStockHandler() *v1.StockHandler {
	svc := service.NewStockService(s.tx, s.stocks, s.clock)
	handler := v1.NewStockHandler(svc)

	return handler
}

func (s *Server) initScheduler(deps Deps) (*service.Scheduler, error) {
	hour, minute, err := s.Config.Scheduler.ParseRunAt()
	if err != nil {
		return nil, err
	}

	job := service.NewExpirationService(s.tx, s.tickets, s.schedules, deps.Notifier, s.clock, s.settings)

	var opts []service.SchedulerOption
	if deps.JobLock != nil {
		opts = append(opts, service.WithJobLock(deps.JobLock, s.Config.Redis.LockTTL))
	}

	return service.NewScheduler(job, s.clock, hour, minute, s.settings.Location, opts...), nil
}

func (s *Server) MountMiddlewares() {
	// Logger and Recovery are needed unless we use gin.Default().
	s.Router.Use(gin.Logger())
	s.Router.Use(gin.Recovery())
	s.Router.Use(requestid.New())
	s.Router.Use(middleware.ConfigCORS(s.Config.API.AllowedCORSDomains))
}

func (s *Server) MountHandlers(
	ticketHandler *v1.TicketHandler,
	scheduleHandler *v1.ScheduleHandler,
	stockHandler *v1.StockHandler,
	feedHandler *v1.FeedHandler,
	adminHandler *v1.AdminHandler,
) {
	const basePath = "/api/v1"

	verifyJWT := middleware.NewAuthenticator(s.Config.API.JWTSigningKey).VerifyJWT()
	staff := middleware.RequireRoles(domain.RoleStation, domain.RoleAdmin, domain.RoleSupervisor)
	managers := middleware.RequireRoles(domain.RoleStation, domain.RoleAdmin)

	api := s.Router.Group(basePath, verifyJWT)

	tickets := api.Group("/tickets")
	{
		tickets.POST("", ticketHandler.HandleCreateTicket)
		tickets.POST("/cash", managers, ticketHandler.HandleCreateCashTicket)
		tickets.GET("", middleware.RequireRoles(domain.RoleAdmin), ticketHandler.HandleListTickets)
		tickets.GET("/mine", ticketHandler.HandleListMyTickets)
		tickets.GET("/mine/open", ticketHandler.HandleListMyOpenTickets)
		tickets.GET("/open", managers, ticketHandler.HandleListOpenByEmail)
		tickets.GET("/has-open", ticketHandler.HandleHasOpenTicket)
		tickets.GET("/by-number/:number", managers, ticketHandler.HandleGetTicketByNumber)
		tickets.GET("/stations/:stationID", ticketHandler.HandleListStationTickets)
		tickets.GET("/:id", ticketHandler.HandleGetTicket)
		tickets.GET("/:id/receipt", ticketHandler.HandleGetReceipt)
		tickets.PUT("/:id/status", ticketHandler.HandleUpdateTicketStatus)
		tickets.PUT("/:id/serve", managers, ticketHandler.HandleServeTicket)
		tickets.DELETE("/:id", ticketHandler.HandleDeleteTicket)
	}

	schedules := api.Group("/sale-schedules")
	{
		schedules.POST("", managers, scheduleHandler.HandleCreateSchedule)
		schedules.GET("/:id", scheduleHandler.HandleGetSchedule)
		schedules.PUT("/:id", managers, scheduleHandler.HandleUpdateSchedule)
		schedules.DELETE("/:id", managers, scheduleHandler.HandleDeleteSchedule)
		schedules.PUT("/:id/toggle", managers, scheduleHandler.HandleToggleSchedule)
		schedules.GET("/stations/:stationID", scheduleHandler.HandleListStationSchedules)
		schedules.GET("/stations/:stationID/date/:date", scheduleHandler.HandleListSchedulesByDate)
		schedules.GET("/stations/:stationID/range", scheduleHandler.HandleListSchedulesInRange)
		schedules.GET("/stations/:stationID/available", scheduleHandler.HandleListAvailableSchedules)
		schedules.GET("/stations/:stationID/planned-dates", scheduleHandler.HandleListPlannedDates)
	}

	stocks := api.Group("/fuel-stocks")
	{
		stocks.POST("/stations/:stationID", managers, stockHandler.HandleCreateStock)
		stocks.GET("/stations/:stationID", stockHandler.HandleListStationStocks)
		stocks.GET("/stations/:stationID/available", stockHandler.HandleListAvailableStocks)
		stocks.PUT("/:id/price", managers, stockHandler.HandleUpdateStockPrice)
		stocks.PUT("/:id/toggle", managers, stockHandler.HandleToggleStock)
		stocks.DELETE("/:id", managers, stockHandler.HandleDeleteStock)
		stocks.POST("/:id/add", managers, stockHandler.HandleAddFuel)
		stocks.POST("/:id/remove", managers, stockHandler.HandleRemoveFuel)
	}

	movements := api.Group("/fuel-movements", staff)
	{
		movements.GET("/stations/:stationID", stockHandler.HandleListStationMovements)
		movements.GET("/stocks/:stockID", stockHandler.HandleListStockMovements)
		movements.GET("/mine", stockHandler.HandleListMyMovements)
	}

	api.GET("/stations/:stationID/feed", managers, feedHandler.HandleStationFeed)

	admin := api.Group("/admin", middleware.RequireRoles(domain.RoleAdmin))
	{
		admin.POST("/tickets/expire", adminHandler.HandleExpireTickets)
	}

	s.Router.GET("/", v1.HandleHealthcheck)

	// Setup Swagger UI.
	docs.SwaggerInfo.Host = s.Config.API.BaseURL
	docs.SwaggerInfo.BasePath = basePath
	docs.SwaggerInfo.Title = "Fuel ticket API"
	docs.SwaggerInfo.Description = "Fuel ticket allocation for stations and citizens."
	docs.SwaggerInfo.Version = "1.0"
	s.Router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))
}
