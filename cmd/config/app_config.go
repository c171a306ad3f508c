package config

import (
	"context"
	"crimson-backend/internal/api/handlers"
	"crimson-backend/internal/api/routes"
	"crimson-backend/internal/middleware"
	"crimson-backend/internal/utils"
	"crimson-backend/internal/utils/mailing"
	"crimson-backend/internal/utils/storage"
	"crimson-backend/pkg/alert"
	"crimson-backend/pkg/assistant"
	"crimson-backend/pkg/auth"
	"crimson-backend/pkg/bloodcamp"
	"crimson-backend/pkg/jwt"
	"crimson-backend/pkg/ledger"
	"crimson-backend/pkg/organ"
	"crimson-backend/pkg/pinning"
	"crimson-backend/pkg/report"
	"crimson-backend/pkg/transaction"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App is the wired HTTP server plus what must be released on shutdown.
type App struct {
	Fiber  *fiber.App
	Ledger *ledger.Ledger
	Redis  *redis.Client

	stopAlerts context.CancelFunc
	logFile    *os.File
}

func (a *App) Close() {
	a.stopAlerts()
	a.Ledger.Close()
	_ = a.Redis.Close()
	_ = a.logFile.Close()
}

// releaser closes what NewApp has opened so far, newest first.
type releaser []func()

func (r *releaser) add(fn func()) { *r = append(*r, fn) }

func (r releaser) release() {
	for i := len(r) - 1; i >= 0; i-- {
		r[i]()
	}
}

func NewApp(ctx context.Context, db *gorm.DB, log *zap.Logger) (_ *App, err error) {
	var opened releaser
	defer func() {
		if err != nil {
			opened.release()
		}
	}()

	utils.InitValidator()
	app := fiber.New(fiber.Config{
		EnablePrintRoutes: utils.GetConfig("APP_ENV") == "development",
		BodyLimit:         storage.MaxUploadSize + 1<<20,
	})
	middlewares := middleware.NewMiddleware(utils.GetConfig("CORS_ORIGINS"))
	validator := utils.Validate

	// setting up logging and limiter
	if err := os.MkdirAll("./logs", os.ModePerm); err != nil {
		return nil, fmt.Errorf("error creating logs directory: %w", err)
	}
	file, err := os.OpenFile(
		"./logs/app.log",
		os.O_RDWR|os.O_CREATE|os.O_APPEND,
		0666,
	)
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}
	opened.add(func() { _ = file.Close() })
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "UTC",
		Output:     file,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        10,
		Expiration: 1 * time.Second,
	}))

	// utils
	store, err := storage.NewObjectStore(ctx)
	if err != nil {
		return nil, err
	}
	redisClient, err := ConnectRedis(ctx)
	if err != nil {
		return nil, err
	}
	opened.add(func() { _ = redisClient.Close() })
	l, err := NewLedger(ctx, log)
	if err != nil {
		return nil, err
	}
	opened.add(l.Close)
	model, err := assistant.NewGeminiModel(ctx, utils.GetConfig("GEMINI_API_KEY"), utils.GetConfig("GEMINI_MODEL"))
	if err != nil {
		return nil, err
	}

	// contracts
	if !common.IsHexAddress(utils.GetConfig("BLOODCAMP_ADDRESS")) || !common.IsHexAddress(utils.GetConfig("ORGAN_ADDRESS")) {
		return nil, fmt.Errorf("BLOODCAMP_ADDRESS and ORGAN_ADDRESS must be contract addresses")
	}
	bloodCampContract, err := bloodcamp.NewContract(common.HexToAddress(utils.GetConfig("BLOODCAMP_ADDRESS")))
	if err != nil {
		return nil, err
	}
	organContract, err := organ.NewContract(common.HexToAddress(utils.GetConfig("ORGAN_ADDRESS")))
	if err != nil {
		return nil, err
	}

	// Repository
	pinRepository := pinning.NewPinRepository(db)
	transactionRepository := transaction.NewTransactionRepository(db)
	reportRepository := report.NewReportRepository(db)
	bloodCampRepository, err := bloodcamp.NewBloodCampRepository(l, bloodCampContract)
	if err != nil {
		return nil, err
	}
	organRepository, err := organ.NewOrganRepository(l, organContract)
	if err != nil {
		return nil, err
	}

	// Service
	jwtService := jwt.NewJWTService()
	authService := auth.NewAuthService(
		auth.NewRedisNonceStore(redisClient),
		jwtService,
		utils.GetList("ADMIN_WALLETS"),
		utils.GetDuration("NONCE_TTL", auth.DefaultNonceTTL),
		log.Named("auth"),
	)
	pinService := pinning.NewPinService(pinRepository, store, log.Named("pinning"))
	transactionService := transaction.NewTransactionService(transactionRepository, l, log.Named("transaction"),
		bloodCampRepository.Outcome,
		organRepository.Outcome,
	)
	bloodCampService := bloodcamp.NewBloodCampService(bloodCampRepository, pinService, log.Named("bloodcamp"))
	organService := organ.NewOrganService(organRepository, pinService, log.Named("organ"))
	assistantService := assistant.NewAssistantService(model, log.Named("assistant"))
	reportService := report.NewReportService(reportRepository, pinService, assistantService, log.Named("report"))

	// tracker observers: journal first, then alerts
	l.Observe(transactionService.Record)
	alertCtx, stopAlerts := context.WithCancel(context.Background())
	opened.add(stopAlerts)
	if recipients := utils.GetList("ALERT_RECIPIENTS"); len(recipients) > 0 {
		mailer, err := mailing.NewSMTPMailer(mailing.LoadMailConfig())
		if err != nil {
			return nil, err
		}
		urgency, _ := strconv.ParseUint(utils.GetConfig("ALERT_URGENCY"), 10, 64)
		alertService := alert.NewAlertService(mailer, recipients, urgency, log.Named("alert"))
		l.Observe(alertService.Observe)
		go alertService.Run(alertCtx)
	}

	// Handler
	authHandler := handlers.NewAuthHandler(authService, validator)
	bloodCampHandler := handlers.NewBloodCampHandler(bloodCampService, transactionService, validator)
	organHandler := handlers.NewOrganHandler(organService, transactionService, validator)
	transactionHandler := handlers.NewTransactionHandler(transactionService, validator)
	assistantHandler := handlers.NewAssistantHandler(assistantService, validator, log.Named("chat"))
	reportHandler := handlers.NewReportHandler(reportService, validator)
	pinHandler := handlers.NewPinHandler(pinService)

	// routes
	routesConfig := routes.Config{
		App:                app,
		AuthHandler:        authHandler,
		BloodCampHandler:   bloodCampHandler,
		OrganHandler:       organHandler,
		TransactionHandler: transactionHandler,
		AssistantHandler:   assistantHandler,
		ReportHandler:      reportHandler,
		PinHandler:         pinHandler,
		Middleware:         middlewares,
		JWTService:         jwtService,
	}
	routesConfig.Setup()

	return &App{
		Fiber:      app,
		Ledger:     l,
		Redis:      redisClient,
		stopAlerts: stopAlerts,
		logFile:    file,
	}, nil
}
