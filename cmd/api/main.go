package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"carcare-dispatch/internal/api"
	"carcare-dispatch/internal/config"
	"carcare-dispatch/internal/modules/activity"
	"carcare-dispatch/internal/modules/availability"
	"carcare-dispatch/internal/modules/location"
	"carcare-dispatch/internal/modules/matching"
	"carcare-dispatch/internal/modules/notify"
	"carcare-dispatch/internal/modules/requests"
	"carcare-dispatch/pkg/email"
	"carcare-dispatch/pkg/events"
	"carcare-dispatch/pkg/geocode"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	// 1. --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	e := echo.New()

	// 2. --- Middleware ---
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"http://localhost:5173", cfg.ClientOrigin},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	// 3. --- Database Connections ---
	dbConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to parse database configuration: %v", err)
	}
	dbPool, err := pgxpool.NewWithConfig(context.Background(), dbConfig)
	if err != nil {
		log.Fatalf("Unable to create connection pool: %v", err)
	}
	defer dbPool.Close()
	if err := dbPool.Ping(context.Background()); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	e.Logger.Info("Successfully connected to the database!")

	var activityLog *activity.Log
	if cfg.MongoURI != "" {
		mongoCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		mongoClient, err := mongo.Connect(mongoCtx, options.Client().ApplyURI(cfg.MongoURI))
		cancel()
		if err != nil {
			log.Fatalf("Unable to connect to MongoDB: %v", err)
		}
		defer mongoClient.Disconnect(context.Background())
		activityLog = activity.NewLog(mongoClient, cfg.MongoDatabase)
	}

	// 4. --- Outbound Collaborators ---
	var publisher *events.Publisher
	if cfg.AMQPURL != "" {
		publisher, err = events.NewPublisher(cfg.AMQPURL)
		if err != nil {
			log.Fatalf("Unable to connect to the message broker: %v", err)
		}
		defer publisher.Close()
	}

	templates, err := email.NewTemplateManager()
	if err != nil {
		log.Fatalf("Failed to parse email templates: %v", err)
	}
	var mailer email.SenderInterface
	if cfg.AWSRegion != "" && cfg.EmailFrom != "" {
		sesSender, err := email.NewSESV2Sender(context.Background(), cfg.AWSRegion, cfg.EmailFrom)
		if err != nil {
			log.Fatalf("Failed to initialize the SES client: %v", err)
		}
		mailer = sesSender
	}

	// events.Publisher satisfies notify.EventPublisher; a nil interface value
	// from a nil *Publisher would not be nil-checkable, so only assign when set.
	var bus notify.EventPublisher
	if publisher != nil {
		bus = publisher
	}
	notifier := notify.NewNotifier(bus, mailer, templates, cfg.DispatchDeskEmail)

	// 5. --- Dependency Injection (Wiring everything up) ---
	// --- Availability Module ---
	availabilityRepo := availability.NewRepository(dbPool)
	availabilityService := availability.NewService(availabilityRepo)
	availabilityHandler := availability.NewHandler(availabilityService)

	// --- Matching Module ---
	matchingService := matching.NewService(availabilityService, notifier)

	// --- Requests Module ---
	requestRepo := requests.NewRepository(dbPool)
	var chat requests.ChatNotifier
	if publisher != nil {
		chat = publisher
	}
	sinks := []requests.EventSink{notifier}
	if activityLog != nil {
		sinks = append(sinks, activityLog)
	}
	requestService := requests.NewService(requestRepo, availabilityService, matchingService, chat, sinks...)
	requestHandler := requests.NewHandler(requestService)
	matchingHandler := matching.NewHandler(matchingService, requestRepo)

	// --- Location Module ---
	var geocoder location.Geocoder
	if cfg.GeocodeAPIKey != "" {
		geocoder = geocode.NewClient(cfg.GeocodeAPIKey)
	}
	locationService := location.NewService(location.UnavailableProvider{}, geocoder)
	locationHandler := location.NewHandler(locationService)

	// --- Activity Module ---
	var activityHandler *activity.Handler
	if activityLog != nil {
		activityHandler = activity.NewHandler(activityLog)
	}

	// 6. --- Initialize Router ---
	api.SetupRoutes(e, cfg.JWTSecret,
		requestHandler,
		availabilityHandler,
		matchingHandler,
		locationHandler,
		activityHandler,
	)

	// 7. --- Start Server with graceful shutdown logic ---
	go func() {
		if err := e.Start(":" + cfg.ServerPort); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("shutting down the server an error occurred:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		e.Logger.Fatal("Server forced to shutdown:", err)
	}
	log.Println("Server exiting")
}
