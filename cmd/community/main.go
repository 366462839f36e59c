package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/totegamma/community/client"
	"github.com/totegamma/community/internal/config"
	"github.com/totegamma/community/internal/infra/database"
	"github.com/totegamma/community/internal/infra/gateway"
	"github.com/totegamma/community/internal/infra/repository"
	"github.com/totegamma/community/internal/present/rest"
	authmw "github.com/totegamma/community/internal/present/rest/middleware"
	"github.com/totegamma/community/internal/service"
	"github.com/totegamma/community/internal/usecase"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	path := *configPath
	if path == "" {
		path = os.Getenv("COMMUNITY_CONFIG")
	}
	if path == "" {
		path = "config.yaml"
	}

	conf, err := config.Load(path)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", path), slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx := context.Background()

	if conf.Server.EnableTrace {
		cleanup, err := setupTraceProvider(ctx, conf.Server.TraceEndpoint, conf.Server.ServiceName)
		if err != nil {
			panic(err)
		}
		defer cleanup()
	}

	db, err := database.NewPostgres(conf.Server.PostgresDsn)
	if err != nil {
		panic("failed to connect database")
	}

	err = database.Migrate(db)
	if err != nil {
		panic("failed to migrate database")
	}

	rdb, err := database.NewRedis(ctx, conf.Server.RedisAddr, conf.Server.RedisPassword, conf.Server.RedisDB)
	if err != nil {
		slog.Warn("redis unavailable, view de-duplication disabled", slog.String("error", err.Error()))
		rdb = nil
	}
	mc := database.NewMemcached(conf.Server.MemcachedAddr)

	store := repository.NewStore(db)
	hasher := service.NewBcryptHasher(conf.Security.BcryptCost)
	storage := gateway.NewLocalStorage(
		conf.Upload.BasePath,
		conf.Upload.PublicPrefix,
		conf.Upload.MaxSize,
		conf.Upload.AllowedExtensions,
	)
	views := service.NewViewCounter(rdb, config.Duration(conf.Server.ViewWindow, 10*time.Minute))
	tags := service.NewTagCache(mc, config.Duration(conf.Server.TagCacheTTL, 5*time.Minute))

	identityClient := client.New(conf.Auth.ServiceURL, config.Duration(conf.Auth.Timeout, 3*time.Second))
	authService := service.NewAuthService(identityClient, config.Duration(conf.Auth.CacheTTL, time.Minute))

	authorUsecase := usecase.NewAuthorUsecase(hasher)
	permissionUsecase := usecase.NewPermissionUsecase(hasher)
	likeUsecase := usecase.NewLikeUsecase(store)
	postUsecase := usecase.NewPostUsecase(store, authorUsecase, permissionUsecase, likeUsecase, storage, views, tags)
	commentUsecase := usecase.NewCommentUsecase(store, authorUsecase, permissionUsecase)
	listingUsecase := usecase.NewListingUsecase(store, likeUsecase, conf.Listing.MaxPageSize)
	attachmentUsecase := usecase.NewAttachmentUsecase(store, permissionUsecase, storage)

	handler := rest.NewHandler(
		postUsecase,
		commentUsecase,
		likeUsecase,
		listingUsecase,
		attachmentUsecase,
		conf.Listing.DefaultPageSize,
	)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	if conf.Server.EnableTrace {
		e.Use(otelecho.Middleware(conf.Server.ServiceName, otelecho.WithSkipper(func(c echo.Context) bool {
			return c.Path() == "/health"
		})))
	}
	e.Use(authmw.NewAuthMiddleware(authService).IdentifyIdentity)
	e.Static(conf.Upload.PublicPrefix, storage.Root())

	handler.RegisterRoutes(e)

	slog.Info("community service starting", slog.String("addr", conf.Server.ListenAddr))
	e.Logger.Fatal(e.Start(conf.Server.ListenAddr))
}

func setupTraceProvider(ctx context.Context, endpoint, serviceName string) (func(), error) {
	exporter, err := otlptracehttp.New(
		ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", serviceName),
	)

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown tracer provider", slog.String("error", err.Error()))
		}
	}
	return cleanup, nil
}
