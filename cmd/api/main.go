package main

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/utilityops/ums-backend/internal/cloud"
	"github.com/utilityops/ums-backend/internal/config"
	"github.com/utilityops/ums-backend/internal/database"
	"github.com/utilityops/ums-backend/internal/domain"
	httpHandlers "github.com/utilityops/ums-backend/internal/http"
	"github.com/utilityops/ums-backend/internal/service"
	"github.com/utilityops/ums-backend/internal/store"
	"github.com/utilityops/ums-backend/internal/store/memory"
	"github.com/utilityops/ums-backend/internal/store/postgres"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	st := openStore()
	defer st.Close()

	var alerts service.Alerter
	var uploads service.Uploader
	if config.UseCloudServices() {
		sns, err := cloud.NewSNSClient(config.AWSRegion(), config.SNSTopicArn())
		if err != nil {
			log.Fatal().Err(err).Msg("sns client failed")
		}
		s3c, err := cloud.NewS3Client(config.AWSRegion(), config.S3Bucket())
		if err != nil {
			log.Fatal().Err(err).Msg("s3 client failed")
		}
		alerts, uploads = sns, s3c
	}

	svcs := service.New(st, alerts, uploads)
	app := fiber.New()
	app.Use(cors.New())
	app.Use(httpHandlers.RequestLogger())

	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })

	httpHandlers.Register(app, svcs)

	addr := config.APIAddr()
	if addr == "" {
		addr = ":8080"
	}
	log.Info().Str("addr", addr).Msg("api listening")
	log.Fatal().Err(app.Listen(addr)).Msg("server exit")
}

// openStore connects to Postgres and falls back to the seeded in-memory
// store when the database is unreachable, so the system stays usable in
// demo environments.
func openStore() store.Store {
	if config.StoreDriver() == "memory" {
		log.Info().Msg("using in-memory store")
		return memory.New()
	}

	db, err := database.Connect()
	if errors.Is(err, domain.ErrStoreUnavailable) {
		log.Warn().Err(err).Msg("db unreachable; falling back to in-memory store")
		return memory.New()
	}
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}
	if err := postgres.Migrate(context.Background(), db); err != nil {
		log.Fatal().Err(err).Msg("db migrate failed")
	}
	log.Info().Msg("connected to postgres")
	return postgres.New(db)
}
