package main

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/bsam2019/mygrownet-engine/app/repository"
	apiv1 "github.com/bsam2019/mygrownet-engine/internal/api/v1"
	"github.com/bsam2019/mygrownet-engine/internal/pkg/cache"
	"github.com/bsam2019/mygrownet-engine/internal/pkg/commission"
	"github.com/bsam2019/mygrownet-engine/internal/pkg/database"
	"github.com/bsam2019/mygrownet-engine/internal/pkg/distribution"
	"github.com/bsam2019/mygrownet-engine/internal/pkg/env"
	"github.com/bsam2019/mygrownet-engine/internal/pkg/jobqueue"
	"github.com/bsam2019/mygrownet-engine/internal/pkg/matrix"
	"github.com/bsam2019/mygrownet-engine/internal/pkg/payments"
	"github.com/bsam2019/mygrownet-engine/internal/pkg/qualification"
	"github.com/bsam2019/mygrownet-engine/internal/pkg/router"
	"github.com/bsam2019/mygrownet-engine/internal/pkg/tiercatalog"
	"github.com/bsam2019/mygrownet-engine/internal/pkg/withdrawal"
)

func main() {
	app := NewApplication()

	manager := jobqueue.GetManager()
	manager.Start()
	defer manager.Stop()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	repository.InitializeFactory(database.GetDB())
	repos := repository.GetGlobalRepositories()

	catalog := loadCatalog(repos)
	executor := payments.NoopExecutor{}

	tree := matrix.NewTree(repos.Matrix, repos.Participant, matrix.NewRedisLocker(cache.GetClient()))
	commissionEngine := commission.NewEngine(repos.Commission, repos.Participant, repos.Tier, catalog)
	payout := commission.NewPayout(repos.Commission, repos.Participant, executor)
	activity := qualification.NewRepositoryActivitySource(repos.Participant, repos.Investment)
	tracker := qualification.NewTracker(repos.Qualification, repos.Participant, repos.Tier, catalog, activity, nil)
	distributions := distribution.NewEngine(repos.Distribution, repos.Investment, repos.Community, repos.Participant, repos.Tier, catalog, executor)
	calculator := withdrawal.NewCalculator(catalog, nil)

	jobqueue.InitManager(&jobqueue.Processors{
		Commission:    commissionEngine,
		Payout:        payout,
		Tracker:       tracker,
		Distributions: distributions,
	})

	app := fiber.New(fiber.Config{
		AppName: "mygrownet-engine",
	})
	app.Use(recover.New(), logger.New())
	app.Get("/metrics", monitor.New())

	// ROUTER
	server := apiv1.NewServer(repos, tree, tracker, distributions, calculator)
	router.InstallRouter(app, server)

	return app
}

// loadCatalog returns the active tier catalog, seeding the default one
// on an empty database.
func loadCatalog(repos *repository.Repositories) *tiercatalog.Catalog {
	loader := tiercatalog.NewLoader(repos.Tier)
	catalog, err := loader.Active()
	if err == nil {
		return catalog
	}

	if seedErr := repos.Tier.SaveAll(tiercatalog.DefaultTiers()); seedErr != nil {
		log.Fatalf("failed to seed tier catalog: %v (load error: %v)", seedErr, err)
	}
	catalog, err = loader.Reload()
	if err != nil {
		log.Fatalf("failed to load tier catalog: %v", err)
	}
	return catalog
}
