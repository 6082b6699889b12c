package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/andrescamacho/quadrant-go/internal/adapters/httpapi"
	"github.com/andrescamacho/quadrant-go/internal/adapters/metrics"
	"github.com/andrescamacho/quadrant-go/internal/adapters/persistence"
	"github.com/andrescamacho/quadrant-go/internal/adapters/realtime"
	"github.com/andrescamacho/quadrant-go/internal/application/admin"
	"github.com/andrescamacho/quadrant-go/internal/application/chat"
	appcombat "github.com/andrescamacho/quadrant-go/internal/application/combat"
	"github.com/andrescamacho/quadrant-go/internal/application/common"
	appevents "github.com/andrescamacho/quadrant-go/internal/application/events"
	"github.com/andrescamacho/quadrant-go/internal/application/movement"
	"github.com/andrescamacho/quadrant-go/internal/application/starmap"
	"github.com/andrescamacho/quadrant-go/internal/application/trade"
	"github.com/andrescamacho/quadrant-go/internal/application/world"
	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
	"github.com/andrescamacho/quadrant-go/internal/infrastructure/config"
	"github.com/andrescamacho/quadrant-go/internal/infrastructure/database"
)

func main() {
	root := &cobra.Command{
		Use:   "quadrantd",
		Short: "Quadrant game server daemon",
	}
	root.PersistentFlags().String("config", "", "path to config file")
	root.AddCommand(serveCommand(), seedCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the combat tick loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			fixture, _ := cmd.Flags().GetString("fixture")
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			return runServe(cfg, fixture)
		},
	}
	cmd.Flags().String("fixture", "fixtures/universe.json", "fixture file test_reset reseeds from")
	return cmd
}

func seedCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load universe fixtures into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			fixture, _ := cmd.Flags().GetString("fixture")
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			db, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			seeder := persistence.NewFixtureSeeder(db, fixture)
			if err := seeder.Seed(cmd.Context()); err != nil {
				return err
			}
			fmt.Printf("seeded universe from %s\n", fixture)
			return nil
		},
	}
	cmd.Flags().String("fixture", "fixtures/universe.json", "fixture file to load")
	return cmd
}

func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func runServe(cfg *config.Config, fixturePath string) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}

	logger := common.NewStdoutLogger()
	clock := shared.NewRealClock()

	characters := persistence.NewGormCharacterRepository(db)
	ships := persistence.NewGormShipRepository(db)
	sectors := persistence.NewGormSectorRepository(db)
	portsRepo := persistence.NewGormPortRepository(db)
	garrisons := persistence.NewGormGarrisonRepository(db)
	salvage := persistence.NewGormSalvageRepository(db)
	knowledge := persistence.NewGormMapKnowledgeRepository(db)
	eventLog := persistence.NewGormEventRepository(db)
	encounters := persistence.NewGormEncounterRepository(db)
	corporations := persistence.NewGormCorporationRepository(db)
	observers := persistence.NewGormObserverRepository(db)
	rateLimits := persistence.NewGormRateLimitRepository(db)
	maintenance := persistence.NewGormMaintenanceRepository(db)
	audit := persistence.NewGormAuditRepository(db)

	observerCache := appevents.NewObserverCache(observers, clock, cfg.Observer.CacheTTL)
	visibility := appevents.NewVisibility(characters, garrisons, corporations, observerCache)
	publisher := realtime.NewHTTPBroadcaster(
		cfg.Broadcast.URL, cfg.Broadcast.Token,
		cfg.Broadcast.Retries, cfg.Broadcast.RetryDelay, clock)
	bus := appevents.NewBus(eventLog, publisher, visibility, clock)

	snapshots := world.NewSnapshotter(sectors, portsRepo, characters, ships, garrisons, salvage, encounters, knowledge)
	arrivals := movement.NewArrivalService(characters, ships, sectors, portsRepo, knowledge, snapshots, bus, clock, logger)

	engine := appcombat.NewEngine(characters, ships, garrisons, salvage, encounters, snapshots, bus, clock, cfg.Combat.RoundTimeout)
	initiator := appcombat.NewInitiator(characters, ships, garrisons, corporations, encounters, engine, bus, clock)
	arrivals.SetEngager(initiator)
	monitor := appcombat.NewMonitor(encounters, salvage, engine, clock, logger, cfg.Combat.TickInterval, cfg.Combat.TickBatchSize)

	graph := starmap.NewGraph(sectors)
	finder := starmap.NewKnownPortsFinder(portsRepo)
	seeder := persistence.NewFixtureSeeder(db, fixturePath)

	mediator := common.NewMediator()
	register := func(errs ...error) error {
		for _, err := range errs {
			if err != nil {
				return err
			}
		}
		return nil
	}
	if err := register(
		common.RegisterHandler[*movement.JoinCommand](mediator,
			movement.NewJoinHandler(characters, ships, arrivals, snapshots, bus, clock)),
		common.RegisterHandler[*movement.MoveCommand](mediator,
			movement.NewMoveHandler(characters, ships, sectors, arrivals, bus, clock, cfg.Movement.DelayPerTurn, cfg.Movement.DelayScale)),
		common.RegisterHandler[*world.MyStatusCommand](mediator,
			world.NewMyStatusHandler(characters, ships, snapshots, bus, clock)),
		common.RegisterHandler[*starmap.ListKnownPortsCommand](mediator,
			starmap.NewListKnownPortsHandler(knowledge, finder)),
		common.RegisterHandler[*starmap.MapPathCommand](mediator,
			starmap.NewMapPathHandler(graph, knowledge, snapshots)),
		common.RegisterHandler[*trade.BankTransferCommand](mediator,
			trade.NewBankTransferHandler(characters, ships, snapshots, bus, clock)),
		common.RegisterHandler[*trade.PurchaseFightersCommand](mediator,
			trade.NewPurchaseFightersHandler(characters, ships, snapshots, bus, clock)),
		common.RegisterHandler[*trade.PortTradeCommand](mediator,
			trade.NewPortTradeHandler(characters, ships, portsRepo, snapshots, bus, clock)),
		common.RegisterHandler[*trade.ShipPurchaseCommand](mediator,
			trade.NewShipPurchaseHandler(characters, ships, corporations, snapshots, bus, clock)),
	); err != nil {
		return err
	}

	transferHandler := trade.NewTransferHandler(characters, ships, bus, clock)
	salvageHandler := trade.NewSalvageHandler(characters, ships, salvage, snapshots, bus, clock)
	garrisonHandler := appcombat.NewGarrisonHandler(characters, ships, garrisons, initiator, bus, clock)
	if err := register(
		common.RegisterHandler[*trade.TransferCreditsCommand](mediator, transferHandler),
		common.RegisterHandler[*trade.TransferWarpPowerCommand](mediator, transferHandler),
		common.RegisterHandler[*trade.DumpCargoCommand](mediator, salvageHandler),
		common.RegisterHandler[*trade.SalvageCollectCommand](mediator, salvageHandler),
		common.RegisterHandler[*chat.SendMessageCommand](mediator,
			chat.NewSendMessageHandler(characters, bus, clock)),
		common.RegisterHandler[*appcombat.InitiateCommand](mediator,
			appcombat.NewInitiateHandler(initiator, clock)),
		common.RegisterHandler[*appcombat.ActionCommand](mediator,
			appcombat.NewActionHandler(characters, ships, sectors, garrisons, encounters, engine, clock)),
		common.RegisterHandler[*appcombat.TickCommand](mediator,
			appcombat.NewTickHandler(monitor)),
		common.RegisterHandler[*appcombat.LeaveFightersCommand](mediator, garrisonHandler),
		common.RegisterHandler[*appcombat.SetGarrisonModeCommand](mediator, garrisonHandler),
		common.RegisterHandler[*appevents.QueryEventsCommand](mediator,
			appevents.NewQueryEventsHandler(eventLog, corporations)),
		common.RegisterHandler[*admin.TestResetCommand](mediator,
			admin.NewTestResetHandler(maintenance, seeder, audit)),
		common.RegisterHandler[*admin.CharacterDeleteCommand](mediator,
			admin.NewCharacterDeleteHandler(characters, ships, garrisons, corporations, audit)),
	); err != nil {
		return err
	}

	recorder := metrics.NewRecorder()
	authenticator := httpapi.NewAuthenticator(cfg.Edge.APIToken, cfg.Edge.AdminPassword, cfg.Edge.AdminPasswordHash)
	limiter := httpapi.NewRateLimiter(rateLimits, httpapi.DefaultLimits(), clock)

	namespace := uuid.Nil
	if cfg.Edge.LegacyIDNamespace != "" {
		parsed, err := uuid.Parse(cfg.Edge.LegacyIDNamespace)
		if err != nil {
			return fmt.Errorf("bad legacy id namespace: %w", err)
		}
		namespace = parsed
	}
	dispatcher := httpapi.NewDispatcher(mediator, bus, authenticator, limiter, recorder, clock, logger,
		cfg.Edge.AllowLegacyIDs, namespace)
	server := httpapi.NewServer(cfg.Server.Addr, dispatcher, recorder.Handler())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Ships stranded in hyperspace across a restart arrive immediately
	startupCtx := common.WithLogger(ctx, logger)
	if resumed, err := arrivals.ResumeOverdue(startupCtx); err != nil {
		logger.Log("WARN", "overdue transit resume failed", map[string]interface{}{"error": err.Error()})
	} else if resumed > 0 {
		logger.Log("INFO", "resumed overdue transits", map[string]interface{}{"count": resumed})
	}

	logger.Log("INFO", "quadrantd listening", map[string]interface{}{"addr": cfg.Server.Addr})

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return server.Run(groupCtx) })
	group.Go(func() error { return monitor.Run(groupCtx) })
	return group.Wait()
}
