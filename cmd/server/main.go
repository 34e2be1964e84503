// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/coachline-backend/internal/campaign"
	"github.com/unclebandit/coachline-backend/internal/config"
	"github.com/unclebandit/coachline-backend/internal/controller"
	"github.com/unclebandit/coachline-backend/internal/db"
	"github.com/unclebandit/coachline-backend/internal/handler"
	"github.com/unclebandit/coachline-backend/internal/model"
	"github.com/unclebandit/coachline-backend/internal/queue"
	"github.com/unclebandit/coachline-backend/internal/repository"
	"github.com/unclebandit/coachline-backend/internal/scheduler"
	"github.com/unclebandit/coachline-backend/internal/sender"
	"github.com/unclebandit/coachline-backend/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("invalid configuration: ", err)
	}

	// Init DB
	db.Init(cfg.PostgresDSN())
	if err := db.Migrate(db.DB); err != nil {
		log.Fatal("failed to migrate: ", err)
	}

	clientRepo := &repository.ClientRepository{DB: db.DB}
	templateRepo := &repository.TemplateRepository{DB: db.DB}
	windowRepo := &repository.WindowRepository{DB: db.DB}
	outboundRepo := &repository.OutboundMessageRepository{DB: db.DB}
	runRepo := &repository.CampaignRunRepository{DB: db.DB}

	// Sessions survive restarts when Mongo is reachable; otherwise each coach
	// gets an in-memory session.
	var sessionStore service.SessionStore
	mongoClient, err := db.ConnectMongo(context.Background(), cfg.MongoURI)
	if err != nil {
		log.Println("⚠️ Mongo unavailable, sessions will not be persisted:", err)
	} else {
		defer mongoClient.Disconnect(context.Background())
		sessionStore = repository.NewSessionRepository(mongoClient.Database(cfg.MongoDB))
		log.Println("✅ Connected to session store")
	}

	q := newQueue(cfg)
	if cfg.QueueDriver == "memory" {
		startLocalDelivery(cfg, q, outboundRepo, clientRepo)
	}

	roster := &service.RosterService{Registry: clientRepo, History: outboundRepo}
	templates := &service.TemplateService{Store: templateRepo}
	batcher := &service.Batcher{
		Service:     &service.QueueDispatchService{Outbound: outboundRepo, Queue: q},
		Concurrency: cfg.DispatchConcurrency,
	}
	exportSink := &service.QueueExportSink{Queue: q}

	sessions := service.NewSessionManager(sessionStore, func(coach model.CoachSession) *service.Workflow {
		return service.NewWorkflow(coach.CoachID, service.WorkflowDeps{
			Roster:    roster,
			Templates: templates,
			Oracle:    windowRepo,
			Batcher:   batcher,
			Export:    exportSink,
			Runs:      runRepo,
			Resolver:  campaign.Resolver{DefaultLocation: coachLocation(coach, cfg.DefaultTimezone)},
		})
	})

	campaignService := &service.CampaignService{RunRepo: runRepo, Stats: outboundRepo, Clients: roster}

	r := chi.NewRouter()
	(&controller.WorkflowController{Sessions: sessions}).Mount(r)
	handler.NewCampaignHandler(campaignService).Mount(r)
	(&handler.RosterHandler{Sessions: sessions, Roster: roster}).Mount(r)

	log.Println("🚀 Server running on", cfg.HTTPAddr)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}

func newQueue(cfg *config.Config) queue.Queue {
	if cfg.QueueDriver == "amqp" {
		q, err := queue.NewRabbitMQQueue(cfg.AMQPURL)
		if err != nil {
			log.Fatal("failed to connect to RabbitMQ: ", err)
		}
		return q
	}
	return queue.NewInMemoryQueue()
}

// startLocalDelivery runs the worker and scheduler in-process; an in-memory
// queue cannot be consumed by the worker binary.
func startLocalDelivery(cfg *config.Config, q queue.Queue, outboundRepo *repository.OutboundMessageRepository, clientRepo *repository.ClientRepository) {
	var s sender.Sender = sender.NewMockSender(time.Now().UnixNano())
	if cfg.Sender == "bot" {
		bot, err := sender.NewBotSender(cfg.BotToken, cfg.BotAPIURL, false)
		if err != nil {
			log.Fatal("failed to create bot sender: ", err)
		}
		s = bot
	}

	worker := service.NewWorker(outboundRepo, clientRepo, s)
	if err := queue.StartSendSubscriber(q, func(id int) error {
		return worker.Process(context.Background(), id)
	}); err != nil {
		log.Fatal("failed to subscribe sender: ", err)
	}
	if err := queue.StartExportSubscriber(q, service.WriteExport); err != nil {
		log.Fatal("failed to subscribe exporter: ", err)
	}

	sched := scheduler.NewScheduler(outboundRepo, q, cfg.SchedulePoll)
	if err := sched.Start(); err != nil {
		log.Fatal("failed to start scheduler: ", err)
	}
}

func coachLocation(coach model.CoachSession, fallbackZone string) *time.Location {
	if loc, err := campaign.LoadLocation(coach.Timezone); err == nil {
		return loc
	}
	if loc, err := campaign.LoadLocation(fallbackZone); err == nil {
		return loc
	}
	return time.UTC
}
