// cmd/worker/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/unclebandit/coachline-backend/internal/config"
	"github.com/unclebandit/coachline-backend/internal/db"
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

	conn, err := db.Open(cfg.PostgresDSN())
	if err != nil {
		log.Fatal("failed to connect to DB: ", err)
	}
	defer conn.Close()

	outboundRepo := &repository.OutboundMessageRepository{DB: conn}
	clientRepo := &repository.ClientRepository{DB: conn}

	var q queue.Queue
	if cfg.QueueDriver == "amqp" {
		rq, err := queue.NewRabbitMQQueue(cfg.AMQPURL)
		if err != nil {
			log.Fatal("Failed to connect to RabbitMQ: ", err)
		}
		defer rq.Close()
		q = rq
	} else {
		log.Println("⚠️ QUEUE_DRIVER=memory: the worker only sees jobs the scheduler releases in this process")
		q = queue.NewInMemoryQueue()
	}

	s, err := newSender(cfg)
	if err != nil {
		log.Fatal("failed to create sender: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	worker := service.NewWorker(outboundRepo, clientRepo, s)
	if err := subscribe(ctx, q, worker); err != nil {
		log.Fatal("Failed to register consumer: ", err)
	}

	sched := scheduler.NewScheduler(outboundRepo, q, cfg.SchedulePoll)
	if err := sched.Start(); err != nil {
		log.Fatal("Failed to start scheduler: ", err)
	}

	log.Println("Worker running, waiting for messages...")
	<-ctx.Done()
	sched.Stop()
	log.Println("Worker stopped")
}

// subscribe attaches the worker to the send topic and the export writer to
// the export topic.
func subscribe(ctx context.Context, q queue.Queue, worker *service.Worker) error {
	if err := queue.StartSendSubscriber(q, func(id int) error {
		return worker.Process(ctx, id)
	}); err != nil {
		return err
	}
	return queue.StartExportSubscriber(q, service.WriteExport)
}

func newSender(cfg *config.Config) (sender.Sender, error) {
	if cfg.Sender == "bot" {
		return sender.NewBotSender(cfg.BotToken, cfg.BotAPIURL, false)
	}
	return sender.NewMockSender(time.Now().UnixNano()), nil
}
