package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"aplus/internal/config"
	"aplus/internal/mailer"
	"aplus/internal/metrics"
	"aplus/internal/queue"
	"aplus/internal/school"
	"aplus/internal/store"
)

// Worker consumes queue messages: summary jobs refresh the per-course
// attendance cache in Redis, notification jobs fan broadcasts out by mail.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "aplus:jobs")
	}

	st := school.NewRepository(db.Client)

	var mail mailer.Mailer
	if cfg.SendgridAPIKey != "" {
		mail = mailer.NewSendgrid(cfg.SendgridAPIKey, cfg.MailFrom)
		log.Println("mail delivery: sendgrid")
	} else {
		mail = &mailer.Console{From: cfg.MailFrom}
		log.Println("mail delivery: console (SENDGRID_API_KEY not set)")
	}

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for messages...")
	for msg := range messages {
		switch msg.Type {
		case queue.TypeSummary:
			if err := refreshSummary(ctx, st, redisClient, cfg, msg.ID); err != nil {
				log.Printf("summary refresh for course %d failed: %v", msg.ID, err)
			}
		case queue.TypeNotification:
			if err := fanOut(ctx, st, mail, msg.ID); err != nil {
				log.Printf("notification %d fan-out failed: %v", msg.ID, err)
			}
		default:
			log.Printf("unknown message type %q", msg.Type)
		}
	}

	log.Println("worker stopped")
}

// refreshSummary recomputes one course's attendance counts and caches them.
func refreshSummary(ctx context.Context, st school.Store, r *store.Redis, cfg config.App, courseID int64) error {
	sum, err := st.Summary(ctx, courseID)
	if err != nil {
		return err
	}
	data, err := json.Marshal(sum)
	if err != nil {
		return err
	}
	key := fmt.Sprintf("aplus:summary:course:%d", courseID)
	if err := r.Client.Set(ctx, key, data, cfg.SummaryCacheTTL).Err(); err != nil {
		return err
	}
	log.Printf("course %d summary cached: %d records", courseID, sum.Total)
	return nil
}

// fanOut mails one broadcast to everyone in its target role. A failed
// recipient is logged and skipped, not retried.
func fanOut(ctx context.Context, st school.Store, mail mailer.Mailer, id int64) error {
	n, err := st.NotificationByID(ctx, id)
	if err != nil {
		return err
	}

	var emails []string
	if n.Role == school.RoleStudent || n.Role == school.RoleAll {
		students, err := st.Students(ctx)
		if err != nil {
			return err
		}
		for _, s := range students {
			emails = append(emails, s.Email)
		}
	}
	if n.Role == school.RoleTeacher || n.Role == school.RoleAll {
		teachers, err := st.Teachers(ctx)
		if err != nil {
			return err
		}
		for _, t := range teachers {
			emails = append(emails, t.Email)
		}
	}

	for _, to := range emails {
		if err := mail.Send(ctx, to, n.Title, n.Message); err != nil {
			log.Printf("mail to %s failed: %v", to, err)
			continue
		}
		metrics.NotificationsSent.Inc()
	}
	log.Printf("notification %d sent to %d recipients", id, len(emails))
	return nil
}
