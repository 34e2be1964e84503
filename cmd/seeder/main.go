//cmd/seeder/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/unclebandit/coachline-backend/internal/config"
	"github.com/unclebandit/coachline-backend/internal/db"
	"github.com/unclebandit/coachline-backend/internal/fallback"
	"github.com/unclebandit/coachline-backend/internal/model"
	"github.com/unclebandit/coachline-backend/internal/repository"
)

// Seeds one coach with the built-in roster, categories and templates. The
// first client gets a recent inbound message so its messaging window is open.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	coachID := fallback.Coach().CoachID
	if len(os.Args) > 1 {
		coachID = os.Args[1]
	}

	conn, err := db.Open(cfg.PostgresDSN())
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	if err := db.Migrate(conn); err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	clients := &repository.ClientRepository{DB: conn}
	templates := &repository.TemplateRepository{DB: conn}
	windows := &repository.WindowRepository{DB: conn}

	for _, c := range fallback.Categories(coachID) {
		if _, err := clients.AddCategory(ctx, coachID, c.Name); err != nil {
			log.Fatalf("failed to seed category %s: %v", c.Name, err)
		}
	}
	fmt.Println("Seeded: categories")

	for _, kind := range model.AllKinds {
		for _, t := range fallback.Templates(coachID, kind) {
			if err := templates.Create(ctx, &t); err != nil {
				log.Fatalf("failed to seed %s template: %v", kind, err)
			}
		}
	}
	fmt.Println("Seeded: templates")

	for i, c := range fallback.Clients(coachID) {
		if err := clients.CreateClient(ctx, &c); err != nil {
			log.Fatalf("failed to seed client %s: %v", c.Name, err)
		}
		if i == 0 {
			if err := windows.RecordInbound(ctx, coachID, c.ID, "Thanks coach!", time.Now().Add(-time.Hour)); err != nil {
				log.Fatalf("failed to seed inbound message: %v", err)
			}
		}
	}
	fmt.Println("Seeded: clients")

	fmt.Printf("Database seeding completed successfully for coach %s!\n", coachID)
}
