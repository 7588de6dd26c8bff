package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/spf13/pflag"

	"event-waitlist/internal/clock"
	"event-waitlist/internal/config"
	"event-waitlist/internal/database"
	"event-waitlist/internal/models"
	"event-waitlist/internal/repositories"
	"event-waitlist/internal/scheduler"
	"event-waitlist/internal/services"
)

func main() {
	flagSet := pflag.NewFlagSet("seed-events", pflag.ContinueOnError)
	queued := flagSet.Int("queue", 5, "number of demo users to queue per event")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		log.Fatal("Failed to parse flags:", err)
	}

	fmt.Println("🌱 Seeding events and waiting lists")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	ctx := context.Background()

	// Initialize database connection
	db, err := database.NewConnection(ctx, database.Config{
		URL:      cfg.Database.URL,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	// Offers made while seeding need their expiry jobs in the same store the server polls
	jobStore, err := scheduler.Open(ctx, cfg.Scheduler.DBPath)
	if err != nil {
		log.Fatal("Failed to open scheduler store:", err)
	}
	defer jobStore.Close()

	clk := clock.NewSystem()
	eventRepo := repositories.NewEventRepository(db)
	ticketRepo := repositories.NewTicketRepository(db)
	waitingListRepo := repositories.NewWaitingListRepository(db)

	availability := services.NewAvailabilityService(eventRepo, ticketRepo, waitingListRepo, db, clk)
	allocator := services.NewOfferAllocator(waitingListRepo, availability, scheduler.New(jobStore, clk), clk, cfg.Waitlist.OfferWindow)
	waitingList := services.NewWaitingListService(eventRepo, ticketRepo, waitingListRepo, db, allocator, clk)

	events := []models.EventCreateRequest{
		{Name: "Tech Innovation Summit", TotalTickets: 3},
		{Name: "Startup Pitch Competition", TotalTickets: 1},
		{Name: "Creative Design Workshop", TotalTickets: 10},
		{Name: "Sold Out Preview Night", TotalTickets: 0},
	}

	fmt.Println("\n🎫 Creating events and queueing users...")

	for i := range events {
		event, err := waitingList.CreateEvent(ctx, &events[i])
		if err != nil {
			log.Printf("Failed to create event %q: %v", events[i].Name, err)
			continue
		}

		offered := 0
		for n := 1; n <= *queued; n++ {
			userID := fmt.Sprintf("demo-user-%d", n)
			entry, err := waitingList.JoinWaitingList(ctx, event.ID, userID)
			if err != nil {
				log.Printf("Failed to queue %s for event %d: %v", userID, event.ID, err)
				continue
			}
			if entry.Status == models.WaitingListOffered {
				offered++
			}
		}

		fmt.Printf("✅ %s (id %d): %d tickets, %d queued, %d offered\n",
			event.Name, event.ID, event.TotalTickets, *queued, offered)
	}

	fmt.Println("\n🎉 Seeding completed")
}
