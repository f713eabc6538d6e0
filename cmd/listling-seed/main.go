// Command listling-seed populates a database with demo accounts, todos,
// and reviews for local development.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/listling/listling/pkg/auth"
	"github.com/listling/listling/pkg/config"
	"github.com/listling/listling/pkg/store"
)

type seedUser struct {
	username string
	password string
	todos    []seedTodo
}

type seedTodo struct {
	title  string
	public bool
	items  []string
}

type seedReview struct {
	reviewer string
	todo     string
	title    string
	content  string
	stars    int
}

var users = []seedUser{
	{
		username: "alice",
		password: "Alice123!@#",
		todos: []seedTodo{
			{title: "Groceries", public: true, items: []string{"Milk", "Eggs", "Bread", "Coffee"}},
			{title: "Birthday party", public: false, items: []string{"Book venue", "Send invites"}},
		},
	},
	{
		username: "bob",
		password: "Bob12345!@#",
		todos: []seedTodo{
			{title: "Home office", public: true, items: []string{"Standing desk", "Cable trays"}},
		},
	},
	{
		username: "carol",
		password: "Carol123!@#",
		todos: []seedTodo{
			{title: "Marathon training", public: true, items: []string{"Week 1 long run", "New shoes"}},
		},
	},
}

var reviews = []seedReview{
	{reviewer: "bob", todo: "Groceries", title: "Solid list", content: "Covers the essentials.", stars: 4},
	{reviewer: "carol", todo: "Groceries", title: "Missing snacks", content: "Where is the chocolate?", stars: 3},
	{reviewer: "alice", todo: "Home office", title: "Inspiring", content: "Copied the desk idea.", stars: 5},
	{reviewer: "carol", todo: "Home office", title: "Practical", content: "Cable trays are underrated.", stars: 5},
	{reviewer: "bob", todo: "Marathon training", title: "Ambitious", content: "Good luck out there.", stars: 4},
}

func main() {
	driver := flag.String("driver", "", "Database driver, overrides LISTLING_DB_DRIVER")
	dsn := flag.String("dsn", "", "Database DSN, overrides LISTLING_DB_URL")
	flag.Parse()

	cfg := config.LoadStoreConfig()
	if *driver != "" {
		cfg.Driver = *driver
	}
	if *dsn != "" {
		cfg.DSN = *dsn
	}

	st, err := store.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	if err := st.Migrate(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	if err := seed(ctx, st); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Printf("Seeded %d users and %d reviews", len(users), len(reviews))
}

func seed(ctx context.Context, st store.Store) error {
	userIDs := make(map[string]int64)
	todoIDs := make(map[string]int64)

	for _, u := range users {
		hash, err := auth.HashPassword(u.password)
		if err != nil {
			return err
		}
		user, err := st.CreateUser(ctx, u.username, hash)
		if err != nil {
			return err
		}
		userIDs[u.username] = user.ID
		log.Printf("Created user %s (password %s)", u.username, u.password)

		for _, td := range u.todos {
			todo, err := st.CreateTodo(ctx, user.ID, td.title, td.public)
			if err != nil {
				return err
			}
			todoIDs[td.title] = todo.ID
			for _, content := range td.items {
				if _, err := st.CreateItem(ctx, todo.ID, content, false); err != nil {
					return err
				}
			}
		}
	}

	for _, r := range reviews {
		_, err := st.CreateReview(ctx, userIDs[r.reviewer], todoIDs[r.todo], r.title, r.content, r.stars)
		if err != nil {
			return err
		}
	}
	return nil
}
