// Command seed fills the configured store with demo founders.
package main

import (
	"context"
	"flag"
	"log"

	"opcdiary/internal/bootstrap"
	"opcdiary/internal/config"
	"opcdiary/internal/seed"
	"opcdiary/internal/service"
)

func main() {
	numUsers := flag.Int("users", 8, "Number of founders to create")
	projects := flag.Int("projects", 1, "Projects per founder")
	entries := flag.Int("entries", 4, "Diary entries per project")
	posts := flag.Int("posts", 1, "Forum posts per founder")
	password := flag.String("password", seed.DefaultPassword, "Password given to every founder")
	seedValue := flag.Int64("seed", 0, "Random seed (0 = random)")
	shouldClean := flag.Bool("clean", false, "Remove every key before seeding")
	flag.Parse()

	log.Println("Diary Seeder")
	log.Printf("Target: %d founders, %d projects each, %d entries per project, clean=%v", *numUsers, *projects, *entries, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.StoreDriver == config.DriverMemory {
		log.Fatal("STORE_DRIVER=memory does not outlive this process; pick redis, postgres or sqlite")
	}

	ctx := context.Background()
	rt, err := bootstrap.InitRuntime(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer rt.Close()

	directory, err := service.LoadDirectory()
	if err != nil {
		log.Fatalf("Failed to load directory: %v", err)
	}
	svcs := service.New(rt.Repos, service.Options{
		Directory: directory,
		Diary:     service.DiaryOptions{PublishDelay: -1},
	})

	s := seed.NewSeeder(rt.Store, svcs, seed.Options{
		NumUsers:          *numUsers,
		ProjectsPerUser:   *projects,
		EntriesPerProject: *entries,
		PostsPerUser:      *posts,
		Password:          *password,
		Seed:              *seedValue,
		Clean:             *shouldClean,
	})
	res, err := s.Run(ctx)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	for _, name := range res.Users {
		log.Printf("  %s", name)
	}
	log.Printf("All done. Every founder has the password: %s", *password)
}
