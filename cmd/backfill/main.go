// Command backfill queues an archive job for every live game, so games
// played before the archive worker existed reach the SQLite archive too.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/jwebster45206/druid-of-peace/internal/config"
	"github.com/jwebster45206/druid-of-peace/internal/logger"
	"github.com/jwebster45206/druid-of-peace/internal/services/queue"
	"github.com/jwebster45206/druid-of-peace/internal/storage"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "list the games without queueing jobs")
	all := flag.Bool("all", false, "include games with no encounter history")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logs := logger.Setup(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	source := storage.NewRedisStorage(cfg.RedisURL, cfg.SessionTTL, logs)
	defer source.Close()
	if err := source.Ping(ctx); err != nil {
		log.Fatal("Failed to connect to Redis: ", err)
	}

	games, err := source.ListGameStates(ctx)
	if err != nil {
		log.Fatal("Failed to list games: ", err)
	}

	jobs := queue.NewJobQueue(queue.NewClientWithRedis(source.Client(), logs))
	queued := 0
	for _, g := range games {
		if g.Encounters == 0 && !*all {
			continue
		}
		fmt.Printf("%s  %-16s day %-3d encounters %d\n", g.ID, g.CurrentZone, g.Day, g.Encounters)
		if *dryRun {
			continue
		}
		if err := jobs.ArchiveGame(ctx, g.ID, g.Encounters); err != nil {
			log.Fatal("Failed to queue archive job: ", err)
		}
		queued++
	}

	depth, err := jobs.Depth(ctx)
	if err != nil {
		log.Fatal("Failed to get queue depth: ", err)
	}
	fmt.Printf("\nQueued %d of %d games, queue depth %d\n", queued, len(games), depth)
}
