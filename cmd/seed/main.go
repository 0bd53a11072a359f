// seed inserts development data: the default admin, a read-only user and a day of synthetic samples.
// Idempotent: skips everything if the viewer user already exists.
package main

import (
	"context"
	"log"
	"math"
	"time"

	"github.com/kodacci/o-monitor-rest/internal/app"
	"github.com/kodacci/o-monitor-rest/internal/config"
	"github.com/kodacci/o-monitor-rest/internal/logging"
	"github.com/kodacci/o-monitor-rest/internal/security"
	statsdomain "github.com/kodacci/o-monitor-rest/internal/stats/domain"
	userdomain "github.com/kodacci/o-monitor-rest/internal/user/domain"
	userservice "github.com/kodacci/o-monitor-rest/internal/user/service"
)

const (
	viewerLogin    = "viewer"
	viewerPassword = "password123"
	sampleStep     = 10 * time.Minute
	memoryTotal    = 8 << 30
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogJSON)
	ctx := context.Background()

	storage, err := app.OpenStorage(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer storage.Close()

	existing, err := storage.Users.GetByLogin(ctx, viewerLogin)
	if err != nil {
		log.Fatalf("lookup: %v", err)
	}
	if existing != nil {
		log.Printf("seed: %q already exists, nothing to do", viewerLogin)
		return
	}

	users := userservice.NewUserService(storage.Users, security.NewHasher(cfg.BcryptCost), logger)
	if _, err := users.EnsureDefaultUser(ctx, cfg.DefaultUserLogin, cfg.DefaultUserPassword); err != nil {
		log.Fatalf("default user: %v", err)
	}
	if _, err := users.Create(ctx, userservice.CreateInput{
		Login:     viewerLogin,
		Name:      "Read-only viewer",
		Password:  viewerPassword,
		Privilege: userdomain.PrivilegeUser,
	}); err != nil {
		log.Fatalf("viewer: %v", err)
	}

	end := time.Now().UTC().Truncate(sampleStep)
	start := end.Add(-24 * time.Hour)
	n := 0
	for ts := start; !ts.After(end); ts = ts.Add(sampleStep) {
		if err := storage.Stats.Write(ctx, syntheticSample(ts)); err != nil {
			log.Fatalf("sample %s: %v", ts.Format(time.RFC3339), err)
		}
		n++
	}
	log.Printf("seed: created users %q and %q, %d samples", cfg.DefaultUserLogin, viewerLogin, n)
}

// syntheticSample follows a daily sine so charts have a recognizable shape.
func syntheticSample(ts time.Time) *statsdomain.Sample {
	phase := 2 * math.Pi * float64(ts.Hour()*60+ts.Minute()) / (24 * 60)
	base := 40 + 30*math.Sin(phase)
	load := []float64{base, base * 0.8, base * 0.6, base * 0.4}
	free := uint64(float64(memoryTotal) * (0.6 - 0.2*math.Sin(phase)))
	return &statsdomain.Sample{
		Timestamp:   ts,
		Temperature: int(45 + 10*math.Sin(phase)),
		Memory:      statsdomain.NewMemory(free, memoryTotal),
		CPU:         statsdomain.CPU{CoresCount: len(load), Load: load},
	}
}
