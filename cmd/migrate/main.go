// migrate applies the embedded Postgres migrations; go run ./cmd/migrate -direction up.
// The SQLite backend migrates itself on startup and does not need this command.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/kodacci/o-monitor-rest/internal/config"
	"github.com/kodacci/o-monitor-rest/internal/db/migrate"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	steps := flag.Int("steps", 0, "Number of migrations to apply; 0 applies all")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if cfg.DatabaseDriver != config.DriverPostgres || cfg.DatabaseURL == "" {
		fmt.Fprintln(os.Stderr, "migrate needs DATABASE_DRIVER=postgres and DATABASE_URL")
		os.Exit(1)
	}

	dir, err := migrate.ParseDirection(*direction)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := migrate.Run(cfg.DatabaseURL, dir, *steps); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
	version, dirty, err := migrate.Version(cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "migrate: version:", err)
		os.Exit(1)
	}
	fmt.Printf("schema version %d (dirty=%v)\n", version, dirty)
}
