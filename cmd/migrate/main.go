// Command migrate applies pending snapshot history migrations without
// starting the server. It reads the same DB_* and SQLITE_* variables.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"pressuredash/internal/config"
	"pressuredash/internal/db"
	"pressuredash/internal/logging"
	"pressuredash/internal/migrate"
)

const appName = "pressuredash-migrate"

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <command>\n  migrate  apply pending schema migrations\n", os.Args[0])
		os.Exit(1)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg, version, appName)
	slog.SetDefault(logger)

	switch os.Args[1] {
	case "migrate":
		conn, err := db.Open(cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "db open: %v\n", err)
			os.Exit(1)
		}
		applied, err := migrate.Run(conn)
		if closeErr := db.Close(conn); closeErr != nil {
			logger.Error("db close", "error", closeErr)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("migrations applied: %d\n", applied)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}
}
