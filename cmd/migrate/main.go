// Command migrate applies the schema migrations for the reference-data and
// rules tables. The database URL comes from -database or DATABASE_URL.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func main() {
	databaseURL := flag.String("database", "", "database URL (defaults to DATABASE_URL)")
	path := flag.String("path", "migrations", "migrations directory")
	command := flag.String("command", "up", "up, down, version or force")
	flag.Parse()

	url := *databaseURL
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}
	if url == "" {
		log.Fatal("no database URL: pass -database or set DATABASE_URL")
	}

	if err := run(url, *path, *command, flag.Args()); err != nil {
		log.Fatal(err)
	}
}

func run(url, path, command string, args []string) error {
	m, err := migrate.New("file://"+path, url)
	if err != nil {
		return fmt.Errorf("open migrations at %s: %w", path, err)
	}
	defer m.Close()

	switch command {
	case "up":
		if err := m.Up(); err != nil {
			if errors.Is(err, migrate.ErrNoChange) {
				log.Println("schema already up to date")
				return nil
			}
			return fmt.Errorf("migrate up: %w", err)
		}
		log.Println("schema migrated")
		return nil

	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate down: %w", err)
		}
		log.Println("schema rolled back")
		return nil

	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			return fmt.Errorf("read version: %w", err)
		}
		log.Printf("schema version %d (dirty: %v)", version, dirty)
		return nil

	case "force":
		if len(args) != 1 {
			return errors.New("force needs a version: -command force <version>")
		}
		version, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("bad version %q: %w", args[0], err)
		}
		if err := m.Force(version); err != nil {
			return fmt.Errorf("force version %d: %w", version, err)
		}
		log.Printf("schema version forced to %d", version)
		return nil

	default:
		return fmt.Errorf("unknown command %q (up, down, version, force)", command)
	}
}
