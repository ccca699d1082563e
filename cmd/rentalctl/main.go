// cmd/rentalctl/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/aldegalts/car-rental/internal/clients"
	"github.com/aldegalts/car-rental/internal/httpx"
)

const usage = `usage: rentalctl <command> [flags]

commands:
  sweep                           complete expired rentals now
  stats -start DATE -end DATE     violation rate for rentals inside the window
  valid -id RENTAL_ID             report whether a rental is active
  hash-key -key KEY               print ADMIN_KEY_HASH and ADMIN_KEY_SALT for KEY
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err := run(os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "rentalctl:", err)
		os.Exit(1)
	}
}

func run(command string, args []string) error {
	fs := flag.NewFlagSet(command, flag.ExitOnError)
	addr := fs.String("addr", getEnv("RENTAL_API_URL", "http://localhost:8080"), "rental service base URL")
	adminKey := fs.String("admin-key", os.Getenv("RENTAL_ADMIN_KEY"), "admin key")

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	switch command {
	case "sweep":
		fs.Parse(args)
		out, err := clients.NewRentalClient(*addr, *adminKey).Sweep(ctx)
		if err != nil {
			return err
		}
		return printJSON(out)

	case "stats":
		start := fs.String("start", "", "window start (RFC 3339 or 2006-01-02)")
		end := fs.String("end", "", "window end (RFC 3339 or 2006-01-02)")
		fs.Parse(args)
		from, err := parseDate(*start)
		if err != nil {
			return fmt.Errorf("-start: %w", err)
		}
		to, err := parseDate(*end)
		if err != nil {
			return fmt.Errorf("-end: %w", err)
		}
		out, err := clients.NewRentalClient(*addr, *adminKey).Statistics(ctx, from, to)
		if err != nil {
			return err
		}
		return printJSON(out)

	case "valid":
		raw := fs.String("id", "", "rental id")
		fs.Parse(args)
		id, err := uuid.Parse(*raw)
		if err != nil {
			return fmt.Errorf("-id: %w", err)
		}
		valid, err := clients.NewRentalClient(*addr, *adminKey).IsValid(ctx, id)
		if err != nil {
			return err
		}
		fmt.Println(valid)
		return nil

	case "hash-key":
		key := fs.String("key", "", "admin key to hash")
		fs.Parse(args)
		if *key == "" {
			return fmt.Errorf("-key is required")
		}
		hash, salt, err := httpx.HashAdminKey(*key)
		if err != nil {
			return err
		}
		fmt.Printf("ADMIN_KEY_HASH=%s\nADMIN_KEY_SALT=%s\n", hash, salt)
		return nil
	}

	fmt.Fprint(os.Stderr, usage)
	return fmt.Errorf("unknown command %q", command)
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
