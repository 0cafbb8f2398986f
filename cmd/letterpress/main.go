package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"golang.org/x/term"

	"github.com/eringen/letterpress"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	// A missing .env is fine; the environment may be set by the host.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		runServe()
		return
	}

	switch os.Args[1] {
	case "serve":
		runServe()
	case "admin":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: letterpress admin <email>")
			os.Exit(1)
		}
		if err := runAdmin(os.Args[2]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "version":
		fmt.Printf("letterpress %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runServe() {
	app := letterpress.New(configFromEnv(), letterpress.ViewFuncs{})
	defer app.Close()
	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
}

// runAdmin provisions (or replaces) an admin credential. There is no HTTP
// route for this; the password is read from the terminal without echo.
func runAdmin(email string) error {
	fmt.Print("Password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return err
	}
	fmt.Print("Repeat password: ")
	repeat, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return err
	}
	if string(password) != string(repeat) {
		return fmt.Errorf("passwords do not match")
	}
	if len(password) == 0 {
		return fmt.Errorf("password must not be empty")
	}

	digest, err := letterpress.HashPassword(string(password))
	if err != nil {
		return err
	}
	store, err := letterpress.NewStore(letterpress.EnvOr("DATABASE_PATH", "data/blog.db"))
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.UpsertAdmin(email, digest); err != nil {
		return err
	}
	fmt.Printf("Admin credential stored for %s\n", email)
	return nil
}

func configFromEnv() letterpress.SiteConfig {
	return letterpress.SiteConfig{
		Name:        letterpress.EnvOr("SITE_NAME", "Blog"),
		URL:         letterpress.EnvOr("SITE_URL", "http://localhost:3000"),
		Description: os.Getenv("SITE_DESCRIPTION"),
		Author:      os.Getenv("SITE_AUTHOR"),

		Addr:         letterpress.EnvOr("ADDR", ":3000"),
		DatabasePath: letterpress.EnvOr("DATABASE_PATH", "data/blog.db"),
		StaticDir:    letterpress.EnvOr("STATIC_DIR", "static"),

		SessionSecret: letterpress.MustEnv("SESSION_SECRET"),
		CookieSecure:  os.Getenv("COOKIE_SECURE") == "true",

		Mail: letterpress.MailConfig{
			Host:          os.Getenv("MAIL_HOST"),
			Port:          envInt("MAIL_PORT", 465),
			Username:      os.Getenv("MAIL_USERNAME"),
			Password:      os.Getenv("MAIL_PASSWORD"),
			TestRecipient: os.Getenv("TEST_EMAIL"),
		},
	}
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("letterpress: %s must be an integer, got %q", key, v)
	}
	return n
}

func printUsage() {
	fmt.Println(`letterpress - a personal blogging platform with a subscriber mailing list

Usage:
  letterpress [command]

Commands:
  serve          Run the HTTP server (default)
  admin <email>  Store an admin credential (prompts for password)
  version        Print the letterpress version
  help           Show this help message`)
}
