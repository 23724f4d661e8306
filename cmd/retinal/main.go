// ABOUTME: Entry point for the retinal client CLI
// ABOUTME: Handles signup, login and recording or listing classification history

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/2389/retinal-ledger/internal/app"
	"github.com/2389/retinal-ledger/internal/cache"
	"github.com/2389/retinal-ledger/internal/cli"
	"github.com/2389/retinal-ledger/internal/store"
)

// Version is set by goreleaser at build time.
var version = "dev"

func printUsage() {
	fmt.Println("Usage: retinal <command> [args]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  signup --name NAME --email EMAIL       Create an account and log in")
	fmt.Println("  login --email EMAIL                    Log in to an existing account")
	fmt.Println("  logout                                 End the current session")
	fmt.Println("  whoami                                 Show the current session")
	fmt.Println("  record --file F --scores L=C,...       Store a classification result")
	fmt.Println("         [--top LABEL] [--image REF]")
	fmt.Println("  records [--json]                       List your classification history")
	fmt.Println("  stats                                  Show healthy and abnormal counts")
	fmt.Println("  version                                Print the version")
	fmt.Println()
	fmt.Println("Passwords are prompted for; --password is accepted for scripting.")
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "signup":
		err = withApp(ctx, func(a *app.App) error { return runSignup(ctx, a, args) })
	case "login":
		err = withApp(ctx, func(a *app.App) error { return runLogin(ctx, a, args) })
	case "logout":
		err = withApp(ctx, func(a *app.App) error { return runLogout(ctx, a) })
	case "whoami":
		err = withApp(ctx, func(a *app.App) error { return runWhoami(ctx, a) })
	case "record":
		err = withApp(ctx, func(a *app.App) error { return runRecord(ctx, a, args) })
	case "records":
		err = withApp(ctx, func(a *app.App) error { return runRecords(ctx, a, args) })
	case "stats":
		err = withApp(ctx, func(a *app.App) error { return runStats(ctx, a) })
	case "version":
		fmt.Println(version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func withApp(ctx context.Context, fn func(a *app.App) error) error {
	a, _, err := cli.OpenApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func password(flags map[string]string) (string, error) {
	if p, ok := flags["password"]; ok {
		return p, nil
	}
	return cli.ReadSecret("Password: ")
}

func runSignup(ctx context.Context, a *app.App, args []string) error {
	flags, _ := cli.Flags(args)
	pw, err := password(flags)
	if err != nil {
		return err
	}

	res := a.Signup(ctx, flags["name"], flags["email"], pw)
	if !res.Success {
		return res.Err
	}

	color.Green("✓ Account created")
	fmt.Printf("  ID:    %s\n", res.Account.ID)
	fmt.Printf("  Email: %s\n", res.Account.Email)
	return nil
}

func runLogin(ctx context.Context, a *app.App, args []string) error {
	flags, _ := cli.Flags(args)
	pw, err := password(flags)
	if err != nil {
		return err
	}

	res := a.Login(ctx, flags["email"], pw)
	if !res.Success {
		return res.Err
	}

	color.Green("✓ Logged in as %s", res.Account.DisplayName)
	return nil
}

func runLogout(ctx context.Context, a *app.App) error {
	if err := a.Logout(ctx); err != nil {
		return err
	}
	color.Green("✓ Logged out")
	return nil
}

func currentSession(ctx context.Context, a *app.App) (*cache.Session, error) {
	sess, err := a.CurrentSession(ctx)
	if errors.Is(err, cache.ErrNoSession) {
		return nil, fmt.Errorf("not logged in (run: retinal login --email EMAIL)")
	}
	return sess, err
}

func runWhoami(ctx context.Context, a *app.App) error {
	sess, err := currentSession(ctx, a)
	if err != nil {
		return err
	}

	cyan := color.New(color.FgCyan)
	fmt.Println()
	cyan.Println("  Session")
	cyan.Println("  -------")
	fmt.Printf("  Account ID:   %s\n", sess.AccountID)
	fmt.Printf("  Email:        %s\n", sess.Email)
	fmt.Printf("  Display Name: %s\n", sess.DisplayName)
	fmt.Println()
	return nil
}

func runRecord(ctx context.Context, a *app.App, args []string) error {
	sess, err := currentSession(ctx, a)
	if err != nil {
		return err
	}

	flags, _ := cli.Flags(args)
	if flags["file"] == "" {
		return fmt.Errorf("--file is required")
	}
	scores, err := cli.ParseScores(flags["scores"])
	if err != nil {
		return err
	}

	var top *store.Score
	if label := flags["top"]; label != "" {
		for _, sc := range scores {
			if sc.Label == label {
				top = &sc
				break
			}
		}
		if top == nil {
			return fmt.Errorf("--top %q does not name one of the scores", label)
		}
	}

	r, err := a.RecordClassification(ctx, sess.AccountID, flags["file"], scores, top, flags["image"])
	if err != nil {
		return err
	}

	color.Green("✓ Recorded %s", r.ID)
	fmt.Printf("  Top: %s (%.1f%%)\n", r.Top.Label, r.Top.Confidence*100)
	return nil
}

func runRecords(ctx context.Context, a *app.App, args []string) error {
	sess, err := currentSession(ctx, a)
	if err != nil {
		return err
	}
	flags, _ := cli.Flags(args, "json")

	records, err := a.ListRecords(ctx, sess.AccountID)
	if err != nil {
		return err
	}

	if flags["json"] == "true" {
		if records == nil {
			records = []*store.Record{}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	cyan := color.New(color.FgCyan)
	fmt.Println()
	cyan.Println("  Classification History")
	cyan.Println("  ----------------------")

	if len(records) == 0 {
		fmt.Println("  (no records)")
		fmt.Println()
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  ID\tFILE\tRESULT\tCONFIDENCE\tCREATED")
	fmt.Fprintln(w, "  --\t----\t------\t----------\t-------")
	for _, r := range records {
		fmt.Fprintf(w, "  %s\t%s\t%s\t%.1f%%\t%s\n",
			r.ID, r.SourceFileName, r.Top.Label, r.Top.Confidence*100, r.CreatedAt.Local().Format("Jan 02 15:04"))
	}
	w.Flush()
	fmt.Println()
	return nil
}

func runStats(ctx context.Context, a *app.App) error {
	sess, err := currentSession(ctx, a)
	if err != nil {
		return err
	}

	counts, err := a.Stats(ctx, sess.AccountID)
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	fmt.Println()
	fmt.Printf("  Total:    %d\n", counts.Total)
	green.Printf("  Healthy:  %d\n", counts.Healthy)
	yellow.Printf("  Abnormal: %d\n", counts.Abnormal)
	fmt.Println()
	return nil
}
