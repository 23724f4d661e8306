// ABOUTME: Admin CLI for retinal-ledger account maintenance
// ABOUTME: Verifies an admin JWT and runs summaries, deletions, wipes and exports

package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/2389/retinal-ledger/internal/app"
	"github.com/2389/retinal-ledger/internal/cli"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cmd := os.Args[1]
	args := os.Args[2:]

	if cmd == "help" || cmd == "-h" || cmd == "--help" {
		printUsage()
		return
	}

	a, _, err := cli.OpenApp(ctx)
	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}

	if cmd == "token" {
		err = cmdToken(a, args)
	} else {
		err = runAdmin(ctx, a, cmd, args)
	}
	a.Close()

	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	yellow := color.New(color.FgYellow)

	fmt.Println("Usage: retinal-admin <command> [args]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  token --name NAME [--ttl 24h]         Generate an admin token")
	fmt.Println("  accounts                              Summarize all accounts")
	fmt.Println("  delete <account-id>...                Delete accounts and their records")
	fmt.Println("  delete-records <account-id> <id>...   Delete specific records")
	fmt.Println("  wipe [--confirm PHRASE]               Delete ALL accounts, records and cache")
	fmt.Println("  export <account-id> [--out FILE]      Export an account's records as JSON")
	fmt.Println("  storage                               Show cache storage usage")
	fmt.Println("  audit [--limit N]                     Show the maintenance audit log")
	fmt.Println()
	yellow.Println("Environment:")
	fmt.Println("  RETINAL_ADMIN_TOKEN      Admin JWT (required for all commands but token)")
	fmt.Println("  RETINAL_ADMIN_SECRET     Signing secret when no config file sets one")
	fmt.Println("  RETINAL_CONFIG           Config file path")
	fmt.Println()
}

func runAdmin(ctx context.Context, a *app.App, cmd string, args []string) error {
	token := os.Getenv("RETINAL_ADMIN_TOKEN")
	if token == "" {
		return fmt.Errorf("RETINAL_ADMIN_TOKEN environment variable is required")
	}
	session, err := a.Admin(token)
	if err != nil {
		return fmt.Errorf("admin authentication failed: %w", err)
	}

	switch cmd {
	case "accounts", "ls":
		return cmdAccounts(ctx, session)
	case "delete", "rm":
		return cmdDelete(ctx, session, args)
	case "delete-records":
		return cmdDeleteRecords(ctx, session, args)
	case "wipe":
		return cmdWipe(ctx, session, args)
	case "export":
		return cmdExport(ctx, session, args)
	case "storage":
		return cmdStorage(ctx, session)
	case "audit":
		return cmdAudit(ctx, session, args)
	default:
		printUsage()
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

// cmdToken generates an admin token from the configured secret
func cmdToken(a *app.App, args []string) error {
	flags, _ := cli.Flags(args)
	name := flags["name"]
	if name == "" {
		return fmt.Errorf("--name is required")
	}

	var ttl time.Duration
	if raw := flags["ttl"]; raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid --ttl: %w", err)
		}
		ttl = d
	}

	token, err := a.GenerateAdminToken(name, ttl)
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	green.Println("✓ Token generated")
	fmt.Println()
	fmt.Println(token)
	fmt.Println()
	yellow.Println("Export it with:")
	fmt.Printf("  export RETINAL_ADMIN_TOKEN=%q\n", token)
	return nil
}

func cmdAccounts(ctx context.Context, s *app.AdminSession) error {
	summaries, err := s.Summarize(ctx)
	if err != nil {
		return err
	}

	cyan := color.New(color.FgCyan)
	fmt.Println()
	cyan.Println("  Accounts")
	cyan.Println("  --------")

	if len(summaries) == 0 {
		fmt.Println("  (no accounts)")
		fmt.Println()
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  ID\tEMAIL\tNAME\tRECORDS\tLAST ACTIVITY")
	fmt.Fprintln(w, "  --\t-----\t----\t-------\t-------------")
	for _, sum := range summaries {
		last := "-"
		if sum.LastActivity != nil {
			last = sum.LastActivity.Local().Format("Jan 02 15:04")
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\t%d\t%s\n",
			truncate(sum.AccountID, 36), truncate(sum.Email, 32), truncate(sum.Name, 24), sum.RecordCount, last)
	}
	w.Flush()
	fmt.Println()
	return nil
}

func cmdDelete(ctx context.Context, s *app.AdminSession, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: retinal-admin delete <account-id>...")
	}

	if len(args) == 1 {
		deleted, err := s.DeleteAccount(ctx, args[0])
		if err != nil {
			return err
		}
		if !deleted {
			color.Yellow("Account %s not found\n", args[0])
			return nil
		}
		color.Green("✓ Deleted account %s\n", args[0])
		return nil
	}

	n := s.DeleteAccounts(ctx, args)
	color.Green("✓ Deleted %d of %d accounts\n", n, len(args))
	return nil
}

func cmdDeleteRecords(ctx context.Context, s *app.AdminSession, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: retinal-admin delete-records <account-id> <record-id>...")
	}

	n, err := s.DeleteRecords(ctx, args[0], args[1:])
	if n > 0 {
		color.Green("✓ Deleted %d records\n", n)
	} else if err == nil {
		color.Yellow("No matching records\n")
	}
	return err
}

func cmdWipe(ctx context.Context, s *app.AdminSession, args []string) error {
	flags, _ := cli.Flags(args)
	phrase, ok := flags["confirm"]
	if !ok {
		color.New(color.FgRed, color.Bold).Println("This deletes every account, record and cached entry.")
		fmt.Printf("Type %q to continue: ", app.WipeConfirmation)
		line, err := cli.ReadLine(bufio.NewReader(os.Stdin))
		if err != nil {
			return err
		}
		phrase = line
	}

	wiped, err := s.WipeAll(ctx, phrase)
	if err != nil {
		return err
	}
	if wiped {
		color.Green("✓ All data deleted\n")
	}
	return nil
}

func cmdExport(ctx context.Context, s *app.AdminSession, args []string) error {
	flags, positional := cli.Flags(args)
	if len(positional) != 1 {
		return fmt.Errorf("usage: retinal-admin export <account-id> [--out FILE]")
	}

	data, err := s.ExportAccount(ctx, positional[0])
	if err != nil {
		return err
	}
	if data == nil {
		color.Yellow("Account %s has no records\n", positional[0])
		return nil
	}

	out := flags["out"]
	if out == "" {
		_, err = os.Stdout.Write(append(data, '\n'))
		return err
	}
	if err := os.WriteFile(out, data, 0600); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	color.Green("✓ Exported to %s\n", out)
	return nil
}

func cmdStorage(ctx context.Context, s *app.AdminSession) error {
	fp, err := s.StorageFootprint(ctx)
	if err != nil {
		return err
	}

	cyan := color.New(color.FgCyan)
	fmt.Println()
	cyan.Println("  Cache Storage")
	cyan.Println("  -------------")
	fmt.Printf("  Keys:  %d\n", fp.TotalKeys)
	fmt.Printf("  Size:  %.2f KiB\n", fp.TotalKiB())
	fmt.Println()

	if len(fp.PerKey) == 0 {
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  KEY\tTYPE\tBYTES")
	fmt.Fprintln(w, "  ---\t----\t-----")
	for _, k := range fp.PerKey {
		fmt.Fprintf(w, "  %s\t%s\t%d\n", k.Key, k.Type, k.Bytes)
	}
	w.Flush()
	fmt.Println()
	return nil
}

func cmdAudit(ctx context.Context, s *app.AdminSession, args []string) error {
	flags, _ := cli.Flags(args)
	limit := 50
	if raw := flags["limit"]; raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid --limit: %s", raw)
		}
		limit = n
	}

	entries, err := s.AuditLog(ctx, limit)
	if err != nil {
		return err
	}

	cyan := color.New(color.FgCyan)
	fmt.Println()
	cyan.Println("  Audit Log")
	cyan.Println("  ---------")

	if len(entries) == 0 {
		fmt.Println("  (no entries)")
		fmt.Println()
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  TIME\tACTOR\tACTION\tTARGET")
	fmt.Fprintln(w, "  ----\t-----\t------\t------")
	for _, e := range entries {
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s:%s\n",
			e.Timestamp.Local().Format("Jan 02 15:04:05"), e.Actor, e.Action, e.TargetType, truncate(e.TargetID, 36))
	}
	w.Flush()
	fmt.Println()
	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
