package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/kevinmichaelchen/profile-lens/internal/config"
	"github.com/kevinmichaelchen/profile-lens/internal/session"
	"github.com/kevinmichaelchen/profile-lens/internal/surrealdb"
	"github.com/kevinmichaelchen/profile-lens/internal/view"
	"github.com/kevinmichaelchen/profile-lens/internal/web"
)

func main() {
	root := &cobra.Command{
		Use:          "profile-lens",
		Short:        "GitHub profile lookup with an AI-written summary",
		SilenceUsage: true,
	}

	root.AddCommand(serveCmd(), lookupCmd(), schemaCmd(), historyCmd(), similarCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the search page and JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg := config.Load()
			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			if os.Getenv("GIN_MODE") == "" {
				gin.SetMode(gin.ReleaseMode)
			}
			if addr == "" {
				addr = ":" + strconv.Itoa(cfg.Port)
			}

			var hist web.History
			if a.recorder != nil {
				hist = a.recorder
			}
			orch := a.orchestrator()
			// History writes still in flight finish before the store closes.
			defer orch.Wait()

			srv := web.NewServer(orch, hist, a.logger)
			return srv.ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default \":$PORT\")")
	return cmd
}

func lookupCmd() *cobra.Command {
	var asJSON bool
	var concurrency int

	cmd := &cobra.Command{
		Use:   "lookup [username...]",
		Short: "Look up one or more GitHub users and print their profiles",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			cfg := config.Load()
			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			states := session.Batch(ctx, a.orchestrator, args, concurrency)

			if asJSON {
				pages := make([]view.Page, len(states))
				for i, st := range states {
					pages[i] = view.NewPage(st)
				}
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(pages); err != nil {
					return err
				}
			} else {
				for i, st := range states {
					if i > 0 {
						fmt.Println()
					}
					printState(st)
				}
			}

			failed := 0
			for _, st := range states {
				if st.HasError() {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d lookups failed", failed, len(states))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "Lookups to run at once")
	return cmd
}

func schemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Initialize/update the SurrealDB history schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			cfg := config.Load()
			if !cfg.HasHistory() {
				return fmt.Errorf("SURREAL_URL is not set")
			}

			db, err := surrealdb.NewClient(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close(ctx) }()

			if err := db.InitSchema(ctx); err != nil {
				return err
			}
			fmt.Println("Schema initialized")
			return nil
		},
	}
}

func historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent lookups",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			rec, closeDB, err := requireHistory(ctx, config.Load())
			if err != nil {
				return err
			}
			defer closeDB()

			snaps, err := rec.Recent(ctx, limit)
			if err != nil {
				return err
			}
			if len(snaps) == 0 {
				fmt.Println("No lookups yet")
				return nil
			}

			for _, s := range snaps {
				fmt.Printf("%-20s  %s  %d followers\n", s.Login, s.SearchedAt.Local().Format("2006-01-02 15:04"), s.Followers)
				if len(s.TopRepos) > 0 {
					fmt.Printf("  Top: %s\n", strings.Join(s.TopRepos, ", "))
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of lookups to show")
	return cmd
}

func similarCmd() *cobra.Command {
	var k int

	cmd := &cobra.Command{
		Use:   "similar [query]",
		Short: "Find previously looked-up profiles similar to a description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			query := args[0]

			rec, closeDB, err := requireHistory(ctx, config.Load())
			if err != nil {
				return err
			}
			defer closeDB()

			results, err := rec.Similar(ctx, query, k)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Println("No results found")
				return nil
			}

			fmt.Printf("Top %d profiles for %q:\n\n", len(results), query)
			for i, r := range results {
				fmt.Printf("%d. %s  (%.3f)\n", i+1, r.Login, r.Score)
				if r.Summary != "" {
					fmt.Printf("   %s\n", r.Summary)
				}
				fmt.Println()
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&k, "k", "k", 10, "Number of results")
	return cmd
}

func printState(st session.State) {
	if st.User != nil {
		u := st.User
		fmt.Printf("%s (@%s)\n", u.DisplayName(), u.Login)
		fmt.Printf("  %d followers · %d following · %d repositories\n", u.Followers, u.Following, u.PublicRepos)
		if u.Bio != "" {
			fmt.Printf("  %s\n", u.Bio)
		}
	}
	if st.HasError() {
		fmt.Printf("Error: %s\n", st.Error)
	}
	if st.Summary != "" {
		fmt.Printf("\n  %s\n", st.Summary)
	}
	if langs := view.Languages(st.Repos, view.DefaultLanguageSlices); len(langs) > 0 {
		parts := make([]string, len(langs))
		for i, l := range langs {
			parts[i] = fmt.Sprintf("%s %.1f%%", l.Language, l.Percent)
		}
		fmt.Printf("\n  Languages: %s\n", strings.Join(parts, ", "))
	}
	if n := len(st.Repos); n > 0 {
		if n > 5 {
			n = 5
		}
		fmt.Println("\n  Top repositories:")
		for _, r := range st.Repos[:n] {
			fmt.Printf("    ★ %-6d %s\n", r.Stars, r.Name)
		}
	}
}
