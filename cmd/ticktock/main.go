package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"ticktock/internal/config"
	"ticktock/internal/db"
	"ticktock/internal/domain"
	"ticktock/internal/events"
	"ticktock/internal/export"
	"ticktock/internal/migrate"
	"ticktock/internal/server"
	"ticktock/internal/store"
	"ticktock/internal/timesheet"
)

var rootCmd = &cobra.Command{
	Use:   "ticktock",
	Short: "Ticktock timesheet tracker",
	Long: `Ticktock tracks weekly timesheets in a single JSON document.
The collection self-heals on every read and write: duplicate weeks are
merged (the fuller week wins) and missing or colliding ids are repaired.
Mutations are mirrored to an append-only event log under .ticktock/.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("TICKTOCK")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(createCmd())
	rootCmd.AddCommand(deleteCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

type stores struct {
	Config  *config.Config
	Entries *store.Store
	Flagged *store.FlaggedStore
	Events  *events.Writer
}

// withStores opens the workspace: config, audit-log database and both
// schema-variant stores over the workspace's JSON documents.
func withStores(ctx context.Context, fn func(context.Context, stores) error) error {
	workspace := viper.GetString("workspace")
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return err
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	writer := &events.Writer{DB: conn}
	return fn(ctx, stores{
		Config:  cfg,
		Entries: store.New(store.Config{Path: cfg.EntriesPath(workspace), Events: writer}),
		Flagged: store.NewFlagged(store.Config{Path: cfg.FlaggedPath(workspace), Events: writer}),
		Events:  writer,
	})
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Manage ticktock.yml"}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default ticktock.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config")
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOptional(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(cfg)
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Print(string(data))
			return nil
		},
	}
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List timesheets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStores(cmd.Context(), func(ctx context.Context, s stores) error {
				entries, err := s.Entries.List(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(entries)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Week", "Range", "Hours", "Status"})
				for _, e := range entries {
					total := timesheet.TotalHours(e)
					tw.AppendRow(table.Row{e.ID, e.WeekNumber, timesheet.FormatWeekRange(e.WeekStart), total, timesheet.StatusFor(total)})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one timesheet (id, week number or week start)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStores(cmd.Context(), func(ctx context.Context, s stores) error {
				entry, err := s.Entries.Get(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(entry)
			})
		},
	}
}

func createCmd() *cobra.Command {
	var weekStart string
	var weekNumber int
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an empty week",
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := timesheet.ParseDay(weekStart)
			if err != nil {
				return fmt.Errorf("invalid --week-start: %w", err)
			}
			if weekNumber == 0 {
				_, weekNumber = start.ISOWeek()
			}
			return withStores(cmd.Context(), func(ctx context.Context, s stores) error {
				entry, err := s.Entries.Create(ctx, domain.Entry{
					WeekNumber: weekNumber,
					WeekStart:  weekStart,
					Days:       emptyWeek(start),
				})
				if err != nil {
					return err
				}
				return printJSON(entry)
			})
		},
	}
	cmd.Flags().StringVar(&weekStart, "week-start", "", "Monday of the week (YYYY-MM-DD)")
	cmd.Flags().IntVar(&weekNumber, "week", 0, "week number (defaults to the ISO week)")
	_ = cmd.MarkFlagRequired("week-start")
	return cmd
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a timesheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStores(cmd.Context(), func(ctx context.Context, s stores) error {
				if err := s.Entries.Delete(ctx, args[0]); err != nil {
					return err
				}
				fmt.Println("deleted", args[0])
				return nil
			})
		},
	}
}

func seedCmd() *cobra.Command {
	var weeks int
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed demo weeks ending at the current one",
		RunE: func(cmd *cobra.Command, args []string) error {
			if weeks < 1 {
				return fmt.Errorf("--weeks must be at least 1")
			}
			return withStores(cmd.Context(), func(ctx context.Context, s stores) error {
				// Mix of complete, partial and empty weeks so the
				// dashboard shows every status.
				dailyHours := []float64{8, 0, 6.5, 8, 2}
				for i := weeks - 1; i >= 0; i-- {
					monday := lastMonday(time.Now()).AddDate(0, 0, -7*i)
					_, week := monday.ISOWeek()
					entry := domain.Entry{
						WeekNumber: week,
						WeekStart:  monday.Format("2006-01-02"),
						Days:       emptyWeek(monday),
					}
					hours := dailyHours[i%len(dailyHours)]
					if hours > 0 {
						for d := range entry.Days {
							entry.Days[d].Tasks = []domain.Task{{
								Name:     "Seeded work",
								Hours:    domain.Hours(hours),
								Project:  "Internal",
								WorkType: "Feature",
							}}
						}
					}
					if _, err := s.Entries.Create(ctx, entry); err != nil {
						return err
					}
				}
				fmt.Printf("seeded %d weeks\n", weeks)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&weeks, "weeks", 5, "number of weeks to seed")
	return cmd
}

func exportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export timesheets to a spreadsheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStores(cmd.Context(), func(ctx context.Context, s stores) error {
				entries, err := s.Entries.List(ctx)
				if err != nil {
					return err
				}
				if err := export.Excel(out, entries); err != nil {
					return err
				}
				fmt.Println("wrote", out)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&out, "out", "timesheets.xlsx", "output file")
	return cmd
}

func logCmd() *cobra.Command {
	logRoot := &cobra.Command{
		Use:   "log",
		Short: "Audit log",
	}
	logRoot.AddCommand(logTailCmd())
	return logRoot
}

func logTailCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail audit events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStores(cmd.Context(), func(ctx context.Context, s stores) error {
				evts, err := s.Events.Tail(ctx, n)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(evts)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"TS", "Type", "Entry", "Payload"})
				for _, e := range evts {
					tw.AppendRow(table.Row{e.TS, e.Type, e.EntryID, e.Payload})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStores(cmd.Context(), func(ctx context.Context, s stores) error {
				cfg := s.Config
				if addr == "" {
					addr = cfg.Server.Addr
				}
				if basePath == "" {
					basePath = cfg.Server.BasePath
				}
				secret := cfg.Auth.JWTSecret
				if secret == "" {
					secret = os.Getenv("TICKTOCK_JWT_SECRET")
				}
				if secret == "" {
					return fmt.Errorf("a JWT secret is required: set auth.jwt_secret or TICKTOCK_JWT_SECRET")
				}
				handler, err := server.New(server.Config{
					Entries:  s.Entries,
					Flagged:  s.Flagged,
					Schema:   cfg.Storage.Schema,
					BasePath: basePath,
					Auth: server.AuthConfig{
						Email:     cfg.Auth.Email,
						Password:  cfg.Auth.Password,
						JWTSecret: secret,
						TokenTTL:  time.Duration(cfg.Auth.TokenTTLHours) * time.Hour,
					},
				})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: addr, Handler: handler}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				fmt.Printf("Serving Ticktock API on http://%s%s (schema %s, OpenAPI at %s/openapi.json)\n", addr, basePath, cfg.Storage.Schema, basePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to config)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (defaults to config)")
	return cmd
}

// emptyWeek builds the five represented days, Monday first.
func emptyWeek(monday time.Time) []domain.Day {
	days := make([]domain.Day, timesheet.WeekDays)
	for i := range days {
		days[i] = domain.Day{Date: monday.AddDate(0, 0, i).Format("2006-01-02"), Tasks: []domain.Task{}}
	}
	return days
}

func lastMonday(t time.Time) time.Time {
	t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset)
}
