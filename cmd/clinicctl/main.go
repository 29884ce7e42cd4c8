package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/hackgods/clinic-frontdesk/internal/appointment"
	"github.com/hackgods/clinic-frontdesk/internal/auth"
	"github.com/hackgods/clinic-frontdesk/internal/config"
	"github.com/hackgods/clinic-frontdesk/internal/db"
	"github.com/hackgods/clinic-frontdesk/internal/logging"
	redisclient "github.com/hackgods/clinic-frontdesk/internal/redis"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "clinicctl",
		Short:         "Administrative tasks for the clinic front desk",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(slotsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// connect loads config, sets up logging and opens a pool.
func connect(ctx context.Context) (config.Config, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	logging.Init("clinicctl", cfg.Env, cfg.LogLevel)

	pgCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("connect postgres: %w", err)
	}
	return cfg, pool, nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
	}

	// migrate up
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			n, err := db.Migrate(ctx, pool)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s).\n", n)
			return nil
		},
	})

	// migrate status
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show which migrations are applied",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrations, err := db.LoadMigrations()
			if err != nil {
				return err
			}
			applied, err := db.Status(ctx, pool)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-8s %-30s %s\n", "VERSION", "NAME", "STATUS")
			for _, m := range migrations {
				state := "pending"
				if applied[m.Version] {
					state = "applied"
				}
				fmt.Printf("%-8d %-30s %s\n", m.Version, m.Name, state)
			}
			return nil
		},
	})

	return cmd
}

func seedCmd() *cobra.Command {
	var doctors, patients int
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert fake doctors and patients",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := seedDoctors(ctx, pool, doctors); err != nil {
				return fmt.Errorf("seed doctors: %w", err)
			}
			if err := seedPatients(ctx, pool, patients); err != nil {
				return fmt.Errorf("seed patients: %w", err)
			}
			log.Info().Msg("seed complete")
			return nil
		},
	}
	cmd.Flags().IntVar(&doctors, "doctors", 20, "number of doctors to insert")
	cmd.Flags().IntVar(&patients, "patients", 2000, "number of patients to insert")
	return cmd
}

func tokenCmd() *cobra.Command {
	var (
		userID int64
		email  string
		role   string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for a front-desk user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			r := auth.Role(role)
			if r != auth.RoleAdmin && r != auth.RoleStaff {
				return fmt.Errorf("role must be %q or %q", auth.RoleAdmin, auth.RoleStaff)
			}
			v := auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer)
			tok, err := v.Issue(auth.Actor{ID: userID, Email: email, Role: r}, ttl)
			if err != nil {
				return err
			}
			fmt.Println(tok)
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user-id", 1, "numeric user id placed in the subject claim")
	cmd.Flags().StringVar(&email, "email", "frontdesk@clinic.local", "email recorded as the actor")
	cmd.Flags().StringVar(&role, "role", string(auth.RoleStaff), "admin or staff")
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "token lifetime")
	return cmd
}

func slotsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "slots <doctor-id> <YYYY-MM-DD>",
		Short: "Print the free slots of a doctor on a day",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doctorID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid doctor id %q", args[0])
			}

			ctx := cmd.Context()
			cfg, pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := appointment.NewService(appointment.NewPgRepository(pool), redisclient.NoopLocker{}, cfg)
			slots, err := svc.AvailableSlots(ctx, doctorID, args[1])
			if err != nil {
				return err
			}
			if len(slots) == 0 {
				fmt.Println("no free slots")
				return nil
			}
			for _, s := range slots {
				fmt.Println(s)
			}
			return nil
		},
	}
}
