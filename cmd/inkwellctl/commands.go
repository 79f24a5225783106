package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/repository"
	"inkwell/internal/seed"
	"inkwell/internal/service"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type env struct {
	cfg *config.Config
	db  *gorm.DB
}

// open loads configuration and connects to the database without touching the schema.
func (e *env) open() error {
	if e.db != nil {
		return nil
	}
	_ = godotenv.Load()
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	e.cfg, e.db = cfg, db
	return nil
}

func (e *env) close() {
	if e.db != nil {
		_ = database.Close(e.db)
	}
}

func newRootCmd() *cobra.Command {
	e := &env{}
	root := &cobra.Command{
		Use:           "inkwellctl",
		Short:         "Operational tasks for the Inkwell backend",
		SilenceUsage:  true,
		PersistentPostRun: func(*cobra.Command, []string) {
			e.close()
		},
	}
	root.AddCommand(newMigrateCmd(e), newPublishDueCmd(e), newSeedCmd(e), newHashPasswordCmd())
	return root
}

func newMigrateCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Inspect and apply schema migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending SQL migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.open(); err != nil {
				return err
			}
			if err := database.RunMigrations(cmd.Context(), e.db); err != nil {
				return fmt.Errorf("sql migrations failed: %w", err)
			}
			cmd.Println("sql migrations applied")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "auto",
		Short: "Run GORM AutoMigrate for every persistent model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.open(); err != nil {
				return err
			}
			e.cfg.DBSchemaMode = database.SchemaModeAuto
			if err := database.ApplySchema(cmd.Context(), e.db, e.cfg); err != nil {
				return fmt.Errorf("auto schema apply failed: %w", err)
			}
			cmd.Println("automigrations applied")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the schema policy and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.open(); err != nil {
				return err
			}
			status, err := database.GetSchemaStatus(cmd.Context(), e.db, e.cfg)
			if err != nil {
				return fmt.Errorf("schema status failed: %w", err)
			}
			cmd.Printf("mode=%s env=%s run_sql=%t run_auto=%t applied=%d pending=%d\n",
				status.Mode, status.Environment, status.WillRunSQL, status.WillRunAutoMigrate,
				len(status.AppliedVersions), len(status.PendingMigrations))
			for _, m := range status.PendingMigrations {
				cmd.Printf("pending: %s\n", m.String())
			}
			for _, name := range status.MissingIndexes {
				cmd.Printf("missing index: %s\n", name)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down <version>",
		Short: "Revert one applied migration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version %q: %w", args[0], err)
			}
			if err := e.open(); err != nil {
				return err
			}
			if err := database.RollbackMigration(cmd.Context(), e.db, version); err != nil {
				return fmt.Errorf("rollback failed: %w", err)
			}
			cmd.Printf("rolled back migration %d\n", version)
			return nil
		},
	})

	return cmd
}

func newPublishDueCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "publish-due",
		Short: "Run one publish sweep over scheduled posts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.open(); err != nil {
				return err
			}
			rdb := cache.Connect(e.cfg.RedisURL)
			if rdb != nil {
				defer rdb.Close()
			}
			posts := service.NewPostService(repository.NewPostRepository(e.db), service.PostServiceConfig{
				Invalidator: cache.NewInvalidator(rdb),
			})

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()
			ids, err := posts.Sweep(ctx)
			cmd.Printf("published %d post(s)\n", len(ids))
			if len(ids) > 0 {
				cmd.Println(strings.Join(ids, "\n"))
			}
			return err
		},
	}
}

func newSeedCmd(e *env) *cobra.Command {
	opts := seed.DefaultOptions
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert fake posts, comments, likes and subscribers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.open(); err != nil {
				return err
			}
			if e.cfg.IsProduction() {
				return fmt.Errorf("refusing to seed a %s database", e.cfg.Env)
			}
			sum, err := seed.Seed(cmd.Context(), e.db, opts, time.Now().UTC())
			if err != nil {
				return err
			}
			cmd.Printf("seeded %d posts, %d comments, %d likes, %d subscribers\n",
				sum.Posts, sum.Comments, sum.Likes, sum.Subscribers)
			return nil
		},
	}
	f := cmd.Flags()
	f.IntVar(&opts.Published, "posts", opts.Published, "published posts to create")
	f.IntVar(&opts.Scheduled, "scheduled", opts.Scheduled, "scheduled posts to create")
	f.IntVar(&opts.Drafts, "drafts", opts.Drafts, "drafts to create")
	f.IntVar(&opts.Comments, "comments", opts.Comments, "comments per published post")
	f.IntVar(&opts.Subscribers, "subscribers", opts.Subscribers, "mailing list subscribers to create")
	f.BoolVar(&opts.ShouldClean, "clean", false, "delete existing rows first")
	f.Int64Var(&opts.RandSeed, "seed", 0, "random seed for reproducible data")
	return cmd
}

func newHashPasswordCmd() *cobra.Command {
	var cost int
	cmd := &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print a bcrypt hash for ADMIN_PASSWORD_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := bcrypt.GenerateFromPassword([]byte(args[0]), cost)
			if err != nil {
				return err
			}
			cmd.Println(string(hash))
			return nil
		},
	}
	cmd.Flags().IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost")
	return cmd
}
