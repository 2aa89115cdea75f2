package opsctl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gorm.io/gorm"

	"github.com/sandeepkv93/siteops-service/internal/config"
	"github.com/sandeepkv93/siteops-service/internal/database"
	"github.com/sandeepkv93/siteops-service/internal/domain"
	"github.com/sandeepkv93/siteops-service/internal/repository"
	"github.com/sandeepkv93/siteops-service/internal/security"
	"github.com/sandeepkv93/siteops-service/internal/service"
	"github.com/sandeepkv93/siteops-service/internal/tools/common"
	"github.com/sandeepkv93/siteops-service/internal/tools/loadgen"
	"github.com/sandeepkv93/siteops-service/internal/tools/ui"
)

type options struct {
	envFile string
	ci      bool
	timeout time.Duration

	// seams for tests
	stdin  io.Reader
	stdout io.Writer
	exit   func(int)
	openDB func(cfg *config.Config) (*gorm.DB, error)
}

func NewRootCommand() *cobra.Command {
	return newRootCommand(&options{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		exit:   os.Exit,
		openDB: openDB,
	})
}

func newRootCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "opsctl",
		Short:         "Operator tooling for the siteops API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "optional dotenv file")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 3*time.Minute, "overall deadline in --ci mode")
	cmd.SetOut(opts.stdout)
	cmd.AddCommand(
		newMigrateCommand(opts),
		newSeedAdminCommand(opts),
		newRevokeSessionCommand(opts),
		newLoadgenCommand(opts),
	)
	return cmd
}

func newMigrateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(opts, "opsctl migrate", func(ctx context.Context) ([]string, error) {
				cfg, db, err := opts.database()
				if err != nil {
					return nil, err
				}
				defer func() { _ = database.Close(db) }()
				if err := database.Migrate(db); err != nil {
					return nil, err
				}
				return []string{fmt.Sprintf("schema migrated driver=%s models=%d", cfg.DatabaseDriver, len(domain.Models()))}, nil
			})
		},
	}
}

func newSeedAdminCommand(opts *options) *cobra.Command {
	var email, name, password string
	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the first administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(email) == "" {
				return errors.New("--email is required")
			}
			if password == "" {
				pw, err := readPassword(opts)
				if err != nil {
					return err
				}
				password = pw
			}
			return execute(opts, "opsctl seed-admin", func(ctx context.Context) ([]string, error) {
				_, db, err := opts.database()
				if err != nil {
					return nil, err
				}
				defer func() { _ = database.Close(db) }()
				if err := database.Migrate(db); err != nil {
					return nil, err
				}
				users := service.NewUserService(repository.NewUserRepository(db), repository.NewSessionRepository(db))
				u, err := users.Create(ctx, service.UserInput{Email: email, Name: name, Role: domain.RoleAdmin, Password: password})
				if errors.Is(err, service.ErrConflict) {
					return []string{"admin already exists email=" + domain.NormalizeEmail(email)}, nil
				}
				if err != nil {
					return nil, err
				}
				return []string{fmt.Sprintf("created admin id=%d email=%s", u.ID, u.Email)}, nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "admin email")
	cmd.Flags().StringVar(&name, "name", "Administrator", "display name")
	cmd.Flags().StringVar(&password, "password", "", "password; prompted when empty")
	return cmd
}

func newRevokeSessionCommand(opts *options) *cobra.Command {
	var userID uint
	var email string
	cmd := &cobra.Command{
		Use:   "revoke-session",
		Short: "Clear a user's server session token so every device must sign in again",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == 0 && strings.TrimSpace(email) == "" {
				return errors.New("one of --user-id or --email is required")
			}
			return execute(opts, "opsctl revoke-session", func(ctx context.Context) ([]string, error) {
				cfg, db, err := opts.database()
				if err != nil {
					return nil, err
				}
				defer func() { _ = database.Close(db) }()
				users := repository.NewUserRepository(db)
				id := userID
				if id == 0 {
					u, err := users.FindByEmail(ctx, domain.NormalizeEmail(email))
					if err != nil {
						return nil, fmt.Errorf("find user: %w", err)
					}
					id = u.ID
				}
				tokens := service.NewTokenService(security.NewJWTManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTSecret), cfg.SessionMaxAge, cfg.SessionUpdateAge)
				auth := service.NewAuthService(users, repository.NewSessionRepository(db), tokens, nil, service.AuthOptions{}, slog.Default())
				if err := auth.RevokeUserSession(ctx, id); err != nil {
					return nil, err
				}
				return []string{"session revoked user_id=" + strconv.FormatUint(uint64(id), 10)}, nil
			})
		},
	}
	cmd.Flags().UintVar(&userID, "user-id", 0, "user id")
	cmd.Flags().StringVar(&email, "email", "", "user email")
	return cmd
}

func newLoadgenCommand(opts *options) *cobra.Command {
	cfg := loadgen.Config{}
	cmd := &cobra.Command{
		Use:   "loadgen",
		Short: "Generate read traffic against a running API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Email != "" && cfg.Password == "" {
				pw, err := readPassword(opts)
				if err != nil {
					return err
				}
				cfg.Password = pw
			}
			return execute(opts, "opsctl loadgen", func(ctx context.Context) ([]string, error) {
				res, err := loadgen.Run(ctx, cfg)
				if err != nil {
					return nil, err
				}
				details := res.Summary()
				if res.Failures > 0 {
					return details, fmt.Errorf("%d failed requests", res.Failures)
				}
				return details, nil
			})
		},
	}
	cmd.Flags().StringVar(&cfg.BaseURL, "base-url", "http://localhost:8080", "API base URL")
	cmd.Flags().StringVar(&cfg.Profile, "profile", "mixed", "traffic profile: auth, read or mixed")
	cmd.Flags().DurationVar(&cfg.Duration, "duration", 10*time.Second, "how long to generate traffic")
	cmd.Flags().IntVar(&cfg.RPS, "rps", 20, "requests per second")
	cmd.Flags().IntVar(&cfg.Concurrency, "concurrency", 4, "parallel workers")
	cmd.Flags().Int64Var(&cfg.Seed, "seed", 42, "path selection seed")
	cmd.Flags().StringVar(&cfg.Email, "email", "", "sign in as this user before sending traffic")
	cmd.Flags().StringVar(&cfg.Password, "password", "", "password; prompted when empty and --email is set")
	return cmd
}

// execute runs fn behind the spinner UI, or directly with a deadline in --ci
// mode, and exits non-zero on failure.
func execute(opts *options, title string, fn func(context.Context) ([]string, error)) error {
	var (
		details []string
		err     error
	)
	if opts.ci {
		ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
		defer cancel()
		details, err = fn(ctx)
		_ = common.WriteCIResult(opts.stdout, err == nil, title, details, err)
	} else {
		details, err = ui.Run(title, fn)
	}
	if err != nil {
		opts.exit(common.ExitRunFailed)
	}
	return nil
}

func (o *options) database() (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(o.envFile)
	if err != nil {
		return nil, nil, err
	}
	db, err := o.openDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

func openDB(cfg *config.Config) (*gorm.DB, error) {
	return database.Open(cfg.DatabaseDriver, cfg.DatabaseURL, nil)
}

func readPassword(opts *options) (string, error) {
	if f, ok := opts.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		_, _ = fmt.Fprint(os.Stderr, "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		_, _ = fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	b, err := io.ReadAll(io.LimitReader(opts.stdin, 1024))
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	pw := strings.TrimRight(string(b), "\r\n")
	if pw == "" {
		return "", errors.New("password is required")
	}
	return pw, nil
}
