// Command blogctl runs administrative tasks against the blog database.
package main

import (
	"fmt"
	"os"

	"scriptorium/internal/bootstrap"
	"scriptorium/internal/config"
	"scriptorium/internal/database"
	"scriptorium/internal/repository"
	"scriptorium/internal/seed"
	"scriptorium/internal/service"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// connect is a hook so tests can run the commands against SQLite.
var connect = func() (*gorm.DB, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return database.Connect(cfg)
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "blogctl",
		Short:        "Scriptorium administration",
		SilenceUsage: true,
	}

	root.AddCommand(newMigrateCommand())
	root.AddCommand(newSeedCommand())
	root.AddCommand(newCreateUserCommand())
	return root
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := connect()
			if err != nil {
				return err
			}
			if err := database.Migrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}

func newSeedCommand() *cobra.Command {
	var (
		opts     seed.Options
		fixtures string
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the database with demo users and posts",
		Long: `Generates random users and posts, or loads them from a YAML fixtures file.

Examples:
  blogctl seed --users 3 --posts 20
  blogctl seed --fixtures fixtures/demo.yml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := connect()
			if err != nil {
				return err
			}
			seeder := bootstrap.NewSeeder(db)

			var res seed.Result
			if fixtures != "" {
				f, err := os.Open(fixtures)
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				res, err = seeder.LoadFixtures(cmd.Context(), f)
				if err != nil {
					return err
				}
			} else {
				res, err = seeder.Random(cmd.Context(), opts)
				if err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "created %d users and %d posts\n", res.Users, res.Posts)
			if fixtures == "" && res.Users > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "generated users have the password %q\n", seed.DefaultPassword)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.NumUsers, "users", 3, "Number of users to create")
	cmd.Flags().IntVar(&opts.NumPosts, "posts", 20, "Number of posts to create")
	cmd.Flags().IntVar(&opts.MaxTags, "max-tags", 3, "Maximum tags per generated post")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "Random seed; 0 picks one")
	cmd.Flags().StringVarP(&fixtures, "fixtures", "f", "", "YAML fixtures file to load instead of random data")
	return cmd
}

func newCreateUserCommand() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "create-user <email>",
		Short: "Create an account, also when open registration is off",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := connect()
			if err != nil {
				return err
			}
			users := service.NewUserService(repository.NewStore(db).Users())
			user, err := users.Register(cmd.Context(), args[0], password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %d (%s)\n", user.ID, user.Email)
			return nil
		},
	}

	cmd.Flags().StringVarP(&password, "password", "p", "", "Password for the new account")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
