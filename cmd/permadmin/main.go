// Package main is the permadmin operator CLI: database migrations, super
// admin bootstrap and offline grant document compilation.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"permissions-manager/internal/db"
	"permissions-manager/internal/db/repository"
	"permissions-manager/internal/domain"
	"permissions-manager/internal/service/grants"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var dbPath string

	rootCmd := &cobra.Command{
		Use:           "permadmin",
		Short:         "Permissions manager operator tooling",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "permissions.sqlite", "path to the SQLite database")

	rootCmd.AddCommand(newMigrateCmd(&dbPath))
	rootCmd.AddCommand(newSeedAdminCmd(&dbPath))
	rootCmd.AddCommand(newCompileCmd(&dbPath))
	return rootCmd
}

func openDatabase(path string) (*sql.DB, error) {
	writeDB, _, err := db.OpenSQLitePair(path, 1)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return writeDB, nil
}

func newMigrateCmd(dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			database, err := openDatabase(*dbPath)
			if err != nil {
				return err
			}
			defer database.Close() //nolint:errcheck
			if err := db.RunMigrations(database); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			cmd.Println("migrations applied")
			return nil
		},
	}
}

func newSeedAdminCmd(dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed-admin <email>",
		Short: "Create or promote a super admin user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			email := domain.NormalizeEmail(args[0])
			if err := domain.ValidateEmail(email); err != nil {
				return err
			}

			database, err := openDatabase(*dbPath)
			if err != nil {
				return err
			}
			defer database.Close() //nolint:errcheck
			if err := db.RunMigrations(database); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}

			ctx := context.Background()
			users := repository.NewUserRepo(database)
			user, err := users.GetByEmail(ctx, email)
			switch {
			case err == nil:
				if user.IsAdmin {
					cmd.Printf("%s is already a super admin\n", email)
					return nil
				}
				if err := users.SetAdmin(ctx, user.ID, true); err != nil {
					return err
				}
			case domain.IsNotFound(err):
				if _, err := users.Create(ctx, &domain.User{Email: email, IsAdmin: true}); err != nil {
					return err
				}
			default:
				return err
			}
			cmd.Printf("%s is now a super admin\n", email)
			return nil
		},
	}
}

func newCompileCmd(dbPath *string) *cobra.Command {
	var domainID int64

	compileCmd := &cobra.Command{
		Use:   "compile <application-id>",
		Short: "Materialize an application's permissions document to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var applicationID int64
			if _, err := fmt.Sscanf(args[0], "%d", &applicationID); err != nil {
				return fmt.Errorf("application id must be an integer: %w", err)
			}

			database, err := openDatabase(*dbPath)
			if err != nil {
				return err
			}
			defer database.Close() //nolint:errcheck

			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			materializer := grants.NewMaterializer(
				repository.NewApplicationRepo(database),
				repository.NewApplicationPermissionRepo(database),
				repository.NewApplicationGrantRepo(database),
				repository.NewGrantDurationRepo(database),
				repository.NewGrantDocumentRepo(database),
				domainID, logger)

			doc, err := materializer.Materialize(context.Background(), applicationID)
			if err != nil {
				return err
			}
			cmd.Println(doc.Document)
			return nil
		},
	}
	compileCmd.Flags().Int64Var(&domainID, "domain", 1, "DDS domain id for the compiled document")
	return compileCmd
}
