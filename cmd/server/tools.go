package main

import (
	"fmt"
	"os"

	"github.com/lifecaller/simulator/auth"
	"github.com/lifecaller/simulator/importer"
	"github.com/lifecaller/simulator/store/sqlite"
	"github.com/spf13/cobra"
)

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import-coefficients <file.csv>",
		Short: "Upsert a CSV coefficient table into the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			rows, err := importer.ParseCoefficientsCSV(f)
			if err != nil {
				return err
			}

			store, err := sqlite.New(cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			defer store.Close()

			if err := store.UpsertCoefficients(cmd.Context(), rows); err != nil {
				return err
			}
			// A running server with a cache keeps old values until their TTL expires.
			logger.Info().Int("rows", len(rows)).Str("file", args[0]).Msg("coefficients imported")
			return nil
		},
	}
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed <fixture.yaml>",
		Short: "Load attendances and coefficients from a YAML fixture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			fixture, err := importer.ParseFixture(f)
			if err != nil {
				return err
			}

			store, err := sqlite.New(cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			defer store.Close()

			res, err := importer.Load(cmd.Context(), fixture, store)
			if err != nil {
				return err
			}
			logger.Info().
				Int("attendances", res.Attendances).
				Int("coefficients", res.Coefficients).
				Msg("fixture loaded")
			return nil
		},
	}
}

func newTokenCmd() *cobra.Command {
	var (
		subject string
		roles   []string
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for local testing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireSecret(); err != nil {
				return err
			}

			authn, err := auth.NewAuthenticator(cfg.Auth.Secret, cfg.RoleMap())
			if err != nil {
				return err
			}
			token, err := authn.Issue(subject, roles, cfg.Auth.TokenTTL)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "sub", "", "Token subject (operator login)")
	cmd.Flags().StringSliceVar(&roles, "role", []string{auth.RoleCalculist}, "Role names (repeatable)")
	cmd.MarkFlagRequired("sub")
	return cmd
}
