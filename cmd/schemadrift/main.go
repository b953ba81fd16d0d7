package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/schemadrift/schemadrift/internal/apply"
	"github.com/schemadrift/schemadrift/internal/config"
	"github.com/schemadrift/schemadrift/internal/diff"
	"github.com/schemadrift/schemadrift/internal/drifterr"
	"github.com/schemadrift/schemadrift/internal/logging"
	"github.com/schemadrift/schemadrift/internal/migrate"
	"github.com/schemadrift/schemadrift/internal/prompt"
	"github.com/schemadrift/schemadrift/internal/schema"
	"github.com/schemadrift/schemadrift/internal/sqlgen"
)

const version = "v0.1.0"

var (
	cfg    *config.Config
	logger zerolog.Logger

	configPath string

	// generate flags
	flagName     string
	flagCustom   bool
	flagBaseline bool
	flagNoPrompt bool
)

var rootCmd = &cobra.Command{
	Use:           "schemadrift",
	Short:         "Resolve schema deltas into versioned, journaled migration units",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		applyFlagOverrides(cmd)

		logger = logging.SetupGlobalLogger(logging.Config{
			Level:   cfg.Log.Level,
			Pretty:  cfg.Log.Pretty,
			LogFile: cfg.Log.File,
		})
		return nil
	},
}

// applyFlagOverrides lets explicit flags win over the config file.
func applyFlagOverrides(cmd *cobra.Command) {
	if f := cmd.Flags().Lookup("out"); f != nil && f.Changed {
		cfg.Migrations.Out = f.Value.String()
	}
	if f := cmd.Flags().Lookup("schema"); f != nil && f.Changed {
		cfg.Migrations.Schema = f.Value.String()
	}
	if f := cmd.Flags().Lookup("breakpoints"); f != nil && f.Changed {
		cfg.Migrations.Breakpoints = f.Value.String() == "true"
	}
	if f := cmd.Flags().Lookup("bundle"); f != nil && f.Changed {
		cfg.Migrations.Bundle = f.Value.String() == "true"
	}
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Diff the schema against the last migration and write a new unit",
	RunE: func(cmd *cobra.Command, args []string) error {
		writer := migrate.NewWriter(cfg.Migrations.Out, logger)

		prev, err := loadPreviousSnapshot()
		if err != nil {
			return err
		}

		opts := migrate.Options{
			Name:        flagName,
			Breakpoints: cfg.Migrations.Breakpoints,
			Bundle:      cfg.Migrations.Bundle,
			Kind:        migrate.KindNormal,
		}

		if flagCustom {
			// Hand-authored migration: re-serialize the prior state with a
			// fresh identity and an editable statement placeholder.
			opts.Kind = migrate.KindCustom
			snap := *prev
			snap.PrevID = prev.ID
			snap.ID = schema.NewID()
			snap.Meta = nil
			res, err := writer.Write(&snap, nil, opts)
			if err != nil {
				return err
			}
			fmt.Printf("Created custom migration %s\n", res.Unit.Tag)
			return nil
		}

		desired, err := schema.Load(cfg.Migrations.Schema)
		if err != nil {
			return err
		}
		if desired.Dialect != cfg.Migrations.Dialect {
			logger.Warn().
				Str("snapshot_dialect", desired.Dialect).
				Str("config_dialect", cfg.Migrations.Dialect).
				Msg("Snapshot dialect differs from configured dialect")
		}

		var oracle diff.Oracle = prompt.New()
		if flagNoPrompt {
			oracle = diff.AutoCreate{}
		}

		resolved, err := diff.NewPipeline(oracle, logger).Diff(prev, desired)
		if err != nil {
			if drifterr.IsAborted(err) {
				return fmt.Errorf("migration generation aborted")
			}
			return err
		}

		generator, err := sqlgen.ForDialect(cfg.Migrations.Dialect)
		if err != nil {
			return err
		}
		statements, err := generator.Generate(resolved, desired)
		if err != nil {
			return err
		}

		desired.PrevID = prev.ID
		desired.ID = schema.NewID()
		desired.Meta = resolved.Meta

		if flagBaseline {
			opts.Kind = migrate.KindIntrospected
		}

		res, err := writer.Write(desired, statements, opts)
		if err != nil {
			return err
		}
		if res.NoChanges {
			fmt.Println("no changes")
			return nil
		}
		fmt.Printf("Created migration %s (%d statements)\n", res.Unit.Tag, len(statements))
		return nil
	},
}

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Rebuild the journal manifest (and bundle) from the unit store",
	RunE: func(cmd *cobra.Command, args []string) error {
		journal, err := migrate.BuildJournal(cfg.Migrations.Out)
		if err != nil {
			return err
		}
		if err := journal.WriteFile(filepath.Join(cfg.Migrations.Out, migrate.JournalFile)); err != nil {
			return err
		}
		if cfg.Migrations.Bundle {
			if err := migrate.WriteBundle(cfg.Migrations.Out, journal); err != nil {
				return err
			}
		}
		fmt.Printf("Journal rebuilt with %d entries\n", len(journal.Entries))
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied and pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := apply.Open(cfg.Migrations.Dialect, cfg.Database, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := apply.Close(db); err != nil {
				logger.Error().Err(err).Msg("Failed to close database connection")
			}
		}()

		statuses, err := apply.NewRunner(db, cfg.Migrations.Out, logger).Status(context.Background())
		if err != nil {
			return err
		}
		if len(statuses) == 0 {
			fmt.Println("no migrations")
			return nil
		}
		for _, s := range statuses {
			marker := "pending"
			if s.Applied {
				marker = "applied " + s.AppliedAt.Format(time.RFC3339)
			}
			fmt.Printf("%4d  %s  %s\n", s.Entry.Index, s.Entry.Tag, marker)
		}
		return nil
	},
}

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply pending migrations to the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := apply.Open(cfg.Migrations.Dialect, cfg.Database, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := apply.Close(db); err != nil {
				logger.Error().Err(err).Msg("Failed to close database connection")
			}
		}()

		count, err := apply.NewRunner(db, cfg.Migrations.Out, logger).Apply(context.Background())
		if err != nil {
			return err
		}
		if count == 0 {
			fmt.Println("no pending migrations")
			return nil
		}
		fmt.Printf("Applied %d migration(s)\n", count)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the schemadrift version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version)
	},
}

// loadPreviousSnapshot returns the post-state of the newest migration
// unit, or the empty snapshot when no migration exists yet.
func loadPreviousSnapshot() (*schema.Snapshot, error) {
	journal, err := migrate.BuildJournal(cfg.Migrations.Out)
	if err != nil {
		return nil, err
	}
	last := journal.Last()
	if last == nil {
		return schema.Empty(cfg.Migrations.Dialect), nil
	}
	return migrate.ReadUnitSnapshot(cfg.Migrations.Out, last.Tag)
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to configuration file")
	rootCmd.PersistentFlags().String("out", "", "migration output directory")

	generateCmd.Flags().StringVar(&flagName, "name", "", "explicit migration name")
	generateCmd.Flags().BoolVar(&flagCustom, "custom", false, "write an empty, hand-editable migration")
	generateCmd.Flags().BoolVar(&flagBaseline, "baseline", false, "write statements commented out, as an introspected baseline")
	generateCmd.Flags().BoolVar(&flagNoPrompt, "no-prompt", false, "classify every change as create/delete without prompting")
	generateCmd.Flags().String("schema", "", "path to the desired schema snapshot")
	generateCmd.Flags().Bool("breakpoints", true, "separate statements with the breakpoint marker")
	generateCmd.Flags().Bool("bundle", false, "regenerate journal and bundle after writing")

	journalCmd.Flags().Bool("bundle", false, "also regenerate the embeddable Go bundle")

	rootCmd.AddCommand(generateCmd, journalCmd, statusCmd, applyCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
