package apply

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/schemadrift/schemadrift/internal/migrate"
	"gorm.io/gorm"
)

// Record is one applied migration in the database-side ledger.
type Record struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Tag       string    `gorm:"uniqueIndex;not null" json:"tag"`
	AppliedAt time.Time `json:"applied_at"`
}

// TableName ensures consistent table naming
func (Record) TableName() string {
	return "schema_migrations"
}

// Status pairs a journal entry with its database-side state.
type Status struct {
	Entry     migrate.Entry
	Applied   bool
	AppliedAt time.Time
}

// Runner applies pending migration units to a live database, one
// transaction per unit, in journal order.
type Runner struct {
	db     *gorm.DB
	dir    string
	logger zerolog.Logger
}

// NewRunner creates a runner over the given connection and unit store.
func NewRunner(db *gorm.DB, dir string, logger zerolog.Logger) *Runner {
	return &Runner{
		db:     db,
		dir:    dir,
		logger: logger,
	}
}

// Apply executes every pending unit and records it in the ledger. It
// returns the number of units applied. A failing unit rolls back and
// stops the run; already-applied units are untouched.
func (r *Runner) Apply(ctx context.Context) (int, error) {
	// Ensure the ledger table exists
	if err := r.db.WithContext(ctx).AutoMigrate(&Record{}); err != nil {
		return 0, fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	journal, err := migrate.BuildJournal(r.dir)
	if err != nil {
		return 0, err
	}

	applied, err := r.appliedTags(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, entry := range journal.Entries {
		if applied[entry.Tag] {
			r.logger.Debug().
				Str("tag", entry.Tag).
				Msg("Migration already applied, skipping")
			continue
		}

		r.logger.Info().
			Str("tag", entry.Tag).
			Msg("Applying migration")

		content, err := migrate.ReadUnitStatements(r.dir, entry.Tag)
		if err != nil {
			return count, err
		}
		statements := migrate.SplitStatements(content)

		tx := r.db.WithContext(ctx).Begin()
		if tx.Error != nil {
			return count, fmt.Errorf("failed to start transaction: %w", tx.Error)
		}

		for _, stmt := range statements {
			if !executable(stmt) {
				continue // introspected baselines ship fully commented out
			}
			if err := tx.Exec(stmt).Error; err != nil {
				tx.Rollback()
				return count, fmt.Errorf("migration %s failed: %w", entry.Tag, err)
			}
		}

		record := &Record{
			Tag:       entry.Tag,
			AppliedAt: time.Now().UTC(),
		}
		if err := tx.Create(record).Error; err != nil {
			tx.Rollback()
			return count, fmt.Errorf("failed to record migration %s: %w", entry.Tag, err)
		}

		if err := tx.Commit().Error; err != nil {
			return count, fmt.Errorf("failed to commit migration %s: %w", entry.Tag, err)
		}

		count++
		r.logger.Info().
			Str("tag", entry.Tag).
			Msg("Migration applied successfully")
	}

	return count, nil
}

// Status reports every journal entry together with whether and when it
// was applied.
func (r *Runner) Status(ctx context.Context) ([]Status, error) {
	if err := r.db.WithContext(ctx).AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	journal, err := migrate.BuildJournal(r.dir)
	if err != nil {
		return nil, err
	}

	var records []Record
	if err := r.db.WithContext(ctx).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to read applied migrations: %w", err)
	}
	appliedAt := make(map[string]time.Time, len(records))
	for _, rec := range records {
		appliedAt[rec.Tag] = rec.AppliedAt
	}

	statuses := make([]Status, 0, len(journal.Entries))
	for _, entry := range journal.Entries {
		at, ok := appliedAt[entry.Tag]
		statuses = append(statuses, Status{
			Entry:     entry,
			Applied:   ok,
			AppliedAt: at,
		})
	}
	return statuses, nil
}

func (r *Runner) appliedTags(ctx context.Context) (map[string]bool, error) {
	var tags []string
	if err := r.db.WithContext(ctx).Model(&Record{}).Pluck("tag", &tags).Error; err != nil {
		return nil, fmt.Errorf("failed to read applied migrations: %w", err)
	}
	applied := make(map[string]bool, len(tags))
	for _, tag := range tags {
		applied[tag] = true
	}
	return applied, nil
}

// executable reports whether a statement has anything left once comment
// and blank lines are stripped.
func executable(stmt string) bool {
	for _, line := range strings.Split(stmt, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && !strings.HasPrefix(trimmed, "--") {
			return true
		}
	}
	return false
}
