package migration

import (
	"io/fs"
	"sort"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(embeddedMigrations, migrationsDir)
	require.NoError(t, err)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, entry := range entries {
		name := entry.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}
	require.NotEmpty(t, ups)

	versions := make([]string, 0, len(ups))
	for version := range ups {
		versions = append(versions, version)
		assert.True(t, downs[version], "missing down migration for %s", version)
	}
	sort.Strings(versions)
	assert.Equal(t, "000001_create_entitlements", versions[0])
}

func TestMigrateSQLiteUsesAutoMigrate(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:migration_test?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, Migrate(conn))
	// Idempotent.
	require.NoError(t, Migrate(conn))

	assert.True(t, conn.Migrator().HasTable("entitlements"))
	assert.True(t, conn.Migrator().HasColumn("entitlements", "last_event_at"))
	assert.True(t, conn.Migrator().HasTable("payment_events"))
	assert.True(t, conn.Migrator().HasIndex("payment_events", "ux_payment_events_provider_event"))
}

func TestMigrateRequiresConnection(t *testing.T) {
	assert.Error(t, Migrate(nil))
	assert.Error(t, RunMigrations(nil))
}
