package schema

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memDB(t *testing.T) *sqlx.DB {
	db, err := sqlx.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestTableLifecycle(t *testing.T) {
	ctx := context.Background()
	db := memDB(t)
	m := NewMetadata()
	tbl := m.Table("notes", []string{"note_id", "user"},
		Col("note_id", Integer), Col("user", String), Column{Name: "text", Type: String, NotNull: true})

	assert.True(t, m.Has("notes"))
	assert.Equal(t, m, tbl.Metadata)

	ok, err := tbl.Exists(ctx, db)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, tbl.Create(ctx, db))
	ok, err = tbl.Exists(ctx, db)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = db.Exec(`insert into notes values (1, 'a', 'hi')`)
	require.NoError(t, err)

	m.Remove(tbl)
	assert.False(t, m.Has("notes"))
	ok, err = tbl.Exists(ctx, db)
	require.NoError(t, err)
	assert.True(t, ok, "removing a definition must not drop stored data")

	var n int
	require.NoError(t, db.Get(&n, `select count(*) from notes`))
	assert.Equal(t, 1, n)
}

func TestDDL(t *testing.T) {
	m := NewMetadata()
	tbl := m.Table("t", []string{"a"}, Col("a", Integer), Column{Name: "b", Type: Boolean, NotNull: true})
	assert.Equal(t, "create table if not exists \"t\" (\n\t\"a\" integer,\n\t\"b\" boolean not null,\n\tprimary key (\"a\")\n)", tbl.DDL())
}

func TestRemoveOnlyOwnDefinition(t *testing.T) {
	m := NewMetadata()
	old := m.Table("t", nil, Col("a", Integer))
	m.Table("t", nil, Col("b", Integer))
	m.Remove(old)
	assert.True(t, m.Has("t"))
	assert.Equal(t, []string{"t"}, m.Names())
}

func TestCreateAll(t *testing.T) {
	ctx := context.Background()
	db := memDB(t)
	m := NewMetadata()
	m.Table("x", nil, Col("a", Integer))
	m.Table("y", nil, Col("b", String))
	require.NoError(t, m.CreateAll(ctx, db))
	for _, name := range []string{"x", "y"} {
		var n int
		require.NoError(t, db.Get(&n, `select count(*) from sqlite_master where name=?`, name))
		assert.Equal(t, 1, n)
	}
}
