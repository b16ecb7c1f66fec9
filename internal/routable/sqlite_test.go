package routable

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/conduit-lang/routable/internal/orm/query"
	"github.com/conduit-lang/routable/internal/orm/schema"
	"github.com/conduit-lang/routable/internal/orm/store"
	"github.com/conduit-lang/routable/internal/routing"
)

func setupSQLiteBehavior(t *testing.T) (*Behavior, *sql.DB) {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	for _, stmt := range []string{
		`CREATE TABLE flag_trees (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			parent_id INTEGER,
			flag BOOLEAN NOT NULL DEFAULT 0,
			home BOOLEAN NOT NULL DEFAULT 0,
			link TEXT
		)`,
		`INSERT INTO flag_trees (id, name, parent_id, flag) VALUES
			(1, '1. Root', NULL, 0),
			(2, '1.1', 1, 0),
			(3, '1.1.1', 2, 1),
			(4, '1.1.1.1', 3, 0),
			(5, '1.1.1.1.1', 4, 0),
			(6, '1.1.1.1.1', NULL, 0),
			(7, 'orphan', 99, 0)`,
		`CREATE TABLE advertisements (id INTEGER PRIMARY KEY, title TEXT NOT NULL, created TEXT NOT NULL)`,
		`INSERT INTO advertisements VALUES (1, 'First Ad', '2007-03-18 10:00:00'), (2, 'Second Ad', '2008-11-02 09:30:00')`,
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}

	resources := schema.NewRegistry()
	require.NoError(t, resources.Register(
		schema.NewResource("FlagTree").WithColumns("id", "name", "parent_id", "flag", "home", "link"),
	))
	require.NoError(t, resources.Register(
		schema.NewResource("Advertisement").
			WithColumns("id", "title", "created").
			AddComputed("year", "strftime('%Y', created)").
			AddComputed("month", "ltrim(strftime('%m', created), '0')").
			AddComputed("day", "ltrim(strftime('%d', created), '0')"),
	))

	routes := routing.NewRegistry("http://example.com")
	for _, pattern := range []string{treeRoute, "/tree/{id}/*", adsRoute} {
		_, err := routes.Connect(pattern, nil)
		require.NoError(t, err)
	}

	logger := zaptest.NewLogger(t)
	st := store.NewSQLStore(db, store.WithPlaceholder(query.Question), store.WithLogger(logger))
	return New(resources, routes, st, WithLogger(logger)), db
}

func TestSQLite_GeneratePathMap(t *testing.T) {
	b, db := setupSQLiteBehavior(t)
	_, err := b.Setup(treeConfig())
	require.NoError(t, err)

	assert.Equal(t, map[string]interface{}{
		"1": rootPath,
		"2": path2,
		"3": path3,
		"4": path4,
		"5": path5,
		"6": "/1.1.1.1.1",
		"7": nil,
	}, pathMap(t, b, "FlagTree", nil))

	assert.Equal(t, map[string]interface{}{"2": path2},
		pathMap(t, b, "FlagTree", query.Where(query.Eq("name", "1.1"))))

	_, err = db.Exec(`UPDATE flag_trees SET home = 1 WHERE id = 1`)
	require.NoError(t, err)
	_, err = db.Exec(`UPDATE flag_trees SET link = 'http://elsewhere.example/four' WHERE id = 4`)
	require.NoError(t, err)
	_, err = b.Setup(GroupConfig{Name: "FlagTree", Route: treeRoute, Fields: "name", Home: "home", Link: "link"})
	require.NoError(t, err)

	paths := pathMap(t, b, "FlagTree", nil)
	assert.Equal(t, "/", paths["1"])
	assert.Equal(t, path3, paths["3"])
	assert.Equal(t, "http://elsewhere.example/four", paths["4"])
	assert.Equal(t, path5, paths["5"])
}

func TestSQLite_Scopes(t *testing.T) {
	b, db := setupSQLiteBehavior(t)

	_, err := b.Setup(GroupConfig{Name: "FlagTree", Route: treeRoute, Fields: "name", Scope: map[string]interface{}{"flag": 1}})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"3": path3}, pathMap(t, b, "FlagTree", nil))

	_, err = b.Setup(GroupConfig{
		Name:           "FlagTree",
		Route:          treeRoute,
		Fields:         "name",
		Scope:          []interface{}{"flag = 1"},
		CascadingScope: true,
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"3": nil}, pathMap(t, b, "FlagTree", nil))

	_, err = db.Exec(`UPDATE flag_trees SET flag = 1 WHERE id IN (1, 2)`)
	require.NoError(t, err)

	list, err := b.GeneratePathMap(context.Background(), "FlagTree", query.Where(query.Eq("id", 3)))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, path3, list[0].Path)
}

func TestSQLite_GenerateURLMap(t *testing.T) {
	b, _ := setupSQLiteBehavior(t)
	_, err := b.Setup(treeConfig())
	require.NoError(t, err)

	list, err := b.GenerateURLMap(context.Background(), "FlagTree", query.Where(query.In("id", []interface{}{1, 2})))
	require.NoError(t, err)
	assert.Equal(t, PathList{
		{ID: int64(1), Path: "http://example.com" + rootPath},
		{ID: int64(2), Path: "http://example.com" + path2},
	}, list)
}

func TestSQLite_Resolve(t *testing.T) {
	b, _ := setupSQLiteBehavior(t)
	ctx := context.Background()
	_, err := b.Setup(treeConfig())
	require.NoError(t, err)
	_, err = b.Setup(GroupConfig{Name: "Advertisement", Route: adsRoute, Fields: []string{"year", "month", "day", "title", "id"}})
	require.NoError(t, err)

	tests := []struct {
		group string
		path  string
		want  interface{}
	}{
		{"FlagTree", rootPath, int64(1)},
		{"FlagTree", path3, int64(3)},
		{"FlagTree", path5, int64(5)},
		{"FlagTree", "/1.1.1.1.1", int64(6)},
		{"Advertisement", "/ads/2007/3/18/First Ad/1", int64(1)},
		{"Advertisement", "/ads/2008/11/2/Second Ad/2", int64(2)},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			id, ok, err := b.Resolve(ctx, tt.group, tt.path)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, tt.want, id)
		})
	}

	for _, tt := range []struct{ group, path string }{
		{"FlagTree", "/1.1/1.%20Root"},
		{"FlagTree", "/orphan"},
		{"Advertisement", "/ads/2007/3/18/First Ad/1/extra"},
		{"Advertisement", "/ads/2007/03/18/First Ad/1"},
	} {
		_, ok, err := b.Resolve(ctx, tt.group, tt.path)
		require.NoError(t, err)
		assert.False(t, ok, tt.path)
	}
}

func TestSQLite_KeyedHierarchy(t *testing.T) {
	b, _ := setupSQLiteBehavior(t)
	_, err := b.Setup(GroupConfig{Name: "FlagTree", Route: "/tree/{id}/*", Fields: []string{"id", "name"}})
	require.NoError(t, err)

	assert.Equal(t, "/tree/4"+path4, pathMap(t, b, "FlagTree", nil)["4"])

	match, ok, err := b.Serve(context.Background(), "/tree/4"+path4)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(4), match.ID)
}
