package routable

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/conduit-lang/routable/internal/orm/query"
	"github.com/conduit-lang/routable/internal/orm/schema"
	"github.com/conduit-lang/routable/internal/orm/store"
	"github.com/conduit-lang/routable/internal/routing"
)

const (
	rootPath  = "/1.%20Root"
	path2     = rootPath + "/1.1"
	path3     = path2 + "/1.1.1"
	path4     = path3 + "/1.1.1.1"
	path5     = path4 + "/1.1.1.1.1"
	adsRoute  = "/ads/{year}/{month}/{day}/{title}/{id}"
	treeRoute = "/*"
)

func treeRows() []map[string]interface{} {
	row := func(id int, name string, parent interface{}, flag bool) map[string]interface{} {
		return map[string]interface{}{
			"id": id, "name": name, "parent_id": parent,
			"flag": flag, "home": false, "link": nil,
		}
	}
	return []map[string]interface{}{
		row(1, "1. Root", nil, false),
		row(2, "1.1", 1, false),
		row(3, "1.1.1", 2, true),
		row(4, "1.1.1.1", 3, false),
		row(5, "1.1.1.1.1", 4, false),
	}
}

func adRows() []map[string]interface{} {
	return []map[string]interface{}{
		{"id": 1, "title": "First Ad", "created": "2007-03-18"},
		{"id": 2, "title": "Second Ad", "created": "2008-11-02"},
	}
}

type fixture struct {
	behavior *Behavior
	store    *store.MemoryStore
	routes   *routing.Registry
}

func newFixture(t *testing.T, rows ...map[string]interface{}) *fixture {
	t.Helper()

	resources := schema.NewRegistry()
	tree := schema.NewResource("FlagTree")
	tree.AddRelationship(&schema.Relationship{
		Type:           schema.RelationshipHasMany,
		TargetResource: "FlagTree",
		FieldName:      "children",
		ForeignKey:     "parent_id",
	})
	require.NoError(t, resources.Register(tree))

	ad := schema.NewResource("Advertisement").
		AddComputed("year", "ltrim(strftime('%Y', created), '0')").
		AddComputed("month", "ltrim(strftime('%m', created), '0')").
		AddComputed("day", "ltrim(strftime('%d', created), '0')")
	require.NoError(t, resources.Register(ad))

	routes := routing.NewRegistry("http://example.com/")
	for _, pattern := range []string{treeRoute, "/tree/{id}/*", adsRoute} {
		_, err := routes.Connect(pattern, nil)
		require.NoError(t, err)
	}

	m := store.NewMemoryStore()
	m.Insert("FlagTree", rows...)
	m.Insert("Advertisement", adRows()...)
	for field, layout := range map[string]string{"year": "2006", "month": "1", "day": "2"} {
		layout := layout
		m.Compute("Advertisement", field, func(row map[string]interface{}) interface{} {
			created, err := time.Parse("2006-01-02", row["created"].(string))
			if err != nil {
				return nil
			}
			return created.Format(layout)
		})
	}

	return &fixture{
		behavior: New(resources, routes, m, WithLogger(zaptest.NewLogger(t))),
		store:    m,
		routes:   routes,
	}
}

func (f *fixture) setup(t *testing.T, cfg GroupConfig) *Group {
	t.Helper()
	g, err := f.behavior.Setup(cfg)
	require.NoError(t, err)
	return g
}

func treeConfig() GroupConfig {
	return GroupConfig{Name: "FlagTree", Route: treeRoute, Fields: "name"}
}

func pathMap(t *testing.T, b *Behavior, group string, extra *query.PredicateGroup) map[string]interface{} {
	t.Helper()
	list, err := b.GeneratePathMap(context.Background(), group, extra)
	require.NoError(t, err)
	return list.ToMap()
}

func TestSetup_Defaults(t *testing.T) {
	f := newFixture(t, treeRows()...)

	tree := f.setup(t, treeConfig())
	assert.True(t, tree.Recursive)
	assert.Equal(t, "parent_id", tree.Parent)
	assert.Equal(t, "routable", tree.Virtual)
	assert.Equal(t, "name", tree.recursor())
	assert.Empty(t, tree.keyFields())

	ads := f.setup(t, GroupConfig{
		Name:   "Advertisement",
		Route:  adsRoute,
		Fields: []interface{}{"year", "month", "day", "title", "id", "title"},
	})
	assert.False(t, ads.Recursive, "no wildcard, so not hierarchical")
	assert.Empty(t, ads.Parent)
	assert.Equal(t, []string{"year", "month", "day", "title", "id"}, ads.Fields)

	off := false
	flat := f.setup(t, GroupConfig{Name: "FlagTree", Route: treeRoute, Fields: "name", Recursive: &off, Virtual: "url"})
	assert.False(t, flat.Recursive)
	assert.Equal(t, "url", flat.Virtual)

	assert.Equal(t, []string{"Advertisement", "FlagTree"}, f.behavior.Groups())
}

func TestSetup_Errors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		cfg  GroupConfig
		msg  string
	}{
		{"unknown resource", GroupConfig{Name: "Missing", Route: treeRoute, Fields: "name"}, "no registered resource"},
		{"no fields", GroupConfig{Name: "FlagTree", Route: treeRoute}, "fields for group FlagTree were not configured"},
		{"blank fields", GroupConfig{Name: "FlagTree", Route: treeRoute, Fields: []string{" "}}, "fields for group FlagTree were not configured"},
		{"bad fields", GroupConfig{Name: "FlagTree", Route: treeRoute, Fields: 12}, "fields of group FlagTree"},
		{"no route", GroupConfig{Name: "FlagTree", Fields: "name"}, "route for group FlagTree was not configured"},
		{"unknown route", GroupConfig{Name: "FlagTree", Route: "/{title}/{id}/non-existent", Fields: "name"}, "could not be found"},
		{"bad scope", GroupConfig{Name: "FlagTree", Route: treeRoute, Fields: "name", Scope: "flag ~ 1"}, "scope of group FlagTree"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.behavior.Setup(tt.cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConfiguration))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}

	_, err := f.behavior.Group("FlagTree")
	assert.True(t, errors.Is(err, ErrUnknownGroup))
}

func TestProjectFields(t *testing.T) {
	f := newFixture(t)
	g := f.setup(t, GroupConfig{Name: "FlagTree", Route: treeRoute, Fields: "name", Home: "home", Link: "link"})

	assert.Equal(t,
		[]string{"FlagTree.name", "FlagTree.id", "FlagTree.parent_id", "FlagTree.link", "FlagTree.home"},
		g.projectFields(true, true))
	assert.Equal(t, []string{"FlagTree.name"}, g.projectFields(false, false))

	ads := f.setup(t, GroupConfig{Name: "Advertisement", Route: adsRoute, Fields: []string{"year", "month", "day", "title", "id"}})
	assert.Equal(t,
		[]string{"year", "month", "day", "Advertisement.title", "Advertisement.id"},
		ads.projectFields(true, true))
}

func TestPointerIndex(t *testing.T) {
	author := map[string]interface{}{"id": 7, "name": "ann"}
	first := map[string]interface{}{"id": 1, "title": "a", "User": author}
	dup := map[string]interface{}{"id": 1, "title": "a again"}
	second := map[string]interface{}{
		"id":     2,
		"title":  "b",
		"author": map[string]interface{}{"id": 8},
		"Comment": []interface{}{
			map[string]interface{}{"id": 100},
			map[string]interface{}{"id": nil},
		},
	}
	batch := Batch{
		{"Post": first},
		{"Post": second},
		{"Post": dup},
	}

	idx := buildIndex(batch, "id", map[string]bool{"Post": true, "User": true, "Comment": true})

	assert.Equal(t, []string{"Comment", "Post", "User"}, idx.Groups())
	assert.Equal(t, 3, idx.Len("Post"), "unrecognised keys stay in the enclosing group")

	records := idx.Records("Post")
	assert.Equal(t, "a again", records[0]["title"], "later duplicates overwrite in place")
	assert.Equal(t, 2, records[1]["id"])
	assert.Equal(t, 8, records[2]["id"])

	got, ok := idx.Get("User", int64(7))
	require.True(t, ok)
	got["routable"] = "/ann"
	assert.Equal(t, "/ann", author["routable"], "index shares records with the batch")

	assert.Equal(t, 1, idx.Len("Comment"))
	_, ok = idx.Get("Comment", nil)
	assert.False(t, ok)
	assert.Nil(t, idx.Records("Missing"))
}

func TestIdentityKeys(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	for _, v := range []interface{}{id, [16]byte(id), id[:], strings.ToUpper(id.String())} {
		key, ok := idKey(v)
		require.True(t, ok)
		assert.Equal(t, id.String(), key)
	}

	for _, v := range []interface{}{3, int64(3), "3", []byte("3"), 3.0} {
		key, ok := idKey(v)
		require.True(t, ok)
		assert.Equal(t, "3", key)
	}

	for _, v := range []interface{}{nil, "", []byte{}} {
		assert.True(t, isEmptyID(v), "%#v", v)
		_, ok := idKey(v)
		assert.False(t, ok)
	}

	// zero is no parent, but still a record identity
	for _, v := range []interface{}{"0", 0, int64(0)} {
		assert.True(t, isEmptyID(v), "%#v", v)
		key, ok := idKey(v)
		require.True(t, ok)
		assert.Equal(t, "0", key)
	}

	assert.Equal(t, "1", segmentValue(true))
	assert.Equal(t, "2.5", segmentValue(2.5))
	assert.Equal(t, "", segmentValue(nil))
}

func TestGeneratePathMap_Hierarchy(t *testing.T) {
	f := newFixture(t, treeRows()...)
	f.setup(t, treeConfig())

	assert.Equal(t, map[string]interface{}{
		"1": rootPath,
		"2": path2,
		"3": path3,
		"4": path4,
		"5": path5,
	}, pathMap(t, f.behavior, "FlagTree", nil))
}

func TestGeneratePathMap_Scope(t *testing.T) {
	f := newFixture(t, treeRows()...)
	f.setup(t, GroupConfig{Name: "FlagTree", Route: treeRoute, Fields: "name", Scope: map[string]interface{}{"flag": 1}})

	assert.Equal(t, map[string]interface{}{"3": path3}, pathMap(t, f.behavior, "FlagTree", nil))
}

func TestGeneratePathMap_ExtraCondition(t *testing.T) {
	f := newFixture(t, treeRows()...)
	f.setup(t, treeConfig())

	extra := query.Where(query.Eq("name", "1.1"))
	assert.Equal(t, map[string]interface{}{"2": path2}, pathMap(t, f.behavior, "FlagTree", extra))
}

func TestGeneratePathMap_CascadingScope(t *testing.T) {
	f := newFixture(t, treeRows()...)
	f.setup(t, GroupConfig{
		Name:           "FlagTree",
		Route:          treeRoute,
		Fields:         "name",
		Scope:          map[string]interface{}{"flag": true},
		CascadingScope: true,
	})

	assert.Equal(t, map[string]interface{}{"3": nil}, pathMap(t, f.behavior, "FlagTree", nil))

	f.store.Update("FlagTree", "id", 1, "flag", true)
	f.store.Update("FlagTree", "id", 2, "flag", true)

	list, err := f.behavior.GeneratePathMap(context.Background(), "FlagTree", query.Where(query.Eq("id", 3)))
	require.NoError(t, err)
	path, ok := list.Get(3)
	require.True(t, ok)
	assert.Equal(t, path3, path)
}

func TestGeneratePathMap_AncestryOutcomes(t *testing.T) {
	scoped := GroupConfig{Name: "FlagTree", Route: treeRoute, Fields: "name", Scope: map[string]interface{}{"flag": true}}
	cascading := scoped
	cascading.CascadingScope = true

	t.Run("failed ancestry lookup keeps the partial path", func(t *testing.T) {
		f := newFixture(t, treeRows()...)
		f.setup(t, scoped)
		f.store.FailOn("ancestors", errors.New("connection reset"))

		assert.Equal(t, map[string]interface{}{"3": "/1.1.1"}, pathMap(t, f.behavior, "FlagTree", nil))
	})

	t.Run("ancestors outside the cascading scope invalidate", func(t *testing.T) {
		f := newFixture(t, treeRows()...)
		f.setup(t, cascading)

		assert.Equal(t, map[string]interface{}{"3": nil}, pathMap(t, f.behavior, "FlagTree", nil))
	})

	t.Run("zero parent ends the chain", func(t *testing.T) {
		rows := treeRows()
		rows[0]["parent_id"] = 0
		f := newFixture(t, rows...)
		f.setup(t, scoped)

		assert.Equal(t, map[string]interface{}{"3": path3}, pathMap(t, f.behavior, "FlagTree", nil))
	})

	t.Run("zero identity is encoded but never a parent", func(t *testing.T) {
		rows := treeRows()
		rows[0]["id"] = 0
		rows[1]["parent_id"] = 0
		f := newFixture(t, rows[:2]...)
		f.setup(t, treeConfig())

		assert.Equal(t, map[string]interface{}{"0": rootPath, "2": "/1.1"}, pathMap(t, f.behavior, "FlagTree", nil))
	})

	t.Run("chain deeper than max depth is not truncated", func(t *testing.T) {
		const depth = 70
		rows := make([]map[string]interface{}, 0, depth)
		segments := make([]string, 0, depth)
		for i := 1; i <= depth; i++ {
			var parent interface{}
			if i > 1 {
				parent = i - 1
			}
			name := fmt.Sprintf("n%d", i)
			segments = append(segments, name)
			rows = append(rows, map[string]interface{}{
				"id": i, "name": name, "parent_id": parent,
				"flag": i == depth, "home": false, "link": nil,
			})
		}

		f := newFixture(t, rows...)
		f.setup(t, scoped)
		assert.Equal(t, map[string]interface{}{"70": "/n70"}, pathMap(t, f.behavior, "FlagTree", nil))

		f.store.SetMaxDepth(depth)
		assert.Equal(t, map[string]interface{}{"70": "/" + strings.Join(segments, "/")}, pathMap(t, f.behavior, "FlagTree", nil))
	})
}

func TestGeneratePathMap_HomeAndLink(t *testing.T) {
	rows := treeRows()
	rows[0]["home"] = true
	rows[2]["link"] = "http://elsewhere.example/three"

	f := newFixture(t, rows...)
	f.setup(t, GroupConfig{Name: "FlagTree", Route: treeRoute, Fields: "name", Home: "home"})

	paths := pathMap(t, f.behavior, "FlagTree", nil)
	assert.Equal(t, "/", paths["1"])
	assert.Equal(t, path2, paths["2"], "descendants of the home record keep its segment")

	f.setup(t, GroupConfig{Name: "FlagTree", Route: treeRoute, Fields: "name", Home: "home", Link: "link"})
	paths = pathMap(t, f.behavior, "FlagTree", nil)
	assert.Equal(t, "/", paths["1"])
	assert.Equal(t, "http://elsewhere.example/three", paths["3"])
	assert.Equal(t, path4, paths["4"])

	rows[0]["link"] = "http://elsewhere.example/root"
	f = newFixture(t, rows...)
	f.setup(t, GroupConfig{Name: "FlagTree", Route: treeRoute, Fields: "name", Home: "home", Link: "link"})
	paths = pathMap(t, f.behavior, "FlagTree", nil)
	assert.Equal(t, "http://elsewhere.example/root", paths["1"], "link wins over home")
}

func TestGenerateURLMap(t *testing.T) {
	f := newFixture(t, treeRows()...)
	f.setup(t, treeConfig())

	list, err := f.behavior.GenerateURLMap(context.Background(), "FlagTree", nil)
	require.NoError(t, err)
	require.Len(t, list, 5)
	assert.Equal(t, PathEntry{ID: 1, Path: "http://example.com" + rootPath}, list[0])
	assert.Equal(t, "http://example.com"+path5, list[4].Path)
}

func TestGeneratePathMap_Invalidated(t *testing.T) {
	t.Run("cycle", func(t *testing.T) {
		f := newFixture(t,
			map[string]interface{}{"id": 1, "name": "a", "parent_id": 2},
			map[string]interface{}{"id": 2, "name": "b", "parent_id": 1},
			map[string]interface{}{"id": 3, "name": "c", "parent_id": nil},
		)
		f.setup(t, treeConfig())

		assert.Equal(t, map[string]interface{}{"1": nil, "2": nil, "3": "/c"}, pathMap(t, f.behavior, "FlagTree", nil))
	})

	t.Run("dangling parent", func(t *testing.T) {
		f := newFixture(t, map[string]interface{}{"id": 6, "name": "orphan", "parent_id": 99})
		f.setup(t, treeConfig())

		assert.Equal(t, map[string]interface{}{"6": nil}, pathMap(t, f.behavior, "FlagTree", nil))
	})

	t.Run("ancestor fetch fails", func(t *testing.T) {
		f := newFixture(t, treeRows()...)
		f.setup(t, GroupConfig{Name: "FlagTree", Route: treeRoute, Fields: "name", Scope: map[string]interface{}{"flag": 1}})

		// the ancestor chain is known but the rows cannot be read
		f.behavior.store = &failingAncestorFetch{MemoryStore: f.store}
		assert.Equal(t, map[string]interface{}{"3": nil}, pathMap(t, f.behavior, "FlagTree", nil))
	})

	t.Run("store failure", func(t *testing.T) {
		f := newFixture(t, treeRows()...)
		f.setup(t, treeConfig())
		failure := errors.New("connection refused")
		f.store.FailOn("fetch", failure)

		_, err := f.behavior.GeneratePathMap(context.Background(), "FlagTree", nil)
		assert.True(t, errors.Is(err, failure))

		_, err = f.behavior.GeneratePathMap(context.Background(), "Nope", nil)
		assert.True(t, errors.Is(err, ErrUnknownGroup))
	})
}

// failingAncestorFetch fails every read that selects by primary key list
type failingAncestorFetch struct {
	*store.MemoryStore
}

func (s *failingAncestorFetch) FetchWhere(ctx context.Context, res *schema.Resource, cond *query.PredicateGroup, fields []string) ([]map[string]interface{}, error) {
	if selectsByList(cond) {
		return nil, errors.New("ancestor read failed")
	}
	return s.MemoryStore.FetchWhere(ctx, res, cond, fields)
}

func selectsByList(pg *query.PredicateGroup) bool {
	if pg == nil {
		return false
	}
	for _, c := range pg.Conditions {
		if c.Operator == query.OpIn {
			return true
		}
	}
	for _, g := range pg.Groups {
		if selectsByList(g) {
			return true
		}
	}
	return false
}

func TestEncodeBatch(t *testing.T) {
	f := newFixture(t)
	f.setup(t, GroupConfig{Name: "FlagTree", Route: treeRoute, Fields: "name", Full: true})
	ctx := context.Background()

	newBatch := func() Batch {
		return Batch{
			{"FlagTree": map[string]interface{}{"id": 1, "name": "1. Root", "parent_id": nil}},
			{"FlagTree": map[string]interface{}{"id": 2, "name": "1.1", "parent_id": 1}},
		}
	}

	batch, err := f.behavior.EncodeBatch(ctx, "FlagTree", newBatch(), FullOff)
	require.NoError(t, err)
	assert.Equal(t, rootPath, batch[0]["FlagTree"].(map[string]interface{})["routable"])
	assert.Equal(t, path2, batch[1]["FlagTree"].(map[string]interface{})["routable"])

	batch, err = f.behavior.EncodeBatch(ctx, "FlagTree", newBatch(), FullDefault)
	require.NoError(t, err)
	assert.Equal(t, "http://example.com"+path2, batch[1]["FlagTree"].(map[string]interface{})["routable"])

	t.Run("missing field leaves the batch untouched", func(t *testing.T) {
		batch := Batch{{"FlagTree": map[string]interface{}{"id": 1, "parent_id": nil}}}
		_, err := f.behavior.EncodeBatch(ctx, "FlagTree", batch, FullOff)
		require.NoError(t, err)
		assert.NotContains(t, batch[0]["FlagTree"], "routable")
	})

	t.Run("unknown group", func(t *testing.T) {
		_, err := f.behavior.EncodeBatch(ctx, "Nope", newBatch(), FullOff)
		assert.True(t, errors.Is(err, ErrUnknownGroup))
	})
}

func TestFind_EncodesIncludedRecords(t *testing.T) {
	f := newFixture(t, treeRows()...)
	f.setup(t, treeConfig())

	batch, err := f.behavior.Find(context.Background(), "FlagTree", query.Where(query.Eq("id", 1)), "children")
	require.NoError(t, err)
	require.Len(t, batch, 1)

	root := batch[0]["FlagTree"].(map[string]interface{})
	assert.Equal(t, rootPath, root["routable"])

	children := root["children"].([]map[string]interface{})
	require.Len(t, children, 1)
	assert.Equal(t, path2, children[0]["routable"])

	_, err = f.behavior.Find(context.Background(), "FlagTree", nil, "parent")
	assert.Error(t, err)
}

func TestResolve_Hierarchy(t *testing.T) {
	rows := append(treeRows(), map[string]interface{}{
		"id": 6, "name": "1.1.1.1.1", "parent_id": nil, "flag": false, "home": false, "link": nil,
	})
	f := newFixture(t, rows...)
	f.setup(t, treeConfig())
	ctx := context.Background()

	tests := []struct {
		name  string
		input interface{}
		want  interface{}
	}{
		{"root", rootPath, 1},
		{"child", path2, 2},
		{"segment list", []string{"1.%20Root", "1.1"}, 2},
		{"interface list", []interface{}{"1.%20Root"}, 1},
		{"deep record wins over same-named root", path5, 5},
		{"same-named root", "/1.1.1.1.1", 6},
		{"trailing slash", path2 + "/", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok, err := f.behavior.Resolve(ctx, "FlagTree", tt.input)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, tt.want, id)
		})
	}

	for _, input := range []string{"/1.1/1.%20Root", "/1.%20Root/missing", "/"} {
		_, ok, err := f.behavior.Resolve(ctx, "FlagTree", input)
		require.NoError(t, err)
		assert.False(t, ok, input)
	}

	record, ok, err := f.behavior.ResolveRecord(ctx, "FlagTree", path3)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1.1.1", record["name"])
	assert.Equal(t, path3, record["routable"])
}

func TestResolve_InvalidInput(t *testing.T) {
	f := newFixture(t, treeRows()...)
	f.setup(t, treeConfig())
	ctx := context.Background()

	for _, input := range []interface{}{42, nil, []interface{}{"a", 1}} {
		_, _, err := f.behavior.Resolve(ctx, "FlagTree", input)
		assert.True(t, errors.Is(err, ErrInvalidInput), "%#v", input)
	}

	_, _, err := f.behavior.Resolve(ctx, "Nope", "/")
	assert.True(t, errors.Is(err, ErrUnknownGroup))
}

func TestResolve_ScopeAndHome(t *testing.T) {
	rows := treeRows()
	rows[0]["home"] = true
	f := newFixture(t, rows...)
	ctx := context.Background()

	f.setup(t, GroupConfig{Name: "FlagTree", Route: treeRoute, Fields: "name", Home: "home"})
	id, ok, err := f.behavior.Resolve(ctx, "FlagTree", "/")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, id)

	f.setup(t, GroupConfig{Name: "FlagTree", Route: treeRoute, Fields: "name", Scope: "flag = 1"})
	_, ok, err = f.behavior.Resolve(ctx, "FlagTree", path2)
	require.NoError(t, err)
	assert.False(t, ok, "out of scope")

	id, ok, err = f.behavior.Resolve(ctx, "FlagTree", path3)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, id)
}

func TestResolve_KeyedHierarchy(t *testing.T) {
	f := newFixture(t, treeRows()...)
	f.setup(t, GroupConfig{Name: "FlagTree", Route: "/tree/{id}/*", Fields: []string{"id", "name"}})
	ctx := context.Background()

	assert.Equal(t, "/tree/3"+path3, pathMap(t, f.behavior, "FlagTree", nil)["3"])

	id, ok, err := f.behavior.Resolve(ctx, "FlagTree", "/tree/3"+path3)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, id)

	for _, input := range []string{"/tree/2" + path3, "/pages/3" + path3, "/tree/3" + path2} {
		_, ok, err := f.behavior.Resolve(ctx, "FlagTree", input)
		require.NoError(t, err)
		assert.False(t, ok, input)
	}
}

func TestResolve_ComputedFields(t *testing.T) {
	f := newFixture(t)
	f.setup(t, GroupConfig{Name: "Advertisement", Route: adsRoute, Fields: []string{"year", "month", "day", "title", "id"}})
	ctx := context.Background()

	assert.Equal(t, map[string]interface{}{
		"1": "/ads/2007/3/18/First Ad/1",
		"2": "/ads/2008/11/2/Second Ad/2",
	}, pathMap(t, f.behavior, "Advertisement", nil))

	id, ok, err := f.behavior.Resolve(ctx, "Advertisement", "/ads/2007/3/18/First Ad/1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, id)

	for _, input := range []string{
		"/ads/2007/3/18/First Ad/1/extra",
		"/ads/2007/3/18/Second Ad/1",
		"/ads/2007/3/19/First Ad/1",
	} {
		_, ok, err := f.behavior.Resolve(ctx, "Advertisement", input)
		require.NoError(t, err)
		assert.False(t, ok, input)
	}
}

func TestResolve_StoreFailureIsSoft(t *testing.T) {
	f := newFixture(t, treeRows()...)
	f.setup(t, treeConfig())
	f.store.FailOn("fetch", errors.New("connection refused"))

	_, ok, err := f.behavior.Resolve(context.Background(), "FlagTree", path2)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestServe(t *testing.T) {
	f := newFixture(t, treeRows()...)
	f.setup(t, treeConfig())
	f.setup(t, GroupConfig{Name: "Advertisement", Route: adsRoute, Fields: []string{"year", "month", "day", "title", "id"}})
	ctx := context.Background()

	match, ok, err := f.behavior.Serve(ctx, "/ads/2007/3/18/First Ad/1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Advertisement", match.Group)
	assert.Equal(t, 1, match.ID)

	match, ok, err = f.behavior.Serve(ctx, path2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "FlagTree", match.Group)
	assert.Equal(t, 2, match.ID)
	assert.Equal(t, "1.1", match.Record["name"])

	_, ok, err = f.behavior.Serve(ctx, "/nothing/here")
	require.NoError(t, err)
	assert.False(t, ok)
}
