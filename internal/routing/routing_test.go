package routing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTemplate(t *testing.T) {
	tests := []struct {
		name     string
		pattern  string
		params   []string
		wildcard bool
	}{
		{"root wildcard", "/*", []string{}, true},
		{"named", "/{title}/{id:[0-9]+}", []string{"title", "id"}, false},
		{"named with wildcard", "/{id}/*", []string{"id"}, true},
		{"literal prefix", "/pages/{slug}", []string{"slug"}, false},
		{"nested regexp braces", `/{year:\d{4}}/{title}`, []string{"year", "title"}, false},
		{"root", "/", []string{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tpl, err := ParseTemplate(tt.pattern, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.params, tpl.Params)
			assert.Equal(t, tt.wildcard, tpl.Wildcard)
		})
	}
}

func TestParseTemplate_Invalid(t *testing.T) {
	for _, pattern := range []string{
		"no-slash",
		"/*/tail",
		"/{}",
		"/{id}/{id}",
		"/a//b",
		"/pre{id}",
		"/{id:[0-9}",
	} {
		t.Run(pattern, func(t *testing.T) {
			_, err := ParseTemplate(pattern, nil)
			assert.True(t, errors.Is(err, ErrInvalidTemplate), "got %v", err)
		})
	}
}

func TestTemplate_Build(t *testing.T) {
	t.Run("named values are inserted verbatim", func(t *testing.T) {
		tpl, err := ParseTemplate("/{title}/{id}", nil)
		require.NoError(t, err)

		path, err := tpl.Build(map[string]string{"title": "First Ad", "id": "1"}, nil)
		require.NoError(t, err)
		assert.Equal(t, "/First Ad/1", path)
	})

	t.Run("passed segments are escaped", func(t *testing.T) {
		tpl, err := ParseTemplate("/*", nil)
		require.NoError(t, err)

		path, err := tpl.Build(nil, []string{"1. Root", "1.1"})
		require.NoError(t, err)
		assert.Equal(t, "/1.%20Root/1.1", path)
	})

	t.Run("empty result is root", func(t *testing.T) {
		tpl, err := ParseTemplate("/*", nil)
		require.NoError(t, err)

		path, err := tpl.Build(nil, nil)
		require.NoError(t, err)
		assert.Equal(t, "/", path)
	})

	t.Run("defaults fill missing values", func(t *testing.T) {
		tpl, err := ParseTemplate("/{lang}/{slug}", map[string]string{"lang": "en"})
		require.NoError(t, err)

		path, err := tpl.Build(map[string]string{"slug": "about"}, nil)
		require.NoError(t, err)
		assert.Equal(t, "/en/about", path)

		path, err = tpl.Build(map[string]string{"slug": "about", "lang": "nl"}, nil)
		require.NoError(t, err)
		assert.Equal(t, "/nl/about", path)
	})

	t.Run("missing value", func(t *testing.T) {
		tpl, err := ParseTemplate("/{title}/{id}", nil)
		require.NoError(t, err)

		_, err = tpl.Build(map[string]string{"title": "x"}, nil)
		assert.True(t, errors.Is(err, ErrMissingParam))
	})

	t.Run("passed segments ignored without wildcard", func(t *testing.T) {
		tpl, err := ParseTemplate("/{id}", nil)
		require.NoError(t, err)

		path, err := tpl.Build(map[string]string{"id": "5"}, []string{"extra"})
		require.NoError(t, err)
		assert.Equal(t, "/5", path)
	})
}

func TestTemplate_Accepts(t *testing.T) {
	tpl, err := ParseTemplate("/{title}/{id:[0-9]+}", nil)
	require.NoError(t, err)

	assert.True(t, tpl.Accepts("id", "12"))
	assert.False(t, tpl.Accepts("id", "Second Ad"))
	assert.True(t, tpl.Accepts("title", "anything"))
	assert.True(t, tpl.Accepts("unknown", "anything"))
}

func TestTemplate_Bind(t *testing.T) {
	ads, err := ParseTemplate("/ads/{title}/{id:[0-9]+}", nil)
	require.NoError(t, err)

	values, pass, ok := ads.Bind([]string{"ads", "First Ad", "1"})
	require.True(t, ok)
	assert.Equal(t, map[string]string{"title": "First Ad", "id": "1"}, values)
	assert.Empty(t, pass)

	values, _, ok = ads.Bind([]string{"ads", "First Ad"})
	require.True(t, ok)
	assert.Equal(t, map[string]string{"title": "First Ad"}, values)

	_, _, ok = ads.Bind([]string{"pages", "First Ad", "1"})
	assert.False(t, ok, "literal mismatch")

	_, _, ok = ads.Bind([]string{"ads", "First Ad", "one"})
	assert.False(t, ok, "constraint")

	_, _, ok = ads.Bind([]string{"ads", "First Ad", "1", "extra"})
	assert.False(t, ok, "extra segments without wildcard")

	tree, err := ParseTemplate("/{id}/*", nil)
	require.NoError(t, err)

	values, pass, ok = tree.Bind([]string{"3", "1.%20Root", "1.1"})
	require.True(t, ok)
	assert.Equal(t, map[string]string{"id": "3"}, values)
	assert.Equal(t, []string{"1.%20Root", "1.1"}, pass)
}

func TestRegistry(t *testing.T) {
	t.Run("connect and lookup", func(t *testing.T) {
		r := NewRegistry("http://example.com/")

		tpl, err := r.Connect("/{title}/{id:[0-9]+}", nil)
		require.NoError(t, err)

		found, err := r.Lookup("/{title}/{id:[0-9]+}")
		require.NoError(t, err)
		assert.Same(t, tpl, found)

		_, err = r.Lookup("/{title}/{id}/non-existent")
		assert.True(t, errors.Is(err, ErrRouteNotFound))

		_, err = r.Connect("/{title}/{id:[0-9]+}", nil)
		assert.Error(t, err)
	})

	t.Run("url with full base", func(t *testing.T) {
		r := NewRegistry("http://example.com/")
		tpl, err := r.Connect("/*", nil)
		require.NoError(t, err)

		url, err := r.URL(tpl, nil, []string{"1. Root"}, true)
		require.NoError(t, err)
		assert.Equal(t, "http://example.com/1.%20Root", url)

		path, err := r.URL(tpl, nil, []string{"1. Root"}, false)
		require.NoError(t, err)
		assert.Equal(t, "/1.%20Root", path)
		assert.Equal(t, "http://example.com", r.BaseURL())
	})

	t.Run("match", func(t *testing.T) {
		r := NewRegistry("")
		ads, err := r.Connect("/ads/{title}/{id:[0-9]+}", nil)
		require.NoError(t, err)
		tree, err := r.Connect("/*", nil)
		require.NoError(t, err)

		tpl, params, ok := r.Match("/ads/Second Ad/2")
		require.True(t, ok)
		assert.Same(t, ads, tpl)
		assert.Equal(t, "Second Ad", params["title"])
		assert.Equal(t, "2", params["id"])

		tpl, params, ok = r.Match("/1.%20Root/1.1")
		require.True(t, ok)
		assert.Same(t, tree, tpl)
		assert.Equal(t, "1.%20Root/1.1", params["*"])

		tpl, _, ok = r.Match("/")
		require.True(t, ok)
		assert.Same(t, tree, tpl)

		assert.Len(t, r.Routes(), 2)
		assert.Equal(t, "/ads/{title}/{id:[0-9]+}", r.Routes()[0].Pattern)
	})

	t.Run("no match", func(t *testing.T) {
		r := NewRegistry("")
		_, err := r.Connect("/{title}/{id:[0-9]+}", nil)
		require.NoError(t, err)

		_, _, ok := r.Match("/Second Ad/two")
		assert.False(t, ok)
	})
}
