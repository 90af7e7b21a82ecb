package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	def, ok := c.Feature("tasks")
	require.True(t, ok)
	assert.Equal(t, "Tasks", def.Label)
	assert.Contains(t, def.Abilities, "tasks.client.update")
	assert.True(t, c.Defines("reports", "reports.client.view"))
	assert.False(t, c.Defines("reports", "tasks.view"))
	assert.Nil(t, c.Abilities("unknown"))

	slugs := make([]string, 0)
	for _, f := range c.Features() {
		slugs = append(slugs, f.Slug)
	}
	assert.Equal(t, []string{"dashboard", "tasks", "reports", "clients", "appointments", "files", "notifications"}, slugs)
}

func TestCatalogIsImmutableThroughAccessors(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	def, _ := c.Feature("tasks")
	def.Abilities[0] = "tampered.view"
	set := c.Abilities("tasks")
	set.Add("tasks.hijack")

	assert.True(t, c.Defines("tasks", "tasks.view"))
	assert.False(t, c.Defines("tasks", "tasks.hijack"))
}

func TestNewRejectsInvalidDefinitions(t *testing.T) {
	cases := map[string]struct {
		features []FeatureDefinition
		aliases  map[string]string
	}{
		"malformed ability": {features: []FeatureDefinition{{Slug: "tasks", Abilities: []string{"tasks"}}}},
		"foreign prefix":    {features: []FeatureDefinition{{Slug: "tasks", Abilities: []string{"reports.view"}}}},
		"duplicate ability": {features: []FeatureDefinition{{Slug: "tasks", Abilities: []string{"tasks.view", "tasks.view"}}}},
		"duplicate feature": {features: []FeatureDefinition{{Slug: "tasks"}, {Slug: "tasks"}}},
		"dotted slug":       {features: []FeatureDefinition{{Slug: "tasks.client"}}},
		"platform feature":  {features: []FeatureDefinition{{Slug: "tenants", Abilities: []string{"tenants.manage"}}}},
		"dangling alias": {
			features: []FeatureDefinition{{Slug: "tasks", Abilities: []string{"tasks.view"}}},
			aliases:  map[string]string{"tasks.read": "tasks.list"},
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := New(tc.features, tc.aliases)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidCatalog))
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	raw := []byte("features:\n  - slug: tasks\n    abilities: [tasks.view, tasks.update]\naliases:\n  tasks.edit: tasks.update\n")
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	def, ok := c.Feature("tasks")
	require.True(t, ok)
	assert.Equal(t, "tasks", def.Label)
	assert.Equal(t, "tasks.update", c.Normalize("tasks.edit"))

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}

func TestNormalizer(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "tasks.update", c.Normalize("tasks.edit"))
	assert.Equal(t, "tasks.update", c.Normalize("tasks.update"))
	assert.Equal(t, "unknown.thing", c.Normalize("unknown.thing"))

	list := c.NormalizeList([]string{"tasks.edit", "tasks.update", "", "  ", "reports.read", "reports.view"})
	assert.ElementsMatch(t, []string{"tasks.update", "reports.view"}, list)

	expanded := c.ExpandRequestedAbilities([]string{"tasks.edit", "tasks.view", "tasks.edit"})
	assert.ElementsMatch(t, []string{"tasks.edit", "tasks.update", "tasks.view"}, expanded)
}
