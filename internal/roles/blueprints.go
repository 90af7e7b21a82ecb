package roles

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/odyssey-erp/abilities/internal/ability"
	"github.com/odyssey-erp/abilities/internal/catalog"
)

// Blueprints derives the default role definitions for the selected features.
// abilityMap holds the abilities chosen per feature; a feature missing from it
// or mapped to an empty set produces no roles. Blueprints without abilities
// are omitted.
func Blueprints(cat *catalog.Catalog, features []string, abilityMap map[string]ability.Set) []Blueprint {
	var (
		out               []Blueprint
		clientViewer      = make(ability.Set)
		clientContributor = make(ability.Set)
		seen              = make(map[string]struct{}, len(features))
	)
	for _, feature := range features {
		if _, dup := seen[feature]; dup {
			continue
		}
		seen[feature] = struct{}{}
		def, ok := cat.Feature(feature)
		if !ok {
			continue
		}
		selected := abilityMap[feature].Intersect(cat.Abilities(feature))
		if len(selected) == 0 {
			continue
		}

		internal := make(ability.Set)
		for a := range selected {
			if ability.IsClientScoped(a) {
				if ability.HasAction(a, "view") {
					clientViewer.Add(a)
				}
				if ability.HasAction(a, "view", "create", "update") {
					clientContributor.Add(a)
				}
				continue
			}
			internal.Add(a)
		}

		viewer := make(ability.Set)
		editor := make(ability.Set)
		for a := range internal {
			if ability.HasAction(a, "view") {
				viewer.Add(a)
			}
			if ability.HasAction(a, "view", "create", "update") {
				editor.Add(a)
			}
		}
		editorKind := "editor"
		if feature == "clients" {
			editorKind = "contributor"
		}
		out = appendBlueprint(out, Blueprint{
			Slug:      feature + "_viewer",
			Name:      roleName(def.Label, "viewer"),
			Abilities: viewer.Intersect(selected),
			Level:     LevelViewer,
		})
		out = appendBlueprint(out, Blueprint{
			Slug:      feature + "_" + editorKind,
			Name:      roleName(def.Label, editorKind),
			Abilities: editor.Intersect(selected),
			Level:     LevelEditor,
		})
		out = appendBlueprint(out, Blueprint{
			Slug:      feature + "_manager",
			Name:      roleName(def.Label, "manager"),
			Abilities: internal.Intersect(selected),
			Level:     LevelManager,
		})
	}
	out = appendBlueprint(out, Blueprint{
		Slug:      SlugClientViewer,
		Name:      roleName("", SlugClientViewer),
		Abilities: clientViewer,
		Level:     LevelClientViewer,
	})
	out = appendBlueprint(out, Blueprint{
		Slug:      SlugClientContributor,
		Name:      roleName("", SlugClientContributor),
		Abilities: clientContributor,
		Level:     LevelClientContributor,
	})
	return out
}

func appendBlueprint(out []Blueprint, bp Blueprint) []Blueprint {
	if len(bp.Abilities) == 0 {
		return out
	}
	return append(out, bp)
}

func roleName(label, kind string) string {
	kind = cases.Title(language.English).String(strings.ReplaceAll(kind, "_", " "))
	if label == "" {
		return kind
	}
	return label + " " + kind
}
