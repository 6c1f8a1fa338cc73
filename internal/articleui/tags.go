package articleui

import (
	"strings"

	"github.com/SergeyParamoshkin/articleui/internal/model"
)

const allLabel = "All"

// MergeTags unions the comma separated free-text entries with the checked
// checklist entries. Free-text entries come first; checked entries are
// appended when not already present.
func MergeTags(typed string, checked []string) []string {
	tags := []string{}
	seen := map[string]bool{}

	add := func(t string) {
		if t == "" || seen[t] {
			return
		}
		seen[t] = true
		tags = append(tags, t)
	}

	for _, part := range strings.Split(strings.TrimSpace(typed), ",") {
		add(strings.TrimSpace(part))
	}
	for _, c := range checked {
		add(c)
	}

	return tags
}

// labelNames normalizes catalog entries to their display names.
func labelNames(labels []model.Label) []string {
	names := make([]string, 0, len(labels))
	for _, l := range labels {
		if strings.TrimSpace(l.Name) == "" {
			continue
		}
		names = append(names, l.Name)
	}

	return names
}

// labelBar renders the filter bar with the synthetic "All" entry first.
func labelBar(names []string, active string) LabelBar {
	bar := LabelBar{
		Items:     make([]Chip, 0, len(names)+1),
		ShowClear: active != "",
	}
	bar.Items = append(bar.Items, Chip{Name: allLabel, Tag: "", Active: active == ""})
	for _, n := range names {
		bar.Items = append(bar.Items, Chip{Name: n, Tag: n, Active: active != "" && n == active})
	}

	return bar
}

// checklist renders the label catalog with the article's tags checked.
func checklist(names []string, a *model.Article) []CheckItem {
	items := make([]CheckItem, 0, len(names))
	for _, n := range names {
		items = append(items, CheckItem{Name: n, Checked: a.HasTag(n)})
	}

	return items
}
