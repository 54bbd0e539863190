package htmd

import "strings"

// FilterOptions selects tags for FilterPlugin. Tag names are matched
// case-insensitively.
type FilterOptions struct {
	// Include, when non-empty, skips every element whose tag is not listed.
	Include []string
	// Exclude skips every listed element and its subtree.
	Exclude []string
}

type filterPlugin struct {
	BasePlugin
	include map[string]bool
	exclude map[string]bool
}

// FilterPlugin returns a plugin that skips excluded tags, or tags absent
// from Include when Include is given, and continues otherwise.
func FilterPlugin(opts FilterOptions) Plugin {
	return &filterPlugin{
		include: tagSet(opts.Include),
		exclude: tagSet(opts.Exclude),
	}
}

func (p *filterPlugin) OnNodeEnter(_ *Frame, tag string, _ Attributes) Directive {
	if p.exclude[tag] {
		return Skip
	}
	if len(p.include) > 0 && !p.include[tag] {
		return Skip
	}
	return Continue
}

func tagSet(tags []string) map[string]bool {
	if len(tags) == 0 {
		return nil
	}
	set := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag != "" {
			set[tag] = true
		}
	}
	return set
}

// ArticleExcludes are the page chrome elements dropped by ArticlePreset.
var ArticleExcludes = []string{"nav", "footer", "aside", "form"}

// ArticlePreset composes the article filter with caller plugins appended
// after it. A caller plugin can therefore not re-include what the filter
// drops; put it before the filter with WithPlugins to do that.
func ArticlePreset(extra ...Plugin) []Plugin {
	plugins := make([]Plugin, 0, len(extra)+1)
	plugins = append(plugins, FilterPlugin(FilterOptions{Exclude: ArticleExcludes}))
	return append(plugins, extra...)
}

// Preset returns the named preset's plugins with extra appended. Known
// names are "none" (or empty) and "article".
func Preset(name string, extra ...Plugin) ([]Plugin, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return extra, true
	case "article":
		return ArticlePreset(extra...), true
	}
	return nil, false
}

// PresetNames lists the names accepted by Preset.
func PresetNames() []string {
	return []string{"none", "article"}
}
