package scenario

// Default is the built-in script played when no scenario file is given.
// It tours the public surface: building and anchoring a tree, splicing,
// events, resize observation, rooted tasks, replacement, and teardown.
func Default() *Scenario {
	return &Scenario{
		Version: "v1",
		Title:   "grove tour",
		Steps: []Step{
			{
				Note: "build the app shell",
				Create: &Create{
					Name: "app", Tag: "div", ID: "app", Classes: []string{"shell"},
					Children: []Create{
						{Name: "header", Tag: "h1", Text: "grove", Attrs: map[string]string{"color": "cadetblue"}},
						{Name: "list", Tag: "ul"},
					},
				},
			},
			{Note: "anchor it", Anchor: &Anchor{Names: []string{"app"}}},
			{
				Note:   "fill the list",
				Create: &Create{Name: "alpha", Tag: "li", Text: "alpha", Parent: "list"},
			},
			{Create: &Create{Name: "beta", Tag: "li", Text: "beta", Parent: "list"}},
			{
				Note: "insert in the middle",
				Splice: &Splice{
					Parent: "list", At: 1,
					Add: []Create{{Name: "gamma", Tag: "li", Text: "gamma"}},
				},
			},
			{Note: "wire a click listener", Listen: &Listen{Name: "list", Event: "click"}},
			{Dispatch: &Dispatch{Name: "list", Event: "click", Data: "pointer"}},
			{Note: "watch the header's size", Observe: &NodeRef{Name: "header"}},
			{Resize: &Resize{Name: "header", Inline: 80, Block: 3}},
			{
				Note: "a task owned by beta",
				Task: &Task{Owner: "beta", Message: "refresh for beta ran"},
			},
			{
				Note: "a task cancelled before it runs",
				Task: &Task{Owner: "beta", Message: "never printed", Cancel: true},
			},
			{Note: "drop the middle item", Splice: &Splice{Parent: "list", At: 1, Remove: 1}},
			{Classes: &Classes{Name: "list", Add: []string{"wide"}}},
			{Attr: &Attr{Name: "list", Key: "data-count", Value: "2"}},
			{
				Note: "swap the header",
				Replace: &Replace{
					Name: "header",
					With: []Create{{Name: "title", Tag: "h2", Text: "grove, day two"}},
				},
			},
			{Note: "the list listener survives the header swap", Dispatch: &Dispatch{Name: "list", Event: "click"}},
			{Note: "empty the list", Clear: &NodeRef{Name: "list"}},
			{Note: "tear everything down", Anchor: &Anchor{}},
		},
	}
}
