package htmd

type directiveKind uint8

const (
	directiveContinue directiveKind = iota
	directiveSkip
	directiveReplace
)

// Directive is a plugin's decision for one event.
type Directive struct {
	kind directiveKind
	text string
}

var (
	// Continue lets the node reach the emitter unchanged.
	Continue = Directive{kind: directiveContinue}
	// Skip suppresses the node. At node enter the whole subtree is dropped;
	// tokenizing continues so later siblings are unaffected.
	Skip = Directive{kind: directiveSkip}
)

// Replace substitutes text for the node. The text is emitted verbatim as
// Markdown, without escaping.
func Replace(text string) Directive {
	return Directive{kind: directiveReplace, text: text}
}

// IsContinue reports whether d lets the node through.
func (d Directive) IsContinue() bool { return d.kind == directiveContinue }

// IsSkip reports whether d suppresses the node.
func (d Directive) IsSkip() bool { return d.kind == directiveSkip }

// Text returns the replacement text and whether d is a replacement.
func (d Directive) Text() (string, bool) {
	return d.text, d.kind == directiveReplace
}

// Plugin hooks into the single conversion pass. Hooks run synchronously in
// plugin order; the first hook returning Skip or Replace decides the event.
//
// OnNodeEnter runs for every start tag with the enclosing frame.
// OnNodeExit runs when an element with content closes, either at its end tag
// or when it is closed implicitly. It receives the element's own frame for
// block elements and the enclosing frame for inline ones. Skip suppresses the
// markup the element emits on close (closing markers, link targets, buffered
// code blocks and tables); Replace emits the text in its place.
// OnText runs for every run of character data.
type Plugin interface {
	OnNodeEnter(frame *Frame, tag string, attrs Attributes) Directive
	OnNodeExit(frame *Frame, tag string) Directive
	OnText(frame *Frame, text string) Directive
}

// BasePlugin implements every hook with Continue. Embed it to implement only
// the hooks a plugin needs.
type BasePlugin struct{}

func (BasePlugin) OnNodeEnter(*Frame, string, Attributes) Directive { return Continue }
func (BasePlugin) OnNodeExit(*Frame, string) Directive              { return Continue }
func (BasePlugin) OnText(*Frame, string) Directive                  { return Continue }

// PluginFuncs adapts optional functions to the Plugin interface. Nil fields
// return Continue.
type PluginFuncs struct {
	NodeEnter func(frame *Frame, tag string, attrs Attributes) Directive
	NodeExit  func(frame *Frame, tag string) Directive
	Text      func(frame *Frame, text string) Directive
}

func (p PluginFuncs) OnNodeEnter(frame *Frame, tag string, attrs Attributes) Directive {
	if p.NodeEnter == nil {
		return Continue
	}
	return p.NodeEnter(frame, tag, attrs)
}

func (p PluginFuncs) OnNodeExit(frame *Frame, tag string) Directive {
	if p.NodeExit == nil {
		return Continue
	}
	return p.NodeExit(frame, tag)
}

func (p PluginFuncs) OnText(frame *Frame, text string) Directive {
	if p.Text == nil {
		return Continue
	}
	return p.Text(frame, text)
}

type pipeline []Plugin

func (p pipeline) enter(frame *Frame, tag string, attrs Attributes) Directive {
	for _, pl := range p {
		if d := pl.OnNodeEnter(frame, tag, attrs); d.kind != directiveContinue {
			return d
		}
	}
	return Continue
}

func (p pipeline) exit(frame *Frame, tag string) Directive {
	for _, pl := range p {
		if d := pl.OnNodeExit(frame, tag); d.kind != directiveContinue {
			return d
		}
	}
	return Continue
}

func (p pipeline) text(frame *Frame, text string) Directive {
	for _, pl := range p {
		if d := pl.OnText(frame, text); d.kind != directiveContinue {
			return d
		}
	}
	return Continue
}
