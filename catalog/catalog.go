package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Message represents a human-friendly string with optional localization data.
type Message struct {
	Key  string
	Text string
	Args map[string]any
}

// IsZero reports whether the message carries nothing to render.
func (m Message) IsZero() bool {
	return m.Key == "" && m.Text == ""
}

// ViewTypeDefinition describes a view type for toolbars and documentation.
type ViewTypeDefinition struct {
	ID          string
	Label       Message
	Description Message
}

// Catalog exposes view type definitions by ID.
type Catalog interface {
	Get(id string) (ViewTypeDefinition, bool)
	List() []ViewTypeDefinition
}

// MessageResolver resolves a Message to a display string.
type MessageResolver interface {
	Resolve(ctx context.Context, locale string, msg Message) (string, error)
}

// PlainResolver returns the Message text or key without localization.
// Placeholders of the form {name} are replaced from Args.
type PlainResolver struct{}

// Resolve implements MessageResolver.
func (PlainResolver) Resolve(_ context.Context, _ string, msg Message) (string, error) {
	text := msg.Text
	if text == "" {
		text = msg.Key
	}
	if len(msg.Args) == 0 {
		return text, nil
	}
	names := make([]string, 0, len(msg.Args))
	for name := range msg.Args {
		names = append(names, name)
	}
	sort.Strings(names)
	pairs := make([]string, 0, len(names)*2)
	for _, name := range names {
		pairs = append(pairs, "{"+name+"}", fmt.Sprint(msg.Args[name]))
	}
	return strings.NewReplacer(pairs...).Replace(text), nil
}

// Default message keys for the built-in view types.
const (
	KeyViewingAs    = "viewas.title.viewing_as"
	KeyRole         = "viewas.view_type.role"
	KeyCaps         = "viewas.view_type.caps"
	KeyUser         = "viewas.view_type.user"
	KeyVisitor      = "viewas.view_type.visitor"
	KeyLocale       = "viewas.view_type.locale"
	KeyAlreadyView  = "viewas.message.already_selected"
	KeyNothingValid = "viewas.message.nothing_valid"
	KeyGenericError = "viewas.message.error"
)

// Builtin returns the definitions of the built-in view types.
func Builtin() map[string]ViewTypeDefinition {
	return map[string]ViewTypeDefinition{
		"role":    {Label: Message{Key: KeyRole, Text: "Role"}, Description: Message{Text: "View as a role"}},
		"caps":    {Label: Message{Key: KeyCaps, Text: "Capabilities"}, Description: Message{Text: "View with a custom capability set"}},
		"user":    {Label: Message{Key: KeyUser, Text: "User"}, Description: Message{Text: "View as another user"}},
		"visitor": {Label: Message{Key: KeyVisitor, Text: "Site visitor"}, Description: Message{Text: "View as a logged out visitor"}},
		"locale":  {Label: Message{Key: KeyLocale, Text: "Language"}, Description: Message{Text: "View in another language"}},
	}
}

// StaticCatalog provides an in-memory catalog.
type StaticCatalog struct {
	defs map[string]ViewTypeDefinition
}

// NewStatic builds an in-memory catalog from provided definitions.
func NewStatic(defs map[string]ViewTypeDefinition) *StaticCatalog {
	out := make(map[string]ViewTypeDefinition, len(defs))
	for id, def := range defs {
		normalized := normalizeID(id)
		if normalized == "" {
			continue
		}
		def.ID = normalized
		def.Label = normalizeMessage(def.Label)
		def.Description = normalizeMessage(def.Description)
		out[normalized] = def
	}
	return &StaticCatalog{defs: out}
}

// Merge returns a catalog holding c overlaid with other.
func (c *StaticCatalog) Merge(other Catalog) *StaticCatalog {
	defs := map[string]ViewTypeDefinition{}
	if c != nil {
		for id, def := range c.defs {
			defs[id] = def
		}
	}
	if other != nil {
		for _, def := range other.List() {
			defs[def.ID] = def
		}
	}
	return NewStatic(defs)
}

// Get implements Catalog.
func (c *StaticCatalog) Get(id string) (ViewTypeDefinition, bool) {
	if c == nil || len(c.defs) == 0 {
		return ViewTypeDefinition{}, false
	}
	normalized := normalizeID(id)
	if normalized == "" {
		return ViewTypeDefinition{}, false
	}
	def, ok := c.defs[normalized]
	return def, ok
}

// List implements Catalog.
func (c *StaticCatalog) List() []ViewTypeDefinition {
	if c == nil || len(c.defs) == 0 {
		return nil
	}
	ids := make([]string, 0, len(c.defs))
	for id := range c.defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]ViewTypeDefinition, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.defs[id])
	}
	return out
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

func normalizeMessage(msg Message) Message {
	msg.Key = strings.TrimSpace(msg.Key)
	msg.Text = strings.TrimSpace(msg.Text)
	if len(msg.Args) == 0 {
		msg.Args = nil
	}
	return msg
}

var _ Catalog = (*StaticCatalog)(nil)
var _ MessageResolver = PlainResolver{}
