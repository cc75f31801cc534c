package configadapter

import (
	"strings"

	"github.com/goliatone/go-viewas/catalog"
	"github.com/goliatone/go-viewas/view"
)

// NewCatalog builds a view type catalog from a nested map keyed by view
// type ID. Nested groups are joined with the configured delimiter.
func NewCatalog(data map[string]any, opts ...Option) *catalog.StaticCatalog {
	cfg := newConfigOptions(opts)
	defs := map[string]catalog.ViewTypeDefinition{}
	flattenCatalog("", data, cfg.delimiter, defs)
	return catalog.NewStatic(defs)
}

func flattenCatalog(prefix string, data map[string]any, delim string, out map[string]catalog.ViewTypeDefinition) {
	if len(data) == 0 {
		return
	}
	for key, value := range data {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			continue
		}
		path := trimmedKey
		if prefix != "" {
			path = prefix + delim + trimmedKey
		}

		switch typed := value.(type) {
		case map[string]any:
			if def, ok := definitionFromMap(typed); ok {
				def.ID = path
				defsAdd(out, def)
				continue
			}
			flattenCatalog(path, typed, delim, out)
		case map[string]string:
			if def, ok := definitionFromMap(stringMapToAny(typed)); ok {
				def.ID = path
				defsAdd(out, def)
			}
		default:
			if msg, ok := messageFromValue(value); ok {
				defsAdd(out, catalog.ViewTypeDefinition{ID: path, Label: msg})
			}
		}
	}
}

func defsAdd(out map[string]catalog.ViewTypeDefinition, def catalog.ViewTypeDefinition) {
	id := view.NormalizeKey(def.ID)
	if id == "" {
		return
	}
	def.ID = id
	out[id] = def
}

func definitionFromMap(data map[string]any) (catalog.ViewTypeDefinition, bool) {
	def := catalog.ViewTypeDefinition{}
	found := false
	if msg, ok := fieldMessage(data, "label"); ok {
		def.Label = msg
		found = true
	}
	if msg, ok := fieldMessage(data, "description"); ok {
		def.Description = msg
		found = true
	}
	return def, found
}

// fieldMessage reads name as a message, or the name_key and name_text pair.
func fieldMessage(data map[string]any, name string) (catalog.Message, bool) {
	if msg, ok := messageFromValue(data[name]); ok {
		return msg, true
	}
	var msg catalog.Message
	if val, ok := data[name+"_key"].(string); ok {
		msg.Key = strings.TrimSpace(val)
	}
	if val, ok := data[name+"_text"].(string); ok {
		msg.Text = strings.TrimSpace(val)
	}
	return msg, !msg.IsZero()
}

func messageFromValue(value any) (catalog.Message, bool) {
	switch typed := value.(type) {
	case string:
		trimmed := strings.TrimSpace(typed)
		if trimmed == "" {
			return catalog.Message{}, false
		}
		return catalog.Message{Text: trimmed}, true
	case map[string]any:
		return messageFromMap(typed)
	case map[string]string:
		return messageFromMap(stringMapToAny(typed))
	default:
		return catalog.Message{}, false
	}
}

func messageFromMap(data map[string]any) (catalog.Message, bool) {
	if len(data) == 0 {
		return catalog.Message{}, false
	}
	msg := catalog.Message{}
	if val, ok := data["key"].(string); ok {
		msg.Key = strings.TrimSpace(val)
	}
	if val, ok := data["text"].(string); ok {
		msg.Text = strings.TrimSpace(val)
	}
	if args, ok := data["args"].(map[string]any); ok && len(args) > 0 {
		msg.Args = args
	} else if args, ok := data["args"].(map[string]string); ok && len(args) > 0 {
		msg.Args = stringMapToAny(args)
	}
	if msg.IsZero() {
		return catalog.Message{}, false
	}
	if len(msg.Args) == 0 {
		msg.Args = nil
	}
	return msg, true
}

func stringMapToAny(data map[string]string) map[string]any {
	out := make(map[string]any, len(data))
	for key, val := range data {
		out[key] = val
	}
	return out
}
