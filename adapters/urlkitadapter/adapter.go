package urlkitadapter

import (
	"github.com/goliatone/go-urlkit"

	"github.com/goliatone/go-viewas/ferrors"
	"github.com/goliatone/go-viewas/urlbuilder"
)

// ErrResolverRequired indicates the urlkit resolver is missing.
var ErrResolverRequired = ferrors.ErrURLBuilderRequired

// Adapter resolves view redirect targets and toolbar links through urlkit.
type Adapter struct {
	Resolver urlkit.Resolver
}

// New builds a new Adapter for the provided resolver.
func New(resolver urlkit.Resolver) Adapter {
	return Adapter{Resolver: resolver}
}

// Resolve implements urlbuilder.Builder.
func (a Adapter) Resolve(groupPath, route string, params map[string]any, query map[string]string) (string, error) {
	meta := map[string]any{
		ferrors.MetaAdapter:   "urlkit",
		ferrors.MetaOperation: "resolve",
		ferrors.MetaPath:      groupPath + "." + route,
	}
	if a.Resolver == nil {
		return "", ferrors.WrapSentinel(ferrors.ErrURLBuilderRequired, "urlkitadapter: resolver is required", meta)
	}
	url, err := a.Resolver.Resolve(groupPath, route, params, query)
	if err != nil {
		return "", ferrors.WrapExternal(err, ferrors.TextCodeRedirectBuildFailed, "urlkitadapter: resolve failed", meta)
	}
	return url, nil
}

var _ urlbuilder.Builder = Adapter{}
