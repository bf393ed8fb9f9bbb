package snapcdc

import (
	"github.com/mickamy/snapcdc/internal/ident"
)

// qualifiedName normalizes a table name, qualifying bare names with namespace.
func qualifiedName(name, namespace string) string {
	parts := ident.Qualify(name, namespace)
	if len(parts) == 0 {
		return ""
	}
	for _, p := range parts {
		if p == "" {
			return ""
		}
	}
	return ident.Join(parts)
}

func (h *Handler) tableName(name string) (string, error) {
	q := qualifiedName(name, h.cfg.DefaultNamespace)
	if q == "" {
		return "", invalidArgument("invalid table name %q", name)
	}
	return q, nil
}
