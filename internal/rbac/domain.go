package rbac

import (
	"github.com/google/uuid"
)

// Resource identifies what an action targets. ClientID is the owning tenant;
// uuid.Nil means the action is not bound to a single client.
type Resource struct {
	Kind     string
	ClientID uuid.UUID
}

// Resource kinds.
const (
	KindContract  = "contract"
	KindPeriod    = "period"
	KindAnalytics = "analytics"
)

// ForClient builds a Resource owned by clientID.
func ForClient(kind string, clientID uuid.UUID) Resource {
	return Resource{Kind: kind, ClientID: clientID}
}
