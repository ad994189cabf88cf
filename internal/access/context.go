package access

import "context"

type contextKey string

const (
	appGrantKey contextKey = "access_app_grant"
	orgGrantKey contextKey = "access_org_grant"
)

// NewAppContext returns ctx carrying the app grant so downstream handlers
// can read the resolved role and app id without re-querying.
func NewAppContext(ctx context.Context, g *AppGrant) context.Context {
	return context.WithValue(ctx, appGrantKey, g)
}

// AppGrantFromContext extracts the app grant; nil when no check has run.
func AppGrantFromContext(ctx context.Context) *AppGrant {
	g, _ := ctx.Value(appGrantKey).(*AppGrant)
	return g
}

// NewOrgContext returns ctx carrying the org grant.
func NewOrgContext(ctx context.Context, g *OrgGrant) context.Context {
	return context.WithValue(ctx, orgGrantKey, g)
}

// OrgGrantFromContext extracts the org grant; nil when no check has run.
func OrgGrantFromContext(ctx context.Context) *OrgGrant {
	g, _ := ctx.Value(orgGrantKey).(*OrgGrant)
	return g
}
