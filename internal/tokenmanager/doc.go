// Package tokenmanager defines the hooks an authorizer calls around a refresh token refresh.
//
// An authorizer invokes PreRefresh immediately before it exchanges its refresh token and
// PostRefresh immediately after a successful exchange. Managers use the hooks to restore a
// token from storage and to persist the rotated one:
//
//	m := tokenmanager.NewFileManager("/home/me/.config/app/refresh_token")
//	// m is bound to its owning client once, by the client itself
//	if err := m.PreRefresh(ctx, auth); err != nil { ... }
//	// ... refresh ...
//	if err := m.PostRefresh(ctx, auth); err != nil { ... }
//
// Reads are conditional: a token already held by the authorizer is never overwritten.
// Writes are unconditional: every successful refresh persists the newest token.
package tokenmanager
