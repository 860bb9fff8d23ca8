// Package authorizer performs OAuth2 refresh token exchanges and drives tokenmanager hooks.
//
// The Authorizer owns the token pair. Before every refresh it calls the manager's PreRefresh so
// a stored refresh token can be restored, and after every successful refresh or code exchange
// it calls PostRefresh so the rotated token is persisted:
//
//	a := authorizer.New(cfg, authorizer.WithManager(tokenmanager.NewFileManager(path)))
//	if err := a.Refresh(ctx); err != nil { ... }
//	// a implements oauth2.TokenSource and can be used with oauth2.Transport
//
// # JSON Token Requests
//
// Some providers (e.g. Anthropic) expect JSON-encoded token requests instead of form-encoding:
//
//	a := authorizer.New(cfg, authorizer.WithJSONTokenRequests())
package authorizer
