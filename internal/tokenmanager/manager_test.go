package tokenmanager

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// fakeAuthorizer records refresh token assignments.
type fakeAuthorizer struct {
	access  string
	refresh string
	sets    int
}

func (f *fakeAuthorizer) AccessToken() string  { return f.access }
func (f *fakeAuthorizer) RefreshToken() string { return f.refresh }
func (f *fakeAuthorizer) SetRefreshToken(token string) {
	f.refresh = token
	f.sets++
}

type owner struct{ name string }

func TestBinding(t *testing.T) {
	managers := map[string]Manager{
		"unimplemented": &UnimplementedManager{},
		"file":          NewFileManager("unused"),
		"store":         &StoreManager{},
	}

	for name, m := range managers {
		t.Run(name, func(t *testing.T) {
			if got := m.Owner(); got != nil {
				t.Fatalf("Owner() before Bind = %v, want nil", got)
			}

			first := &owner{name: "first"}
			if err := m.Bind(first); err != nil {
				t.Fatalf("Bind() error = %v", err)
			}
			if got := m.Owner(); got != first {
				t.Errorf("Owner() = %v, want %v", got, first)
			}

			err := m.Bind(&owner{name: "second"})
			if !errors.Is(err, ErrAlreadyBound) {
				t.Errorf("second Bind() error = %v, want ErrAlreadyBound", err)
			}
			if !errors.Is(err, ErrConfiguration) {
				t.Errorf("second Bind() error = %v, want ErrConfiguration", err)
			}
			if got := m.Owner(); got != first {
				t.Errorf("Owner() after failed Bind = %v, want %v", got, first)
			}
		})
	}
}

func TestBindingRejectsNil(t *testing.T) {
	var b Binding
	if err := b.Bind(nil); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("Bind(nil) error = %v, want ErrConfiguration", err)
	}
	if err := b.Bind(&owner{}); err != nil {
		t.Errorf("Bind() after rejected nil error = %v", err)
	}
}

func TestUnimplementedManager(t *testing.T) {
	m := &UnimplementedManager{}
	a := &fakeAuthorizer{refresh: "tok"}
	ctx := context.Background()

	tests := []struct {
		hook string
		call func() error
	}{
		{hook: "PreRefresh", call: func() error { return m.PreRefresh(ctx, a) }},
		{hook: "PostRefresh", call: func() error { return m.PostRefresh(ctx, a) }},
	}

	for _, tt := range tests {
		t.Run(tt.hook, func(t *testing.T) {
			err := tt.call()
			if !errors.Is(err, ErrNotImplemented) {
				t.Fatalf("%s() error = %v, want ErrNotImplemented", tt.hook, err)
			}
			if !strings.Contains(err.Error(), tt.hook) {
				t.Errorf("error %q does not name %s", err, tt.hook)
			}
		})
	}

	if a.sets != 0 || a.refresh != "tok" {
		t.Errorf("authorizer modified: %+v", a)
	}
}

// partialManager overrides only PreRefresh.
type partialManager struct {
	UnimplementedManager
}

func (partialManager) PreRefresh(context.Context, Authorizer) error { return nil }

func TestPartialOverride(t *testing.T) {
	var m Manager = &partialManager{}
	ctx := context.Background()

	if err := m.PreRefresh(ctx, &fakeAuthorizer{}); err != nil {
		t.Errorf("PreRefresh() error = %v", err)
	}
	if err := m.PostRefresh(ctx, &fakeAuthorizer{}); !errors.Is(err, ErrNotImplemented) {
		t.Errorf("PostRefresh() error = %v, want ErrNotImplemented", err)
	}
}
