package actor

import (
	"context"
	"testing"
)

func TestRolePermissions(t *testing.T) {
	tests := []struct {
		role       Role
		canWrite   bool
		canApprove bool
	}{
		{RoleAdmin, true, true},
		{RoleManager, true, true},
		{RoleStoreman, true, false},
		{RoleViewer, false, false},
		{Role(""), false, false},
	}

	for _, tt := range tests {
		a := Actor{ID: "u-1", Role: tt.role}
		if got := a.CanWrite(); got != tt.canWrite {
			t.Errorf("%q CanWrite = %v, want %v", tt.role, got, tt.canWrite)
		}
		if got := a.CanApprove(); got != tt.canApprove {
			t.Errorf("%q CanApprove = %v, want %v", tt.role, got, tt.canApprove)
		}
		if got := a.CanPost(); got != tt.canApprove {
			t.Errorf("%q CanPost = %v, want %v", tt.role, got, tt.canApprove)
		}
	}
}

func TestContextRoundTrip(t *testing.T) {
	a := Actor{ID: "u-7", Name: "Sasha", Role: RoleStoreman}
	ctx := WithActor(context.Background(), a)

	if got := FromContext(ctx); got != a {
		t.Errorf("FromContext = %+v, want %+v", got, a)
	}

	got, err := Require(ctx)
	if err != nil {
		t.Fatalf("Require: %v", err)
	}
	if got != a {
		t.Errorf("Require = %+v", got)
	}
}

func TestRequire_MissingActor(t *testing.T) {
	if _, err := Require(context.Background()); err == nil {
		t.Error("expected error for empty context")
	}
	if got := FromContext(context.Background()); !got.IsZero() {
		t.Errorf("FromContext on empty context = %+v", got)
	}
}
