package tenancy

import (
	"context"
	"testing"
)

func TestOrgIDRoundTrip(t *testing.T) {
	ctx := context.Background()

	if _, ok := OrgIDFromContext(ctx); ok {
		t.Fatal("expected no org id on empty context")
	}

	ctx = WithOrgID(ctx, "org-123")
	orgID, ok := OrgIDFromContext(ctx)
	if !ok || orgID != "org-123" {
		t.Fatalf("expected org-123, got %q ok=%v", orgID, ok)
	}
}

func TestEmptyOrgIDNotPresent(t *testing.T) {
	ctx := WithOrgID(context.Background(), "")
	if _, ok := OrgIDFromContext(ctx); ok {
		t.Fatal("empty org id should report not present")
	}
}

func TestUserAndRole(t *testing.T) {
	ctx := WithUserID(context.Background(), "user-1")
	ctx = WithRole(ctx, RoleAdmin)

	userID, ok := UserIDFromContext(ctx)
	if !ok || userID != "user-1" {
		t.Fatalf("expected user-1, got %q ok=%v", userID, ok)
	}
	role, ok := RoleFromContext(ctx)
	if !ok || role != RoleAdmin {
		t.Fatalf("expected admin role, got %q ok=%v", role, ok)
	}
}

func TestCanManage(t *testing.T) {
	if !CanManage(RoleOwner) || !CanManage(RoleAdmin) {
		t.Error("owner and admin should manage")
	}
	if CanManage(RoleMember) || CanManage("") {
		t.Error("member and empty role should not manage")
	}
}
