package organizations

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praxishealth/praxis/internal/events"
	"github.com/praxishealth/praxis/pkg/logging"
)

type recordingOutbox struct {
	mu      sync.Mutex
	entries []struct {
		OrgID   string
		Type    string
		Payload any
	}
}

func (o *recordingOutbox) Insert(ctx context.Context, orgID string, eventType string, payload any) (uuid.UUID, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries = append(o.entries, struct {
		OrgID   string
		Type    string
		Payload any
	}{orgID, eventType, payload})
	return uuid.New(), nil
}

func setupService(t *testing.T) (*Service, *InMemoryStore, *recordingOutbox, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := NewInMemoryStore()
	outbox := &recordingOutbox{}
	svc := NewService(store, NewSettingsCache(client, time.Minute), outbox, Defaults{
		Timezone:      "America/Chicago",
		SlotMinutes:   30,
		InvitationTTL: 48 * time.Hour,
	}, logging.Default())
	return svc, store, outbox, mr
}

func TestCreateAppliesDefaultsAndPrimesCache(t *testing.T) {
	svc, _, _, mr := setupService(t)
	ctx := context.Background()

	org, err := svc.Create(ctx, "user-1", &CreateOrganizationRequest{Name: "Lakeside", Slug: "Lakeside"})
	require.NoError(t, err)
	assert.Equal(t, "lakeside", org.Slug)
	assert.Equal(t, "America/Chicago", org.Timezone)
	assert.Equal(t, 30, org.SlotDurationMinutes)
	assert.True(t, mr.Exists("praxis:org:"+org.ID))

	role, err := svc.RoleOf(ctx, org.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "owner", role)
}

func TestGetServesFromCacheAndRefills(t *testing.T) {
	svc, store, _, mr := setupService(t)
	ctx := context.Background()

	org, err := svc.Create(ctx, "user-1", &CreateOrganizationRequest{Name: "Lakeside", Slug: "lakeside"})
	require.NoError(t, err)

	// A stale cached copy wins over the store on the read path.
	name := "Renamed Directly"
	_, err = store.UpdateSettings(ctx, org.ID, &UpdateSettingsRequest{Name: &name})
	require.NoError(t, err)

	cached, err := svc.Get(ctx, org.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lakeside", cached.Name)

	// After a flush the store is re-read and the cache re-primed.
	mr.FlushAll()
	fresh, err := svc.Get(ctx, org.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed Directly", fresh.Name)
	assert.True(t, mr.Exists("praxis:org:"+org.ID))
}

func TestUpdateSettingsRefreshesCache(t *testing.T) {
	svc, _, _, _ := setupService(t)
	ctx := context.Background()

	org, err := svc.Create(ctx, "user-1", &CreateOrganizationRequest{Name: "Lakeside", Slug: "lakeside"})
	require.NoError(t, err)

	slot := 15
	tz := "Europe/Berlin"
	updated, err := svc.UpdateSettings(ctx, org.ID, &UpdateSettingsRequest{SlotDurationMinutes: &slot, Timezone: &tz})
	require.NoError(t, err)
	assert.Equal(t, 15, updated.SlotDurationMinutes)

	got, err := svc.Get(ctx, org.ID)
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", got.Timezone)

	bad := 3
	_, err = svc.UpdateSettings(ctx, org.ID, &UpdateSettingsRequest{SlotDurationMinutes: &bad})
	assert.Error(t, err)
}

func TestInviteQueuesEvent(t *testing.T) {
	svc, _, outbox, _ := setupService(t)
	ctx := context.Background()

	org, err := svc.Create(ctx, "user-1", &CreateOrganizationRequest{Name: "Lakeside", Slug: "lakeside"})
	require.NoError(t, err)

	inv, err := svc.Invite(ctx, org.ID, "user-1", "Dr. Kim", &InviteRequest{Email: "Nurse@Example.com"})
	require.NoError(t, err)
	assert.Equal(t, "nurse@example.com", inv.Email)
	assert.Equal(t, "member", inv.Role)

	require.Len(t, outbox.entries, 1)
	assert.Equal(t, events.TypeInvitationCreated, outbox.entries[0].Type)
	payload := outbox.entries[0].Payload.(events.InvitationCreatedV1)
	assert.Equal(t, "Lakeside", payload.OrgName)
	assert.Equal(t, inv.ID, payload.Token)
	assert.Equal(t, "Dr. Kim", payload.InviterName)

	_, err = svc.Invite(ctx, org.ID, "user-1", "Dr. Kim", &InviteRequest{Email: "nurse@example.com"})
	assert.ErrorIs(t, err, ErrInvitePending)
}

func TestAcceptInvitation(t *testing.T) {
	svc, _, _, _ := setupService(t)
	ctx := context.Background()

	org, err := svc.Create(ctx, "user-1", &CreateOrganizationRequest{Name: "Lakeside", Slug: "lakeside"})
	require.NoError(t, err)

	inv, err := svc.Invite(ctx, org.ID, "user-1", "", &InviteRequest{Email: "nurse@example.com", Role: "admin"})
	require.NoError(t, err)

	// Wrong email is indistinguishable from a missing invitation.
	_, err = svc.AcceptInvitation(ctx, inv.ID, "user-2", "other@example.com")
	assert.ErrorIs(t, err, ErrInviteNotFound)

	accepted, err := svc.AcceptInvitation(ctx, inv.ID, "user-2", "NURSE@example.com")
	require.NoError(t, err)
	assert.Equal(t, InviteStatusAccepted, accepted.Status)

	role, err := svc.RoleOf(ctx, org.ID, "user-2")
	require.NoError(t, err)
	assert.Equal(t, "admin", role)

	// Accepting twice fails: the invitation is no longer pending.
	_, err = svc.AcceptInvitation(ctx, inv.ID, "user-3", "nurse@example.com")
	assert.ErrorIs(t, err, ErrInviteNotFound)
}

func TestAcceptInvitationExpired(t *testing.T) {
	mrStore := NewInMemoryStore()
	svc := NewService(mrStore, nil, nil, Defaults{InvitationTTL: time.Nanosecond}, logging.Default())
	ctx := context.Background()

	org, err := svc.Create(ctx, "user-1", &CreateOrganizationRequest{Name: "Lakeside", Slug: "lakeside"})
	require.NoError(t, err)

	inv, err := mrStore.CreateInvitation(ctx, org.ID, "late@example.com", "member", "user-1", -time.Hour)
	require.NoError(t, err)

	_, err = svc.AcceptInvitation(ctx, inv.ID, "user-2", "late@example.com")
	assert.ErrorIs(t, err, ErrInviteExpired)
}

func TestLastOwnerProtection(t *testing.T) {
	svc, _, _, _ := setupService(t)
	ctx := context.Background()

	org, err := svc.Create(ctx, "user-1", &CreateOrganizationRequest{Name: "Lakeside", Slug: "lakeside"})
	require.NoError(t, err)

	err = svc.RemoveMember(ctx, org.ID, "user-1")
	assert.ErrorIs(t, err, ErrLastOwner)

	err = svc.UpdateMemberRole(ctx, org.ID, "user-1", "member")
	assert.ErrorIs(t, err, ErrLastOwner)
}
