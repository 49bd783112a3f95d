package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/keygate/internal/common"
	"github.com/dmitrijs2005/keygate/internal/server/models"
	"github.com/dmitrijs2005/keygate/internal/server/storage"
)

func newRepo(t *testing.T) *StoreRepository {
	t.Helper()
	return NewStoreRepository(storage.NewInMemoryStore())
}

func testUser(username string) *models.User {
	now := time.Now().UnixMilli()
	return &models.User{
		ID:                  "id-" + username,
		Username:            username,
		Salt:                "aabbccdd",
		SigningPublicKey:    "deadbeef",
		EncryptionPublicKey: "cafebabe",
		TwoFactorSecret:     models.TwoFactorSecret{Secret: "SECRET", URI: "otpauth://totp/x"},
		SigninChallenge:     "challenge-1",
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

func TestStoreRepository_CreateAndLookups(t *testing.T) {
	t.Parallel()

	r := newRepo(t)
	ctx := context.Background()

	created, err := r.Create(ctx, testUser("alice"))
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	byID, err := r.GetByUserID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByUserID error: %v", err)
	}
	if byID.Username != "alice" {
		t.Fatalf("unexpected user: %+v", byID)
	}

	byName, err := r.GetByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("GetByUsername error: %v", err)
	}
	if byName.ID != created.ID {
		t.Fatalf("username lookup returned wrong user: %+v", byName)
	}
}

func TestStoreRepository_CreateDuplicateUsername(t *testing.T) {
	t.Parallel()

	r := newRepo(t)
	ctx := context.Background()

	if _, err := r.Create(ctx, testUser("alice")); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	dup := testUser("alice")
	dup.ID = "other-id"
	if _, err := r.Create(ctx, dup); !errors.Is(err, common.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestStoreRepository_GetMissing(t *testing.T) {
	t.Parallel()

	r := newRepo(t)
	ctx := context.Background()

	if _, err := r.GetByUsername(ctx, "nobody"); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := r.GetByUserID(ctx, "no-id"); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreRepository_Finish2FASetup(t *testing.T) {
	t.Parallel()

	r := newRepo(t)
	ctx := context.Background()

	created, err := r.Create(ctx, testUser("alice"))
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if created.TwoFactorEnabled {
		t.Fatalf("new user must not have 2FA enabled")
	}

	if err := r.Finish2FASetup(ctx, created.ID); err != nil {
		t.Fatalf("Finish2FASetup error: %v", err)
	}

	got, err := r.GetByUserID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByUserID error: %v", err)
	}
	if !got.TwoFactorEnabled {
		t.Fatalf("expected 2FA enabled")
	}
}

func TestStoreRepository_RotateSigninChallenge(t *testing.T) {
	t.Parallel()

	r := newRepo(t)
	ctx := context.Background()

	created, err := r.Create(ctx, testUser("alice"))
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	rotated, err := r.RotateSigninChallenge(ctx, created.ID)
	if err != nil {
		t.Fatalf("RotateSigninChallenge error: %v", err)
	}
	if rotated == created.SigninChallenge {
		t.Fatalf("challenge did not change")
	}

	got, err := r.GetByUserID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByUserID error: %v", err)
	}
	if got.SigninChallenge != rotated {
		t.Fatalf("stored challenge %q does not match returned %q", got.SigninChallenge, rotated)
	}
}

func TestStoreRepository_Delete(t *testing.T) {
	t.Parallel()

	r := newRepo(t)
	ctx := context.Background()

	created, err := r.Create(ctx, testUser("alice"))
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	if err := r.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete error: %v", err)
	}

	if _, err := r.GetByUserID(ctx, created.ID); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("user record should be gone, got %v", err)
	}
	if _, err := r.GetByUsername(ctx, "alice"); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("username index should be gone, got %v", err)
	}

	// username can be claimed again after deletion
	if _, err := r.Create(ctx, testUser("alice")); err != nil {
		t.Fatalf("re-Create after delete error: %v", err)
	}
}
