package userstore_test

import (
	"errors"
	"testing"
	"time"

	userstore "github.com/dalemusser/teamhub/internal/app/store/users"
	"github.com/dalemusser/teamhub/internal/app/system/apperr"
	"github.com/dalemusser/teamhub/internal/domain/models"
	"github.com/dalemusser/teamhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_CreateAndGetByUsername(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.User{Name: "Ada Lovelace", Username: "Ada", PasswordHash: "x"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID.IsZero() {
		t.Fatal("expected generated ID")
	}

	got, err := store.GetByUsername(ctx, "ADA")
	if err != nil {
		t.Fatalf("GetByUsername failed: %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("ID: got %s, want %s", got.ID.Hex(), created.ID.Hex())
	}
}

func TestStore_Create_DuplicateUsername(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.EnsureIndexes(t, db)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Create(ctx, models.User{Name: "One", Username: "dup", PasswordHash: "x"}); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}
	_, err := store.Create(ctx, models.User{Name: "Two", Username: "DUP", PasswordHash: "x"})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("expected Conflict, got %v", err)
	}
}

func TestStore_GetByID_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.GetByID(ctx, primitive.NewObjectID())
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestStore_SetPresence(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreateUser(ctx, "Grace", "grace")

	if err := store.SetPresence(ctx, u.ID, true, time.Now()); err != nil {
		t.Fatalf("SetPresence(online) failed: %v", err)
	}
	got, _ := store.GetByID(ctx, u.ID)
	if !got.IsOnline {
		t.Error("expected user online")
	}

	if err := store.SetPresence(ctx, u.ID, false, time.Now()); err != nil {
		t.Fatalf("SetPresence(offline) failed: %v", err)
	}
	got, _ = store.GetByID(ctx, u.ID)
	if got.IsOnline {
		t.Error("expected user offline")
	}
	if got.LastSeen == nil {
		t.Error("expected last_seen to be recorded")
	}
}

func TestStore_GetMany(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := fixtures.CreateUser(ctx, "A", "a")
	b := fixtures.CreateUser(ctx, "B", "b")

	users, err := store.GetMany(ctx, []primitive.ObjectID{a.ID, b.ID, primitive.NewObjectID()})
	if err != nil {
		t.Fatalf("GetMany failed: %v", err)
	}
	if len(users) != 2 {
		t.Errorf("expected 2 users, got %d", len(users))
	}
	for _, u := range users {
		if u.PasswordHash != "" {
			t.Error("password hash should be projected out")
		}
	}
}
