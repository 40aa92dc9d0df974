package projectstore_test

import (
	"errors"
	"testing"

	projectstore "github.com/dalemusser/teamhub/internal/app/store/projects"
	"github.com/dalemusser/teamhub/internal/app/system/apperr"
	"github.com/dalemusser/teamhub/internal/domain/models"
	"github.com/dalemusser/teamhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestStore_Create_CreatorIsAdmin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := projectstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	creator := primitive.NewObjectID()
	p, err := store.Create(ctx, "  Launch  ", "", creator)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := store.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Name != "Launch" {
		t.Errorf("Name: got %q, want %q", got.Name, "Launch")
	}
	if len(got.Members) != 1 {
		t.Fatalf("members: got %d, want 1", len(got.Members))
	}
	m := got.Members[0]
	if m.UserID != creator || m.Role != models.RoleAdmin {
		t.Errorf("creator member: got %+v", m)
	}
	if got.Settings.DoingColumnLimit != models.DefaultDoingColumnLimit {
		t.Errorf("doing limit: got %d, want %d", got.Settings.DoingColumnLimit, models.DefaultDoingColumnLimit)
	}
}

func TestStore_GetByID_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := projectstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.GetByID(ctx, primitive.NewObjectID())
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestStore_AddMember_NoDuplicates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := projectstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p := fx.CreateProject(ctx, "Board", primitive.NewObjectID(), nil)
	joiner := primitive.NewObjectID()
	for i := 0; i < 2; i++ {
		if err := store.AddMember(ctx, p.ID, models.Member{UserID: joiner, Role: models.RoleEditor}); err != nil {
			t.Fatalf("AddMember #%d failed: %v", i, err)
		}
	}

	got, _ := store.GetByID(ctx, p.ID)
	if len(got.Members) != 2 {
		t.Errorf("members: got %d, want 2", len(got.Members))
	}
}

func TestStore_SetMemberRoleAndRemove(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := projectstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	member := primitive.NewObjectID()
	p := fx.CreateProject(ctx, "Board", primitive.NewObjectID(), map[primitive.ObjectID]models.Role{member: models.RoleViewer})

	if err := store.SetMemberRole(ctx, p.ID, member, models.RoleEditor); err != nil {
		t.Fatalf("SetMemberRole failed: %v", err)
	}
	got, _ := store.GetByID(ctx, p.ID)
	if m, _ := got.FindMember(member); m.Role != models.RoleEditor {
		t.Errorf("role: got %s, want editor", m.Role)
	}

	if err := store.RemoveMember(ctx, p.ID, member); err != nil {
		t.Fatalf("RemoveMember failed: %v", err)
	}
	got, _ = store.GetByID(ctx, p.ID)
	if got.IsMember(member) {
		t.Error("member should have been removed")
	}

	if err := store.SetMemberRole(ctx, p.ID, member, models.RoleAdmin); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("SetMemberRole on non-member: expected NotFound, got %v", err)
	}
}

func TestStore_TransitionInvitation_OnlyOnce(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := projectstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p := fx.CreateProject(ctx, "Board", primitive.NewObjectID(), nil)
	invitee := primitive.NewObjectID()
	inv := models.Invitation{
		InvitationID: primitive.NewObjectID(),
		UserID:       invitee,
		InvitedBy:    p.Creator,
		Role:         models.RoleEditor,
		Status:       models.InvitationPending,
	}
	if err := store.AddInvitation(ctx, p.ID, inv); err != nil {
		t.Fatalf("AddInvitation failed: %v", err)
	}

	pending, err := store.ListWithPendingInvitation(ctx, invitee)
	if err != nil || len(pending) != 1 {
		t.Fatalf("ListWithPendingInvitation: got %d, err %v", len(pending), err)
	}

	ok, err := store.TransitionInvitation(ctx, p.ID, inv.InvitationID, models.InvitationDeclined)
	if err != nil || !ok {
		t.Fatalf("first transition: ok=%v err=%v", ok, err)
	}
	ok, err = store.TransitionInvitation(ctx, p.ID, inv.InvitationID, models.InvitationAccepted)
	if err != nil {
		t.Fatalf("second transition err: %v", err)
	}
	if ok {
		t.Error("second transition should not apply")
	}

	got, _ := store.GetByID(ctx, p.ID)
	stored, _ := got.FindInvitation(inv.InvitationID)
	if stored.Status != models.InvitationDeclined {
		t.Errorf("status: got %s, want declined", stored.Status)
	}
	if stored.RespondedAt == nil {
		t.Error("expected responded_at")
	}
}

func TestDeleteCascade(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	creator := primitive.NewObjectID()
	p := fx.CreateProject(ctx, "Doomed", creator, nil)
	keep := fx.CreateProject(ctx, "Kept", creator, nil)
	fx.CreateTask(ctx, p.ID, creator, "t1", models.ColumnTodo)
	fx.CreateNote(ctx, p.ID, creator, "n1")
	fx.CreateTask(ctx, keep.ID, creator, "t2", models.ColumnTodo)

	if err := projectstore.DeleteCascade(ctx, db, zap.NewNop(), p.ID); err != nil {
		t.Fatalf("DeleteCascade failed: %v", err)
	}

	if n, _ := db.Collection("tasks").CountDocuments(ctx, bson.M{"project_id": p.ID}); n != 0 {
		t.Errorf("tasks left: %d", n)
	}
	if n, _ := db.Collection("notes").CountDocuments(ctx, bson.M{"project_id": p.ID}); n != 0 {
		t.Errorf("notes left: %d", n)
	}
	if n, _ := db.Collection("tasks").CountDocuments(ctx, bson.M{"project_id": keep.ID}); n != 1 {
		t.Errorf("other project's tasks: got %d, want 1", n)
	}
	if _, err := projectstore.New(db).GetByID(ctx, p.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("project should be gone, got %v", err)
	}
}
