package invitations_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/teamhub/internal/app/policy/projectpolicy"
	"github.com/dalemusser/teamhub/internal/app/system/apperr"
	"github.com/dalemusser/teamhub/internal/app/system/invitations"
	"github.com/dalemusser/teamhub/internal/app/system/realtime"
	"github.com/dalemusser/teamhub/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// memProjects mirrors the store's conditional transition: only a pending
// invitation moves.
type memProjects struct {
	mu       sync.Mutex
	projects map[primitive.ObjectID]*models.Project
}

func (m *memProjects) GetByID(_ context.Context, id primitive.ObjectID) (*models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, apperr.NotFound("project")
	}
	cp := *p
	cp.Members = append([]models.Member(nil), p.Members...)
	cp.Invitations = append([]models.Invitation(nil), p.Invitations...)
	return &cp, nil
}

func (m *memProjects) AddInvitation(_ context.Context, pid primitive.ObjectID, inv models.Invitation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.projects[pid]
	p.Invitations = append(p.Invitations, inv)
	return nil
}

func (m *memProjects) TransitionInvitation(_ context.Context, pid, invID primitive.ObjectID, status models.InvitationStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.projects[pid]
	for i := range p.Invitations {
		if p.Invitations[i].InvitationID == invID && p.Invitations[i].Status == models.InvitationPending {
			now := time.Now()
			p.Invitations[i].Status = status
			p.Invitations[i].RespondedAt = &now
			return true, nil
		}
	}
	return false, nil
}

func (m *memProjects) AddMember(_ context.Context, pid primitive.ObjectID, mem models.Member) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.projects[pid]
	if p.IsMember(mem.UserID) {
		return nil
	}
	p.Members = append(p.Members, mem)
	return nil
}

type memUsers map[primitive.ObjectID]*models.User

func (u memUsers) GetByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	if usr, ok := u[id]; ok {
		return usr, nil
	}
	return nil, apperr.NotFound("user")
}

type recorded struct {
	user primitive.ObjectID
	typ  string
}

type fakeRecorder struct {
	mu      sync.Mutex
	got     []recorded
	ctxErrs []error
}

func (f *fakeRecorder) Record(ctx context.Context, uid primitive.ObjectID, typ, _, _ string, _ map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, recorded{uid, typ})
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
}

func (f *fakeRecorder) RecordMany(ctx context.Context, uids []primitive.ObjectID, skip primitive.ObjectID, typ, title, msg string, data map[string]any) {
	for _, uid := range uids {
		if uid != skip {
			f.Record(ctx, uid, typ, title, msg, data)
		}
	}
}

type fakeBroadcaster struct {
	events []string
}

func (f *fakeBroadcaster) Broadcast(_ context.Context, event string, _ primitive.ObjectID, _ *models.PublicUser, _ any) {
	f.events = append(f.events, event)
}

type world struct {
	svc      *invitations.Service
	projects *memProjects
	notes    *fakeRecorder
	rt       *fakeBroadcaster
	project  *models.Project
	admin    *models.User
	bob      *models.User
	carol    *models.User
}

func newWorld(t *testing.T) *world {
	t.Helper()
	mk := func(name string) *models.User {
		return &models.User{ID: primitive.NewObjectID(), Name: name, Username: name}
	}
	w := &world{admin: mk("alice"), bob: mk("bob"), carol: mk("carol")}
	w.project = &models.Project{
		ID:      primitive.NewObjectID(),
		Name:    "Apollo",
		Creator: w.admin.ID,
		Members: []models.Member{{MemberID: primitive.NewObjectID(), UserID: w.admin.ID, Role: models.RoleAdmin}},
	}
	w.projects = &memProjects{projects: map[primitive.ObjectID]*models.Project{w.project.ID: w.project}}
	w.notes = &fakeRecorder{}
	w.rt = &fakeBroadcaster{}
	users := memUsers{w.admin.ID: w.admin, w.bob.ID: w.bob, w.carol.ID: w.carol}
	w.svc = invitations.New(w.projects, users, w.notes, w.rt, zap.NewNop())
	return w
}

func (w *world) invite(t *testing.T, invitee *models.User, role models.Role) models.Invitation {
	t.Helper()
	p, err := w.projects.GetByID(context.Background(), w.project.ID)
	require.NoError(t, err)
	inv, err := w.svc.Create(context.Background(), p, w.admin.Public(), w.admin.ID, invitee.ID, role)
	require.NoError(t, err)
	return inv
}

func (w *world) respond(invitee *models.User, inv models.Invitation, action string) (invitations.Result, error) {
	return w.svc.Respond(context.Background(), w.project.ID, inv.InvitationID, invitee.Public(), invitee.ID, action)
}

func TestCreate_RecordsInvitationNotification(t *testing.T) {
	w := newWorld(t)
	inv := w.invite(t, w.bob, models.RoleEditor)

	assert.Equal(t, models.InvitationPending, inv.Status)
	assert.Equal(t, w.admin.ID, inv.InvitedBy)
	assert.Equal(t, []recorded{{w.bob.ID, models.NotifyProjectInvitation}}, w.notes.got)
}

func TestCreate_Rejections(t *testing.T) {
	w := newWorld(t)
	w.invite(t, w.bob, models.RoleViewer)
	ctx := context.Background()
	p, _ := w.projects.GetByID(ctx, w.project.ID)

	tests := []struct {
		name    string
		invitee primitive.ObjectID
		role    models.Role
		want    error
	}{
		{"already a member", w.admin.ID, models.RoleViewer, apperr.ErrConflict},
		{"pending invitation exists", w.bob.ID, models.RoleEditor, apperr.ErrConflict},
		{"unknown user", primitive.NewObjectID(), models.RoleViewer, apperr.ErrNotFound},
		{"invalid role", w.carol.ID, models.Role(0), apperr.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := w.svc.Create(ctx, p, w.admin.Public(), w.admin.ID, tt.invitee, tt.role)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

// Accepting twice: the first call adds one membership, the second is a
// Conflict and the member list is unchanged.
func TestRespond_AcceptTwice(t *testing.T) {
	w := newWorld(t)
	inv := w.invite(t, w.bob, models.RoleEditor)

	res, err := w.respond(w.bob, inv, invitations.ActionAccept)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationAccepted, res.Invitation.Status)
	require.NotNil(t, res.Member)

	_, err = w.respond(w.bob, inv, invitations.ActionAccept)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrConflict))
	assert.Equal(t, "invitation already processed", apperr.As(err).Message)

	p, _ := w.projects.GetByID(context.Background(), w.project.ID)
	count := 0
	for _, m := range p.Members {
		if m.UserID == w.bob.ID {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.Equal(t, []string{realtime.EventMemberAdded}, w.rt.events)
}

// The role on the invitation is the role the member gets, and the policy
// evaluator then grants exactly that rank.
func TestRespond_AcceptCopiesRole(t *testing.T) {
	for _, role := range []models.Role{models.RoleViewer, models.RoleEditor, models.RoleAdmin} {
		t.Run(role.String(), func(t *testing.T) {
			w := newWorld(t)
			inv := w.invite(t, w.bob, role)

			res, err := w.respond(w.bob, inv, invitations.ActionAccept)
			require.NoError(t, err)
			assert.Equal(t, role, res.Member.Role)

			p, _ := w.projects.GetByID(context.Background(), w.project.ID)
			a, err := projectpolicy.Check(p, w.bob.ID, models.RoleViewer)
			require.NoError(t, err)
			assert.Equal(t, role, a.Role)
		})
	}
}

func TestRespond_AcceptNotifiesOtherMembers(t *testing.T) {
	w := newWorld(t)
	inv := w.invite(t, w.bob, models.RoleViewer)
	w.notes.got = nil

	_, err := w.respond(w.bob, inv, invitations.ActionAccept)
	require.NoError(t, err)
	assert.Equal(t, []recorded{{w.admin.ID, models.NotifyMemberJoined}}, w.notes.got)
}

// The request deadline running out after the membership write does not cut
// off the notifications that follow it.
func TestRespond_SideEffectsOutliveRequestDeadline(t *testing.T) {
	w := newWorld(t)
	inv := w.invite(t, w.bob, models.RoleViewer)
	w.notes.got, w.notes.ctxErrs = nil, nil

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	_, err := w.svc.Respond(ctx, w.project.ID, inv.InvitationID, w.bob.Public(), w.bob.ID, invitations.ActionAccept)
	require.NoError(t, err)
	require.Len(t, w.notes.ctxErrs, 1)
	assert.NoError(t, w.notes.ctxErrs[0])
	assert.Equal(t, []string{realtime.EventMemberAdded}, w.rt.events)
}

func TestRespond_DeclineThenAccept(t *testing.T) {
	w := newWorld(t)
	inv := w.invite(t, w.bob, models.RoleViewer)

	res, err := w.respond(w.bob, inv, invitations.ActionDecline)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationDeclined, res.Invitation.Status)
	assert.Nil(t, res.Member)

	_, err = w.respond(w.bob, inv, invitations.ActionAccept)
	assert.True(t, errors.Is(err, apperr.ErrConflict))

	p, _ := w.projects.GetByID(context.Background(), w.project.ID)
	assert.False(t, p.IsMember(w.bob.ID))
	assert.Empty(t, w.rt.events)
}

// A declined invitation does not block a fresh one.
func TestCreate_AfterDeclineAllowed(t *testing.T) {
	w := newWorld(t)
	inv := w.invite(t, w.bob, models.RoleViewer)
	_, err := w.respond(w.bob, inv, invitations.ActionDecline)
	require.NoError(t, err)

	again := w.invite(t, w.bob, models.RoleEditor)
	assert.NotEqual(t, inv.InvitationID, again.InvitationID)
}

func TestRespond_Errors(t *testing.T) {
	w := newWorld(t)
	inv := w.invite(t, w.bob, models.RoleViewer)

	t.Run("wrong user", func(t *testing.T) {
		_, err := w.respond(w.carol, inv, invitations.ActionAccept)
		assert.True(t, errors.Is(err, apperr.ErrForbidden))
	})
	t.Run("unknown invitation", func(t *testing.T) {
		_, err := w.respond(w.bob, models.Invitation{InvitationID: primitive.NewObjectID()}, invitations.ActionAccept)
		assert.True(t, errors.Is(err, apperr.ErrNotFound))
	})
	t.Run("unknown project", func(t *testing.T) {
		_, err := w.svc.Respond(context.Background(), primitive.NewObjectID(), inv.InvitationID, w.bob.Public(), w.bob.ID, invitations.ActionAccept)
		assert.True(t, errors.Is(err, apperr.ErrNotFound))
	})
	t.Run("bad action", func(t *testing.T) {
		_, err := w.respond(w.bob, inv, "maybe")
		assert.True(t, errors.Is(err, apperr.ErrValidation))
	})
}

// Concurrent accepts of the same invitation: exactly one wins.
func TestRespond_ConcurrentAccept(t *testing.T) {
	w := newWorld(t)
	inv := w.invite(t, w.bob, models.RoleEditor)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = w.svc.Respond(context.Background(), w.project.ID, inv.InvitationID, w.bob.Public(), w.bob.ID, invitations.ActionAccept)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.True(t, errors.Is(err, apperr.ErrConflict))
	}
	assert.Equal(t, 1, ok)
}
