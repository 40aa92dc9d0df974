package projects_test

import (
	"net/http"
	"testing"

	"github.com/dalemusser/teamhub/internal/app/features/projects"
	"github.com/dalemusser/teamhub/internal/app/policy/projectpolicy"
	"github.com/dalemusser/teamhub/internal/app/system/apperr"
	"github.com/dalemusser/teamhub/internal/domain/models"
	"github.com/dalemusser/teamhub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// The removal rules are decided before any store call, so these run
// without a database.
func TestRemoveMember_Rules(t *testing.T) {
	creator := models.User{ID: primitive.NewObjectID(), Name: "Alice", Username: "alice"}
	other := models.User{ID: primitive.NewObjectID(), Name: "Dan", Username: "dan"}
	p := &models.Project{
		ID:      primitive.NewObjectID(),
		Name:    "Apollo",
		Creator: creator.ID,
		Members: []models.Member{
			{UserID: creator.ID, Role: models.RoleAdmin},
			{UserID: other.ID, Role: models.RoleViewer},
		},
	}

	tests := []struct {
		name   string
		role   models.Role
		target primitive.ObjectID
		status int
		code   string
		reason string
	}{
		{"viewer removing creator", models.RoleViewer, creator.ID, http.StatusConflict, string(apperr.KindConflict), ""},
		{"editor removing creator", models.RoleEditor, creator.ID, http.StatusConflict, string(apperr.KindConflict), ""},
		{"admin removing creator", models.RoleAdmin, creator.ID, http.StatusConflict, string(apperr.KindConflict), ""},
		{"editor removing a member", models.RoleEditor, other.ID, http.StatusForbidden, string(apperr.KindForbidden), apperr.ReasonInsufficientRole},
		{"viewer removing a member", models.RoleViewer, other.ID, http.StatusForbidden, string(apperr.KindForbidden), apperr.ReasonInsufficientRole},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := &testutil.RecordingBroadcaster{}
			h := &projects.Handler{RT: rt, Log: zap.NewNop()}
			caller := models.User{ID: primitive.NewObjectID(), Name: "Bob", Username: "bob"}

			req := testutil.NewAuthenticatedRequest(t, http.MethodDelete,
				"/api/projects/"+p.ID.Hex()+"/members/"+tt.target.Hex(), nil, caller)
			req = req.WithContext(projectpolicy.WithAccess(req.Context(),
				projectpolicy.Access{Project: p, UserID: caller.ID, Role: tt.role}))
			req = testutil.WithChiURLParam(req, "userID", tt.target.Hex())

			rec := testutil.NewRecorder()
			h.RemoveMember(rec, req)

			rec.AssertStatus(t, tt.status)
			assert.Equal(t, tt.code, rec.ErrorCode(t))
			if tt.status == http.StatusConflict {
				rec.AssertContains(t, "cannot remove project creator")
			}
			if tt.reason != "" {
				rec.AssertContains(t, tt.reason)
			}
			assert.Empty(t, rt.Events())
			assert.Empty(t, rt.Evictions())
		})
	}
}
