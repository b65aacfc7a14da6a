package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/salesdesk/salesdesk/internal/shared"
)

func TestPolicyCan(t *testing.T) {
	policy := NewPolicy(nil)
	clientA := uuid.New()
	clientB := uuid.New()
	contractOfA := ForClient(KindContract, clientA)

	tests := []struct {
		name   string
		actor  shared.Actor
		action string
		want   bool
	}{
		{"admin deletes contracts", shared.Actor{Role: shared.RoleAdmin}, shared.PermContractsDelete, true},
		{"manager cannot delete contracts", shared.Actor{Role: shared.RoleManager}, shared.PermContractsDelete, false},
		{"manager creates periods", shared.Actor{Role: shared.RoleManager}, shared.PermPeriodsCreate, true},
		{"sales updates goals", shared.Actor{Role: shared.RoleSales}, shared.PermPeriodsUpdateGoal, true},
		{"sales cannot delete periods", shared.Actor{Role: shared.RoleSales}, shared.PermPeriodsDelete, false},
		{"client reads own contracts", shared.Actor{Role: shared.RoleClient, ClientID: &clientA}, shared.PermContractsView, true},
		{"client cannot read other tenant", shared.Actor{Role: shared.RoleClient, ClientID: &clientB}, shared.PermContractsView, false},
		{"client without tenant denied", shared.Actor{Role: shared.RoleClient}, shared.PermContractsView, false},
		{"client cannot create", shared.Actor{Role: shared.RoleClient, ClientID: &clientA}, shared.PermContractsCreate, false},
		{"unknown role denied", shared.Actor{Role: "intern"}, shared.PermContractsView, false},
		{"role match is case insensitive", shared.Actor{Role: "ADMIN"}, shared.PermContractsView, true},
		{"mixed case client stays in own tenant", shared.Actor{Role: "Client", ClientID: &clientB}, shared.PermContractsView, false},
		{"mixed case client without tenant denied", shared.Actor{Role: "Client"}, shared.PermAnalyticsView, false},
		{"mixed case client reads own contracts", shared.Actor{Role: " Client", ClientID: &clientA}, shared.PermContractsView, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.Can(tt.actor, tt.action, contractOfA))
		})
	}
}

func TestNilPolicyDenies(t *testing.T) {
	var policy *Policy
	assert.False(t, policy.Can(shared.Actor{Role: shared.RoleAdmin}, shared.PermContractsView, Resource{}))
}

func TestRequireAny(t *testing.T) {
	mw := Middleware{Policy: NewPolicy(nil)}
	handler := mw.RequireAny(shared.PermContractsCreate)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(shared.ContextWithActor(req.Context(), shared.Actor{Role: shared.RoleSales}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(shared.ContextWithActor(req.Context(), shared.Actor{Role: shared.RoleManager}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
