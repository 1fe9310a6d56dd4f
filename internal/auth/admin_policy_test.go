package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"formini/internal/model"
)

func TestAdminPolicy(t *testing.T) {
	policy := NewAdminPolicy(" Admin@Formini.com ")
	now := time.Now()

	assert.Equal(t, "admin@formini.com", policy.Email())
	assert.True(t, policy.IsReservedEmail("ADMIN@formini.com"))
	assert.False(t, policy.IsReservedEmail("other@formini.com"))

	admin := model.NewAdmin("Main", "Admin", "admin@formini.com", now)
	assert.True(t, policy.IsProtectedPrincipal(admin))

	stray := model.NewAdmin("Stray", "Admin", "stray@formini.com", now)
	assert.False(t, policy.IsProtectedPrincipal(stray))

	student := model.NewStudent("Not", "Admin", "admin@formini.com", now)
	assert.False(t, policy.IsProtectedPrincipal(student))
	assert.False(t, policy.IsProtectedPrincipal(nil))
}

func TestAdminPolicy_EmptyEmailReservesNothing(t *testing.T) {
	assert.False(t, NewAdminPolicy("").IsReservedEmail(""))
}
