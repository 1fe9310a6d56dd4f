package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formini/internal/model"
)

func TestUserRow_RoundTripsInstructor(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	u := model.NewInstructor("Ada", "Lovelace", "ada@example.com", "Maths Centre", "cvs/ada.pdf", now)

	row := toRow(u)
	require.NotNil(t, row.RegistrationStatus)
	assert.Equal(t, "pending", *row.RegistrationStatus)
	assert.Nil(t, row.GoogleID)

	back := row.toModel()
	require.NotNil(t, back.Instructor)
	assert.Equal(t, "Maths Centre", back.Instructor.CentreProfession)
	assert.Equal(t, "cvs/ada.pdf", back.Instructor.CVKey)
	assert.Equal(t, model.RegistrationPending, back.Instructor.RegistrationStatus)
	assert.Equal(t, now, back.Instructor.RequestedAt)
}

func TestUserRow_DropsInstructorFieldsForOtherRoles(t *testing.T) {
	u := model.NewStudent("Ada", "Lovelace", "ada@example.com", time.Now())
	u.Instructor = &model.InstructorProfile{CentreProfession: "leftover"}

	row := toRow(u)
	assert.Nil(t, row.CentreProfession)
	assert.Nil(t, row.RegistrationStatus)
	assert.Nil(t, row.toModel().Instructor)
}
