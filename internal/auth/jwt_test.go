package auth

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-webinar/live-engine/internal/realtime"
)

func TestGenerateValidate(t *testing.T) {
	svc := NewJWTService("secret", 1)
	id := uuid.New()
	token, err := svc.Generate(id, RoleSpeaker)
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, id, claims.UserID)
	assert.Equal(t, RoleSpeaker, claims.Role)
}

func TestValidateRejects(t *testing.T) {
	svc := NewJWTService("secret", 1)
	other := NewJWTService("other", 1)
	token, err := other.Generate(uuid.New(), RoleAdmin)
	require.NoError(t, err)

	_, err = svc.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = svc.Validate("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := NewJWTService("secret", -1)
	token, err = expired.Generate(uuid.New(), RoleAdmin)
	require.NoError(t, err)
	_, err = svc.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSocketValidatorRoles(t *testing.T) {
	svc := NewJWTService("secret", 1)
	validate := svc.SocketValidator()

	cases := map[string]realtime.Role{
		RoleAdmin:    realtime.RoleHost,
		RoleSpeaker:  realtime.RoleHost,
		RoleAttendee: realtime.RoleParticipant,
		"":           realtime.RoleParticipant,
	}
	for role, want := range cases {
		id := uuid.New()
		token, err := svc.Generate(id, role)
		require.NoError(t, err)
		gotID, gotRole, err := validate(token)
		require.NoError(t, err)
		assert.Equal(t, id, gotID)
		assert.Equal(t, want, gotRole, "role %q", role)
	}
}
