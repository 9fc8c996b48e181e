package services

import (
	"context"
	"testing"
	"time"

	"github.com/chachabrian/chefbook-backend/internal/database"
	"github.com/chachabrian/chefbook-backend/internal/database/testdb"
	"github.com/chachabrian/chefbook-backend/internal/models"
	"github.com/chachabrian/chefbook-backend/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePrincipal(t *testing.T) {
	db := testdb.Open(t)
	client := testdb.CreateUser(t, db, "ria", models.UserTypeClient, "tok-ria")
	chef := testdb.CreateUser(t, db, "pim", models.UserTypeChef, "")
	resolver := NewPrincipalResolver("secret", database.NewUserStore(db))
	ctx := context.Background()

	token, err := utils.GenerateToken("secret", client.ID, "client", time.Hour)
	require.NoError(t, err)
	p, err := resolver.Resolve(ctx, token)
	require.NoError(t, err)
	req, ok := p.(Requester)
	require.True(t, ok)
	assert.Equal(t, client.ID, req.ID)
	assert.Equal(t, "ria", req.DisplayName())
	assert.Equal(t, "tok-ria", req.DeviceToken())

	// The stored account type decides the variant, not the claim.
	token, err = utils.GenerateToken("secret", chef.ID, "client", time.Hour)
	require.NoError(t, err)
	p, err = resolver.Resolve(ctx, token)
	require.NoError(t, err)
	_, ok = p.(Provider)
	assert.True(t, ok)
}

func TestResolvePrincipalErrors(t *testing.T) {
	db := testdb.Open(t)
	resolver := NewPrincipalResolver("secret", database.NewUserStore(db))
	ctx := context.Background()

	_, err := resolver.Resolve(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = resolver.Resolve(ctx, "not-a-jwt")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	forged, err := utils.GenerateToken("other", 1, "client", time.Hour)
	require.NoError(t, err)
	_, err = resolver.Resolve(ctx, forged)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	ghost, err := utils.GenerateToken("secret", 999, "client", time.Hour)
	require.NoError(t, err)
	_, err = resolver.Resolve(ctx, ghost)
	assert.ErrorIs(t, err, ErrInvalidPrincipal)
}

func TestPrincipalFromUserRejectsUnknownType(t *testing.T) {
	_, err := PrincipalFromUser(&models.User{UserType: "admin"})
	assert.ErrorIs(t, err, ErrInvalidPrincipal)
}
