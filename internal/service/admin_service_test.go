package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/portrait-booth/internal/model"
	"github.com/iliyamo/portrait-booth/internal/repository"
)

func TestSettingsNeedManager(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.admin.SetOrderCreation(ctx, cashier, false)
	assert.ErrorIs(t, err, ErrNotAllowed)

	st, err := f.admin.GetSetting(ctx, manager, model.SettingAllowOrderCreation)
	require.NoError(t, err)
	assert.True(t, st.IsTrue())

	st, err = f.admin.SetOrderCreation(ctx, manager, false)
	require.NoError(t, err)
	assert.Equal(t, "0", st.Value)
	open, err := f.orders.OrderCreationAllowed(ctx)
	require.NoError(t, err)
	assert.False(t, open)
}

func TestReportsNeedManager(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, u := range []model.User{customer, cashier, operator, processorA} {
		_, err := f.admin.OrdersByStatus(ctx, u)
		assert.ErrorIs(t, err, ErrNotAllowed)
		_, err = f.admin.CollectionByStaff(ctx, u)
		assert.ErrorIs(t, err, ErrNotAllowed)
		_, err = f.admin.OrdersByProcessor(ctx, u)
		assert.ErrorIs(t, err, ErrNotAllowed)
	}
}

func TestChangeRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.admin.ChangeRole(ctx, cashier, stranger.ID, model.RoleOperator)
	assert.ErrorIs(t, err, ErrNotAllowed)
	_, err = f.admin.ChangeRole(ctx, manager, manager.ID, model.RoleCustomer)
	assert.ErrorIs(t, err, ErrNotAllowed)
	_, err = f.admin.ChangeRole(ctx, manager, stranger.ID, model.RoleAnonymous)
	assert.ErrorIs(t, err, ErrInvalidRole)
	_, err = f.admin.ChangeRole(ctx, manager, 404, model.RoleCashier)
	assert.ErrorIs(t, err, repository.ErrUserNotFound)

	u, err := f.admin.ChangeRole(ctx, manager, stranger.ID, model.RoleCashier)
	require.NoError(t, err)
	assert.Equal(t, model.RoleCashier, u.Role)
	assert.Equal(t, []uint64{stranger.ID}, f.users.revoked)

	staff, err := f.admin.ListStaff(ctx, manager)
	require.NoError(t, err)
	ids := []uint64{}
	for _, s := range staff {
		ids = append(ids, s.ID)
	}
	assert.Contains(t, ids, stranger.ID)

	found, err := f.admin.FindUser(ctx, manager, "  SAM@example.com ")
	require.NoError(t, err)
	assert.Equal(t, stranger.ID, found.ID)
}
