package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/portrait-booth/internal/model"
	"github.com/iliyamo/portrait-booth/internal/repository"
)

func (f *fixture) uploadingOrder(t *testing.T, photos uint64) model.Order {
	t.Helper()
	o := f.paidOrder(t, photos)
	o, err := f.orders.StartUpload(context.Background(), operator, o.ID)
	require.NoError(t, err)
	return o
}

func TestRequestUpload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.uploadingOrder(t, 2)

	tk, err := f.items.RequestUpload(ctx, operator, o.ID, model.ModeOriginal, "IMG_1.JPG")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), tk.Remaining)
	assert.Regexp(t, `^\d{6}/original/[0-9a-f-]{36}\.jpg$`, tk.ObjectKey)

	_, err = f.items.RequestUpload(ctx, operator, o.ID, model.ModeOriginal, "notes.txt")
	assert.ErrorIs(t, err, ErrInvalidFileName)
	_, err = f.items.RequestUpload(ctx, customer, o.ID, model.ModeOriginal, "a.jpg")
	assert.ErrorIs(t, err, ErrNotAllowed)
	_, err = f.items.RequestUpload(ctx, processorA, o.ID, model.ModeProcessed, "a.jpg")
	assert.ErrorIs(t, err, ErrNotAllowed)

	f.files.failSign = true
	_, err = f.items.RequestUpload(ctx, operator, o.ID, model.ModeOriginal, "a.jpg")
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestRequestUploadWrongState(t *testing.T) {
	f := newFixture(t)
	o := f.paidOrder(t, 1)
	_, err := f.items.RequestUpload(context.Background(), operator, o.ID, model.ModeOriginal, "a.jpg")
	assert.ErrorIs(t, err, ErrStaleState)
}

func TestConfirmUploadAdvancesWhenFull(t *testing.T) {
	f := newFixture(t)
	o := f.uploadingOrder(t, 2)

	it, o, err := f.upload(t, operator, o.ID, model.ModeOriginal, "one.jpg")
	require.NoError(t, err)
	assert.Equal(t, model.StatusUploading, o.Status)
	assert.True(t, it.Uploaded)
	assert.Equal(t, "one.jpg", it.FileName)
	assert.Contains(t, it.GetURL, it.ObjectKey)

	_, o, err = f.upload(t, operator, o.ID, model.ModeOriginal, "two.jpg")
	require.NoError(t, err)
	assert.Equal(t, model.StatusUploaded, o.Status)

	_, _, err = f.upload(t, operator, o.ID, model.ModeOriginal, "three.jpg")
	assert.ErrorIs(t, err, ErrStaleState)
}

func TestConfirmUploadRejectsBadKeys(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.uploadingOrder(t, 1)
	other := f.uploadingOrder(t, 1)

	tk, err := f.items.RequestUpload(ctx, operator, other.ID, model.ModeOriginal, "a.jpg")
	require.NoError(t, err)
	f.files.put(tk.ObjectKey)
	_, _, err = f.items.ConfirmUpload(ctx, operator, o.ID, model.ModeOriginal, tk.ObjectKey, "a.jpg")
	assert.ErrorIs(t, err, ErrForeignObjectKey)

	tk, err = f.items.RequestUpload(ctx, operator, o.ID, model.ModeOriginal, "a.jpg")
	require.NoError(t, err)
	_, _, err = f.items.ConfirmUpload(ctx, operator, o.ID, model.ModeOriginal, tk.ObjectKey, "a.jpg")
	assert.ErrorIs(t, err, ErrUploadMissing)

	n, err := f.store.CountByMode(ctx, o.ID, model.ModeOriginal)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestConfirmUploadNoSlots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.uploadingOrder(t, 1)

	// two tickets issued while one slot is free; only one confirm can land
	t1, err := f.items.RequestUpload(ctx, operator, o.ID, model.ModeOriginal, "a.jpg")
	require.NoError(t, err)
	t2, err := f.items.RequestUpload(ctx, operator, o.ID, model.ModeOriginal, "b.jpg")
	require.NoError(t, err)
	f.files.put(t1.ObjectKey)
	f.files.put(t2.ObjectKey)

	_, o, err = f.items.ConfirmUpload(ctx, operator, o.ID, model.ModeOriginal, t1.ObjectKey, "a.jpg")
	require.NoError(t, err)
	assert.Equal(t, model.StatusUploaded, o.Status)

	// reopen so the status check passes and the slot guard is what refuses
	_, err = f.orders.StartUpload(ctx, operator, o.ID)
	require.NoError(t, err)
	_, _, err = f.items.ConfirmUpload(ctx, operator, o.ID, model.ModeOriginal, t2.ObjectKey, "b.jpg")
	assert.ErrorIs(t, err, ErrNoSlotsRemaining)
}

func TestConfirmUploadTwiceKeepsCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.uploadingOrder(t, 2)

	tk, err := f.items.RequestUpload(ctx, operator, o.ID, model.ModeOriginal, "a.jpg")
	require.NoError(t, err)
	f.files.put(tk.ObjectKey)

	_, o, err = f.items.ConfirmUpload(ctx, operator, o.ID, model.ModeOriginal, tk.ObjectKey, "a.jpg")
	require.NoError(t, err)
	assert.Equal(t, model.StatusUploading, o.Status)

	_, _, err = f.items.ConfirmUpload(ctx, operator, o.ID, model.ModeOriginal, tk.ObjectKey, "a.jpg")
	assert.ErrorIs(t, err, ErrDuplicateUpload)
	assert.ErrorIs(t, err, ErrStaleState)

	n, err := f.store.CountByMode(ctx, o.ID, model.ModeOriginal)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
	assert.Equal(t, model.StatusUploading, f.status(t, o.ID))
}

func TestDeleteItemReopensTrack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.uploadingOrder(t, 1)

	it, o, err := f.upload(t, operator, o.ID, model.ModeOriginal, "a.jpg")
	require.NoError(t, err)
	require.Equal(t, model.StatusUploaded, o.Status)

	_, err = f.items.DeleteItem(ctx, cashier, it.ID)
	assert.ErrorIs(t, err, ErrNotAllowed)

	o, err = f.items.DeleteItem(ctx, operator, it.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusUploading, o.Status)
	assert.Equal(t, []string{it.ObjectKey}, f.files.removed)

	_, err = f.items.DeleteItem(ctx, operator, it.ID)
	assert.ErrorIs(t, err, repository.ErrItemNotFound)
}

func TestProcessedTrackBelongsToClaimant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.uploadedOrder(t, 1)
	_, err := f.orders.FetchForProcessor(ctx, processorA)
	require.NoError(t, err)

	_, err = f.items.RequestUpload(ctx, processorB, o.ID, model.ModeProcessed, "a.jpg")
	assert.ErrorIs(t, err, ErrNotAllowed)
	_, err = f.items.RequestUpload(ctx, manager, o.ID, model.ModeProcessed, "a.jpg")
	assert.ErrorIs(t, err, ErrNotAllowed)

	it, o, err := f.upload(t, processorA, o.ID, model.ModeProcessed, "a.jpg")
	require.NoError(t, err)
	assert.Equal(t, model.StatusProcessed, o.Status)

	o, err = f.items.DeleteItem(ctx, processorA, it.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProcess, o.Status)
}

func TestListItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.uploadedOrder(t, 2)

	items, err := f.items.ListItems(ctx, operator, o.ID, model.ModeOriginal)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Less(t, items[0].ID, items[1].ID)

	_, err = f.items.ListItems(ctx, customer, o.ID, model.ModeProcessed)
	assert.ErrorIs(t, err, ErrNotAllowed)
}
