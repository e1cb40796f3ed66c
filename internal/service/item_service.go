package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/iliyamo/portrait-booth/internal/model"
	"github.com/iliyamo/portrait-booth/internal/repository"
	"github.com/iliyamo/portrait-booth/internal/storage"
)

// UploadTicket is handed to the client before an upload.  The client PUTs
// the file to PutURL and then confirms with ObjectKey and FileName.
type UploadTicket struct {
	OrderID   uint64         `json:"order_id"`
	Mode      model.ItemMode `json:"mode"`
	FileName  string         `json:"file_name"`
	ObjectKey string         `json:"object_key"`
	PutURL    string         `json:"put_url"`
	Remaining uint64         `json:"remaining"`
}

// ItemService tracks the originals and processed photos of an order.
type ItemService struct {
	Orders  OrderStore
	Items   ItemStore
	Storage Presigner
}

func NewItemService(orders OrderStore, items ItemStore, presigner Presigner) *ItemService {
	if orders == nil || items == nil || presigner == nil {
		panic("service: nil dependency passed to NewItemService")
	}
	return &ItemService{Orders: orders, Items: items, Storage: presigner}
}

// fillingStatus is the order status in which a track accepts uploads.
func fillingStatus(mode model.ItemMode) model.OrderStatus {
	if mode == model.ModeProcessed {
		return model.StatusInProcess
	}
	return model.StatusUploading
}

func fullStatus(mode model.ItemMode) model.OrderStatus {
	if mode == model.ModeProcessed {
		return model.StatusProcessed
	}
	return model.StatusUploaded
}

// mayEdit checks that actor may change the mode track of o.  Originals
// belong to operators; processed photos to the processor holding the claim.
func mayEdit(actor model.User, o model.Order, mode model.ItemMode) error {
	switch mode {
	case model.ModeOriginal:
		return allowed(actor, model.ActionUploadOriginal)
	case model.ModeProcessed:
		if err := allowed(actor, model.ActionProcess); err != nil {
			return err
		}
		if !o.ClaimedBy(actor.ID) {
			return ErrNotAllowed
		}
		return nil
	}
	return ErrNotAllowed
}

func (s *ItemService) editableOrder(ctx context.Context, actor model.User, orderID uint64, mode model.ItemMode) (model.Order, error) {
	o, err := s.Orders.GetByID(ctx, orderID)
	if err != nil {
		return model.Order{}, err
	}
	if err := mayEdit(actor, o, mode); err != nil {
		return model.Order{}, err
	}
	if o.Status != fillingStatus(mode) {
		return model.Order{}, ErrStaleState
	}
	return o, nil
}

// Remaining returns how many more photos the track of o can take.
func (s *ItemService) Remaining(ctx context.Context, o model.Order, mode model.ItemMode) (uint64, error) {
	n, err := s.Items.CountByMode(ctx, o.ID, mode)
	if err != nil {
		return 0, err
	}
	if n >= o.NoOfPhotos {
		return 0, nil
	}
	return o.NoOfPhotos - n, nil
}

// RequestUpload validates the file name and returns a signed PUT URL for a
// fresh object key.  Nothing is written until the upload is confirmed.
func (s *ItemService) RequestUpload(ctx context.Context, actor model.User, orderID uint64, mode model.ItemMode, fileName string) (UploadTicket, error) {
	o, err := s.editableOrder(ctx, actor, orderID, mode)
	if err != nil {
		return UploadTicket{}, err
	}
	ext, err := storage.Extension(fileName)
	if err != nil {
		return UploadTicket{}, ErrInvalidFileName
	}
	left, err := s.Remaining(ctx, o, mode)
	if err != nil {
		return UploadTicket{}, err
	}
	if left == 0 {
		return UploadTicket{}, ErrNoSlotsRemaining
	}
	key := storage.ObjectKey(o.ID, mode, ext)
	put, err := s.Storage.PresignPut(ctx, key)
	if err != nil {
		return UploadTicket{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return UploadTicket{
		OrderID:   o.ID,
		Mode:      mode,
		FileName:  fileName,
		ObjectKey: key,
		PutURL:    put,
		Remaining: left,
	}, nil
}

// ConfirmUpload records an object the client has finished uploading.  The
// insert only succeeds while the track has room, and the upload that fills
// the last slot advances the order (Uploading to Uploaded, InProcess to
// Processed).
func (s *ItemService) ConfirmUpload(ctx context.Context, actor model.User, orderID uint64, mode model.ItemMode, objectKey, fileName string) (model.OrderItem, model.Order, error) {
	o, err := s.editableOrder(ctx, actor, orderID, mode)
	if err != nil {
		return model.OrderItem{}, model.Order{}, err
	}
	if _, err := storage.Extension(fileName); err != nil {
		return model.OrderItem{}, model.Order{}, ErrInvalidFileName
	}
	if !storage.BelongsTo(objectKey, o.ID, mode) {
		return model.OrderItem{}, model.Order{}, ErrForeignObjectKey
	}
	exists, err := s.Storage.Exists(ctx, objectKey)
	if err != nil {
		return model.OrderItem{}, model.Order{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if !exists {
		return model.OrderItem{}, model.Order{}, ErrUploadMissing
	}
	get, err := s.Storage.PresignGet(ctx, objectKey, fileName)
	if err != nil {
		return model.OrderItem{}, model.Order{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	put, err := s.Storage.PresignPut(ctx, objectKey)
	if err != nil {
		return model.OrderItem{}, model.Order{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	id, ok, err := s.Items.InsertIfRoom(ctx, model.OrderItem{
		OrderID:   o.ID,
		Mode:      mode,
		FileName:  fileName,
		ObjectKey: objectKey,
		GetURL:    get,
		PutURL:    put,
	})
	if errors.Is(err, repository.ErrItemExists) {
		return model.OrderItem{}, model.Order{}, ErrDuplicateUpload
	}
	if err != nil {
		return model.OrderItem{}, model.Order{}, err
	}
	if !ok {
		return model.OrderItem{}, model.Order{}, ErrNoSlotsRemaining
	}
	advanced, err := s.Orders.AdvanceIfComplete(ctx, o.ID, mode)
	if err != nil {
		return model.OrderItem{}, model.Order{}, err
	}
	if advanced {
		log.Printf("order %d: %s photos complete, now %s", o.ID, mode.PathSegment(), fullStatus(mode))
	}
	item, err := s.Items.GetItem(ctx, id)
	if err != nil {
		return model.OrderItem{}, model.Order{}, err
	}
	o, err = s.Orders.GetByID(ctx, o.ID)
	return item, o, err
}

// DeleteItem removes an uploaded photo.  Removing one from a full track
// reopens it (Uploaded to Uploading, Processed to InProcess).  The stored
// object is removed best effort.
func (s *ItemService) DeleteItem(ctx context.Context, actor model.User, itemID uint64) (model.Order, error) {
	it, err := s.Items.GetItem(ctx, itemID)
	if err != nil {
		return model.Order{}, err
	}
	o, err := s.Orders.GetByID(ctx, it.OrderID)
	if err != nil {
		return model.Order{}, err
	}
	if err := mayEdit(actor, o, it.Mode); err != nil {
		return model.Order{}, err
	}
	if o.Status != fillingStatus(it.Mode) && o.Status != fullStatus(it.Mode) {
		return model.Order{}, ErrStaleState
	}
	ok, err := s.Items.DeleteItem(ctx, itemID)
	if err != nil {
		return model.Order{}, err
	}
	if !ok {
		return model.Order{}, repository.ErrItemNotFound
	}
	if err := s.Storage.Remove(ctx, it.ObjectKey); err != nil {
		log.Printf("item %d: remove object %s failed: %v", it.ID, it.ObjectKey, err)
	}
	if _, err := s.Orders.RevertIfIncomplete(ctx, o.ID, it.Mode); err != nil {
		return model.Order{}, err
	}
	return s.Orders.GetByID(ctx, o.ID)
}

// ListItems returns the photos of one track with freshly signed download
// links.  Staff see both tracks; a customer sees the processed photos of
// their own order once it is ready for delivery.
func (s *ItemService) ListItems(ctx context.Context, actor model.User, orderID uint64, mode model.ItemMode) ([]model.OrderItem, error) {
	o, err := s.Orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	delivered := mode == model.ModeProcessed && o.OwnedBy(actor.ID) && o.Status == model.StatusReadyForDelivery
	if !actor.Role.IsStaff() && !delivered {
		return nil, ErrNotAllowed
	}
	items, err := s.Items.ListByOrder(ctx, orderID, mode)
	if err != nil {
		return nil, err
	}
	for i := range items {
		get, err := s.Storage.PresignGet(ctx, items[i].ObjectKey, items[i].FileName)
		if err != nil {
			log.Printf("item %d: refresh link failed: %v", items[i].ID, err)
			continue
		}
		items[i].GetURL = get
	}
	return items, nil
}

// IsNotFound reports whether err means the requested order, item or user
// does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, repository.ErrOrderNotFound) ||
		errors.Is(err, repository.ErrItemNotFound) ||
		errors.Is(err, repository.ErrUserNotFound)
}
