package fetcher

import (
	"context"

	"github.com/woodsense/s3i-gateway/internal/camera"
	"github.com/woodsense/s3i-gateway/pkg/s3i"
)

// storeImageHandler decodes image replies and persists them through the
// camera storage.
type storeImageHandler struct {
	store *camera.Storage
}

// NewStoreImageHandler creates an ImageHandler backed by the camera storage.
func NewStoreImageHandler(store *camera.Storage) ImageHandler {
	return &storeImageHandler{store: store}
}

func (h *storeImageHandler) HandleImage(ctx context.Context, env s3i.Envelope) (camera.ImageValue, error) {
	img, err := camera.ParseImageValue(env.Reply.Value)
	if err != nil {
		return camera.ImageValue{}, err
	}
	if err := h.store.Store(ctx, env.Sender, env.Identifier, img); err != nil {
		return camera.ImageValue{}, err
	}
	return img, nil
}
