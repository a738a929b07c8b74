package camera

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/woodsense/s3i-gateway/pkg/s3i"
)

// ImageValue is the payload a camera puts into a getValueReply (and into
// events): a base64-encoded jpeg plus capture metadata.
type ImageValue struct {
	Type    string
	Path    string
	TakenAt time.Time
	Image   []byte
}

// ParseImageValue validates the value map of an image-classified reply and
// decodes the jpeg bytes. Validation here is strict: the classification
// predicate already matched, so missing or mistyped fields mean the sender
// produced a broken payload.
func ParseImageValue(value map[string]any) (ImageValue, error) {
	typ, ok := value["type"].(string)
	if !ok || typ != s3i.ImageValueType {
		return ImageValue{}, &s3i.MalformedMessageError{
			Message: fmt.Sprintf("image value has wrong type %v", value["type"]),
		}
	}

	path, ok := value["path"].(string)
	if !ok || path == "" {
		return ImageValue{}, &s3i.MalformedMessageError{Message: "image value is missing path"}
	}

	// JSON numbers decode as float64
	takenAt, ok := value["takenAt"].(float64)
	if !ok {
		return ImageValue{}, &s3i.MalformedMessageError{Message: "image value is missing takenAt"}
	}

	encoded, ok := value["image"].(string)
	if !ok || encoded == "" {
		return ImageValue{}, &s3i.MalformedMessageError{Message: "image value is missing image data"}
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return ImageValue{}, &s3i.MalformedMessageError{Message: "image data is not valid base64", Err: err}
	}

	return ImageValue{
		Type:    typ,
		Path:    path,
		TakenAt: time.Unix(int64(takenAt), 0),
		Image:   raw,
	}, nil
}
