package mqtt

import "fmt"

// ImageStoredTopic returns the topic a stored-image trigger is published to.
// Pattern: camera/processed/{thing_id}
func ImageStoredTopic(thingID string) string {
	return fmt.Sprintf("camera/processed/%s", thingID)
}
