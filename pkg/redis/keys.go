package redis

import "fmt"

// Key construction helpers for the gateway's status schema

// DrainStatusKey returns the key for drain status of a thing (hash)
// Pattern: drain:status:{thing_id}
func DrainStatusKey(thingID string) string {
	return fmt.Sprintf("drain:status:%s", thingID)
}

// HeartbeatKey returns the key for an agent's heartbeat (string)
// Pattern: agent:heartbeat:{service_name}
func HeartbeatKey(serviceName string) string {
	return fmt.Sprintf("agent:heartbeat:%s", serviceName)
}
