package redis

import "fmt"

const keyPrefix = "mathbubble"

// profileKey returns the Redis key holding a profile document.
func profileKey(userID string) string {
	return fmt.Sprintf("%s:profile:%s", keyPrefix, userID)
}

// scoreIndexKey returns the Redis key for the ZSET ordering profiles by score.
func scoreIndexKey() string {
	return fmt.Sprintf("%s:idx:score", keyPrefix)
}
