package redis

import (
	"fmt"

	"github.com/duelpit/duelserver/internal/model"
)

// Key prefix for all duelserver data
const keyPrefix = "duel"

// accountKey returns the Redis key for an Account record
func accountKey(username string) string {
	return fmt.Sprintf("%s:account:%s", keyPrefix, username)
}

// winsKey returns the Redis key of the ZSET ranking usernames by wins
func winsKey() string {
	return fmt.Sprintf("%s:wins", keyPrefix)
}

// roomKey returns the Redis key for a Room
func roomKey(id model.RoomID) string {
	return fmt.Sprintf("%s:room:%s", keyPrefix, id)
}

// connRoomKey returns the Redis key for the connection -> room index entry
func connRoomKey(conn model.ConnID) string {
	return fmt.Sprintf("%s:idx:conn_room:%s", keyPrefix, conn)
}
