package core

// EventKey names a channel on a pubsub bus.
type EventKey string

// Configuration events.
const (
	EventConfigurationChanged EventKey = "configuration_changed"
)

// Security events.
const (
	EventAPIRequestUnauthorized EventKey = "api_request_unauthorized"
	EventExcludeAuthUser        EventKey = "exclude_auth_user"
	EventNewUserAuth            EventKey = "new_user_auth"
	EventNoAuthUserStored       EventKey = "no_auth_user_stored"
)

// Room events.
const (
	EventRoomDataChanged     EventKey = "room_data_changed"
	EventRoomMetadataChanged EventKey = "room_metadata_changed"
)

// Notification events.
const (
	EventNewWebToastDispatched EventKey = "new_web_toast_dispatched"
	EventWebToastDismissed     EventKey = "web_toast_dismissed"
)
