package pkg

type EventType string

const (
	EventTypePlayerJoined EventType = "player_joined"
	EventTypePlayerLeft   EventType = "player_left"
	EventTypeGameStart    EventType = "game_start"
)
