package response

import (
	"time"

	"github.com/mcoot/shapesync/internal/model"
)

// Player represents a player record in API responses
type Player struct {
	ID       model.StableID `json:"id"`
	Name     string         `json:"name"`
	Position model.Vec2     `json:"position"`
	Shape    model.Shape    `json:"shape"`
	Online   bool           `json:"online"`
	LastSeen time.Time      `json:"last_seen"`
}

// PlayerFromModel converts a model.PlayerRecord to a response Player
func PlayerFromModel(p *model.PlayerRecord) Player {
	return Player{
		ID:       p.ID,
		Name:     p.Name,
		Position: p.Position,
		Shape:    p.Shape,
		Online:   p.Online(),
		LastSeen: p.LastSeen,
	}
}

// PlayerList is the response for the player listing
type PlayerList struct {
	Players []Player `json:"players"`
	Online  int      `json:"online"`
}

// PlayerListFromModel converts a set of records
func PlayerListFromModel(players []*model.PlayerRecord) PlayerList {
	list := PlayerList{Players: make([]Player, len(players))}
	for i, p := range players {
		list.Players[i] = PlayerFromModel(p)
		if p.Online() {
			list.Online++
		}
	}
	return list
}

// Health is the response for the health check
type Health struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
	Spectators  int    `json:"spectators"`
}
