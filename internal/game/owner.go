package game

import (
	"encoding/json"
	"fmt"
)

// RebelOwnerID is the wire form of a rebel-owned cell.
const RebelOwnerID = "rebel"

// OwnerKind discriminates who holds a cell.
type OwnerKind uint8

const (
	OwnerNone OwnerKind = iota
	OwnerPlayer
	OwnerRebel
)

// Owner is the holder of a grid cell: nobody, a player, or the rebel faction.
// It encodes to JSON as null, the player id, or "rebel".
type Owner struct {
	Kind     OwnerKind
	PlayerID string
}

// NoOwner returns the unowned value.
func NoOwner() Owner { return Owner{} }

// PlayerOwner returns an owner for the given player.
func PlayerOwner(id string) Owner { return Owner{Kind: OwnerPlayer, PlayerID: id} }

// RebelOwner returns the rebel faction owner.
func RebelOwner() Owner { return Owner{Kind: OwnerRebel} }

func (o Owner) IsNone() bool  { return o.Kind == OwnerNone }
func (o Owner) IsRebel() bool { return o.Kind == OwnerRebel }

// IsPlayer reports whether the owner is the player with the given id.
func (o Owner) IsPlayer(id string) bool {
	return o.Kind == OwnerPlayer && o.PlayerID == id
}

// IsEnemyOf reports whether o is a non-empty owner other than the given player.
func (o Owner) IsEnemyOf(playerID string) bool {
	switch o.Kind {
	case OwnerRebel:
		return true
	case OwnerPlayer:
		return o.PlayerID != playerID
	default:
		return false
	}
}

func (o Owner) String() string {
	switch o.Kind {
	case OwnerPlayer:
		return o.PlayerID
	case OwnerRebel:
		return RebelOwnerID
	default:
		return "none"
	}
}

// MarshalJSON implements json.Marshaler.
func (o Owner) MarshalJSON() ([]byte, error) {
	switch o.Kind {
	case OwnerPlayer:
		return json.Marshal(o.PlayerID)
	case OwnerRebel:
		return json.Marshal(RebelOwnerID)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *Owner) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = NoOwner()
		return nil
	}
	var id string
	if err := json.Unmarshal(data, &id); err != nil {
		return fmt.Errorf("decode owner: %w", err)
	}
	switch id {
	case "":
		*o = NoOwner()
	case RebelOwnerID:
		*o = RebelOwner()
	default:
		*o = PlayerOwner(id)
	}
	return nil
}
