package models

import (
	"fmt"
	"strings"
)

// ItemType discriminates the two purchasable content units.
type ItemType string

const (
	ItemTypeSeason  ItemType = "SEASON"
	ItemTypeEpisode ItemType = "EPISODE"
)

// Valid reports whether the item type is SEASON or EPISODE.
func (t ItemType) Valid() bool {
	return t == ItemTypeSeason || t == ItemTypeEpisode
}

// ContentRef identifies a season or an episode. The zero value is not a
// valid reference; build one through SeasonRef, EpisodeRef or ParseContentRef.
type ContentRef struct {
	kind ItemType
	id   string
}

// SeasonRef references a season by id.
func SeasonRef(id string) ContentRef {
	return ContentRef{kind: ItemTypeSeason, id: id}
}

// EpisodeRef references an episode by id.
func EpisodeRef(id string) ContentRef {
	return ContentRef{kind: ItemTypeEpisode, id: id}
}

// ParseContentRef validates a persisted or client supplied (item_type, item_id) pair.
func ParseContentRef(itemType, itemID string) (ContentRef, error) {
	kind := ItemType(strings.ToUpper(strings.TrimSpace(itemType)))
	if !kind.Valid() {
		return ContentRef{}, fmt.Errorf("invalid item type %q", itemType)
	}
	id := strings.TrimSpace(itemID)
	if id == "" {
		return ContentRef{}, fmt.Errorf("item id is required")
	}
	return ContentRef{kind: kind, id: id}, nil
}

func (r ContentRef) Type() ItemType { return r.kind }

func (r ContentRef) ID() string { return r.id }

func (r ContentRef) IsSeason() bool { return r.kind == ItemTypeSeason }

func (r ContentRef) IsEpisode() bool { return r.kind == ItemTypeEpisode }

// IsZero reports whether the reference was never initialised.
func (r ContentRef) IsZero() bool { return r.kind == "" }

func (r ContentRef) String() string {
	return string(r.kind) + ":" + r.id
}
