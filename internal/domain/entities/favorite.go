package entities

import (
	"encoding/json"
	"errors"
	"time"
)

// Favorite is a user's pinned HCPCS code. Description and RVU are looked up
// from the reference catalog, the backend only stores the code.
type Favorite struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	HCPCS     string     `json:"hcpcs"`
	SortOrder int        `json:"sort_order"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	GroupID   *int       `json:"group_id,omitempty"`
}

type favoriteWire struct {
	ID        FlexibleID `json:"id"`
	UserID    FlexibleID `json:"user_id"`
	HCPCS     *string    `json:"hcpcs"`
	SortOrder int        `json:"sort_order"`
	CreatedAt *string    `json:"created_at"`
	GroupID   *int       `json:"group_id"`
}

// UnmarshalJSON accepts numeric ids and requires hcpcs.
func (f *Favorite) UnmarshalJSON(data []byte) error {
	var w favoriteWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.ID == "" {
		return errors.New("favorite: missing id")
	}
	if w.HCPCS == nil {
		return errors.New("favorite: missing hcpcs")
	}

	*f = Favorite{
		ID:        string(w.ID),
		UserID:    string(w.UserID),
		HCPCS:     *w.HCPCS,
		SortOrder: w.SortOrder,
		CreatedAt: parseTimestamp(w.CreatedAt),
		GroupID:   w.GroupID,
	}
	return nil
}

// FavoriteOrder assigns a sort position to a favorited code.
type FavoriteOrder struct {
	HCPCS     string `json:"hcpcs"`
	SortOrder int    `json:"sort_order"`
}

// FavoriteEntry is a favorite resolved against the reference catalog.
// Known is false when the catalog has no row for the code.
type FavoriteEntry struct {
	Favorite
	Description string  `json:"description"`
	StatusCode  string  `json:"status_code"`
	WorkRVU     float64 `json:"work_rvu"`
	Known       bool    `json:"known"`
}
