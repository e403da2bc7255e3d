package domain

import (
	"strings"

	"github.com/bwmarrin/snowflake"
)

// ParseIDs parses ticket ids, rejecting empty lists. Duplicates are dropped.
func ParseIDs(values []string) ([]snowflake.ID, error) {
	if len(values) == 0 {
		return nil, ErrNoTickets
	}
	seen := make(map[snowflake.ID]struct{}, len(values))
	ids := make([]snowflake.ID, 0, len(values))
	for _, value := range values {
		id, err := snowflake.ParseString(strings.TrimSpace(value))
		if err != nil || id == 0 {
			return nil, ErrInvalidID
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

// IDStrings formats ids in their JSON form.
func IDStrings(ids []snowflake.ID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}
