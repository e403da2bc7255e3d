package pagination

import "testing"

type row struct{ id string }

func TestCursorRoundTrip(t *testing.T) {
	token, err := EncodeCursor(Cursor{ID: "42", CreatedAt: "2025-01-01T00:00:00Z"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	cursor, err := DecodeCursor(token)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cursor.ID != "42" || cursor.CreatedAt != "2025-01-01T00:00:00Z" {
		t.Fatalf("unexpected cursor %+v", cursor)
	}
}

func TestBuildCursorPageInfo(t *testing.T) {
	rows := []*row{{id: "a"}, {id: "b"}, {id: "c"}}

	info := BuildCursorPageInfo(rows, 2, func(r *row) string { return r.id })
	if !info.HasMore || info.NextPageToken != "b" {
		t.Fatalf("expected more pages after b, got %+v", info)
	}

	info = BuildCursorPageInfo(rows, 3, func(r *row) string { return r.id })
	if info.HasMore || info.NextPageToken != "" {
		t.Fatalf("expected last page, got %+v", info)
	}
}
