package domain

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func available(id int64, number int) Ticket {
	return Ticket{ID: snowflake.ID(id), Number: number, Status: TicketStatusAvailable}
}

func TestSelectionToggle(t *testing.T) {
	sel := NewSelection(2)

	require.NoError(t, sel.Toggle(available(1, 1005)))
	require.NoError(t, sel.Toggle(available(2, 1001)))
	assert.Equal(t, 2, sel.Len())
	assert.Equal(t, []int{1001, 1005}, sel.Numbers())
	assert.Equal(t, []snowflake.ID{1, 2}, sel.IDs())

	assert.ErrorIs(t, sel.Toggle(available(3, 1002)), ErrSelectionLimitReached)

	require.NoError(t, sel.Toggle(available(1, 1005)))
	assert.False(t, sel.Contains(1))
	assert.Equal(t, []snowflake.ID{2}, sel.IDs())
}

func TestSelectionRefusesTakenTickets(t *testing.T) {
	sel := NewSelection(0)
	assert.Equal(t, DefaultSelectionMax, sel.Max())

	reserved := Ticket{ID: 9, Number: 1009, Status: TicketStatusReserved}
	assert.ErrorIs(t, sel.Toggle(reserved), ErrTicketNotAvailable)
	assert.Equal(t, 0, sel.Len())
}

func TestSelectionAddStopsAtLimit(t *testing.T) {
	sel := NewSelection(3)
	added := sel.Add(available(1, 1001), available(1, 1001), available(2, 1002), available(3, 1003), available(4, 1004))
	assert.Equal(t, 3, added)
	assert.Len(t, sel.Tickets(), 3)

	sel.Clear()
	assert.Equal(t, 0, sel.Len())
	assert.Empty(t, sel.Numbers())
}

func TestParseIDs(t *testing.T) {
	_, err := ParseIDs(nil)
	assert.ErrorIs(t, err, ErrNoTickets)

	_, err = ParseIDs([]string{"12", "abc"})
	assert.ErrorIs(t, err, ErrInvalidID)

	_, err = ParseIDs([]string{"0"})
	assert.ErrorIs(t, err, ErrInvalidID)

	ids, err := ParseIDs([]string{" 12", "13", "12"})
	require.NoError(t, err)
	assert.Equal(t, []snowflake.ID{12, 13}, ids)
	assert.Equal(t, []string{"12", "13"}, IDStrings(ids))
}

func TestTicketStatusValid(t *testing.T) {
	assert.True(t, TicketStatusPurchased.Valid())
	assert.False(t, TicketStatus("sold").Valid())
}
