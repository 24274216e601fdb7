package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMembershipTable_JoinIdempotent(t *testing.T) {
	table := NewMembershipTable()

	assert.True(t, table.Join("r1", "c1"))
	assert.False(t, table.Join("r1", "c1"), "second join is a no-op")

	assert.Equal(t, []string{"c1"}, table.MembersOf("r1"))
}

func TestMembershipTable_LeaveNonMember(t *testing.T) {
	table := NewMembershipTable()

	assert.False(t, table.Leave("r1", "c1"))

	table.Join("r1", "c1")
	assert.True(t, table.Leave("r1", "c1"))
	assert.Empty(t, table.MembersOf("r1"))
}

func TestMembershipTable_LeaveAll(t *testing.T) {
	table := NewMembershipTable()

	table.Join("r1", "c1")
	table.Join("r2", "c1")
	table.Join("r1", "c2")

	left := table.LeaveAll("c1")
	assert.ElementsMatch(t, []string{"r1", "r2"}, left)

	assert.False(t, table.IsMember("r1", "c1"))
	assert.False(t, table.IsMember("r2", "c1"))
	assert.True(t, table.IsMember("r1", "c2"))
	assert.Empty(t, table.RoomsOf("c1"))

	assert.Nil(t, table.LeaveAll("c1"), "second leaveAll finds nothing")
}

func TestMembershipTable_RoomsOf(t *testing.T) {
	table := NewMembershipTable()

	table.Join("r1", "c1")
	table.Join("r2", "c1")

	assert.ElementsMatch(t, []string{"r1", "r2"}, table.RoomsOf("c1"))
	assert.Empty(t, table.RoomsOf("c2"))
}
