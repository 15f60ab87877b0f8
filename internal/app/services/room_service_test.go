package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/universys/universyslite/internal/app/models"
	"github.com/universys/universyslite/internal/app/models/dto"
	"github.com/universys/universyslite/internal/pkg/apperrors"
	"github.com/universys/universyslite/internal/pkg/helpers"
)

func TestBuildRoom(t *testing.T) {
	room, err := buildRoom(&dto.RoomRequest{Building: " eng ", Number: " 101 ", Capacity: 40, RoomType: "lab"})
	require.NoError(t, err)
	assert.Equal(t, "ENG", room.Building)
	assert.Equal(t, "101", room.Number)
	assert.Equal(t, models.RoomTypeLab, room.RoomType)
	assert.True(t, room.IsActive, "rooms are active unless stated")

	tests := []struct {
		name string
		req  dto.RoomRequest
	}{
		{"zero capacity", dto.RoomRequest{Building: "ENG", Number: "101", Capacity: 0, RoomType: "LECTURE"}},
		{"negative capacity", dto.RoomRequest{Building: "ENG", Number: "101", Capacity: -5, RoomType: "LECTURE"}},
		{"unknown type", dto.RoomRequest{Building: "ENG", Number: "101", Capacity: 10, RoomType: "AUDITORIUM"}},
		{"blank type", dto.RoomRequest{Building: "ENG", Number: "101", Capacity: 10, RoomType: ""}},
		{"blank building", dto.RoomRequest{Building: "  ", Number: "101", Capacity: 10, RoomType: "LAB"}},
		{"blank number", dto.RoomRequest{Building: "ENG", Number: "", Capacity: 10, RoomType: "LAB"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildRoom(&tt.req)
			assert.True(t, apperrors.Is(err, apperrors.ErrValidationFailed), "got %v", err)
		})
	}
}

func TestRoomService_BuildingNumberIsUnique(t *testing.T) {
	rooms := testRooms()
	audit := &fakeAudit{}
	svc := NewRoomService(rooms, &fakeTx{}, audit)
	ctx := context.Background()

	// ENG-101 already exists; building is matched after normalization
	_, err := svc.Create(ctx, staff, &dto.RoomRequest{Building: "eng", Number: "101", Capacity: 30, RoomType: "SEMINAR"})
	assert.ErrorIs(t, err, apperrors.ErrRoomAlreadyExists)

	created, err := svc.Create(ctx, staff, &dto.RoomRequest{Building: "SCI", Number: "101", Capacity: 30, RoomType: "SEMINAR"})
	require.NoError(t, err)
	assert.Equal(t, "SCI-101", created.Label())

	// moving ENG-102 onto ENG-101 collides; keeping its own number does not
	_, err = svc.Update(ctx, staff, 2, &dto.RoomRequest{Building: "ENG", Number: "101", Capacity: 10, RoomType: "LAB"})
	assert.ErrorIs(t, err, apperrors.ErrRoomAlreadyExists)
	_, err = svc.Update(ctx, staff, 2, &dto.RoomRequest{Building: "ENG", Number: "102", Capacity: 10, RoomType: "LAB"})
	require.NoError(t, err)

	assert.Equal(t, []string{models.AuditActionCreate, models.AuditActionUpdate}, audit.actions())
}

func TestRoomService_UpdateKeepsActiveFlagUnlessGiven(t *testing.T) {
	rooms := testRooms()
	svc := NewRoomService(rooms, &fakeTx{}, &fakeAudit{})
	ctx := context.Background()

	// room 3 is inactive and stays so when the request omits isActive
	room, err := svc.Update(ctx, staff, 3, &dto.RoomRequest{Building: "SCI", Number: "001", Capacity: 120, RoomType: "LECTURE"})
	require.NoError(t, err)
	assert.False(t, room.IsActive)
	assert.Equal(t, 120, rooms.rows[3].Capacity)

	room, err = svc.Update(ctx, staff, 3, &dto.RoomRequest{Building: "SCI", Number: "001", Capacity: 120, RoomType: "LECTURE", IsActive: boolp(true)})
	require.NoError(t, err)
	assert.True(t, room.IsActive)

	_, err = svc.Update(ctx, staff, 404, &dto.RoomRequest{Building: "X", Number: "1", Capacity: 1, RoomType: "LAB"})
	assert.ErrorIs(t, err, apperrors.ErrRoomNotFound)
	_, err = svc.Update(ctx, staff, 3, &dto.RoomRequest{Building: "SCI", Number: "001", Capacity: 0, RoomType: "LECTURE"})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestRoomService_ListAndDelete(t *testing.T) {
	rooms := testRooms()
	audit := &fakeAudit{}
	svc := NewRoomService(rooms, &fakeTx{}, audit)
	ctx := context.Background()

	list, total, err := svc.List(ctx, helpers.Page{Page: 1, Size: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, "ENG-101", list[0].Label())

	require.NoError(t, svc.Delete(ctx, staff, 2))
	assert.NotContains(t, rooms.rows, int64(2))
	assert.ErrorIs(t, svc.Delete(ctx, staff, 2), apperrors.ErrRoomNotFound)
	assert.Equal(t, []string{models.AuditActionDelete}, audit.actions())
	assert.Equal(t, "ENG-102", audit.entries[0].Metadata["room"])
}
