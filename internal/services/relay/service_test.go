package relay

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/duelpit/duelserver/internal/dependencies/mocks"
	"github.com/duelpit/duelserver/internal/model"
	"github.com/duelpit/duelserver/internal/services/room"
	"github.com/duelpit/duelserver/internal/storage/memory"
	"github.com/duelpit/duelserver/internal/testutil"
)

type ServiceSuite struct {
	suite.Suite
	rooms   *room.Controller
	service *Service
	ctx     context.Context
	roomID  model.RoomID
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	store := memory.New()
	clk := mocks.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	rnd := mocks.NewMockRandom()
	rnd.QueueString("AB12CD")
	logger := testutil.NopLogger()

	s.rooms = room.NewController(store, clk, rnd, logger)
	s.service = New(s.rooms, logger)
	s.ctx = context.Background()

	r, err := s.rooms.Create(s.ctx, "conn-a")
	s.Require().NoError(err)
	s.roomID = r.ID
}

func (s *ServiceSuite) joinAndStart() {
	_, _, err := s.rooms.Join(s.ctx, s.roomID, "conn-b")
	s.Require().NoError(err)
	_, err = s.rooms.Update(s.ctx, s.roomID, func(r *model.Room) error {
		r.Phase = model.PhaseInProgress
		return nil
	})
	s.Require().NoError(err)
}

func (s *ServiceSuite) TestPeerForwardsToOtherOccupant() {
	s.joinAndStart()

	peer, ok, err := s.service.Peer(s.ctx, s.roomID, "conn-a")
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(model.ConnID("conn-b"), peer)

	peer, ok, err = s.service.Peer(s.ctx, s.roomID, "conn-b")
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(model.ConnID("conn-a"), peer)
}

func (s *ServiceSuite) TestPeerDropsWhenSolo() {
	_, err := s.rooms.Update(s.ctx, s.roomID, func(r *model.Room) error {
		r.Phase = model.PhaseInProgress
		return nil
	})
	s.Require().NoError(err)

	_, ok, err := s.service.Peer(s.ctx, s.roomID, "conn-a")
	s.Require().NoError(err)
	s.False(ok)
}

func (s *ServiceSuite) TestPeerDropsWhenNotInProgress() {
	_, _, err := s.rooms.Join(s.ctx, s.roomID, "conn-b")
	s.Require().NoError(err)

	_, ok, err := s.service.Peer(s.ctx, s.roomID, "conn-a")
	s.Require().NoError(err)
	s.False(ok)
}

func (s *ServiceSuite) TestPeerFailsForOutsiderSender() {
	s.joinAndStart()

	_, _, err := s.service.Peer(s.ctx, s.roomID, "conn-z")
	s.ErrorIs(err, model.ErrNotInRoom)
}

func (s *ServiceSuite) TestPeerFailsWhenRoomGone() {
	_, _, err := s.service.Peer(s.ctx, "NOSUCH", "conn-a")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *ServiceSuite) TestOccupantsReturnsBoth() {
	s.joinAndStart()

	occupants, ok, err := s.service.Occupants(s.ctx, s.roomID, "conn-b")
	s.Require().NoError(err)
	s.True(ok)
	s.Equal([]model.ConnID{"conn-a", "conn-b"}, occupants)
}

func (s *ServiceSuite) TestOccupantsDropsWhenNotInProgress() {
	_, _, err := s.rooms.Join(s.ctx, s.roomID, "conn-b")
	s.Require().NoError(err)

	_, ok, err := s.service.Occupants(s.ctx, s.roomID, "conn-a")
	s.Require().NoError(err)
	s.False(ok)
}
