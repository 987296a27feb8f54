package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/duelpit/duelserver/internal/connreg"
	"github.com/duelpit/duelserver/internal/dependencies/mocks"
	"github.com/duelpit/duelserver/internal/model"
	"github.com/duelpit/duelserver/internal/services/account"
	"github.com/duelpit/duelserver/internal/services/match"
	"github.com/duelpit/duelserver/internal/services/room"
	"github.com/duelpit/duelserver/internal/storage/memory"
	"github.com/duelpit/duelserver/internal/testutil"
)

type ManagerSuite struct {
	suite.Suite
	clock    *mocks.MockClock
	rooms    *room.Controller
	match    *match.Controller
	accounts *account.Service
	conns    *connreg.Registry
	manager  *Manager
	ctx      context.Context
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func (s *ManagerSuite) SetupTest() {
	store := memory.New()
	s.clock = mocks.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	rnd := mocks.NewMockRandom()
	rnd.QueueString("AB12CD")
	logger := testutil.NopLogger()

	s.rooms = room.NewController(store, s.clock, rnd, logger)
	s.match = match.NewController(s.rooms, logger)
	s.accounts = account.New(store, s.clock, logger)
	s.conns = connreg.New()
	s.manager = NewManager(s.rooms, s.match, s.accounts, s.conns, s.clock, logger)
	s.ctx = context.Background()
}

// setupMatch registers two players, binds them, and runs the handshake
// through to an in-progress match in room AB12CD.
func (s *ManagerSuite) setupMatch() {
	s.Require().NoError(s.accounts.Register(s.ctx, "astrid", "pw"))
	s.Require().NoError(s.accounts.Register(s.ctx, "bjorn", "pw"))
	s.conns.Bind("conn-a", "astrid")
	s.conns.Bind("conn-b", "bjorn")

	_, err := s.rooms.Create(s.ctx, "conn-a")
	s.Require().NoError(err)
	_, _, err = s.rooms.Join(s.ctx, "AB12CD", "conn-b")
	s.Require().NoError(err)
	_, err = s.match.SelectArena(s.ctx, "AB12CD", "conn-a", 0)
	s.Require().NoError(err)
	_, err = s.match.SelectCharacter(s.ctx, "AB12CD", "conn-a", 0)
	s.Require().NoError(err)
	_, err = s.match.SelectCharacter(s.ctx, "AB12CD", "conn-b", 1)
	s.Require().NoError(err)
	_, err = s.match.Ready(s.ctx, "AB12CD", "conn-a")
	s.Require().NoError(err)
	_, err = s.match.Ready(s.ctx, "AB12CD", "conn-b")
	s.Require().NoError(err)
}

// Disconnect tests

func (s *ManagerSuite) TestDisconnectWithoutRoomIsNoop() {
	s.conns.Bind("conn-a", "astrid")

	result, err := s.manager.Disconnect(s.ctx, "conn-a")
	s.Require().NoError(err)
	s.False(result.HadRoom)

	// The player binding is dropped regardless
	_, ok := s.conns.Username("conn-a")
	s.False(ok)
}

func (s *ManagerSuite) TestDisconnectNotifiesPeer() {
	s.setupMatch()

	result, err := s.manager.Disconnect(s.ctx, "conn-a")
	s.Require().NoError(err)

	s.True(result.HadRoom)
	s.False(result.RoomDeleted)
	s.Equal(model.RoomID("AB12CD"), result.RoomID)
	s.Equal(model.ConnID("conn-b"), result.Peer)
}

func (s *ManagerSuite) TestDisconnectLastOccupantDeletesRoom() {
	s.setupMatch()

	_, err := s.manager.Disconnect(s.ctx, "conn-a")
	s.Require().NoError(err)
	result, err := s.manager.Disconnect(s.ctx, "conn-b")
	s.Require().NoError(err)

	s.True(result.HadRoom)
	s.True(result.RoomDeleted)

	_, err = s.rooms.Get(s.ctx, "AB12CD")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *ManagerSuite) TestDisconnectTwiceIsIdempotent() {
	s.setupMatch()

	_, err := s.manager.Disconnect(s.ctx, "conn-a")
	s.Require().NoError(err)

	result, err := s.manager.Disconnect(s.ctx, "conn-a")
	s.Require().NoError(err)
	s.False(result.HadRoom)
}

// CompleteMatch tests

func (s *ManagerSuite) TestCompleteMatchRecordsWinAndLeaderboard() {
	s.setupMatch()
	s.clock.Advance(90 * time.Second)

	report, err := s.manager.CompleteMatch(s.ctx, "conn-a")
	s.Require().NoError(err)

	s.Equal(model.RoomID("AB12CD"), report.RoomID)
	s.Equal("astrid", report.Winner)
	s.Equal(90*time.Second, report.TimeTaken)
	s.Equal([]model.ConnID{"conn-a", "conn-b"}, report.Occupants)

	s.Require().Len(report.Leaderboard, 2)
	s.Equal(model.LeaderboardEntry{Username: "astrid", Wins: 1}, report.Leaderboard[0])

	r, err := s.rooms.Get(s.ctx, "AB12CD")
	s.Require().NoError(err)
	s.Equal(model.PhaseCompleted, r.Phase)
}

func (s *ManagerSuite) TestCompleteMatchTwiceDoesNotDoubleCount() {
	s.setupMatch()

	_, err := s.manager.CompleteMatch(s.ctx, "conn-a")
	s.Require().NoError(err)

	_, err = s.manager.CompleteMatch(s.ctx, "conn-b")
	s.ErrorIs(err, model.ErrInvalidStateTransition)

	acc, err := s.accounts.TopN(s.ctx, account.LeaderboardSize)
	s.Require().NoError(err)
	s.Equal(model.LeaderboardEntry{Username: "astrid", Wins: 1}, acc[0])
	s.Equal(0, acc[1].Wins)
}

func (s *ManagerSuite) TestCompleteMatchUnauthenticatedFails() {
	s.setupMatch()
	s.conns.Unbind("conn-a")

	_, err := s.manager.CompleteMatch(s.ctx, "conn-a")
	s.ErrorIs(err, model.ErrNotAuthenticated)
}

func (s *ManagerSuite) TestCompleteMatchWithoutRoomFails() {
	s.conns.Bind("conn-a", "astrid")

	_, err := s.manager.CompleteMatch(s.ctx, "conn-a")
	s.ErrorIs(err, model.ErrRoomNotFound)
}
