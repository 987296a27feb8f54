package match

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

type ControllerSuite struct {
	suite.Suite
	rooms      *room.Controller
	controller *Controller
	ctx        context.Context
	roomID     model.RoomID
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) SetupTest() {
	store := memory.New()
	clk := mocks.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	rnd := mocks.NewMockRandom()
	rnd.QueueString("AB12CD")
	logger := testutil.NopLogger()

	s.rooms = room.NewController(store, clk, rnd, logger)
	s.controller = NewController(s.rooms, logger)
	s.ctx = context.Background()

	r, err := s.rooms.Create(s.ctx, "conn-a")
	s.Require().NoError(err)
	s.roomID = r.ID
	_, _, err = s.rooms.Join(s.ctx, s.roomID, "conn-b")
	s.Require().NoError(err)
}

// SelectArena tests

func (s *ControllerSuite) TestSelectArenaByCreator() {
	result, err := s.controller.SelectArena(s.ctx, s.roomID, "conn-a", 3)
	s.Require().NoError(err)

	s.False(result.SelectionsComplete)
	s.True(result.Room.ArenaChosen)
	s.Equal(3, result.Room.ArenaIndex)
	s.Equal(model.PhaseAwaitingArenaAndCharacters, result.Room.Phase)
}

func (s *ControllerSuite) TestSelectArenaByJoinerFailsWithoutMutation() {
	_, err := s.controller.SelectArena(s.ctx, s.roomID, "conn-b", 3)
	s.ErrorIs(err, model.ErrUnauthorized)

	r, err := s.rooms.Get(s.ctx, s.roomID)
	s.Require().NoError(err)
	s.False(r.ArenaChosen)
}

func (s *ControllerSuite) TestSelectArenaOutsidePhaseFails() {
	s.advanceToInProgress()

	_, err := s.controller.SelectArena(s.ctx, s.roomID, "conn-a", 1)
	s.ErrorIs(err, model.ErrInvalidStateTransition)
}

func (s *ControllerSuite) TestSelectArenaLastCompletesSelections() {
	_, err := s.controller.SelectCharacter(s.ctx, s.roomID, "conn-a", 0)
	s.Require().NoError(err)
	_, err = s.controller.SelectCharacter(s.ctx, s.roomID, "conn-b", 1)
	s.Require().NoError(err)

	result, err := s.controller.SelectArena(s.ctx, s.roomID, "conn-a", 2)
	s.Require().NoError(err)
	s.True(result.SelectionsComplete)
	s.Equal(model.PhaseAwaitingReady, result.Room.Phase)
}

// SelectCharacter tests

func (s *ControllerSuite) TestSelectCharacterLastCompletesSelections() {
	_, err := s.controller.SelectArena(s.ctx, s.roomID, "conn-a", 0)
	s.Require().NoError(err)
	_, err = s.controller.SelectCharacter(s.ctx, s.roomID, "conn-a", 4)
	s.Require().NoError(err)

	result, err := s.controller.SelectCharacter(s.ctx, s.roomID, "conn-b", 7)
	s.Require().NoError(err)
	s.True(result.SelectionsComplete)
	s.Equal(model.PhaseAwaitingReady, result.Room.Phase)
	s.Equal(4, result.Room.Characters["conn-a"])
	s.Equal(7, result.Room.Characters["conn-b"])
}

func (s *ControllerSuite) TestReselectCharacterDoesNotCompleteAlone() {
	_, err := s.controller.SelectArena(s.ctx, s.roomID, "conn-a", 0)
	s.Require().NoError(err)

	// Two picks by the same occupant count as one
	_, err = s.controller.SelectCharacter(s.ctx, s.roomID, "conn-a", 1)
	s.Require().NoError(err)
	result, err := s.controller.SelectCharacter(s.ctx, s.roomID, "conn-a", 5)
	s.Require().NoError(err)

	s.False(result.SelectionsComplete)
	s.Equal(model.PhaseAwaitingArenaAndCharacters, result.Room.Phase)
	s.Equal(5, result.Room.Characters["conn-a"])
}

func (s *ControllerSuite) TestSelectCharacterByOutsiderFails() {
	_, err := s.controller.SelectCharacter(s.ctx, s.roomID, "conn-z", 1)
	s.ErrorIs(err, model.ErrNotInRoom)
}

// Ready tests

func (s *ControllerSuite) TestReadyBeforeSelectionsFails() {
	_, err := s.controller.Ready(s.ctx, s.roomID, "conn-a")
	s.ErrorIs(err, model.ErrInvalidStateTransition)
}

func (s *ControllerSuite) TestDuplicateReadyIsIdempotent() {
	s.completeSelections()

	result, err := s.controller.Ready(s.ctx, s.roomID, "conn-a")
	s.Require().NoError(err)
	s.False(result.Started)

	result, err = s.controller.Ready(s.ctx, s.roomID, "conn-a")
	s.Require().NoError(err)
	s.False(result.Started)
	s.Equal(model.PhaseAwaitingReady, result.Room.Phase)
}

func (s *ControllerSuite) TestBothReadyStartsMatch() {
	s.completeSelections()

	_, err := s.controller.Ready(s.ctx, s.roomID, "conn-a")
	s.Require().NoError(err)
	result, err := s.controller.Ready(s.ctx, s.roomID, "conn-b")
	s.Require().NoError(err)

	s.True(result.Started)
	s.Equal(model.PhaseInProgress, result.Room.Phase)
}

func (s *ControllerSuite) TestReadyAfterStartFails() {
	s.advanceToInProgress()

	_, err := s.controller.Ready(s.ctx, s.roomID, "conn-a")
	s.ErrorIs(err, model.ErrInvalidStateTransition)
}

// Complete tests

func (s *ControllerSuite) TestCompleteMovesToCompleted() {
	s.advanceToInProgress()

	r, err := s.controller.Complete(s.ctx, s.roomID, "conn-a")
	s.Require().NoError(err)
	s.Equal(model.PhaseCompleted, r.Phase)
}

func (s *ControllerSuite) TestSecondCompleteFails() {
	s.advanceToInProgress()

	_, err := s.controller.Complete(s.ctx, s.roomID, "conn-a")
	s.Require().NoError(err)
	_, err = s.controller.Complete(s.ctx, s.roomID, "conn-b")
	s.ErrorIs(err, model.ErrInvalidStateTransition)
}

func (s *ControllerSuite) TestCompleteBeforeStartFails() {
	_, err := s.controller.Complete(s.ctx, s.roomID, "conn-a")
	s.ErrorIs(err, model.ErrInvalidStateTransition)
}

// Rematch tests

func (s *ControllerSuite) TestRematchResetsHandshake() {
	s.advanceToInProgress()
	_, err := s.controller.Complete(s.ctx, s.roomID, "conn-a")
	s.Require().NoError(err)

	r, err := s.controller.Rematch(s.ctx, s.roomID, "conn-b")
	s.Require().NoError(err)

	s.Equal(model.PhaseAwaitingArenaAndCharacters, r.Phase)
	s.False(r.ArenaChosen)
	s.Empty(r.Characters)
	s.Empty(r.Ready)
	s.Equal([]model.ConnID{"conn-a", "conn-b"}, r.Occupants)
}

func (s *ControllerSuite) TestRematchBeforeCompletionFails() {
	s.advanceToInProgress()

	_, err := s.controller.Rematch(s.ctx, s.roomID, "conn-a")
	s.ErrorIs(err, model.ErrInvalidStateTransition)
}

func (s *ControllerSuite) TestRematchAfterPeerLeftFails() {
	s.advanceToInProgress()
	_, err := s.controller.Complete(s.ctx, s.roomID, "conn-a")
	s.Require().NoError(err)
	_, _, err = s.rooms.Remove(s.ctx, s.roomID, "conn-b")
	s.Require().NoError(err)

	_, err = s.controller.Rematch(s.ctx, s.roomID, "conn-a")
	s.ErrorIs(err, model.ErrInvalidStateTransition)
}

func (s *ControllerSuite) TestVacatedSlotRequiresFreshHandshake() {
	s.completeSelections()
	_, err := s.controller.Ready(s.ctx, s.roomID, "conn-a")
	s.Require().NoError(err)

	_, _, err = s.rooms.Remove(s.ctx, s.roomID, "conn-b")
	s.Require().NoError(err)
	_, _, err = s.rooms.Join(s.ctx, s.roomID, "conn-c")
	s.Require().NoError(err)

	// The newcomer's single pick must not complete selections carried over
	// from the previous pairing
	result, err := s.controller.SelectCharacter(s.ctx, s.roomID, "conn-c", 2)
	s.Require().NoError(err)
	s.False(result.SelectionsComplete)
	s.Equal(model.PhaseAwaitingArenaAndCharacters, result.Room.Phase)

	_, err = s.controller.Ready(s.ctx, s.roomID, "conn-c")
	s.ErrorIs(err, model.ErrInvalidStateTransition)

	// The full handshake runs again for the new pairing
	_, err = s.controller.SelectArena(s.ctx, s.roomID, "conn-a", 1)
	s.Require().NoError(err)
	sel, err := s.controller.SelectCharacter(s.ctx, s.roomID, "conn-a", 0)
	s.Require().NoError(err)
	s.True(sel.SelectionsComplete)

	ready, err := s.controller.Ready(s.ctx, s.roomID, "conn-a")
	s.Require().NoError(err)
	s.False(ready.Started)
	ready, err = s.controller.Ready(s.ctx, s.roomID, "conn-c")
	s.Require().NoError(err)
	s.True(ready.Started)
}

func (s *ControllerSuite) completeSelections() {
	_, err := s.controller.SelectArena(s.ctx, s.roomID, "conn-a", 0)
	s.Require().NoError(err)
	_, err = s.controller.SelectCharacter(s.ctx, s.roomID, "conn-a", 0)
	s.Require().NoError(err)
	_, err = s.controller.SelectCharacter(s.ctx, s.roomID, "conn-b", 1)
	s.Require().NoError(err)
}

func (s *ControllerSuite) advanceToInProgress() {
	s.completeSelections()
	_, err := s.controller.Ready(s.ctx, s.roomID, "conn-a")
	s.Require().NoError(err)
	_, err = s.controller.Ready(s.ctx, s.roomID, "conn-b")
	s.Require().NoError(err)
}
