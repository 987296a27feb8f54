package connreg

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/duelpit/duelserver/internal/model"
)

type RegistrySuite struct {
	suite.Suite
	registry *Registry
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.registry = New()
}

func (s *RegistrySuite) TestBindAndLookup() {
	s.registry.Bind("conn-a", "astrid")

	username, ok := s.registry.Username("conn-a")
	s.True(ok)
	s.Equal("astrid", username)
	s.Equal(1, s.registry.Count())
}

func (s *RegistrySuite) TestRebindOverwrites() {
	s.registry.Bind("conn-a", "astrid")
	s.registry.Bind("conn-a", "bjorn")

	username, ok := s.registry.Username("conn-a")
	s.True(ok)
	s.Equal("bjorn", username)
	s.Equal(1, s.registry.Count())
}

func (s *RegistrySuite) TestPlayerForBoundConnection() {
	s.registry.Bind("conn-a", "astrid")

	player, err := s.registry.Player("conn-a")
	s.Require().NoError(err)
	s.Equal(&model.Player{Conn: "conn-a", Username: "astrid"}, player)
}

func (s *RegistrySuite) TestPlayerForUnboundConnection() {
	_, err := s.registry.Player("conn-a")
	s.ErrorIs(err, model.ErrNotAuthenticated)
}

func (s *RegistrySuite) TestUnbind() {
	s.registry.Bind("conn-a", "astrid")
	s.registry.Unbind("conn-a")

	_, ok := s.registry.Username("conn-a")
	s.False(ok)
	s.Equal(0, s.registry.Count())
}

func (s *RegistrySuite) TestUnbindUnknownIsNoop() {
	s.registry.Unbind("conn-z")
	s.Equal(0, s.registry.Count())
}
