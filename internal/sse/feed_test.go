package sse

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/shapesync/internal/model"
	"github.com/mcoot/shapesync/internal/protocol"
	"github.com/mcoot/shapesync/internal/testutil"
)

type FeedSuite struct {
	suite.Suite
	hub    *Hub
	client *Client
	feed   *Feed
}

func TestFeedSuite(t *testing.T) {
	suite.Run(t, new(FeedSuite))
}

func (s *FeedSuite) SetupTest() {
	logger := testutil.NopLogger()
	s.hub = NewHub(logger)
	go s.hub.Run()
	s.client = NewClient("spectator")
	s.Require().True(s.hub.Register(s.client))
	s.feed = NewFeed(s.hub, logger)
}

func (s *FeedSuite) TearDownTest() {
	s.hub.Close()
}

func (s *FeedSuite) next() string {
	select {
	case msg := <-s.client.send:
		return string(msg)
	case <-time.After(time.Second):
		s.FailNow("timed out waiting for event")
		return ""
	}
}

func (s *FeedSuite) expectNothing() {
	select {
	case msg := <-s.client.send:
		s.Failf("unexpected event", "%q", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func (s *FeedSuite) TestJoined() {
	s.feed.Broadcast(&protocol.PlayerJoined{ID: 2, Name: "Bob"})
	s.Equal("event: player-joined\ndata: {\"id\":2,\"name\":\"Bob\"}\n\n", s.next())
}

func (s *FeedSuite) TestLeft() {
	s.feed.Broadcast(&protocol.PlayerLeft{ID: 2})
	s.Equal("event: player-left\ndata: {\"id\":2}\n\n", s.next())
}

func (s *FeedSuite) TestUpdateIncludesPositionAndShapeName() {
	s.feed.Broadcast(&protocol.PlayerUpdate{ID: 1, Position: model.Vec2{X: 1.5, Y: -2}, Shape: model.ShapeCircle})

	msg := s.next()
	s.True(strings.HasPrefix(msg, "event: player-update\n"))
	s.Contains(msg, `"position":{"x":1.5,"y":-2}`)
	s.Contains(msg, `"shape":"circle"`)
}

func (s *FeedSuite) TestAssignedIsForwarded() {
	s.feed.SendTo(9, &protocol.AssignID{ID: 3})
	s.Equal("event: player-assigned\ndata: {\"id\":3}\n\n", s.next())
}

func (s *FeedSuite) TestSnapshotsAreNotForwarded() {
	s.feed.SendTo(9, &protocol.WorldState{Players: []protocol.WorldEntry{{ID: 1, Shape: model.ShapeBox}}})
	s.expectNothing()
}
