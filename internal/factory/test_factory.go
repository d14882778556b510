package factory

import (
	"time"

	"github.com/mcoot/shapesync/internal/dependencies/mocks"
	"github.com/mcoot/shapesync/internal/server"
	"github.com/mcoot/shapesync/internal/storage/memory"
	"github.com/mcoot/shapesync/internal/testutil"
	"github.com/mcoot/shapesync/internal/transport/memtransport"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock *mocks.MockClock
	Memory    *memory.Storage
	Network   *memtransport.Network
}

// NewTestApp creates an App over in-memory storage, a mocked clock and an
// in-process network
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))

	app := newWithDependencies(store, mockClock, server.Config{}, testutil.NopLogger())

	return &TestApp{
		App:       app,
		MockClock: mockClock,
		Memory:    store,
		Network:   memtransport.NewNetwork(),
	}
}
