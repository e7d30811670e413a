package services

import (
	"context"
	"sync"
	"testing"

	"chess-tournament-system/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an in-memory SQLite database with the same schema the
// service runs against. A single connection serializes transactions the way
// row locks do in production.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, models.Migrate(db))
	return db
}

// fakeDirectory is an in-memory PlayerDirectory.
type fakeDirectory struct {
	mu      sync.Mutex
	players map[string]*PlayerSummary

	setErr   error // when set, SetBlacklisted fails
	setCalls []setCall
}

type setCall struct {
	PlayerID    string
	Blacklisted bool
}

func newFakeDirectory(players ...*PlayerSummary) *fakeDirectory {
	d := &fakeDirectory{players: map[string]*PlayerSummary{}}
	for _, p := range players {
		d.players[p.ID] = p
	}
	return d
}

func (d *fakeDirectory) GetPlayerSummary(ctx context.Context, playerID string) (*PlayerSummary, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.players[playerID]
	if !ok {
		return nil, ErrPlayerNotFound
	}
	copied := *p
	return &copied, nil
}

func (d *fakeDirectory) SetBlacklisted(ctx context.Context, playerID string, blacklisted bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.setErr != nil {
		return d.setErr
	}
	if p, ok := d.players[playerID]; ok {
		p.Blacklisted = blacklisted
	}
	d.setCalls = append(d.setCalls, setCall{PlayerID: playerID, Blacklisted: blacklisted})
	return nil
}

func (d *fakeDirectory) blacklisted(playerID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.players[playerID]
	return ok && p.Blacklisted
}

// fakeMailer records notification sends.
type fakeMailer struct {
	mu      sync.Mutex
	sendErr error
	ban     []string // recipient emails
	unban   []string
	signup  []string
}

func (m *fakeMailer) SendBanNotice(ctx context.Context, email, username, reason string, durationHours *int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.ban = append(m.ban, email)
	return nil
}

func (m *fakeMailer) SendUnbanNotice(ctx context.Context, email, username, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.unban = append(m.unban, email)
	return nil
}

func (m *fakeMailer) SendSignUpNotice(ctx context.Context, email, username, tournamentName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.signup = append(m.signup, email)
	return nil
}

func intPtr(v int) *int { return &v }
