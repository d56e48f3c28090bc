package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEventBuilders(t *testing.T) {
	principalID := uuid.New()
	tenantID := uuid.New()

	event := NewEvent(EventTypeAuthLogin, EventStatusSuccess).
		WithPrincipal(principalID, "member@acme.test", &tenantID).
		WithRequest("/api/v1/auth/login", "10.0.0.1", "req-1").
		WithMessage("login ok")

	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.False(t, event.Timestamp.IsZero())
	assert.Equal(t, EventTypeAuthLogin, event.EventType)
	assert.Equal(t, EventStatusSuccess, event.Status)
	assert.Equal(t, &principalID, event.PrincipalID)
	assert.Equal(t, &tenantID, event.TenantID)
	assert.Equal(t, "/api/v1/auth/login", event.Path)
	assert.Equal(t, "login ok", event.Message)
}

func TestMemoryLogger(t *testing.T) {
	logger := NewMemoryLogger()
	ctx := context.Background()

	require.NoError(t, logger.Log(ctx, NewEvent(EventTypeAuthLogin, EventStatusSuccess)))
	require.NoError(t, logger.Log(ctx, NewEvent(EventTypeAuthzAccessDenied, EventStatusDenied)))

	events := logger.Events()
	require.Len(t, events, 2)
	assert.Equal(t, EventTypeAuthLogin, events[0].EventType)
	assert.Equal(t, EventStatusDenied, events[1].Status)
	assert.NoError(t, logger.Close())
}

func TestFileLoggerWritesJSONLines(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewFileLogger(FileLoggerConfig{BasePath: dir})
	require.NoError(t, err)
	defer logger.Close()

	ctx := context.Background()
	require.NoError(t, logger.Log(ctx, NewEvent(EventTypeAuthLogin, EventStatusSuccess)))
	require.NoError(t, logger.Log(ctx, NewEvent(EventTypeAuthLogout, EventStatusSuccess)))

	file, err := os.Open(filepath.Join(dir, "audit.log"))
	require.NoError(t, err)
	defer file.Close()

	var types []EventType
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var event Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &event))
		types = append(types, event.EventType)
	}
	assert.Equal(t, []EventType{EventTypeAuthLogin, EventTypeAuthLogout}, types)
}

func TestFileLoggerRotation(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewFileLogger(FileLoggerConfig{BasePath: dir, MaxSize: 64, MaxFiles: 2})
	require.NoError(t, err)
	defer logger.Close()

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		require.NoError(t, logger.Log(ctx, NewEvent(EventTypeAuthLogin, EventStatusSuccess)))
	}

	rotated, err := filepath.Glob(filepath.Join(dir, "audit-*.log"))
	require.NoError(t, err)
	assert.NotEmpty(t, rotated)
	assert.LessOrEqual(t, len(rotated), 2)
}

func TestNopLogger(t *testing.T) {
	var logger Logger = NopLogger{}
	assert.NoError(t, logger.Log(context.Background(), NewEvent(EventTypeAuthLogin, EventStatusSuccess)))
	assert.NoError(t, logger.Close())
}
