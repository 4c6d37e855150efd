package graph

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/cortex/internal/types"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default is valid", func(*Config) {}, false},
		{"empty URI", func(c *Config) { c.URI = "" }, true},
		{"empty username", func(c *Config) { c.Username = "" }, true},
		{"empty password", func(c *Config) { c.Password = "" }, true},
		{"zero timeout", func(c *Config) { c.ConnectionTimeout = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, ErrCodeGraphInvalidConfig, types.CodeOf(err))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestNeo4jClient_QueryWithoutConnect(t *testing.T) {
	client, err := NewNeo4jClient(DefaultConfig())
	require.NoError(t, err)

	_, err = client.Query(context.Background(), "RETURN 1", nil)
	require.Error(t, err)
	assert.Equal(t, ErrCodeGraphConnectionClosed, types.CodeOf(err))
	assert.False(t, client.Health(context.Background()).IsHealthy())
	assert.NoError(t, client.Close(context.Background()))
}

func TestRecordHelpers(t *testing.T) {
	day := time.Date(2020, 5, 17, 0, 0, 0, 0, time.UTC)
	row := map[string]any{
		"name":   "Launch",
		"score":  0.91,
		"count":  int64(3),
		"date":   neo4j.DateOf(day),
		"iso":    "2020-05-17",
		"bad":    true,
		"absent": nil,
	}

	s, err := String(row, "name")
	require.NoError(t, err)
	assert.Equal(t, "Launch", s)

	s, err = String(row, "absent")
	require.NoError(t, err)
	assert.Empty(t, s)

	_, err = String(row, "bad")
	assert.Error(t, err)

	f, err := Float(row, "score")
	require.NoError(t, err)
	assert.InDelta(t, 0.91, f, 1e-9)

	f, err = Float(row, "count")
	require.NoError(t, err)
	assert.Equal(t, 3.0, f)

	_, err = Float(row, "missing")
	assert.Error(t, err)

	opt, err := OptionalFloat(row, "absent")
	require.NoError(t, err)
	assert.Nil(t, opt)

	ts, err := Time(row, "date")
	require.NoError(t, err)
	require.NotNil(t, ts)
	assert.True(t, ts.Equal(day))

	ts, err = Time(row, "iso")
	require.NoError(t, err)
	assert.True(t, ts.Equal(day))

	_, err = Time(row, "bad")
	assert.Error(t, err)
}

func TestMockClient_Rules(t *testing.T) {
	boom := errors.New("boom")
	m := NewMockClient().
		OnQuery(":Event", map[string]any{"name": "e1"}).
		OnQueryError(":Claim", boom)

	res, err := m.Query(context.Background(), "MATCH (n:Event) RETURN n", map[string]any{"k": 1})
	require.NoError(t, err)
	assert.Len(t, res.Records, 1)

	_, err = m.Query(context.Background(), "MATCH (n:Claim) RETURN n", nil)
	assert.ErrorIs(t, err, boom)

	res, err = m.Query(context.Background(), "MATCH (n:Other) RETURN n", nil)
	require.NoError(t, err)
	assert.Empty(t, res.Records)

	assert.Len(t, m.Calls(), 3)
	assert.Equal(t, 1, m.Calls()[0].Params["k"])
}

func TestMockClient_DelayHonoursContext(t *testing.T) {
	m := NewMockClient().OnQuery("slow").WithDelay(time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := m.Query(ctx, "slow", nil)
	require.Error(t, err)
	assert.Equal(t, ErrCodeGraphQueryTimeout, types.CodeOf(err))
}
