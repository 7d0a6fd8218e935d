package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseConfig_Nil(t *testing.T) {
	cfg := ParseConfig(nil)
	assert.True(t, cfg.Enabled)
	assert.True(t, cfg.ShortTermEnabled)
	assert.True(t, cfg.LongTermEnabled)
	assert.Equal(t, 10, cfg.MaxRecentTurns)
	assert.Equal(t, 5, cfg.MaxKnowledge)
	assert.True(t, cfg.ScopeToUser)
}

func TestParseConfig_Empty(t *testing.T) {
	assert.Equal(t, DefaultAgentConfig(), ParseConfig([]byte{}))
}

func TestParseConfig_EmptyObject(t *testing.T) {
	assert.Equal(t, DefaultAgentConfig(), ParseConfig([]byte(`{}`)))
}

func TestParseConfig_InvalidJSON(t *testing.T) {
	assert.Equal(t, DefaultAgentConfig(), ParseConfig([]byte(`not json`)))
}

func TestParseConfig_Partial(t *testing.T) {
	cfg := ParseConfig([]byte(`{"max_recent_turns": 4, "scope_to_user": false}`))
	assert.Equal(t, 4, cfg.MaxRecentTurns)
	assert.False(t, cfg.ScopeToUser)
	// Defaults for unspecified fields
	assert.True(t, cfg.Enabled)
	assert.True(t, cfg.LongTermEnabled)
	assert.Equal(t, 5, cfg.MaxKnowledge)
}

func TestParseConfig_DisabledExplicitly(t *testing.T) {
	cfg := ParseConfig([]byte(`{"enabled": false, "short_term_enabled": false, "long_term_enabled": false}`))
	assert.False(t, cfg.Enabled)
	assert.False(t, cfg.ShortTermEnabled)
	assert.False(t, cfg.LongTermEnabled)
}

func TestFilter_Matches(t *testing.T) {
	meta := map[string]string{"user_id": "u1", "domain": "legal"}
	assert.True(t, Filter{}.Matches(meta))
	assert.True(t, Filter{"user_id": "u1"}.Matches(meta))
	assert.True(t, Filter{"user_id": "u1", "domain": "legal"}.Matches(meta))
	assert.False(t, Filter{"user_id": "u2"}.Matches(meta))
	assert.False(t, Filter{"tenant": ""}.Matches(meta))
}

func TestFilter_TopicsMatchAny(t *testing.T) {
	meta := map[string]string{"user_id": "u1", TopicsKey: "cardiology,emergency"}

	assert.True(t, Filter{TopicsKey: "oncology, cardiology"}.Matches(meta))
	assert.True(t, Filter{"user_id": "u1", TopicsKey: "emergency"}.Matches(meta))
	assert.False(t, Filter{"user_id": "u2", TopicsKey: "emergency"}.Matches(meta))
	assert.False(t, Filter{TopicsKey: "oncology"}.Matches(meta))
	assert.False(t, Filter{TopicsKey: "cardio"}.Matches(meta))
	assert.False(t, Filter{TopicsKey: "cardiology"}.Matches(map[string]string{"user_id": "u1"}))
	assert.True(t, Filter{TopicsKey: " , "}.Matches(meta))
}

func TestFilter_ExactAndEmpty(t *testing.T) {
	f := Filter{"user_id": "u1", TopicsKey: "a,b"}
	assert.Equal(t, Filter{"user_id": "u1"}, f.Exact())
	assert.Equal(t, []string{"a", "b"}, f.AnyTopics())
	assert.False(t, f.Empty())

	assert.True(t, Filter{}.Empty())
	assert.True(t, Filter{TopicsKey: ""}.Empty())
	assert.False(t, Filter{TopicsKey: "a"}.Empty())
	assert.Equal(t, []string{"a", "b"}, SplitTopics(" a, b,,a "))
}
