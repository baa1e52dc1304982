package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
market: cn
data_dir: /srv/data
log_path: ./data/agent_data_astock
init_date: "2025-10-09"
end_date: "2025-10-31"
symbols: ["600519.SH", "601318.SH"]
agents:
  - signature: qwen3-max
    basemodel: qwen/qwen3-max
    enabled: true
  - signature: deepseek
    basemodel: deepseek-chat
    enabled: false
memory:
  enabled: true
`

func TestParseConfigDefaults(t *testing.T) {
	c, err := ParseConfig([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, 100000.0, c.InitialCash)
	assert.Equal(t, 3, c.Runner.MaxRetries)
	assert.Equal(t, 500, c.Runner.BaseDelayMs)
	assert.Equal(t, "noop", c.LLM.Provider)
	assert.Equal(t, filepath.Join("/srv/data", "agent_data_astock"), c.LedgerRoot())
	assert.Equal(t, filepath.Join("/srv/data", "agent_data_astock", "memory.db"), c.MemoryPath())
	assert.Equal(t, filepath.Join("/srv/data", "A_stock", "merged.jsonl"), c.PricePaths().Daily)

	enabled := c.EnabledAgents()
	require.Len(t, enabled, 1)
	assert.Equal(t, "qwen3-max", enabled[0].Signature)
}

func TestParseConfigDefaultUniverse(t *testing.T) {
	c, err := ParseConfig([]byte("init_date: \"2025-10-09\"\nend_date: \"2025-10-10\"\n"))
	require.NoError(t, err)
	assert.Len(t, c.Symbols, 50)
	assert.Equal(t, "600519.SH", c.Symbols[0])
	assert.Equal(t, "cn", c.Market)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MARKET", "US")
	t.Setenv("END_DATE", "2025-11-05")
	t.Setenv("SIGNATURE", "deepseek")

	c, err := ParseConfig([]byte(sample))
	require.NoError(t, err)
	assert.Equal(t, "us", c.Market)
	assert.Equal(t, "2025-11-05", c.EndDate)
	require.Len(t, c.EnabledAgents(), 1)
	assert.Equal(t, "deepseek-chat", c.EnabledAgents()[0].BaseModel)
}

func TestValidate(t *testing.T) {
	cases := map[string]string{
		"market":     "market: nyse\ninit_date: \"2025-10-09\"\nend_date: \"2025-10-10\"\n",
		"init_date":  "init_date: \"10/09/2025\"\nend_date: \"2025-10-10\"\n",
		"signature":  "init_date: \"2025-10-09\"\nend_date: \"2025-10-10\"\nagents:\n  - enabled: true\n",
		"duplicate":  "init_date: \"2025-10-09\"\nend_date: \"2025-10-10\"\nagents:\n  - signature: a\n  - signature: a\n",
		"provider":   "init_date: \"2025-10-09\"\nend_date: \"2025-10-10\"\nllm:\n  provider: bard\n",
		"negative":   "init_date: \"2025-10-09\"\nend_date: \"2025-10-10\"\ninitial_cash: -1\n",
	}
	for name, doc := range cases {
		_, err := ParseConfig([]byte(doc))
		assert.Error(t, err, name)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	c, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"600519.SH", "601318.SH"}, c.Symbols)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
