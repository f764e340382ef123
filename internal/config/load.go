package config

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. ROAS_EXPORT_PATH or
// ROAS_STORAGE_DB_DSN.
const EnvPrefix = "ROAS"

// envKeys are bound so they can be set from the environment even when the
// file omits them.
var envKeys = []string{
	"job",
	"export.path",
	"export.format",
	"storage.kind",
	"storage.db.dsn",
	"storage.db.table",
	"runtime.timeout_seconds",
}

// Load reads a pipeline file (JSON or YAML, by extension), applies defaults
// and ROAS_* environment overrides, and decodes the result into a Pipeline.
func Load(path string) (Pipeline, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, k := range envKeys {
		if err := v.BindEnv(k); err != nil {
			return Pipeline{}, fmt.Errorf("config: bind env %s: %w", k, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Pipeline{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	var p Pipeline
	if err := v.Unmarshal(&p, jsonTags); err != nil {
		return Pipeline{}, fmt.Errorf("config: decode pipeline: %w", err)
	}
	return p, nil
}

// jsonTags makes viper decode through the json struct tags, with weak typing
// so string env values land in numeric and bool fields.
func jsonTags(c *mapstructure.DecoderConfig) {
	c.TagName = "json"
	c.WeaklyTypedInput = true
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("job", "roas")
	v.SetDefault("parser.kind", "auto")
	v.SetDefault("export.format", "csv")
	v.SetDefault("views.top_n", 5)
	v.SetDefault("runtime.load_concurrency", 4)
	v.SetDefault("runtime.batch_size", 500)
}
