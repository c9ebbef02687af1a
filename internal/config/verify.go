package config

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Tydik42/desbordante-core/internal/common"
	"github.com/Tydik42/desbordante-core/internal/dataset"
	"github.com/Tydik42/desbordante-core/internal/model"
	"github.com/Tydik42/desbordante-core/internal/verifier"
	"github.com/spf13/viper"
)

// Configuration keys.
const (
	KeyInputFormat         = "input.format"
	KeyInputTIDColumn      = "input.tid_column"
	KeyInputItemColumn     = "input.item_column"
	KeyInputFirstColumnTID = "input.first_column_tid"
	KeyInputEqualNulls     = "input.equal_nulls"
	KeyInputHasHeader      = "input.has_header"
	KeyInputSeparator      = "input.separator"
	KeyRuleLeft            = "rule.left"
	KeyRuleRight           = "rule.right"
	KeyMinSupport          = "verify.min_support"
	KeyMinConfidence       = "verify.min_confidence"
	KeyThreshold           = "verify.threshold"
	KeyParallel            = "verify.parallel"
	KeyDatabasePath        = "database.path"
	KeyLogLevel            = "logging.level"
	KeyLogFormat           = "logging.format"
)

// DefaultDatabasePath is used when database.path is not configured.
const DefaultDatabasePath = "$HOME/.local/share/arverify/datasets.db"

// SetDefaults registers default values for every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyInputFormat, string(model.InputSingular))
	v.SetDefault(KeyInputTIDColumn, 0)
	v.SetDefault(KeyInputItemColumn, 1)
	v.SetDefault(KeyInputFirstColumnTID, false)
	v.SetDefault(KeyInputEqualNulls, true)
	v.SetDefault(KeyInputHasHeader, true)
	v.SetDefault(KeyInputSeparator, ",")
	v.SetDefault(KeyMinSupport, 0.0)
	v.SetDefault(KeyMinConfidence, 0.0)
	v.SetDefault(KeyParallel, 0)
	v.SetDefault(KeyDatabasePath, DefaultDatabasePath)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "console")
}

// InputConfig describes how to read a table and turn it into transactions.
type InputConfig struct {
	CSV     dataset.CSVOptions
	Dataset dataset.Options
}

// LoadInputConfig reads the input.* keys.
func LoadInputConfig(v *viper.Viper) (InputConfig, error) {
	format, err := model.ParseInputFormat(v.GetString(KeyInputFormat))
	if err != nil {
		return InputConfig{}, fmt.Errorf("%w: %v", common.ErrInvalidInputFormat, err)
	}

	sep := v.GetString(KeyInputSeparator)
	if sep == `\t` || sep == "tab" {
		sep = "\t"
	}
	if utf8.RuneCountInString(sep) != 1 {
		return InputConfig{}, fmt.Errorf("%w: separator must be a single character, got %q", common.ErrInvalidConfig, sep)
	}
	sepRune, _ := utf8.DecodeRuneInString(sep)

	cfg := InputConfig{
		CSV: dataset.CSVOptions{
			Separator: sepRune,
			HasHeader: v.GetBool(KeyInputHasHeader),
		},
		Dataset: dataset.Options{
			Format:         format,
			TIDColumn:      v.GetInt(KeyInputTIDColumn),
			ItemColumn:     v.GetInt(KeyInputItemColumn),
			FirstColumnTID: v.GetBool(KeyInputFirstColumnTID),
			EqualNulls:     v.GetBool(KeyInputEqualNulls),
		},
	}

	if err := cfg.Validate(); err != nil {
		return InputConfig{}, err
	}
	return cfg, nil
}

// Validate checks column settings for the selected format.
func (c InputConfig) Validate() error {
	if c.Dataset.Format != model.InputSingular {
		return nil
	}
	if c.Dataset.TIDColumn < 0 || c.Dataset.ItemColumn < 0 {
		return fmt.Errorf("%w: column indices must not be negative", common.ErrInvalidConfig)
	}
	if c.Dataset.TIDColumn == c.Dataset.ItemColumn {
		return fmt.Errorf("%w: tid column and item column must differ", common.ErrInvalidConfig)
	}
	return nil
}

// LoadVerifyOptions reads the verify.* keys. The similarity threshold stays
// unset unless configured, so it is derived from the rule.
func LoadVerifyOptions(v *viper.Viper) (verifier.Options, error) {
	opts := verifier.Options{
		MinSupport:    v.GetFloat64(KeyMinSupport),
		MinConfidence: v.GetFloat64(KeyMinConfidence),
	}
	if v.IsSet(KeyThreshold) {
		threshold := v.GetFloat64(KeyThreshold)
		opts.Threshold = &threshold
	}

	if err := opts.Validate(); err != nil {
		return verifier.Options{}, err
	}
	return opts, nil
}

// LoadRule reads rule.left and rule.right. A list value is taken item by item;
// a single string is split on commas.
func LoadRule(v *viper.Viper) (model.RuleNames, error) {
	rule := model.RuleNames{
		Left:  ruleItems(v.Get(KeyRuleLeft)),
		Right: ruleItems(v.Get(KeyRuleRight)),
	}
	if len(rule.Left) == 0 {
		return rule, fmt.Errorf("%w: %s", common.ErrMissingConfig, KeyRuleLeft)
	}
	if len(rule.Right) == 0 {
		return rule, fmt.Errorf("%w: %s", common.ErrMissingConfig, KeyRuleRight)
	}
	return rule, nil
}

func ruleItems(value any) []string {
	var raw []string
	switch val := value.(type) {
	case string:
		raw = strings.Split(val, ",")
	case []string:
		raw = val
	case []any:
		for _, item := range val {
			raw = append(raw, fmt.Sprint(item))
		}
	}

	var items []string
	for _, item := range raw {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// DatabasePath returns the expanded database.path.
func DatabasePath(v *viper.Viper) string {
	path := v.GetString(KeyDatabasePath)
	if path == "" {
		path = DefaultDatabasePath
	}
	return ExpandPath(path)
}
