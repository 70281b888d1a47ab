package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/zheng/cruiser/internal/cruise"
	"github.com/zheng/cruiser/internal/gather"
	"github.com/zheng/cruiser/internal/rules"
)

const defaultConfigFile = ".cruiser.yaml"

// fileConfig is the layout of the --config file
type fileConfig struct {
	cruise.Options `yaml:",inline"`

	IncludeTests bool `json:"includeTests,omitempty" yaml:"includeTests,omitempty"`
}

// cruiseFlags holds the flags shared by cruise, watch and mcp
type cruiseFlags struct {
	config        string
	rulesFile     string
	validate      bool
	forceCircular bool
	exclude       string
	outputType    string
	outputTo      string
	prefix        string
	system        string
	concurrency   int
	includeTests  bool
	noGitignore   bool
}

func (f *cruiseFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.config, "config", "c", "", "配置文件路径 (YAML/JSON)，默认 "+defaultConfigFile)
	cmd.Flags().StringVarP(&f.rulesFile, "rules", "r", "", "规则文件路径 (YAML/JSON)，指定后自动启用校验")
	cmd.Flags().BoolVar(&f.validate, "validate", false, "按规则集校验依赖")
	cmd.Flags().BoolVar(&f.forceCircular, "force-circular", false, "即使没有规则需要也检测循环依赖")
	cmd.Flags().StringVarP(&f.exclude, "exclude", "x", "", "排除匹配该正则的路径")
	cmd.Flags().StringVarP(&f.outputType, "output-type", "T", "", "输出格式 (json/mermaid/err/sqlite)")
	cmd.Flags().StringVarP(&f.outputTo, "output-to", "f", "", "输出文件路径，默认标准输出")
	cmd.Flags().StringVar(&f.prefix, "prefix", "", "mermaid 输出中模块链接的前缀")
	cmd.Flags().StringVar(&f.system, "system", "", "只分析指定语言 (go,js,ts，逗号分隔)")
	cmd.Flags().IntVarP(&f.concurrency, "concurrency", "j", 0, "并发解析的 worker 数量 (<=1 为串行)")
	cmd.Flags().BoolVar(&f.includeTests, "include-tests", false, "包含测试文件")
	cmd.Flags().BoolVar(&f.noGitignore, "no-gitignore", false, "不使用 .gitignore 过滤")
}

// settings is the resolved configuration of one cruise
type settings struct {
	opts         cruise.Options
	includeTests bool
	noGitignore  bool
}

// resolve layers the config file, the environment and the flags,
// in that order, then loads the rule set.
func (f *cruiseFlags) resolve(cmd *cobra.Command) (*settings, error) {
	var cfg fileConfig

	path := f.config
	if path == "" {
		path = defaultConfigFile
	}
	if err := loadConfigFile(path, &cfg, f.config != ""); err != nil {
		return nil, err
	}

	loadConfigFromEnv(&cfg)

	flags := cmd.Flags()
	if flags.Changed("rules") {
		cfg.RulesFile = f.rulesFile
	}
	if flags.Changed("validate") {
		cfg.Validate = f.validate
	}
	if flags.Changed("force-circular") {
		cfg.ForceCircular = f.forceCircular
	}
	if flags.Changed("exclude") {
		cfg.Exclude = f.exclude
	}
	if flags.Changed("output-type") {
		cfg.OutputType = f.outputType
	}
	if flags.Changed("output-to") {
		cfg.OutputTo = f.outputTo
	}
	if flags.Changed("prefix") {
		cfg.Prefix = f.prefix
	}
	if flags.Changed("system") {
		cfg.System = f.system
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency = f.concurrency
	}
	if flags.Changed("include-tests") {
		cfg.IncludeTests = f.includeTests
	}

	opts := cfg.Options
	switch {
	case opts.RulesFile != "":
		rs, err := rules.Load(opts.RulesFile)
		if err != nil {
			return nil, err
		}
		opts.RuleSet = rs
		if !flags.Changed("validate") {
			opts.Validate = true
		}
	case opts.RuleSet != nil:
		if err := opts.RuleSet.Prepare(); err != nil {
			return nil, err
		}
	}

	if _, err := extensionsFor(opts.System); err != nil {
		return nil, err
	}

	return &settings{opts: opts, includeTests: cfg.IncludeTests, noGitignore: f.noGitignore}, nil
}

// loadConfigFile reads path into cfg. A missing file is an error only when
// it was asked for explicitly.
func loadConfigFile(path string, cfg *fileConfig, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return nil // File doesn't exist, use defaults
		}
		return fmt.Errorf("read config: %w", err)
	}

	// Try YAML first, then JSON
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return fmt.Errorf("parse config %s (tried YAML and JSON): YAML error: %v, JSON error: %w", path, err, jsonErr)
		}
	}
	return nil
}

func loadConfigFromEnv(cfg *fileConfig) {
	if v := os.Getenv("CRUISER_EXCLUDE"); v != "" {
		cfg.Exclude = v
	}
	if v := os.Getenv("CRUISER_OUTPUT_TYPE"); v != "" {
		cfg.OutputType = v
	}
	if v := os.Getenv("CRUISER_CONCURRENCY"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Concurrency = i
		}
	}
}

// extensionsFor maps a comma separated list of languages to the source
// extensions gathered for them. Empty means every supported language.
func extensionsFor(system string) ([]string, error) {
	if strings.TrimSpace(system) == "" {
		return gather.DefaultExtensions, nil
	}

	var exts []string
	for _, lang := range strings.Split(system, ",") {
		switch strings.TrimSpace(strings.ToLower(lang)) {
		case "go":
			exts = append(exts, ".go")
		case "js", "javascript":
			exts = append(exts, ".js", ".mjs", ".cjs", ".jsx")
		case "ts", "typescript":
			exts = append(exts, ".ts", ".tsx")
		default:
			return nil, fmt.Errorf("unknown system %q (supported: go, js, ts)", lang)
		}
	}
	return exts, nil
}
