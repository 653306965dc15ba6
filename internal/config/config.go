package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/John-Robertt/moviefind/internal/infra/httpx"
	"github.com/John-Robertt/moviefind/internal/infra/logx"
	"github.com/John-Robertt/moviefind/internal/provider/lordfilm"
	"github.com/John-Robertt/moviefind/internal/resolve"
	"github.com/John-Robertt/moviefind/internal/search"
	"github.com/John-Robertt/moviefind/internal/search/duckduckgo"
	"github.com/John-Robertt/moviefind/internal/search/google"
)

const (
	// ErrCodeNotFound 表示 --config 指定的文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

// DefaultFileName 是 cwd 下自动发现的配置文件名。
const DefaultFileName = "moviefind.yaml"

// 内置默认值（当 CLI、配置文件、环境变量都未指定时）。取值跟随各实现包。
const (
	DefaultEngine           = google.Name
	DefaultSource           = lordfilm.Name
	DefaultSuffix           = search.DefaultSuffix
	DefaultSiteMarker       = search.DefaultSiteMarker
	DefaultGoogleURL        = google.DefaultURL
	DefaultDDGURL           = duckduckgo.DefaultURL
	DefaultCandidateTimeout = resolve.DefaultCandidateTimeout
	DefaultRequestTimeout   = httpx.DefaultTimeout
	DefaultMaxLinks         = resolve.DefaultMaxLinks
)

// DefaultFallbacks 是主引擎失败后依次尝试的引擎。
var DefaultFallbacks = []string{duckduckgo.Name}

// 环境变量名。
const (
	EnvProxyURL     = "MOVIEFIND_PROXY_URL"
	EnvSearchEngine = "MOVIEFIND_SEARCH_ENGINE"
	EnvLogLevel     = "MOVIEFIND_LOG_LEVEL"
)

// CLIArgs 只包含 CLI 暴露的入口，并保留"是否显式指定"的信息。
type CLIArgs struct {
	ConfigPath string

	Engine    string
	EngineSet bool
}

// FileConfig 对应 moviefind.yaml 的解析结构。
type FileConfig struct {
	Search           SearchConfig      `yaml:"search"`
	Source           SourceConfig      `yaml:"source"`
	CandidateTimeout string            `yaml:"candidate_timeout"`
	MaxLinks         int               `yaml:"max_links"`
	RequestTimeout   string            `yaml:"request_timeout"`
	RetryMax         int               `yaml:"retry_max"`
	Proxy            *ProxyConfig      `yaml:"proxy"`
	Headers          map[string]string `yaml:"headers"`
	Log              logx.Config       `yaml:"log"`
}

type SearchConfig struct {
	Engine     string   `yaml:"engine"`
	Fallbacks  []string `yaml:"fallbacks"`
	Suffix     string   `yaml:"suffix"`
	SiteMarker string   `yaml:"site_marker"`
	GoogleURL  string   `yaml:"google_url"`
	DDGURL     string   `yaml:"ddg_url"`
}

type SourceConfig struct {
	Name string `yaml:"name"`
}

type ProxyConfig struct {
	URL string `yaml:"url"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（构造后只读）。
type EffectiveConfig struct {
	// ConfigPath 是实际读取的配置文件；未读取任何文件时为空。
	ConfigPath string

	Engine     string
	Fallbacks  []string
	Suffix     string
	SiteMarker string
	GoogleURL  string
	DDGURL     string

	Source string

	CandidateTimeout time.Duration
	MaxLinks         int
	RequestTimeout   time.Duration
	RetryMax         int

	ProxyURL string
	Headers  map[string]string

	Log logx.Config
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置文件，叠加环境变量后与 CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) CLI 提供 --config：必须存在
// 2) 否则尝试 <cwd>/moviefind.yaml（可选）
//
// 覆盖优先级（固定）：CLI > 配置文件 > 环境变量 > 内置默认值
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	var cfgPath string
	required := false
	if p := strings.TrimSpace(cli.ConfigPath); p != "" {
		cfgPath = absCleanFrom(cwdAbs, p)
		required = true
	} else {
		cfgPath = filepath.Join(cwdAbs, DefaultFileName)
	}

	fc, exists, err := readFileConfig(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if !exists {
		if required {
			return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
		}
		cfgPath = ""
	}

	applyEnvDefaults(&fc)
	return merge(cli, fc, cfgPath)
}

// applyEnvDefaults 用环境变量补全配置文件中留空的字段。
func applyEnvDefaults(fc *FileConfig) {
	if fc.Proxy == nil || strings.TrimSpace(fc.Proxy.URL) == "" {
		if v := strings.TrimSpace(os.Getenv(EnvProxyURL)); v != "" {
			fc.Proxy = &ProxyConfig{URL: v}
		}
	}
	if strings.TrimSpace(fc.Search.Engine) == "" {
		fc.Search.Engine = strings.TrimSpace(os.Getenv(EnvSearchEngine))
	}
	if strings.TrimSpace(fc.Log.Level) == "" {
		fc.Log.Level = strings.TrimSpace(os.Getenv(EnvLogLevel))
	}
}

func merge(cli CLIArgs, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	invalid := func(err error) (EffectiveConfig, error) {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}

	// engine：CLI > config/env > 默认
	engine := DefaultEngine
	if cli.EngineSet {
		engine = cli.Engine
	} else if s := strings.TrimSpace(fc.Search.Engine); s != "" {
		engine = s
	}
	engine = strings.ToLower(strings.TrimSpace(engine))
	if err := validateEngine(engine); err != nil {
		return invalid(err)
	}

	fallbacks := DefaultFallbacks
	if fc.Search.Fallbacks != nil {
		fallbacks = fc.Search.Fallbacks
	}
	normFallbacks := make([]string, 0, len(fallbacks))
	for _, f := range fallbacks {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" {
			continue
		}
		if err := validateEngine(f); err != nil {
			return invalid(fmt.Errorf("search.fallbacks：%w", err))
		}
		normFallbacks = append(normFallbacks, f)
	}

	suffix := fc.Search.Suffix
	if suffix == "" {
		suffix = DefaultSuffix
	}
	marker := strings.TrimSpace(fc.Search.SiteMarker)
	if marker == "" {
		marker = DefaultSiteMarker
	}

	googleURL, err := httpURLOr(fc.Search.GoogleURL, DefaultGoogleURL, "search.google_url")
	if err != nil {
		return invalid(err)
	}
	ddgURL, err := httpURLOr(fc.Search.DDGURL, DefaultDDGURL, "search.ddg_url")
	if err != nil {
		return invalid(err)
	}

	source := strings.ToLower(strings.TrimSpace(fc.Source.Name))
	if source == "" {
		source = DefaultSource
	}
	if source != DefaultSource {
		return invalid(fmt.Errorf("source.name 只能是 %s，实际是 %q", DefaultSource, source))
	}

	candTimeout, err := durationOr(fc.CandidateTimeout, DefaultCandidateTimeout, "candidate_timeout")
	if err != nil {
		return invalid(err)
	}
	reqTimeout, err := durationOr(fc.RequestTimeout, DefaultRequestTimeout, "request_timeout")
	if err != nil {
		return invalid(err)
	}

	maxLinks := fc.MaxLinks
	if maxLinks == 0 {
		maxLinks = DefaultMaxLinks
	}
	if maxLinks < 1 || maxLinks > 10 {
		return invalid(fmt.Errorf("max_links 必须在 [1, 10] 内，实际是 %d", maxLinks))
	}

	// retry_max 超出 [0, 5] 截断。
	retryMax := fc.RetryMax
	if retryMax < 0 {
		retryMax = 0
	}
	if retryMax > 5 {
		retryMax = 5
	}

	proxyURL := ""
	if fc.Proxy != nil {
		proxyURL = strings.TrimSpace(fc.Proxy.URL)
	}
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return invalid(fmt.Errorf("proxy.url 无效：%q", proxyURL))
		}
	}

	logCfg := fc.Log.WithDefaults()
	if err := logCfg.Validate(); err != nil {
		return invalid(err)
	}

	headers := make(map[string]string, len(fc.Headers))
	for k, v := range fc.Headers {
		headers[k] = v
	}

	return EffectiveConfig{
		ConfigPath:       cfgPath,
		Engine:           engine,
		Fallbacks:        normFallbacks,
		Suffix:           suffix,
		SiteMarker:       marker,
		GoogleURL:        googleURL,
		DDGURL:           ddgURL,
		Source:           source,
		CandidateTimeout: candTimeout,
		MaxLinks:         maxLinks,
		RequestTimeout:   reqTimeout,
		RetryMax:         retryMax,
		ProxyURL:         proxyURL,
		Headers:          headers,
		Log:              logCfg,
	}, nil
}

func validateEngine(e string) error {
	switch e {
	case google.Name, duckduckgo.Name:
		return nil
	case "":
		return fmt.Errorf("search.engine 不能为空")
	default:
		return fmt.Errorf("search.engine 只能是 google 或 duckduckgo，实际是 %q", e)
	}
}

func durationOr(s string, def time.Duration, field string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s 无效：%w", field, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s 必须大于 0", field)
	}
	return d, nil
}

func httpURLOr(s, def, field string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%s 无效：%q", field, s)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%s 必须是 http/https：%q", field, s)
	}
	return s, nil
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并严格解析 YAML 配置文件（未知字段报错）。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
