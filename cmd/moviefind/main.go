package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/John-Robertt/moviefind/internal/app/run"
	"github.com/John-Robertt/moviefind/internal/config"
	"github.com/John-Robertt/moviefind/internal/domain"
	"github.com/John-Robertt/moviefind/internal/infra/logx"
	"github.com/John-Robertt/moviefind/internal/present"
	"github.com/John-Robertt/moviefind/internal/resolve"
)

func main() {
	args := os.Args[1:]
	if len(args) == 0 || isHelp(args[0]) {
		printHelp(os.Stdout)
		return
	}

	switch args[0] {
	case "find":
		if code := findCmd(args[1:]); code != 0 {
			os.Exit(code)
		}
	case "start":
		printStart(os.Stdout, strings.Join(args[1:], " "))
	default:
		fmt.Fprintf(os.Stderr, "未知命令：%q\n\n", args[0])
		printUsage(os.Stderr)
		os.Exit(2)
	}
}

func findCmd(args []string) int {
	for _, a := range args {
		if isHelp(a) {
			printFindUsage(os.Stdout)
			return 0
		}
	}

	fa, err := parseFindArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "参数错误：%v\n\n", err)
		printFindUsage(os.Stderr)
		return 2
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取当前目录失败：%v\n", err)
		return 1
	}

	eff, err := config.LoadEffective(cwd, config.CLIArgs{
		ConfigPath: fa.ConfigPath,
		Engine:     fa.Engine,
		EngineSet:  fa.EngineSet,
	})
	if err != nil {
		_ = emitOrReport(fa, resolutionForConfigError(fa.Query, err))
		return 1
	}

	log, err := logx.New(eff.Log)
	if err != nil {
		_ = emitOrReport(fa, resolutionForConfigError(fa.Query, err))
		return 1
	}
	defer func() { _ = log.Sync() }()

	progressW, interactive := pickProgressWriter()
	var (
		obs resolve.Observer
		ui  *progressUI
	)
	if interactive {
		ui = newProgressUI(progressW, eff)
		obs = ui
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res := run.Execute(ctx, eff, fa.Query, log, obs)
	log.Info("find done",
		zap.String("resolution_id", res.ID),
		zap.String("state", res.State),
		zap.Int("links", len(res.Links)),
	)

	if ui != nil {
		ui.summary(res)
	}
	if err := emitOrReport(fa, res); err != nil {
		log.Error("emit resolution failed", zap.String("resolution_id", res.ID), zap.Error(err))
		return 1
	}
	if res.Found() {
		return 0
	}
	return 1
}

type findArgs struct {
	Query      string
	ConfigPath string
	Engine     string
	EngineSet  bool
	JSON       bool
}

func parseFindArgs(args []string) (findArgs, error) {
	fa := findArgs{}
	var words []string

	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--":
			words = append(words, args[i+1:]...)
			i = len(args)
		case a == "--config":
			if i+1 >= len(args) {
				return findArgs{}, fmt.Errorf("--config 需要一个值")
			}
			i++
			fa.ConfigPath = args[i]
		case strings.HasPrefix(a, "--config="):
			fa.ConfigPath = strings.TrimPrefix(a, "--config=")
		case a == "--engine":
			if i+1 >= len(args) {
				return findArgs{}, fmt.Errorf("--engine 需要一个值")
			}
			i++
			fa.Engine = args[i]
			fa.EngineSet = true
		case strings.HasPrefix(a, "--engine="):
			fa.Engine = strings.TrimPrefix(a, "--engine=")
			fa.EngineSet = true
		case a == "--json":
			fa.JSON = true
		case strings.HasPrefix(a, "-"):
			return findArgs{}, fmt.Errorf("未知参数 %q", a)
		default:
			words = append(words, a)
		}
	}

	if fa.EngineSet && strings.TrimSpace(fa.Engine) == "" {
		return findArgs{}, fmt.Errorf("--engine 不能为空")
	}
	if fa.ConfigPath != "" && strings.TrimSpace(fa.ConfigPath) == "" {
		return findArgs{}, fmt.Errorf("--config 不能为空")
	}

	fa.Query = strings.TrimSpace(strings.Join(words, " "))
	if fa.Query == "" {
		return findArgs{}, fmt.Errorf("缺少查询词")
	}
	return fa, nil
}

func isHelp(s string) bool {
	return s == "-h" || s == "--help" || s == "help"
}

// printHelp 输出 CLI 用法，随后是机器人的命令说明。
func printHelp(w io.Writer) {
	printUsage(w)
	fmt.Fprintln(w)
	fmt.Fprintln(w, present.HelpText)
}

func printStart(w io.Writer, name string) {
	fmt.Fprintln(w, present.StartText(name)+"\n\n"+present.HelpText)
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `用法：
  moviefind find [--config FILE] [--engine google|duckduckgo] [--json] <query...>
  moviefind start [name]
  moviefind help

命令：
  find   按片名搜索并抽取影片信息
  start  打印欢迎语与帮助
  help   打印本说明与机器人命令

使用 "moviefind find --help" 查看详细说明。
`)
}

func printFindUsage(w io.Writer) {
	fmt.Fprint(w, `用法：
  moviefind find [--config FILE] [--engine google|duckduckgo] [--json] <query...>

参数：
  --config    配置文件路径（未指定则尝试 ./moviefind.yaml）
  --engine    首选搜索引擎：google|duckduckgo（未指定则读配置文件/环境变量；最终默认 google）
  --json      始终输出 Resolution JSON（stdout 非 TTY 时默认即为 JSON）
  -h, --help  显示帮助
`)
}

// emitOrReport 把结果写到 stdout；写出失败时在 stderr 说明原因并返回该错误。
func emitOrReport(fa findArgs, res domain.Resolution) error {
	if err := emitResolution(os.Stdout, fa, res); err != nil {
		fmt.Fprintf(os.Stderr, "输出结果失败：%v\n", err)
		return err
	}
	return nil
}

func emitResolution(w io.Writer, fa findArgs, res domain.Resolution) error {
	if !fa.JSON && isTTY(os.Stdout) {
		rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
		if _, err := fmt.Fprintln(w, present.Reply(fa.Query, res, rnd)); err != nil {
			return err
		}
		if res.ErrorCode != "" {
			fmt.Fprintf(os.Stderr, "%s: %s\n", res.ErrorCode, res.ErrorMsg)
		}
		return nil
	}

	// 非 TTY（或 --json）：stdout 只输出一个 Resolution JSON。
	// 先编码到内存，失败时 stdout 不留半截内容。
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("编码 Resolution JSON 失败：%w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func resolutionForConfigError(query string, err error) domain.Resolution {
	code := config.Code(err)
	if code == "" {
		code = domain.ErrCodeConfigInvalid
	}
	now := time.Now()
	res := domain.Resolution{
		ID:         uuid.NewString(),
		Query:      query,
		State:      domain.StateFailed,
		ErrorCode:  code,
		ErrorMsg:   err.Error(),
		StartedAt:  now,
		FinishedAt: now,
	}
	res.Finalize()
	return res
}

func isTTY(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func pickProgressWriter() (io.Writer, bool) {
	// 进度只在 stderr 是交互终端时输出，不污染 stdout。
	if isTTY(os.Stderr) {
		return os.Stderr, true
	}
	return nil, false
}
