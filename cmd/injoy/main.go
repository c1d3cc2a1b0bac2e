package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	xerrors "aptos-playground/internal/errors"
	"aptos-playground/pkg/logger"
)

// main 是 injoy 命令行工具的入口。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCommand().ExecuteContext(ctx)
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "injoy: %v\n", err)
		fmt.Fprint(os.Stderr, details(err))
		os.Exit(exitCode(err))
	}
}

// exitCode 将配置错误与运行时错误区分开。
func exitCode(err error) int {
	switch xerrors.CodeOf(err) {
	case xerrors.CodeConfig, xerrors.CodeInvalidArgument:
		return 2
	default:
		return 1
	}
}

// details 输出错误码附带的元数据，便于定位失败的配置字段或交易哈希。
func details(err error) string {
	e, ok := xerrors.From(err)
	if !ok {
		return ""
	}
	meta := e.Metadata()
	keys := make([]string, 0, len(meta))
	for k := range meta {
		if k != xerrors.MetadataOperation {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "  code:      %s\n", e.Code())
	if op := e.Operation(); op != "" {
		fmt.Fprintf(&b, "  operation: %s\n", op)
	}
	for _, k := range keys {
		fmt.Fprintf(&b, "  %s: %s\n", k, meta[k])
	}
	return b.String()
}
