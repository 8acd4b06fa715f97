// Package logger はJSON構造化ログの初期化を行う。
package logger

import (
	"io"
	"log/slog"
	"os"
)

// level は全ロガーで共有する出力レベル。設定読み込み後にSetLevelで変更する。
var level = new(slog.LevelVar)

// Setup はJSON構造化ログ出力のslog.Loggerを生成して返す。
// 出力レベルはSetLevelで変更でき、生成済みのロガーにも反映される。
func Setup(w io.Writer) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(handler).With(slog.String("service", "deskpad"))
}

// SetupDefault はJSON構造化ログ出力をグローバルロガーとして設定し、そのロガーを返す。
// writerがnilの場合はos.Stdoutに出力する。
func SetupDefault(w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	logger := Setup(w)
	slog.SetDefault(logger)
	return logger
}

// SetLevel はログの出力レベルを変更する。
func SetLevel(l slog.Level) {
	level.Set(l)
}
