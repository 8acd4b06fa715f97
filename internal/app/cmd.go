package app

import (
	"fmt"
	"slices"
)

// Command はdeskpadのサブコマンド。
type Command string

const (
	// CommandServe はAPIサーバーとニュース更新ジョブを起動する。引数なしの場合の既定値。
	CommandServe Command = "serve"
	// CommandWorker はHTTPサーバーなしでニュース更新と記事クリーンアップのみを実行する。
	CommandWorker Command = "worker"
	// CommandMigrate はデータベースマイグレーションを適用して終了する。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck は稼働中のサーバーの/healthを確認する。distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// Commands はサポートするサブコマンドの一覧。
var Commands = []Command{CommandServe, CommandWorker, CommandMigrate, CommandHealthcheck}

// ParseCommand はコマンドライン引数の先頭からサブコマンドを解析する。
// 引数が空の場合はCommandServeを返す。2番目以降の引数は無視する。
// 未知のサブコマンドは誤ってサーバーを起動しないようエラーにする。
func ParseCommand(args []string) (Command, error) {
	if len(args) == 0 {
		return CommandServe, nil
	}
	cmd := Command(args[0])
	if !slices.Contains(Commands, cmd) {
		return "", fmt.Errorf("unknown command %q (available: %v)", args[0], Commands)
	}
	return cmd, nil
}
