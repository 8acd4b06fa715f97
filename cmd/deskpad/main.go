// Command deskpad はTodo・日記・電卓・ポートフォリオ・ニュースをまとめた個人用ダッシュボードのAPIサーバー。
//
// 使い方:
//
//	deskpad [serve|worker|migrate|healthcheck]
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/deskpad/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "deskpad: %v\n", err)
		os.Exit(1)
	}
}
