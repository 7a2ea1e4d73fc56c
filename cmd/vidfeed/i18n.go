// Package main provides localization for the vidfeed CLI.
package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	// Register Japanese translations for CLI messages.
	l10n.Register("ja", l10n.LexiconMap{
		// Root command
		"Play video sources as a deterministic, seekable frame feed": "動画ソースを決定的でシーク可能なフレームフィードとして再生",
		"Path to a YAML configuration file":                          "YAML設定ファイルのパス",
		"Log level (debug, info, warn, error, quiet)":                "ログレベル（debug, info, warn, error, quiet）",
		"Error: %s": "エラー: %s",

		// Play command
		"Play a source and deliver its frames to a sink":      "ソースを再生してフレームをシンクへ配信",
		"Override the source frame rate":                      "ソースのフレームレートを上書き",
		"Backlog policy (deliver_all, drop_to_latest)":        "バックログポリシー（deliver_all, drop_to_latest）",
		"Restart from the first frame at end of stream":       "ストリーム終端で先頭フレームから再開",
		"Resize frames to this width":                         "フレームをこの幅にリサイズ",
		"Resize frames to this height":                        "フレームをこの高さにリサイズ",
		"Stamp frame index and timestamp onto the picture":    "フレーム番号とタイムスタンプを画像に刻印",
		"Directory to write frames into":                      "フレームの書き出し先ディレクトリ",
		"Frame file format (png, jpeg, raw)":                  "フレームのファイル形式（png, jpeg, raw）",
		"Discard frames instead of writing them (pacing only)": "フレームを書き出さずに破棄（ペーシング確認用）",
		"Seek to this timestamp before delivering frames":     "配信開始前にこのタイムスタンプへシーク",

		// Probe command
		"Open a source and print its media properties": "ソースを開いてメディア情報を表示",
		"Source:   %s": "ソース:     %s",
		"Codec:    %s": "コーデック: %s",
		"Size:     %dx%d": "サイズ:     %dx%d",
		"Frames:   %d":    "フレーム数: %d",
		"Interval: %s":    "間隔:       %s",
		"Duration: %s":    "再生時間:   %s",

		// Version command
		"Show version information": "バージョン情報を表示",
		"vidfeed version %s":       "vidfeed バージョン %s",
	})
}
