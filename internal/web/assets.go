package web

import (
	"embed"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/afero"
)

//go:embed static
var embedded embed.FS

// openAssets は静的ファイルのファイルシステムを返す
//
// dir が指定された場合はそのディレクトリ、無ければバイナリに埋め込んだファイルを使う。
func openAssets(dir string) (afero.Fs, error) {
	if dir != "" {
		info, err := os.Stat(dir)
		if err != nil {
			return nil, fmt.Errorf("static directory: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("static directory: %s is not a directory", dir)
		}
		return afero.NewReadOnlyFs(afero.NewBasePathFs(afero.NewOsFs(), dir)), nil
	}

	sub, err := fs.Sub(embedded, "static")
	if err != nil {
		return nil, err
	}
	return afero.FromIOFS{FS: sub}, nil
}

// NewServerWithAssets はテストなどで静的ファイルを差し替えたサーバーを作成する
func NewServerWithAssets(config *Config, assets afero.Fs) (*Server, error) {
	server, err := NewServer(config)
	if err != nil {
		return nil, err
	}
	server.assets = assets
	return server, nil
}
