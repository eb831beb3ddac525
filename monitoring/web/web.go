// Package web holds the dashboard served by the run monitor.
package web

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
)

// AssetsDirEnv names a directory served in place of the embedded dashboard,
// so the pages can be edited without rebuilding.
const AssetsDirEnv = "COHORTSIM_MONITOR_ASSETS"

//go:embed dist/*
var dist embed.FS

// Embedded returns the dashboard compiled into the binary.
func Embedded() http.FileSystem {
	sub, err := fs.Sub(dist, "dist")
	if err != nil {
		panic(err)
	}

	return http.FS(sub)
}

// Assets returns the directory named by COHORTSIM_MONITOR_ASSETS, or the
// embedded dashboard when the variable is empty.
func Assets() (http.FileSystem, error) {
	dir := os.Getenv(AssetsDirEnv)
	if dir == "" {
		return Embedded(), nil
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("dashboard assets: %w", err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("dashboard assets: %s is not a directory", dir)
	}

	return http.Dir(dir), nil
}
