package input

import (
	"os"
)

// preCheckCache 检查缓存目录，返回是否启用缓存
func preCheckCache(cacheDir string) bool {
	if cacheDir == "" {
		log.Info("disable input cache")
		return false
	}
	if stat, err := os.Stat(cacheDir); err == nil && stat.IsDir() {
		log.Infof("enable input cache at %s", cacheDir)
		return true
	}
	log.Errorf("disable input cache because invalid dir %s (not exist or file)", cacheDir)
	return false
}
