package annotation

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ixugo/goddd/pkg/orm"
	"github.com/ixugo/goddd/pkg/system"
)

// StartSnapshotCleanupWorker 启动定时清理协程，每 24 小时执行一次
// days 参数指定快照保留天数，超过该天数的检测快照将被删除
func (c Core) StartSnapshotCleanupWorker(days int) {
	if days <= 0 {
		slog.Info("snapshot cleanup disabled", "days", days)
		return
	}

	slog.Info("snapshot cleanup worker started", "retain_days", days)

	// 启动时先执行一次清理
	c.cleanupExpiredSnapshots(days)

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		c.cleanupExpiredSnapshots(days)
	}
}

// cleanupExpiredSnapshots 清理过期的检测快照文件
// 快照目录按视频 ID 分组，视频已删除的目录整体移除，其余按文件修改时间清理
func (c Core) cleanupExpiredSnapshots(days int) {
	ctx := context.Background()
	cutoff := time.Now().AddDate(0, 0, -days)

	snapshotsDir := filepath.Join(system.Getwd(), "configs", "snapshots")
	entries, err := os.ReadDir(snapshotsDir)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Error("failed to read snapshots dir", "dir", snapshotsDir, "err", err)
		}
		return
	}

	slog.Info("starting snapshot cleanup", "cutoff_time", cutoff.Format(time.DateTime), "retain_days", days)

	totalFilesDeleted := 0
	orphanDirsDeleted := 0

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		videoID := entry.Name()
		dir := filepath.Join(snapshotsDir, videoID)

		// 关联视频已不存在的目录整体移除
		var v Video
		if err := c.store.Video().Get(ctx, &v, orm.Where("id=?", videoID)); err != nil {
			if orm.IsErrRecordNotFound(err) {
				if err := os.RemoveAll(dir); err != nil {
					slog.Warn("failed to remove orphan snapshot dir", "dir", dir, "err", err)
				} else {
					orphanDirsDeleted++
				}
			} else {
				slog.Error("failed to query video", "id", videoID, "err", err)
			}
			continue
		}

		totalFilesDeleted += removeExpiredFiles(dir, cutoff)
	}

	// 清理空目录
	cleanupEmptyDirs(snapshotsDir)

	slog.Info("snapshot cleanup completed",
		"files_deleted", totalFilesDeleted,
		"orphan_dirs_deleted", orphanDirsDeleted,
	)
}

// removeExpiredFiles 删除目录下修改时间早于 cutoff 的文件，返回删除数量
func removeExpiredFiles(dir string, cutoff time.Time) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}

	deleted := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			if !os.IsNotExist(err) {
				slog.Warn("failed to delete snapshot", "path", path, "err", err)
			}
			continue
		}
		deleted++
	}
	return deleted
}

// cleanupEmptyDirs 递归删除空目录
func cleanupEmptyDirs(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	for _, entry := range entries {
		if entry.IsDir() {
			subDir := filepath.Join(dir, entry.Name())
			cleanupEmptyDirs(subDir)

			// 检查子目录是否为空
			subEntries, err := os.ReadDir(subDir)
			if err == nil && len(subEntries) == 0 {
				if err := os.Remove(subDir); err == nil {
					slog.Debug("removed empty directory", "path", subDir)
				}
			}
		}
	}
}
