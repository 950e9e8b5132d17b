package cache

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// diskTier 将每个 key 映射为 <root>/<base64url(key)> 文件，文件内容即 codec 编码结果。
// 除文件本身外不维护任何索引。
type diskTier struct {
	root string
}

// DiskEntry 描述一个磁盘缓存文件。
type DiskEntry struct {
	Key       string    `json:"key"`
	FilePath  string    `json:"file_path"`
	SizeBytes int64     `json:"size_bytes"`
	ModTime   time.Time `json:"mod_time"`
}

// ErrNotFound 表示磁盘层不存在该 key。
var ErrNotFound = errors.New("cache entry not found")

func newDiskTier(root string) (*diskTier, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve cache dir: %w", err)
	}
	return &diskTier{root: abs}, nil
}

// EncodeKey 返回 key 在磁盘上的文件名，使用 URL-safe base64 以兼容所有文件系统。
func EncodeKey(key string) string {
	return base64.URLEncoding.EncodeToString([]byte(key))
}

// DecodeKey 是 EncodeKey 的逆运算。
func DecodeKey(name string) (string, error) {
	raw, err := base64.URLEncoding.DecodeString(name)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (d *diskTier) path(key string) string {
	return filepath.Join(d.root, EncodeKey(key))
}

func (d *diskTier) read(key string) ([]byte, error) {
	filePath := d.path(key)
	info, err := os.Stat(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, ErrNotFound
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// write 通过临时文件 + rename 落盘，失败时清理临时文件。
func (d *diskTier) write(key string, data []byte) error {
	if err := os.MkdirAll(d.root, 0o755); err != nil {
		return err
	}

	tempFile, err := os.CreateTemp(d.root, ".cache-*")
	if err != nil {
		return err
	}
	tempName := tempFile.Name()

	_, err = tempFile.Write(data)
	closeErr := tempFile.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempName)
		return err
	}

	if err := os.Rename(tempName, d.path(key)); err != nil {
		os.Remove(tempName)
		return err
	}
	return nil
}

func (d *diskTier) remove(key string) error {
	if err := os.Remove(d.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// list 枚举磁盘层全部条目，跳过临时文件与无法解码的文件名。
func (d *diskTier) list() ([]DiskEntry, error) {
	dirEntries, err := os.ReadDir(d.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	result := make([]DiskEntry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if de.IsDir() || strings.HasPrefix(de.Name(), ".") {
			continue
		}
		key, err := DecodeKey(de.Name())
		if err != nil {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		result = append(result, DiskEntry{
			Key:       key,
			FilePath:  filepath.Join(d.root, de.Name()),
			SizeBytes: info.Size(),
			ModTime:   info.ModTime(),
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result, nil
}
