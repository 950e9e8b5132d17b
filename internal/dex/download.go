package dex

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/pkdex/pkdex/internal/kind"
	"github.com/pkdex/pkdex/internal/loader"
	"github.com/pkdex/pkdex/internal/model"
	"github.com/pkdex/pkdex/internal/task"
)

// DownloadOptions 控制完整下载。
type DownloadOptions struct {
	// Kinds 为空时下载所有 Download=true 的类型。
	Kinds []string
	// Workers 限制同时处理的页数，<=0 时为 1。
	Workers int
}

// Snapshot 是完整下载的结果。
type Snapshot struct {
	RunID   string
	Started time.Time
	Elapsed time.Duration
	// Names 按类型列出成功加载的条目，已排序。
	Names  map[string][]string
	Failed int
}

// Loaded 返回成功加载的条目总数。
func (s *Snapshot) Loaded() int {
	n := 0
	for _, names := range s.Names {
		n += len(names)
	}
	return n
}

// Download 启动完整下载并立即返回。每个类型逐页读取列表，Total 按列表报告的
// 总数累加；每页交给一个 worker 逐条加载，Completed 随之增加。单个条目失败
// 通过 Notifier 报告，不会中止下载。Kinds 中含未注册类型时返回 ErrUnknownKind，
// 不启动任何工作。
func (d *Dex) Download(opts DownloadOptions) (*task.Task[*Snapshot, error], error) {
	bindings, err := d.downloadSet(opts.Kinds)
	if err != nil {
		return nil, err
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}

	t := task.New[*Snapshot, error]()
	t.Start(func(n task.Notifier[error]) *Snapshot {
		snap := &Snapshot{
			RunID:   uuid.NewString(),
			Started: time.Now(),
			Names:   make(map[string][]string, len(bindings)),
		}
		logger := d.logger.WithFields(logrus.Fields{"action": "download", "run_id": snap.RunID})
		logger.WithField("kinds", len(bindings)).Info("download_started")

		var (
			mu     sync.Mutex
			failed atomic.Int64
		)
		collect := func(key, name string) {
			mu.Lock()
			snap.Names[key] = append(snap.Names[key], name)
			mu.Unlock()
		}

		ctx := context.Background()
		pool, ctx := errgroup.WithContext(ctx)
		pool.SetLimit(workers)

		var kinds errgroup.Group
		for _, b := range bindings {
			kinds.Go(func() error {
				key := b.metadata().Key
				counted := false
				err := b.pages(ctx, func(count int, page []model.NamedResource) error {
					if !counted {
						n.IncTotal(count)
						counted = true
					}
					pool.Go(func() error {
						for _, r := range page {
							n.SendMessage(r.URL)
							if err := b.warm(ctx, r.Label()); err != nil {
								failed.Add(1)
								n.SendError(&loader.FetchError{Kind: key, Name: r.Label(), Err: err})
							} else {
								collect(key, r.Label())
							}
							n.IncCompleted(1)
						}
						return nil
					})
					return nil
				})
				if err != nil {
					n.SendError(&loader.FetchError{Kind: key, Err: err})
				}
				return nil
			})
		}
		_ = kinds.Wait()
		_ = pool.Wait()

		for key := range snap.Names {
			sort.Strings(snap.Names[key])
		}
		snap.Failed = int(failed.Load())
		snap.Elapsed = time.Since(snap.Started)
		logger.WithFields(logrus.Fields{
			"loaded":     snap.Loaded(),
			"failed":     snap.Failed,
			"elapsed_ms": snap.Elapsed.Milliseconds(),
		}).Info("download_finished")
		return snap
	})
	return t, nil
}

func (d *Dex) downloadSet(keys []string) ([]binding, error) {
	var out []binding
	if len(keys) == 0 {
		for _, meta := range d.Kinds() {
			if meta.Download {
				out = append(out, d.bindings[meta.Key])
			}
		}
		return out, nil
	}
	for _, key := range keys {
		meta, ok := kind.Resolve(key)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownKind, key)
		}
		b, ok := d.bindings[meta.Key]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownKind, key)
		}
		out = append(out, b)
	}
	return out, nil
}
