package service

import (
	"context"
	"errors"
	"sync"

	"github.com/dushixiang/monitoring/internal/config"
	"github.com/dushixiang/monitoring/internal/repo"
	goerrors "github.com/go-errors/errors"
	"github.com/go-orz/orz"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// FailedRow 写入失败的行
type FailedRow struct {
	DescriptorID int
	Kind         EntityKind
	Err          error
}

// WriteReport 写入结果
type WriteReport struct {
	RootID    int64
	Succeeded []int
	Failed    []FailedRow
}

// FailedKinds 按实体类型统计失败数
func (r *WriteReport) FailedKinds() map[string]int {
	if len(r.Failed) == 0 {
		return nil
	}
	result := make(map[string]int)
	for _, f := range r.Failed {
		result[string(f.Kind)]++
	}
	return result
}

// SnapshotWriter 按层级执行写入计划
type SnapshotWriter struct {
	logger *zap.Logger
	*orz.Service
	db           *gorm.DB
	snapshotRepo *repo.SnapshotRepo
	mode         string
	parallelism  int
}

func NewSnapshotWriter(logger *zap.Logger, db *gorm.DB, cfg config.IngestConfig) *SnapshotWriter {
	parallelism := cfg.Parallelism
	if parallelism < 1 {
		parallelism = 1
	}
	mode := cfg.Mode
	if mode == "" {
		mode = config.IngestModeBestEffort
	}
	return &SnapshotWriter{
		logger:       logger,
		Service:      orz.NewService(db),
		db:           db,
		snapshotRepo: repo.NewSnapshotRepo(db),
		mode:         mode,
		parallelism:  parallelism,
	}
}

// Mode 当前写入模式
func (w *SnapshotWriter) Mode() string {
	return w.mode
}

// Write 执行写入计划
func (w *SnapshotWriter) Write(ctx context.Context, plan *WritePlan) (*WriteReport, error) {
	if w.mode == config.IngestModeAtomic {
		return w.writeAtomic(ctx, plan)
	}
	return w.writeBestEffort(ctx, plan)
}

// writeBestEffort 根记录失败则中止；其它行失败只记录，不影响剩余的写入
func (w *SnapshotWriter) writeBestEffort(ctx context.Context, plan *WritePlan) (*WriteReport, error) {
	root := plan.Root()
	if err := w.snapshotRepo.Insert(ctx, root.Row); err != nil {
		return nil, &PersistenceError{Reason: RootWriteFailed, Kind: root.Kind, Err: goerrors.Wrap(err, 0)}
	}

	report := &WriteReport{RootID: root.Row.GetID(), Succeeded: []int{root.ID}}
	failed := make(map[int]bool)
	var mu sync.Mutex

	for tier := TierSnapshotChild; tier < tierCount; tier++ {
		p := pool.New().WithMaxGoroutines(w.parallelism)
		for _, d := range plan.Tier(tier) {
			mu.Lock()
			skip := dependencyFailed(d, failed)
			if skip {
				w.recordFailure(report, d, ErrDependencyFailed)
				failed[d.ID] = true
			}
			mu.Unlock()
			if skip {
				continue
			}
			p.Go(func() {
				d.Bind()
				err := w.snapshotRepo.Insert(ctx, d.Row)

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					w.recordFailure(report, d, err)
					failed[d.ID] = true
					return
				}
				report.Succeeded = append(report.Succeeded, d.ID)
			})
		}
		p.Wait()
	}
	w.removeUnreferenced(ctx, plan, report)
	return report, nil
}

// writeAtomic 整个计划在一个事务中顺序执行，任意失败全部回滚
func (w *SnapshotWriter) writeAtomic(ctx context.Context, plan *WritePlan) (*WriteReport, error) {
	var report *WriteReport
	err := w.Transaction(ctx, func(ctx context.Context) error {
		report = &WriteReport{}
		for tier := TierRoot; tier < tierCount; tier++ {
			for _, d := range plan.Tier(tier) {
				d.Bind()
				if err := w.snapshotRepo.Insert(ctx, d.Row); err != nil {
					reason := PlanAborted
					if d.Tier == TierRoot {
						reason = RootWriteFailed
					}
					return &PersistenceError{Reason: reason, Kind: d.Kind, Err: goerrors.Wrap(err, 0)}
				}
				report.Succeeded = append(report.Succeeded, d.ID)
			}
		}
		report.RootID = plan.Root().Row.GetID()
		return nil
	})
	if err != nil {
		var persistenceErr *PersistenceError
		if !errors.As(err, &persistenceErr) {
			err = &PersistenceError{Reason: PlanAborted, Err: goerrors.Wrap(err, 0)}
		}
		return nil, err
	}
	return report, nil
}

// removeUnreferenced 删除没有被任何已写入行引用的 CPU 负载行
// CPU 负载没有快照外键，CPU 信息或关联行写入失败时只能通过这里清理
func (w *SnapshotWriter) removeUnreferenced(ctx context.Context, plan *WritePlan, report *WriteReport) {
	written := make(map[int]bool, len(report.Succeeded))
	for _, id := range report.Succeeded {
		written[id] = true
	}
	referenced := make(map[int]bool)
	for _, d := range plan.Descriptors {
		if !written[d.ID] {
			continue
		}
		for _, id := range d.Requires {
			referenced[id] = true
		}
	}

	removed := make(map[int]bool)
	for _, d := range plan.Descriptors {
		if d.Kind != KindAggregateCpuLoad && d.Kind != KindCoreCpuLoad {
			continue
		}
		if !written[d.ID] || referenced[d.ID] {
			continue
		}
		if err := w.snapshotRepo.Delete(ctx, d.Row); err != nil {
			w.logger.Error("删除未被引用的 CPU 负载失败",
				zap.Int64("snapshotId", report.RootID),
				zap.Int("descriptorId", d.ID),
				zap.Error(err))
			continue
		}
		removed[d.ID] = true
		w.recordFailure(report, d, ErrUnreferenced)
	}
	if len(removed) == 0 {
		return
	}
	succeeded := report.Succeeded[:0]
	for _, id := range report.Succeeded {
		if !removed[id] {
			succeeded = append(succeeded, id)
		}
	}
	report.Succeeded = succeeded
}

func (w *SnapshotWriter) recordFailure(report *WriteReport, d *RowDescriptor, err error) {
	report.Failed = append(report.Failed, FailedRow{DescriptorID: d.ID, Kind: d.Kind, Err: err})
	w.logger.Error("写入快照子记录失败",
		zap.Int64("snapshotId", report.RootID),
		zap.String("kind", string(d.Kind)),
		zap.Int("descriptorId", d.ID),
		zap.Error(err))
}

func dependencyFailed(d *RowDescriptor, failed map[int]bool) bool {
	for _, id := range d.Requires {
		if failed[id] {
			return true
		}
	}
	return false
}
