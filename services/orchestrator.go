package services

import (
	"fmt"
	"time"

	"livematch-service/logger"
	"sync"
)

// StateStore 编排器需要的存储能力，MatchStore 是生产实现
type StateStore interface {
	EnsureMatch(externalID string) (*MatchState, error)
	GetMatch(externalID string) (*MatchState, error)
	LiveMatches() ([]*MatchState, error)
	ApplyField(externalID string, u FieldUpdate) (bool, error)
	ClearMinute(externalID string) error
	InsertIncident(inc Incident) error
	InsertChangeEvent(ev ChangeEvent) error
}

type retryJob struct {
	matchID string
	updates []FieldUpdate
}

// matchLock 单场比赛的信号量。refs 记录正在使用（持有或等待）这个
// 通道的协程数，条目只在无人引用且比赛已终态时回收，保证等待者
// 不会落在一个已经被换掉的通道上
type matchLock struct {
	ch   chan struct{}
	refs int
}

// Orchestrator 单场比赛的更新入口。
// 同一场比赛的更新互斥处理（读-判-写不能并发），不同比赛完全并行。
// 锁等待有上限，超时进重试队列，绝不让一场卡住的比赛拖住整个系统
type Orchestrator struct {
	store      StateStore
	reconciler *Reconciler
	broker     ChangeBroker

	lockTimeout time.Duration
	mu          sync.Mutex
	locks       map[string]*matchLock

	retry chan retryJob
	done  chan struct{}
	wg    sync.WaitGroup

	// 测试注入当前时间
	now func() int64
}

// NewOrchestrator 创建编排器
func NewOrchestrator(store StateStore, reconciler *Reconciler, broker ChangeBroker, lockTimeout time.Duration) *Orchestrator {
	if lockTimeout <= 0 {
		lockTimeout = time.Second
	}
	return &Orchestrator{
		store:       store,
		reconciler:  reconciler,
		broker:      broker,
		lockTimeout: lockTimeout,
		locks:       make(map[string]*matchLock),
		retry:       make(chan retryJob, 256),
		done:        make(chan struct{}),
		now:         func() int64 { return time.Now().Unix() },
	}
}

// Start 启动重试队列消费协程
func (o *Orchestrator) Start() {
	o.wg.Add(1)
	go o.retryLoop()
}

// Stop 停止编排器
func (o *Orchestrator) Stop() {
	close(o.done)
	o.wg.Wait()
}

func (o *Orchestrator) retryLoop() {
	defer o.wg.Done()

	for {
		select {
		case <-o.done:
			return
		case job := <-o.retry:
			// 稍等片刻再试，持锁方大概率已经完成
			select {
			case <-o.done:
				return
			case <-time.After(o.lockTimeout):
			}
			if err := o.Apply(job.matchID, job.updates); err != nil {
				logger.Errorf("[Orchestrator] Retry for match %s failed: %v", job.matchID, err)
			}
		}
	}
}

// lockFor 取该场比赛的信号量（容量 1）并登记一个引用
func (o *Orchestrator) lockFor(matchID string) *matchLock {
	o.mu.Lock()
	defer o.mu.Unlock()

	l, ok := o.locks[matchID]
	if !ok {
		l = &matchLock{ch: make(chan struct{}, 1)}
		o.locks[matchID] = l
	}
	l.refs++
	return l
}

// releaseRef 注销引用。比赛终态且无人引用时回收条目，
// 长期运行的进程不能为每场见过的比赛永久留一个通道
func (o *Orchestrator) releaseRef(matchID string, l *matchLock, terminal bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	l.refs--
	if terminal && l.refs == 0 {
		delete(o.locks, matchID)
	}
}

// Apply 处理一批更新。锁超时会把整批转入重试队列并立即返回，
// 只有真正的基础设施故障（存储不可用等）才返回错误
func (o *Orchestrator) Apply(matchID string, updates []FieldUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	lock := o.lockFor(matchID)
	select {
	case lock.ch <- struct{}{}:
	case <-time.After(o.lockTimeout):
		o.releaseRef(matchID, lock, false)
		select {
		case o.retry <- retryJob{matchID: matchID, updates: updates}:
			logger.Debugf("[Orchestrator] Lock timeout for match %s, batch queued for retry", matchID)
			return nil
		default:
			return fmt.Errorf("retry queue full, dropping batch for match %s", matchID)
		}
	}

	terminal, err := o.applyLocked(matchID, updates)
	<-lock.ch
	o.releaseRef(matchID, lock, terminal)
	return err
}

// applyLocked 持锁处理一批更新，返回处理后比赛是否已终态（供锁回收）
func (o *Orchestrator) applyLocked(matchID string, updates []FieldUpdate) (bool, error) {
	state, err := o.store.EnsureMatch(matchID)
	if err != nil {
		return false, err
	}

	// 处理中可能追加推导出的更新（锚点），用下标循环
	pending := make([]FieldUpdate, len(updates))
	copy(pending, updates)

	for i := 0; i < len(pending); i++ {
		u := pending[i]
		if u.MatchID != matchID {
			logger.Errorf("[Orchestrator] Update for %s delivered to match %s batch, skipped", u.MatchID, matchID)
			continue
		}

		accepted, err := o.applyOne(state, u)
		if err != nil {
			return false, err
		}
		if !accepted {
			continue
		}

		// 状态进入新阶段时推导开球锚点（首写即定，抖动重入不会覆盖）
		if u.Field == FieldStatus {
			if anchor := deriveAnchor(Status(u.Value), u); anchor != nil {
				pending = append(pending, *anchor)
			}
		}
	}

	return Status(state.Status.Value).IsTerminal(), o.refreshMinute(state)
}

// applyOne 单条更新走完整的协调/状态机/持久化路径，返回是否被接受
func (o *Orchestrator) applyOne(state *MatchState, u FieldUpdate) (bool, error) {
	current := state.Field(u.Field)

	decision := o.reconciler.Reconcile(current, u)
	if !decision.Accept {
		// 被拒绝是多来源竞争的正常结果，debug 级别记录后丢弃，不重试
		logger.Debugf("[Orchestrator] Dropped %s: %s", u, decision.Reason)
		return false, nil
	}

	// status 字段额外过状态机
	if u.Field == FieldStatus {
		if terr := ValidateTransition(Status(current.Value), Status(u.Value)); terr != nil {
			if terr.Regression {
				inc := Incident{
					MatchID: u.MatchID,
					Kind:    IncidentStatusRegression,
					Detail:  fmt.Sprintf("%v (source=%s observed_at=%d)", terr, u.Source, u.ObservedAt),
				}
				if err := o.store.InsertIncident(inc); err != nil {
					logger.Errorf("[Orchestrator] Failed to record incident: %v", err)
				}
				logger.Errorf("[Orchestrator] ❌ %v", terr)
			} else {
				logger.Errorf("[Orchestrator] %v", terr)
			}
			return false, nil
		}
	}

	applied, err := o.store.ApplyField(u.MatchID, u)
	if err != nil {
		return false, err
	}
	if !applied {
		// 存储层 CAS 兜底拦下了更旧的时间戳
		logger.Debugf("[Orchestrator] Store rejected %s (timestamp guard)", u)
		return false, nil
	}

	var oldValue *int64
	if current.Valid {
		v := current.Value
		oldValue = &v
	}

	state.setField(u.Field, FieldState{
		Value:     u.Value,
		Valid:     true,
		Source:    u.Source,
		Timestamp: u.ObservedAt,
	}, u.Detail)

	ev := ChangeEvent{
		MatchID:   u.MatchID,
		Field:     u.Field,
		OldValue:  oldValue,
		NewValue:  u.Value,
		Source:    u.Source,
		Timestamp: u.ObservedAt,
	}
	if err := o.store.InsertChangeEvent(ev); err != nil {
		logger.Errorf("[Orchestrator] Failed to persist change event: %v", err)
	}
	if o.broker != nil {
		o.broker.Publish(ev)
	}

	return true, nil
}

// deriveAnchor 状态首次进入某阶段时，用该观测的时间当开球锚点
func deriveAnchor(status Status, u FieldUpdate) *FieldUpdate {
	var field Field
	switch status {
	case StatusFirstHalf:
		field = FieldFirstHalfKickoff
	case StatusSecondHalf:
		field = FieldSecondHalfKickoff
	case StatusOvertime:
		field = FieldOvertimeKickoff
	default:
		return nil
	}

	anchorTS := u.ObservedAt
	return &FieldUpdate{
		MatchID:    u.MatchID,
		Field:      field,
		Value:      anchorTS,
		Source:     SourceComputed,
		ObservedAt: u.ObservedAt,
	}
}

// refreshMinute 批处理收尾时从锚点重推分钟。
// 离开进行中阶段、或进入点球大战这类没有分钟定义的阶段，都要置空，
// 否则上一阶段的分钟会一直挂在接口上
func (o *Orchestrator) refreshMinute(state *MatchState) error {
	status := Status(state.Status.Value)

	if !status.HasMinute() {
		if state.Minute.Valid {
			if err := o.store.ClearMinute(state.ExternalID); err != nil {
				return err
			}
			state.Minute.Valid = false
		}
		return nil
	}

	now := o.now()
	minute := ComputeMinute(now, status, state.Anchors())
	if minute == nil {
		// 锚点缺失不是错误，等锚点到位再算
		return nil
	}

	if state.Minute.Valid && state.Minute.Value == int64(*minute) {
		return nil
	}

	u := FieldUpdate{
		MatchID:    state.ExternalID,
		Field:      FieldMinute,
		Value:      int64(*minute),
		Source:     SourceComputed,
		ObservedAt: now,
	}
	_, err := o.applyOne(state, u)
	return err
}
