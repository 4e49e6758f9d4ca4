package services

import (
	"fmt"
	"sync"
	"time"

	"livematch-service/logger"
	"livematch-service/thesports"
)

// auditSnapshot 上一个审计周期看到的状态，回退检查的基准
type auditSnapshot struct {
	status    Status
	minute    int64
	hasMinute bool
	homeScore int64
	homeTS    int64
	awayScore int64
	awayTS    int64
}

// Auditor 带外一致性审计。
// 周期性比对持久化状态和上游新鲜快照，发现异常只记录不改状态；
// 唯一的例外是孤儿比赛：通过编排器正常路径提交 watchdog 修正，
// 绝不直接写存储
type Auditor struct {
	store        StateStore
	orchestrator *Orchestrator
	fetcher      SnapshotFetcher
	interval     time.Duration
	orphanCycles int

	prev         map[string]auditSnapshot
	orphanStreak map[string]int

	done chan struct{}
	wg   sync.WaitGroup

	// 测试注入当前时间
	now func() int64
}

// NewAuditor 创建审计器
func NewAuditor(store StateStore, orchestrator *Orchestrator, fetcher SnapshotFetcher, interval time.Duration, orphanCycles int) *Auditor {
	if orphanCycles <= 0 {
		orphanCycles = 3
	}
	return &Auditor{
		store:        store,
		orchestrator: orchestrator,
		fetcher:      fetcher,
		interval:     interval,
		orphanCycles: orphanCycles,
		prev:         make(map[string]auditSnapshot),
		orphanStreak: make(map[string]int),
		done:         make(chan struct{}),
		now:          func() int64 { return time.Now().Unix() },
	}
}

// Start 启动审计循环
func (a *Auditor) Start() {
	a.wg.Add(1)
	go a.loop()
	logger.Printf("[Auditor] Started (interval: %v, orphan cycles: %d)", a.interval, a.orphanCycles)
}

// Stop 停止审计
func (a *Auditor) Stop() {
	close(a.done)
	a.wg.Wait()
}

func (a *Auditor) loop() {
	defer a.wg.Done()

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-a.done:
			return
		case <-ticker.C:
			a.RunCycle()
		}
	}
}

// RunCycle 执行一个审计周期
func (a *Auditor) RunCycle() {
	persisted, err := a.store.LiveMatches()
	if err != nil {
		logger.Errorf("[Auditor] Failed to load persisted live matches: %v", err)
		return
	}
	if len(persisted) == 0 {
		// 没有活比赛也要清掉历史基准，空闲期残留的孤儿计数
		// 不能算到下一场同 ID 的比赛头上
		if len(a.prev) > 0 || len(a.orphanStreak) > 0 {
			a.prev = make(map[string]auditSnapshot)
			a.orphanStreak = make(map[string]int)
		}
		return
	}

	upstream, err := a.fetcher.GetLiveMatches()
	if err != nil {
		if thesports.IsTimeout(err) {
			logger.Printf("[Auditor] Upstream fetch timed out, skipping cycle")
		} else {
			logger.Errorf("[Auditor] Upstream fetch failed: %v", err)
		}
		return
	}

	liveUpstream := make(map[string]bool, len(upstream))
	for i := range upstream {
		liveUpstream[upstream[i].ID] = true
	}

	seen := make(map[string]bool, len(persisted))
	for _, m := range persisted {
		seen[m.ExternalID] = true
		a.auditMatch(m)
		a.checkOrphan(m, liveUpstream[m.ExternalID])
		a.prev[m.ExternalID] = snapshotOf(m)
	}

	// 不再是活比赛的清掉历史基准
	for id := range a.prev {
		if !seen[id] {
			delete(a.prev, id)
			delete(a.orphanStreak, id)
		}
	}
}

// auditMatch 单场比赛的周期内检查
func (a *Auditor) auditMatch(m *MatchState) {
	status := Status(m.Status.Value)

	// 计时阶段必须有分钟
	if (status == StatusFirstHalf || status == StatusSecondHalf || status == StatusOvertime) && !m.Minute.Valid {
		a.report(m.ExternalID, IncidentMissingMinute,
			fmt.Sprintf("status=%s but minute is null", status))
	}

	prev, ok := a.prev[m.ExternalID]
	if !ok {
		return
	}

	// 对上个周期的回退检查：分钟和状态都只应向前
	if m.Minute.Valid && prev.hasMinute && m.Minute.Value < prev.minute {
		a.report(m.ExternalID, IncidentMinuteRegression,
			fmt.Sprintf("minute went %d -> %d", prev.minute, m.Minute.Value))
	}
	if pi, ok1 := phaseIndex[status]; ok1 {
		if pj, ok2 := phaseIndex[prev.status]; ok2 && pi < pj {
			a.report(m.ExternalID, IncidentStatusRegression,
				fmt.Sprintf("persisted status went %s -> %s between audit cycles", prev.status, status))
		}
	}

	// 比分变了但观测时间戳没动：有写入绕过了协调路径
	if m.HomeScore.Value != prev.homeScore && m.HomeScore.Timestamp == prev.homeTS {
		a.report(m.ExternalID, IncidentScoreWithoutProvenance,
			fmt.Sprintf("home_score %d -> %d with unchanged timestamp %d", prev.homeScore, m.HomeScore.Value, prev.homeTS))
	}
	if m.AwayScore.Value != prev.awayScore && m.AwayScore.Timestamp == prev.awayTS {
		a.report(m.ExternalID, IncidentScoreWithoutProvenance,
			fmt.Sprintf("away_score %d -> %d with unchanged timestamp %d", prev.awayScore, m.AwayScore.Value, prev.awayTS))
	}
}

// checkOrphan 本地认为在打、上游活列表里没有的比赛。
// 连续 orphanCycles 个周期缺席才动手：大概率是比赛早结束了，
// 终结消息丢了。修正走编排器的正常协调路径
func (a *Auditor) checkOrphan(m *MatchState, upstreamLive bool) {
	if upstreamLive {
		a.orphanStreak[m.ExternalID] = 0
		return
	}

	a.orphanStreak[m.ExternalID]++
	streak := a.orphanStreak[m.ExternalID]
	logger.Debugf("[Auditor] Match %s absent from upstream live list (streak %d/%d)", m.ExternalID, streak, a.orphanCycles)

	if streak < a.orphanCycles {
		return
	}

	a.report(m.ExternalID, IncidentOrphanedLiveMatch,
		fmt.Sprintf("status=%s locally, absent from upstream live list for %d cycles", Status(m.Status.Value), streak))

	corrective := FieldUpdate{
		MatchID:    m.ExternalID,
		Field:      FieldStatus,
		Value:      int64(StatusFinished),
		Source:     SourceWatchdog,
		Kind:       KindCorrective,
		Reason:     "orphaned_live_match",
		ObservedAt: a.now(),
	}
	if err := a.orchestrator.Apply(m.ExternalID, []FieldUpdate{corrective}); err != nil {
		logger.Errorf("[Auditor] Corrective update for %s failed: %v", m.ExternalID, err)
		return
	}

	a.orphanStreak[m.ExternalID] = 0
	logger.Printf("[Auditor] ✅ Submitted watchdog termination for orphaned match %s", m.ExternalID)
}

func (a *Auditor) report(matchID, kind, detail string) {
	logger.Errorf("[Auditor] ⚠️ %s: match %s: %s", kind, matchID, detail)

	inc := Incident{MatchID: matchID, Kind: kind, Detail: detail}
	if err := a.store.InsertIncident(inc); err != nil {
		logger.Errorf("[Auditor] Failed to record incident: %v", err)
	}
}

func snapshotOf(m *MatchState) auditSnapshot {
	s := auditSnapshot{
		status:    Status(m.Status.Value),
		homeScore: m.HomeScore.Value,
		homeTS:    m.HomeScore.Timestamp,
		awayScore: m.AwayScore.Value,
		awayTS:    m.AwayScore.Timestamp,
	}
	if m.Minute.Valid {
		s.minute = m.Minute.Value
		s.hasMinute = true
	}
	return s
}
