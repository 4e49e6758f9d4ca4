package services

import (
	"sync"
	"time"

	"livematch-service/logger"
	"livematch-service/thesports"
)

// SnapshotFetcher 上游活比赛快照来源，生产实现是 thesports.Client
type SnapshotFetcher interface {
	GetLiveMatches() ([]thesports.LiveMatch, error)
}

// PollService REST 快照轮询适配器。
// 超时不是错误：这一轮当作没有新数据，等下一个 tick
type PollService struct {
	fetcher      SnapshotFetcher
	orchestrator *Orchestrator
	interval     time.Duration
	done         chan struct{}
	wg           sync.WaitGroup
}

// NewPollService 创建轮询服务
func NewPollService(fetcher SnapshotFetcher, orchestrator *Orchestrator, interval time.Duration) *PollService {
	return &PollService{
		fetcher:      fetcher,
		orchestrator: orchestrator,
		interval:     interval,
		done:         make(chan struct{}),
	}
}

// Start 启动轮询协程
func (p *PollService) Start() {
	p.wg.Add(1)
	go p.loop()
	logger.Printf("[PollService] Started (interval: %v)", p.interval)
}

// Stop 停止轮询
func (p *PollService) Stop() {
	close(p.done)
	p.wg.Wait()
}

func (p *PollService) loop() {
	defer p.wg.Done()

	// 启动即拉一次，不等第一个 tick
	p.pollOnce()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			p.pollOnce()
		}
	}
}

func (p *PollService) pollOnce() {
	matches, err := p.fetcher.GetLiveMatches()
	if err != nil {
		if thesports.IsTimeout(err) {
			logger.Printf("[PollService] Fetch timed out, no data this cycle")
			return
		}
		logger.Errorf("[PollService] Fetch failed: %v", err)
		return
	}

	for i := range matches {
		lm := &matches[i]
		if err := lm.Validate(); err != nil {
			logger.Errorf("[PollService] Invalid snapshot skipped: %v", err)
			continue
		}

		updates := SnapshotToUpdates(lm)
		if err := p.orchestrator.Apply(lm.ID, updates); err != nil {
			logger.Errorf("[PollService] Apply failed for match %s: %v", lm.ID, err)
		}
	}
}

// SnapshotToUpdates 把一条快照归一化成字段更新。
// 分钟不从快照取，始终本地推导
func SnapshotToUpdates(lm *thesports.LiveMatch) []FieldUpdate {
	observedAt := lm.UpdatedAt

	updates := []FieldUpdate{
		{
			MatchID:    lm.ID,
			Field:      FieldStatus,
			Value:      int64(lm.Status),
			Source:     SourceAPI,
			ObservedAt: observedAt,
		},
		{
			MatchID: lm.ID,
			Field:   FieldHomeScore,
			Value:   int64(lm.HomeScore.Display),
			Detail: &ScoreDetail{
				Regular:  lm.HomeScore.Regular,
				Overtime: lm.HomeScore.Overtime,
				Penalty:  lm.HomeScore.Penalty,
			},
			Source:     SourceAPI,
			ObservedAt: observedAt,
		},
		{
			MatchID: lm.ID,
			Field:   FieldAwayScore,
			Value:   int64(lm.AwayScore.Display),
			Detail: &ScoreDetail{
				Regular:  lm.AwayScore.Regular,
				Overtime: lm.AwayScore.Overtime,
				Penalty:  lm.AwayScore.Penalty,
			},
			Source:     SourceAPI,
			ObservedAt: observedAt,
		},
	}

	// 上游带的开球时间作为锚点候选（锚点首写即定，重复无害）
	if lm.FirstHalfKickoffTS > 0 {
		updates = append(updates, FieldUpdate{
			MatchID:    lm.ID,
			Field:      FieldFirstHalfKickoff,
			Value:      lm.FirstHalfKickoffTS,
			Source:     SourceAPI,
			ObservedAt: observedAt,
		})
	}
	if lm.SecondHalfKickoffTS > 0 {
		updates = append(updates, FieldUpdate{
			MatchID:    lm.ID,
			Field:      FieldSecondHalfKickoff,
			Value:      lm.SecondHalfKickoffTS,
			Source:     SourceAPI,
			ObservedAt: observedAt,
		})
	}
	if lm.OvertimeKickoffTS > 0 {
		updates = append(updates, FieldUpdate{
			MatchID:    lm.ID,
			Field:      FieldOvertimeKickoff,
			Value:      lm.OvertimeKickoffTS,
			Source:     SourceAPI,
			ObservedAt: observedAt,
		})
	}

	return updates
}
