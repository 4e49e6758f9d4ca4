package services

// 协调决策原因
const (
	ReasonNewer           = "newer"
	ReasonTieOutranks     = "tie_outranks"
	ReasonFirstWrite      = "first_write"
	ReasonStaleUpdate     = "stale_update"
	ReasonAnchorAlreadySet = "anchor_already_set"
	ReasonScoreRegression = "score_regression"
)

// Decision 单字段协调结果。拒绝是多来源竞争下的正常结果，不是错误
type Decision struct {
	Accept bool
	Reason string
}

// Reconciler 按字段决定一条更新是否覆盖当前值。
// 之前同样的时间戳比较和比分回退检查散落在迁移脚本、同步脚本和
// 观察脚本里各写一份，这里收敛成唯一实现
type Reconciler struct {
	// trust 每个字段的来源信任顺序，下标越小信任越高
	trust map[Field][]Source
}

// NewReconciler 创建协调器。statusOrder 是 status 字段的来源信任顺序
// （watchdog 和 api 的相对顺序运营上未定，做成可配置）
func NewReconciler(statusOrder []Source) *Reconciler {
	if len(statusOrder) == 0 {
		statusOrder = []Source{SourcePush, SourceAPI, SourceWatchdog}
	}

	scoreOrder := []Source{SourcePush, SourceAPI, SourceWatchdog}
	minuteOrder := []Source{SourceComputed, SourceAPI}

	return &Reconciler{
		trust: map[Field][]Source{
			FieldStatus:            statusOrder,
			FieldHomeScore:         scoreOrder,
			FieldAwayScore:         scoreOrder,
			FieldMinute:            minuteOrder,
			FieldFirstHalfKickoff:  scoreOrder,
			FieldSecondHalfKickoff: scoreOrder,
			FieldOvertimeKickoff:   scoreOrder,
		},
	}
}

// rank 来源在该字段信任表中的等级，越大越可信；未知来源为 0
func (r *Reconciler) rank(field Field, source Source) int {
	order, ok := r.trust[field]
	if !ok {
		return 0
	}
	for i, s := range order {
		if s == source {
			return len(order) - i
		}
	}
	return 0
}

// Reconcile 决定 incoming 是否覆盖 current。
// 接受条件：观测时间严格更新，或时间戳持平但来源信任更高。
// 被接受的更新以赢家自己的 source/observed_at 持久化，审计靠它回溯到
// 原始观测，而不是编排器的处理时间
func (r *Reconciler) Reconcile(current FieldState, incoming FieldUpdate) Decision {
	// 锚点字段首写即定，状态抖动重新进入同一阶段不得重置锚点
	if incoming.Field.IsAnchor() {
		if current.Valid {
			return Decision{Accept: false, Reason: ReasonAnchorAlreadySet}
		}
		return Decision{Accept: true, Reason: ReasonFirstWrite}
	}

	// 时间戳比较：陈旧的更新直接丢弃，到达顺序不可信
	if incoming.ObservedAt < current.Timestamp {
		return Decision{Accept: false, Reason: ReasonStaleUpdate}
	}
	if incoming.ObservedAt == current.Timestamp {
		if r.rank(incoming.Field, incoming.Source) <= r.rank(incoming.Field, current.Source) {
			return Decision{Accept: false, Reason: ReasonStaleUpdate}
		}
		// 比分回退即使平局胜出也要 corrective 信号
		if d := r.checkScoreRegression(current, incoming); d != nil {
			return *d
		}
		return Decision{Accept: true, Reason: ReasonTieOutranks}
	}

	// 比分下降必须携带明确的修正信号（VAR 取消等），
	// 防止乱序重放的推送抹掉已记录的进球
	if d := r.checkScoreRegression(current, incoming); d != nil {
		return *d
	}

	return Decision{Accept: true, Reason: ReasonNewer}
}

func (r *Reconciler) checkScoreRegression(current FieldState, incoming FieldUpdate) *Decision {
	if incoming.Field.IsScore() && current.Valid && incoming.Value < current.Value {
		if incoming.Kind != KindCorrective {
			return &Decision{Accept: false, Reason: ReasonScoreRegression}
		}
	}
	return nil
}
