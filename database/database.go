package database

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// Connect 连接到数据库
func Connect(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 测试连接
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// 设置连接池
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return db, nil
}

// Migrate 运行数据库迁移
func Migrate(db *sql.DB) error {
	migrations := []string{
		// 比赛状态表：每个跟踪字段带 _source/_timestamp 影子列，
		// 记录产生当前值的观测来源和观测时间（不是写入时间）
		`CREATE TABLE IF NOT EXISTS matches (
			id BIGSERIAL PRIMARY KEY,
			external_id VARCHAR(100) UNIQUE NOT NULL,
			status INTEGER NOT NULL DEFAULT 1,
			status_source VARCHAR(20) NOT NULL DEFAULT '',
			status_timestamp BIGINT NOT NULL DEFAULT 0,
			home_score INTEGER NOT NULL DEFAULT 0,
			home_score_regular INTEGER NOT NULL DEFAULT 0,
			home_score_overtime INTEGER NOT NULL DEFAULT 0,
			home_score_penalty INTEGER NOT NULL DEFAULT 0,
			home_score_source VARCHAR(20) NOT NULL DEFAULT '',
			home_score_timestamp BIGINT NOT NULL DEFAULT 0,
			away_score INTEGER NOT NULL DEFAULT 0,
			away_score_regular INTEGER NOT NULL DEFAULT 0,
			away_score_overtime INTEGER NOT NULL DEFAULT 0,
			away_score_penalty INTEGER NOT NULL DEFAULT 0,
			away_score_source VARCHAR(20) NOT NULL DEFAULT '',
			away_score_timestamp BIGINT NOT NULL DEFAULT 0,
			minute INTEGER,
			minute_source VARCHAR(20) NOT NULL DEFAULT '',
			minute_timestamp BIGINT NOT NULL DEFAULT 0,
			first_half_kickoff_ts BIGINT,
			first_half_kickoff_ts_source VARCHAR(20) NOT NULL DEFAULT '',
			first_half_kickoff_ts_timestamp BIGINT NOT NULL DEFAULT 0,
			second_half_kickoff_ts BIGINT,
			second_half_kickoff_ts_source VARCHAR(20) NOT NULL DEFAULT '',
			second_half_kickoff_ts_timestamp BIGINT NOT NULL DEFAULT 0,
			overtime_kickoff_ts BIGINT,
			overtime_kickoff_ts_source VARCHAR(20) NOT NULL DEFAULT '',
			overtime_kickoff_ts_timestamp BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_external_id ON matches(external_id)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_status ON matches(status)`,

		// 字段变更事件表：每条被接受的字段变更一条记录，供回溯和延迟订阅者补数
		`CREATE TABLE IF NOT EXISTS match_events (
			id BIGSERIAL PRIMARY KEY,
			external_id VARCHAR(100) NOT NULL,
			field VARCHAR(50) NOT NULL,
			old_value BIGINT,
			new_value BIGINT NOT NULL,
			source VARCHAR(20) NOT NULL,
			timestamp BIGINT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_match_events_external_id ON match_events(external_id)`,
		`CREATE INDEX IF NOT EXISTS idx_match_events_created_at ON match_events(created_at)`,

		// 异常记录表：状态回退、孤儿比赛等，由审计器和编排器写入，仅供人工排查
		`CREATE TABLE IF NOT EXISTS incidents (
			id BIGSERIAL PRIMARY KEY,
			external_id VARCHAR(100) NOT NULL,
			kind VARCHAR(50) NOT NULL,
			detail TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_incidents_external_id ON incidents(external_id)`,
		`CREATE INDEX IF NOT EXISTS idx_incidents_kind ON incidents(kind)`,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}

	return nil
}
