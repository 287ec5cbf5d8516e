package migrations

import "github.com/Abinashmotract/labour-backend-sub000/internal/database/schema"

var CreateMatchAuditTable = schema.Migration{
	Version:     1,
	Description: "Create match_audit table",
	Up: `
		CREATE TABLE IF NOT EXISTS match_audit (
			job_id String,
			contractor_id String,
			labourer_id String,
			record_id String,
			wave String,
			distance_meters Float64,
			matched_at DateTime
		) ENGINE = MergeTree()
		PARTITION BY toYYYYMM(matched_at)
		ORDER BY (job_id, matched_at)
		SETTINGS index_granularity = 8192
	`,
	Down: `DROP TABLE IF EXISTS match_audit`,
}

var CreateNotificationLogTable = schema.Migration{
	Version:     2,
	Description: "Create notification_log table",
	Up: `
		CREATE TABLE IF NOT EXISTS notification_log (
			recipient String,
			token String,
			subject String,
			title String,
			succeeded Bool,
			error String,
			sent_at DateTime
		) ENGINE = MergeTree()
		PARTITION BY toYYYYMM(sent_at)
		ORDER BY (recipient, sent_at)
		SETTINGS index_granularity = 8192
	`,
	Down: `DROP TABLE IF EXISTS notification_log`,
}
