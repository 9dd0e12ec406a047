package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflows (
				logical_name VARCHAR(255) PRIMARY KEY,
				display_name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				max_attempts INTEGER NOT NULL DEFAULT 1,
				enabled BOOLEAN NOT NULL DEFAULT FALSE,
				trigger JSONB NOT NULL DEFAULT '{}',
				steps JSONB NOT NULL DEFAULT '[]',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				deleted_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_workflows_deleted_at ON workflows(deleted_at);
		`,
		2: `
			-- Trigger type is queried on its own by the runtime when routing record events.
			ALTER TABLE workflows ADD COLUMN trigger_type VARCHAR(50) NOT NULL DEFAULT '';

			CREATE INDEX idx_workflows_trigger_type ON workflows(trigger_type) WHERE deleted_at IS NULL;
		`,
	}
}
