package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'ticket_status') THEN
			CREATE TYPE ticket_status AS ENUM ('PENDING', 'ACCEPTED', 'ON_WAY', 'IN_PROGRESS', 'COMPLETED', 'CANCELLED');
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'ticket_type') THEN
			CREATE TYPE ticket_type AS ENUM ('FIELD_REPAIR', 'DEPOT_REPAIR');
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'ticket_priority') THEN
			CREATE TYPE ticket_priority AS ENUM ('LOW', 'MEDIUM', 'HIGH', 'URGENT');
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'technician_role') THEN
			CREATE TYPE technician_role AS ENUM ('FIELD', 'DEPOT');
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'audit_action') THEN
			CREATE TYPE audit_action AS ENUM ('STATUS_CHANGE', 'PRIORITY_UPDATE', 'EDIT', 'PAUSE_TOGGLE', 'DELETE', 'ROLLBACK');
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'notification_type') THEN
			CREATE TYPE notification_type AS ENUM ('INFO', 'SUCCESS', 'WARNING', 'ERROR', 'ALERT');
		END IF;
	END
	$$;`,
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		full_name VARCHAR(255) NOT NULL,
		phone VARCHAR(32),
		email VARCHAR(255),
		balance NUMERIC(12,2) NOT NULL DEFAULT 0,
		role VARCHAR(32) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_users_role ON users (role);`,
	`CREATE TABLE IF NOT EXISTS technicians (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		full_name VARCHAR(255) NOT NULL,
		phone VARCHAR(32),
		role technician_role NOT NULL,
		online BOOLEAN NOT NULL DEFAULT FALSE,
		available BOOLEAN NOT NULL DEFAULT FALSE,
		last_assigned_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_technicians_role ON technicians (role);`,
	`CREATE INDEX IF NOT EXISTS idx_technicians_last_assigned_at ON technicians (last_assigned_at);`,
	`CREATE TABLE IF NOT EXISTS tickets (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		requester_id UUID NOT NULL REFERENCES users(id),
		technician_id UUID REFERENCES technicians(id) ON DELETE SET NULL,
		type ticket_type NOT NULL,
		category VARCHAR(64) NOT NULL,
		description TEXT,
		status ticket_status NOT NULL DEFAULT 'PENDING',
		priority ticket_priority NOT NULL DEFAULT 'MEDIUM',
		paused BOOLEAN NOT NULL DEFAULT FALSE,
		requester_name VARCHAR(255),
		requester_phone VARCHAR(32),
		requester_email VARCHAR(255),
		requester_balance NUMERIC(12,2),
		location_lat DOUBLE PRECISION NOT NULL DEFAULT 0,
		location_lng DOUBLE PRECISION NOT NULL DEFAULT 0,
		accepted_at TIMESTAMPTZ,
		on_way_at TIMESTAMPTZ,
		in_progress_at TIMESTAMPTZ,
		completed_at TIMESTAMPTZ,
		rejection_reason TEXT,
		completion_remarks TEXT,
		replaced_parts TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_tickets_requester_id ON tickets (requester_id);`,
	`CREATE INDEX IF NOT EXISTS idx_tickets_technician_id ON tickets (technician_id);`,
	`CREATE INDEX IF NOT EXISTS idx_tickets_status ON tickets (status);`,
	`CREATE INDEX IF NOT EXISTS idx_tickets_created_at ON tickets (created_at);`,
	`CREATE TABLE IF NOT EXISTS ticket_attachments (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		ticket_id UUID NOT NULL REFERENCES tickets(id) ON DELETE CASCADE,
		file_url TEXT NOT NULL,
		kind VARCHAR(16) NOT NULL,
		stage VARCHAR(16) NOT NULL,
		uploaded_by UUID NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_ticket_attachments_ticket_id ON ticket_attachments (ticket_id);`,
	`CREATE TABLE IF NOT EXISTS ticket_audit_log (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		ticket_id UUID NOT NULL REFERENCES tickets(id) ON DELETE CASCADE,
		actor_id UUID NOT NULL,
		action audit_action NOT NULL,
		prev_state JSONB,
		new_state JSONB,
		reason TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_ticket_audit_log_ticket_id ON ticket_audit_log (ticket_id);`,
	`CREATE INDEX IF NOT EXISTS idx_ticket_audit_log_created_at ON ticket_audit_log (created_at);`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		recipient_id UUID NOT NULL,
		title VARCHAR(255) NOT NULL,
		message TEXT NOT NULL,
		type notification_type NOT NULL DEFAULT 'INFO',
		read BOOLEAN NOT NULL DEFAULT FALSE,
		ticket_id UUID,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_recipient_id ON notifications (recipient_id);`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_ticket_id ON notifications (ticket_id);`,
	`CREATE TABLE IF NOT EXISTS system_settings (
		id INTEGER PRIMARY KEY,
		auto_assign_enabled BOOLEAN NOT NULL DEFAULT TRUE,
		version BIGINT NOT NULL DEFAULT 0,
		updated_by UUID,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`INSERT INTO system_settings (id, auto_assign_enabled, version)
		VALUES (1, TRUE, 0)
		ON CONFLICT (id) DO NOTHING;`,
	`CREATE TABLE IF NOT EXISTS realtime_outbox (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		topic VARCHAR(255) NOT NULL,
		payload JSONB,
		processed BOOLEAN NOT NULL DEFAULT FALSE,
		processed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_realtime_outbox_processed ON realtime_outbox (processed, created_at);`,
	`CREATE OR REPLACE FUNCTION set_row_updated_at()
	RETURNS TRIGGER AS $$
	BEGIN
		NEW.updated_at = NOW();
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql;`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_trigger WHERE tgname = 'trg_tickets_updated_at') THEN
			CREATE TRIGGER trg_tickets_updated_at
				BEFORE UPDATE ON tickets
				FOR EACH ROW
				EXECUTE PROCEDURE set_row_updated_at();
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_trigger WHERE tgname = 'trg_technicians_updated_at') THEN
			CREATE TRIGGER trg_technicians_updated_at
				BEFORE UPDATE ON technicians
				FOR EACH ROW
				EXECUTE PROCEDURE set_row_updated_at();
		END IF;
	END
	$$;`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
