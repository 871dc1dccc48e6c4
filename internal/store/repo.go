package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"natsdash/internal/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// Repository wraps the SQLite handle with typed accessors.
type Repository struct {
	db *sql.DB
}

// NewRepository returns a Repository over db.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// DB exposes the underlying handle for shutdown.
func (r *Repository) DB() *sql.DB { return r.db }

// ---- users ----

func (r *Repository) CreateUser(ctx context.Context, username, passwordHash, role string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, role, created_at) VALUES (?,?,?,?)`,
		username, passwordHash, role, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *Repository) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, role, created_at FROM users WHERE username = ?`, username).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repository) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, id)
	return err
}

func (r *Repository) CountUsers(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

// ---- clusters ----

func (r *Repository) CreateCluster(ctx context.Context, c *models.Cluster) (int64, error) {
	urls, err := json.Marshal(c.MonitoringURLs)
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO clusters (name, description, nats_url, monitoring_urls, created_at) VALUES (?,?,?,?,?)`,
		c.Name, c.Description, c.NATSURL, string(urls), time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *Repository) UpdateCluster(ctx context.Context, c *models.Cluster) error {
	urls, err := json.Marshal(c.MonitoringURLs)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE clusters SET name = ?, description = ?, nats_url = ?, monitoring_urls = ? WHERE id = ?`,
		c.Name, c.Description, c.NATSURL, string(urls), c.ID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *Repository) DeleteCluster(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM clusters WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *Repository) ClusterByID(ctx context.Context, id int64) (*models.Cluster, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, description, nats_url, monitoring_urls, created_at FROM clusters WHERE id = ?`, id)
	c, err := scanCluster(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

func (r *Repository) ListClusters(ctx context.Context) ([]models.Cluster, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, description, nats_url, monitoring_urls, created_at FROM clusters ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]models.Cluster, 0)
	for rows.Next() {
		c, err := scanCluster(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCluster(row rowScanner) (*models.Cluster, error) {
	var (
		c    models.Cluster
		urls string
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.NATSURL, &urls, &c.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(urls), &c.MonitoringURLs); err != nil {
		return nil, err
	}
	return &c, nil
}

// ---- alert rules ----

func (r *Repository) CreateAlertRule(ctx context.Context, rule *models.AlertRule) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO alert_rules (cluster_id, name, metric, operator, threshold, enabled, created_at)
		 VALUES (?,?,?,?,?,?,?)`,
		rule.ClusterID, rule.Name, rule.Metric, rule.Operator, rule.Threshold, rule.Enabled, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *Repository) UpdateAlertRule(ctx context.Context, rule *models.AlertRule) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE alert_rules SET name = ?, metric = ?, operator = ?, threshold = ?, enabled = ? WHERE id = ?`,
		rule.Name, rule.Metric, rule.Operator, rule.Threshold, rule.Enabled, rule.ID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *Repository) DeleteAlertRule(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM alert_rules WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *Repository) AlertRuleByID(ctx context.Context, id int64) (*models.AlertRule, error) {
	var rule models.AlertRule
	err := r.db.QueryRowContext(ctx,
		`SELECT id, cluster_id, name, metric, operator, threshold, enabled, created_at
		 FROM alert_rules WHERE id = ?`, id).
		Scan(&rule.ID, &rule.ClusterID, &rule.Name, &rule.Metric, &rule.Operator,
			&rule.Threshold, &rule.Enabled, &rule.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *Repository) ListAlertRulesByCluster(ctx context.Context, clusterID int64) ([]models.AlertRule, error) {
	return r.listRules(ctx,
		`SELECT id, cluster_id, name, metric, operator, threshold, enabled, created_at
		 FROM alert_rules WHERE cluster_id = ? ORDER BY id`, clusterID)
}

// ListEnabledAlertRulesByCluster returns only rules the evaluator should see.
func (r *Repository) ListEnabledAlertRulesByCluster(ctx context.Context, clusterID int64) ([]models.AlertRule, error) {
	return r.listRules(ctx,
		`SELECT id, cluster_id, name, metric, operator, threshold, enabled, created_at
		 FROM alert_rules WHERE cluster_id = ? AND enabled = 1 ORDER BY id`, clusterID)
}

func (r *Repository) listRules(ctx context.Context, query string, args ...any) ([]models.AlertRule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]models.AlertRule, 0)
	for rows.Next() {
		var rule models.AlertRule
		if err := rows.Scan(&rule.ID, &rule.ClusterID, &rule.Name, &rule.Metric, &rule.Operator,
			&rule.Threshold, &rule.Enabled, &rule.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

// ListAlertRuleIDs returns every rule id, enabled or not. The monitor uses
// this to prune runtime state for deleted rules.
func (r *Repository) ListAlertRuleIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM alert_rules`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// ---- alert events ----

// InsertAlertEvent appends one transition record. Events are never edited.
func (r *Repository) InsertAlertEvent(ctx context.Context, e *models.AlertEvent) (int64, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO alert_events (alert_id, status, value, message, created_at) VALUES (?,?,?,?,?)`,
		e.AlertID, e.Status, e.Value, e.Message, e.CreatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *Repository) ListRecentAlertEvents(ctx context.Context, limit int) ([]models.AlertEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	return r.listEvents(ctx,
		`SELECT id, alert_id, status, value, message, created_at
		 FROM alert_events ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
}

func (r *Repository) ListAlertEventsByAlert(ctx context.Context, alertID int64, limit int) ([]models.AlertEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	return r.listEvents(ctx,
		`SELECT id, alert_id, status, value, message, created_at
		 FROM alert_events WHERE alert_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`, alertID, limit)
}

func (r *Repository) listEvents(ctx context.Context, query string, args ...any) ([]models.AlertEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]models.AlertEvent, 0)
	for rows.Next() {
		var e models.AlertEvent
		if err := rows.Scan(&e.ID, &e.AlertID, &e.Status, &e.Value, &e.Message, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ---- notification channels ----

func (r *Repository) CreateChannel(ctx context.Context, ch *models.NotificationChannel) (int64, error) {
	cfg, err := json.Marshal(ch.Config)
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO notification_channels (name, type, config, enabled, created_at) VALUES (?,?,?,?,?)`,
		ch.Name, ch.Type, string(cfg), ch.Enabled, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *Repository) UpdateChannel(ctx context.Context, ch *models.NotificationChannel) error {
	cfg, err := json.Marshal(ch.Config)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE notification_channels SET name = ?, type = ?, config = ?, enabled = ? WHERE id = ?`,
		ch.Name, ch.Type, string(cfg), ch.Enabled, ch.ID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *Repository) DeleteChannel(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notification_channels WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *Repository) ListChannels(ctx context.Context) ([]models.NotificationChannel, error) {
	return r.listChannels(ctx,
		`SELECT id, name, type, config, enabled, created_at FROM notification_channels ORDER BY id`)
}

// ListEnabledChannels returns channels the dispatcher should deliver to.
func (r *Repository) ListEnabledChannels(ctx context.Context) ([]models.NotificationChannel, error) {
	return r.listChannels(ctx,
		`SELECT id, name, type, config, enabled, created_at FROM notification_channels WHERE enabled = 1 ORDER BY id`)
}

func (r *Repository) listChannels(ctx context.Context, query string, args ...any) ([]models.NotificationChannel, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]models.NotificationChannel, 0)
	for rows.Next() {
		var (
			ch  models.NotificationChannel
			cfg string
		)
		if err := rows.Scan(&ch.ID, &ch.Name, &ch.Type, &cfg, &ch.Enabled, &ch.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(cfg), &ch.Config); err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

// ---- settings ----

// GetSetting returns the value for key, or "" when unset.
func (r *Repository) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// SetSetting upserts one opaque string setting.
func (r *Repository) SetSetting(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?,?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
