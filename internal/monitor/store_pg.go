package monitor

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"

	_ "github.com/lib/pq"
)

// 文档注释：Postgres 后端，单行 upsert 存放用量快照
// 背景：与业务库同机部署时复用既有 Postgres，便于 SQL 侧做用量报表
// 约束：首次连接自动建表（IF NOT EXISTS）；快照整体序列化为 JSON，不做列级拆分
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStoreFromEnv(ctx context.Context) (*PostgresStore, error) {
	dsn := buildPostgresDSNFromEnv()
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	st := &PostgresStore{db: db}
	if err := st.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS _gw_usage_metrics (
        id INT PRIMARY KEY,
        data JSONB NOT NULL,
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`)
	return err
}

func (s *PostgresStore) Load(ctx context.Context) (*Metrics, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM _gw_usage_metrics WHERE id = 1`).Scan(&raw)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	var m Metrics
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil
	}
	return &m, nil
}

func (s *PostgresStore) Save(ctx context.Context, m Metrics) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO _gw_usage_metrics(id, data, updated_at)
        VALUES(1, $1, now())
        ON CONFLICT (id) DO UPDATE SET data = $1, updated_at = now()`, b)
	return err
}

func buildPostgresDSNFromEnv() string {
	host := os.Getenv("PG_HOST")
	if host == "" {
		host = "localhost"
	}
	port := os.Getenv("PG_PORT")
	if port == "" {
		port = "5432"
	}
	user := os.Getenv("PG_USER")
	if user == "" {
		user = "postgres"
	}
	pass := os.Getenv("PG_PASSWORD")
	db := os.Getenv("PG_DB")
	if db == "" {
		db = "geogw"
	}
	ssl := os.Getenv("PG_SSLMODE")
	if ssl == "" {
		ssl = "disable"
	}
	dsn := "postgres://" + user
	if pass != "" {
		dsn += ":" + pass
	}
	dsn += "@" + host + ":" + port + "/" + db + "?sslmode=" + ssl
	return dsn
}
