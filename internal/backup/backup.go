package backup

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
)

// tables in dependency order so a restore can replay the dump top to bottom.
var tables = []string{
	"users", "plans", "customers", "connections",
	"vc_inventory", "vc_status_history", "vc_ownership_history",
	"action_requests", "payments", "ledger_entries", "online_transactions",
	"system_settings", "admin_action_logs", "login_logs",
}

// Options configures the S3-compatible backup target.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Interval  time.Duration
}

// Scheduler dumps the database to an S3-compatible bucket on an interval.
type Scheduler struct {
	db   *pgxpool.Pool
	opts Options

	mu      sync.Mutex
	ticker  *time.Ticker
	stop    chan struct{}
	lastRun time.Time
	lastKey string
	lastErr string
}

func NewScheduler(db *pgxpool.Pool, opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = 24 * time.Hour
	}
	if opts.Region == "" {
		opts.Region = "auto"
	}
	return &Scheduler{db: db, opts: opts}
}

// Start begins the periodic backup loop. The first backup runs immediately.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		return // already running
	}

	s.ticker = time.NewTicker(s.opts.Interval)
	s.stop = make(chan struct{})

	go func() {
		log.Printf("[Backup] Scheduler started (interval: %v)", s.opts.Interval)
		s.runOnce()

		for {
			select {
			case <-s.ticker.C:
				s.runOnce()
			case <-s.stop:
				log.Println("[Backup] Scheduler stopped")
				return
			}
		}
	}()
}

// Stop halts the periodic loop. Safe to call when not running.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		close(s.stop)
		s.ticker = nil
	}
}

func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	key, size, err := s.Run(ctx)
	if err != nil {
		log.Printf("[Backup] Failed: %v", err)
		return
	}
	log.Printf("[Backup] Success: %s (%s)", key, formatBytes(size))
}

// Run performs one backup and uploads it. Also called from the manual
// trigger endpoint.
func (s *Scheduler) Run(ctx context.Context) (string, int64, error) {
	client, err := s.client(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("configure s3 client: %w", err)
	}

	data, err := s.dump(ctx)
	if err != nil {
		s.record("", err)
		return "", 0, fmt.Errorf("dump database: %w", err)
	}

	key := fmt.Sprintf("cable/cable_db_%s.sql", time.Now().Format("20060102_150405"))
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.opts.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/sql"),
	})
	if err != nil {
		s.record(key, err)
		return "", 0, fmt.Errorf("upload backup: %w", err)
	}

	s.record(key, nil)
	return key, int64(len(data)), nil
}

// Status reports the last backup outcome for the monitoring dashboard.
func (s *Scheduler) Status() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := map[string]interface{}{
		"running":  s.ticker != nil,
		"interval": s.opts.Interval.String(),
	}
	if !s.lastRun.IsZero() {
		status["last_run"] = s.lastRun
		status["last_key"] = s.lastKey
	}
	if s.lastErr != "" {
		status["last_error"] = s.lastErr
	}
	return status
}

func (s *Scheduler) record(key string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRun = time.Now()
	s.lastKey = key
	if err != nil {
		s.lastErr = err.Error()
	} else {
		s.lastErr = ""
	}
}

func (s *Scheduler) client(ctx context.Context) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.opts.AccessKey,
			s.opts.SecretKey,
			"",
		)),
		awsconfig.WithRegion(s.opts.Region),
	)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if s.opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(s.opts.Endpoint)
		}
	}), nil
}

// dump writes every table as INSERT statements. Plain SQL keeps restores
// possible with nothing but psql.
func (s *Scheduler) dump(ctx context.Context) ([]byte, error) {
	var buffer bytes.Buffer
	buffer.WriteString("-- Cable Network Database Backup\n")
	buffer.WriteString(fmt.Sprintf("-- Generated: %s\n", time.Now().Format(time.RFC3339)))

	for _, table := range tables {
		rows, err := s.db.Query(ctx, fmt.Sprintf("SELECT * FROM %s", table))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", table, err)
		}

		fields := rows.FieldDescriptions()
		cols := make([]string, len(fields))
		for i, f := range fields {
			cols[i] = string(f.Name)
		}

		buffer.WriteString(fmt.Sprintf("\n-- Table: %s\n", table))
		for rows.Next() {
			values, err := rows.Values()
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan %s: %w", table, err)
			}
			buffer.WriteString(fmt.Sprintf("INSERT INTO %s (%s) VALUES (", table, strings.Join(cols, ", ")))
			for i, v := range values {
				if i > 0 {
					buffer.WriteString(", ")
				}
				writeSQLValue(&buffer, v)
			}
			buffer.WriteString(");\n")
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("iterate %s: %w", table, err)
		}
	}

	return buffer.Bytes(), nil
}

func writeSQLValue(buffer *bytes.Buffer, v interface{}) {
	if v == nil {
		buffer.WriteString("NULL")
		return
	}
	switch val := v.(type) {
	case []byte:
		fmt.Fprintf(buffer, "'%s'", strings.ReplaceAll(string(val), "'", "''"))
	case string:
		fmt.Fprintf(buffer, "'%s'", strings.ReplaceAll(val, "'", "''"))
	case time.Time:
		fmt.Fprintf(buffer, "'%s'", val.Format("2006-01-02 15:04:05"))
	case bool:
		if val {
			buffer.WriteString("true")
		} else {
			buffer.WriteString("false")
		}
	default:
		fmt.Fprintf(buffer, "%v", val)
	}
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
