// Package tradelog keeps the per-session conversation of every agent: the
// prompt it saw, the model's answer and what became of it.
package tradelog

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Roles of a logged message.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

const fileName = "log.jsonl"

type Entry struct {
	Time      string `json:"time"`
	Signature string `json:"signature"`
	RunID     string `json:"run_id"`
	Step      int    `json:"step"`
	Role      string `json:"role"`
	Content   string `json:"content"`
}

// Log appends entries under <root>/<signature>/log/<session>/log.jsonl.
type Log struct {
	root string
	mu   sync.Mutex
	now  func() time.Time
}

func New(root string) *Log {
	return &Log{root: root, now: time.Now}
}

func (l *Log) Path(signature, session string) string {
	return filepath.Join(l.root, signature, "log", session, fileName)
}

// Append stamps e with the current time and writes it to the session file.
func (l *Log) Append(session string, e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	e.Time = l.now().Format("2006-01-02 15:04:05")
	p := l.Path(e.Signature, session)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(f, string(b))
	return err
}

// Read returns the entries of one session in write order. A missing file
// yields no entries.
func (l *Log) Read(signature, session string) ([]Entry, error) {
	f, err := os.Open(l.Path(signature, session))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var out []Entry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, sc.Err()
}

// CompressOlder gzips session logs not modified for retentionDays and
// removes the originals. It returns how many files were compressed.
func (l *Log) CompressOlder(retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	if _, err := os.Stat(l.root); errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	cutoff := l.now().AddDate(0, 0, -retentionDays)
	n := 0
	err := filepath.WalkDir(l.root, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || d.Name() != fileName {
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			return nil
		}
		gz := p + ".gz"
		if _, err := os.Stat(gz); err == nil {
			_ = os.Remove(p)
			return nil
		}
		if err := compress(p, gz); err != nil {
			return nil
		}
		n++
		return os.Remove(p)
	})
	return n, err
}

func compress(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	gw := gzip.NewWriter(out)
	if _, err := io.Copy(gw, in); err != nil {
		_ = gw.Close()
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := gw.Close(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
